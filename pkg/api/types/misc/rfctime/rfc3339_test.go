package rfctime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/misc/rfctime"
)

func TestRFC3339(t *testing.T) {
	t.Run("it marshals to RFC3339 with numeric offset", func(t *testing.T) {
		timestamp := rfctime.New(time.Date(
			2024, 4, 15, 10, 11, 12, 987_000_000,
			time.FixedZone("+09:00", 9*60*60),
		))

		b, err := json.Marshal(timestamp)
		if err != nil {
			t.Fatal(err)
		}

		if string(b) != `"2024-04-15T10:11:12.987+09:00"` {
			t.Errorf("unexpected expression: %s", string(b))
		}
	})

	t.Run("it unmarshals both Z and numeric offsets", func(t *testing.T) {
		for _, expr := range []string{
			`"2024-04-15T01:11:12.987Z"`,
			`"2024-04-15T10:11:12.987+09:00"`,
		} {
			var timestamp rfctime.RFC3339
			if err := json.Unmarshal([]byte(expr), &timestamp); err != nil {
				t.Fatalf("unmarshal %s: %s", expr, err)
			}

			want := time.Date(2024, 4, 15, 1, 11, 12, 987_000_000, time.UTC)
			if !timestamp.Time().Equal(want) {
				t.Errorf("parsed %s as %s, wanted %s", expr, timestamp.Time(), want)
			}
		}
	})

	t.Run("it ignores null", func(t *testing.T) {
		timestamp := rfctime.New(time.Date(2024, 4, 15, 1, 11, 12, 0, time.UTC))
		if err := json.Unmarshal([]byte("null"), &timestamp); err != nil {
			t.Fatal(err)
		}
		if !timestamp.Time().Equal(time.Date(2024, 4, 15, 1, 11, 12, 0, time.UTC)) {
			t.Errorf("null overwrote the value: %s", timestamp.Time())
		}
	})

	t.Run("Equal compares instants across zones", func(t *testing.T) {
		a := rfctime.New(time.Date(2024, 4, 15, 10, 0, 0, 0, time.FixedZone("+09:00", 9*60*60)))
		b := rfctime.New(time.Date(2024, 4, 15, 1, 0, 0, 0, time.UTC))

		if !a.Equal(b) {
			t.Errorf("same instant compared unequal: %s vs %s", a, b)
		}
	})
}
