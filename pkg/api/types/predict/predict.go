package predict

import (
	"fmt"
	"math"

	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/misc/rfctime"
)

// Request is the payload of the prediction endpoint.
type Request struct {
	Features []float64 `json:"features"`
}

// Validate checks the feature vector against the serving schema.
//
// A vector is acceptable only if it has exactly dim finite values.
func (r Request) Validate(dim int) error {
	if r.Features == nil {
		return fmt.Errorf(`required field missing: "features"`)
	}
	if len(r.Features) != dim {
		return fmt.Errorf("features must have exactly %d values, got %d", dim, len(r.Features))
	}
	for i, f := range r.Features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("features[%d] is not a finite number", i)
		}
	}
	return nil
}

// Response is the result of one prediction.
//
// Probability is null when the model family does not expose per-class
// scores. ModelVersion attributes the result to the registry version
// which produced it, even if a reload happened while serving.
type Response struct {
	Prediction   float64         `json:"prediction"`
	Probability  []float64       `json:"probability"`
	ModelVersion string          `json:"model_version"`
	Timestamp    rfctime.RFC3339 `json:"timestamp"`
}

func (r Response) Equal(o Response) bool {
	if r.Prediction != o.Prediction ||
		r.ModelVersion != o.ModelVersion ||
		!r.Timestamp.Equal(o.Timestamp) {
		return false
	}
	if len(r.Probability) != len(o.Probability) {
		return false
	}
	for i := range r.Probability {
		if r.Probability[i] != o.Probability[i] {
			return false
		}
	}
	return true
}
