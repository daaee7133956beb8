package linear_test

import (
	"math"
	"testing"

	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/misc/rfctime"
	"github.com/YounessBoumeshouli/MLOps/pkg/cmp"
	"github.com/YounessBoumeshouli/MLOps/pkg/model"
	"github.com/YounessBoumeshouli/MLOps/pkg/model/linear"
	"github.com/YounessBoumeshouli/MLOps/pkg/utils/try"
)

// two well separated clusters in 2d.
var (
	trainFeatures = [][]float64{
		{0.0, 0.2}, {0.3, 0.1}, {0.1, 0.4}, {0.4, 0.3}, {0.2, 0.0},
		{5.0, 5.2}, {5.3, 5.1}, {5.1, 5.4}, {5.4, 5.3}, {5.2, 5.0},
	}
	trainLabels = []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
)

func TestTrain(t *testing.T) {
	t.Run("it separates two clusters", func(t *testing.T) {
		testee := try.To(linear.Train(trainFeatures, trainLabels, linear.TrainConfig{})).OrFatal(t)

		if testee.InputDim() != 2 {
			t.Errorf("unmatch input dim: (actual, expected) = (%d, 2)", testee.InputDim())
		}
		if !cmp.SliceEq(testee.Classes(), []int{0, 1}) {
			t.Errorf("unmatch classes: %v", testee.Classes())
		}

		for _, testcase := range []struct {
			features []float64
			label    int
		}{
			{features: []float64{0.2, 0.2}, label: 0},
			{features: []float64{5.2, 5.2}, label: 1},
		} {
			actual := try.To(testee.Predict(testcase.features)).OrFatal(t)
			if actual.Class != testcase.label {
				t.Errorf(
					"unmatch class for %v: (actual, expected) = (%d, %d)",
					testcase.features, actual.Class, testcase.label,
				)
			}

			if len(actual.Probability) != 2 {
				t.Fatalf("unexpected probability: %v", actual.Probability)
			}
			total := actual.Probability[0] + actual.Probability[1]
			if 1e-9 < math.Abs(total-1.0) {
				t.Errorf("probability does not sum to 1: %v", actual.Probability)
			}
			if actual.Probability[testcase.label] < 0.5 {
				t.Errorf(
					"predicted class is not the likely one: %v (class %d)",
					actual.Probability, actual.Class,
				)
			}
		}
	})

	t.Run("the epoch hook sees every epoch, in order", func(t *testing.T) {
		epochs := []int{}
		conf := linear.TrainConfig{
			Epochs:  5,
			OnEpoch: func(done int) { epochs = append(epochs, done) },
		}

		try.To(linear.Train(trainFeatures, trainLabels, conf)).OrFatal(t)

		if !cmp.SliceEq(epochs, []int{1, 2, 3, 4, 5}) {
			t.Errorf("unmatch epochs: %v", epochs)
		}
	})

	t.Run("labels other than 0/1 are mapped by order", func(t *testing.T) {
		labels := []int{3, 3, 3, 3, 3, 7, 7, 7, 7, 7}
		testee := try.To(linear.Train(trainFeatures, labels, linear.TrainConfig{})).OrFatal(t)

		if !cmp.SliceEq(testee.Classes(), []int{3, 7}) {
			t.Errorf("unmatch classes: %v", testee.Classes())
		}

		actual := try.To(testee.Predict([]float64{5.2, 5.2})).OrFatal(t)
		if actual.Class != 7 {
			t.Errorf("unmatch class: (actual, expected) = (%d, 7)", actual.Class)
		}
	})

	t.Run("broken training sets are rejected", func(t *testing.T) {
		for name, testcase := range map[string]struct {
			features [][]float64
			labels   []int
		}{
			"empty": {
				features: [][]float64{}, labels: []int{},
			},
			"labels do not line up": {
				features: [][]float64{{1, 2}, {3, 4}}, labels: []int{0},
			},
			"ragged samples": {
				features: [][]float64{{1, 2}, {3}}, labels: []int{0, 1},
			},
			"single class": {
				features: [][]float64{{1, 2}, {3, 4}}, labels: []int{1, 1},
			},
			"too many classes": {
				features: [][]float64{{1, 2}, {3, 4}, {5, 6}}, labels: []int{0, 1, 2},
			},
		} {
			t.Run(name, func(t *testing.T) {
				if _, err := linear.Train(testcase.features, testcase.labels, linear.TrainConfig{}); err == nil {
					t.Error("error is expected, but not")
				}
			})
		}
	})
}

func TestModel(t *testing.T) {
	t.Run("it rejects feature vectors of the wrong length", func(t *testing.T) {
		testee := try.To(linear.New([]float64{1, 1}, 0, []int{0, 1})).OrFatal(t)

		if _, err := testee.Predict([]float64{1, 2, 3}); err == nil {
			t.Error("error is expected, but not")
		}
	})

	t.Run("it rejects degenerate parameters", func(t *testing.T) {
		if _, err := linear.New([]float64{}, 0, []int{0, 1}); err == nil {
			t.Error("error is expected for empty weights, but not")
		}
		if _, err := linear.New([]float64{1}, 0, []int{1, 1}); err == nil {
			t.Error("error is expected for duplicated classes, but not")
		}
		if _, err := linear.New([]float64{1}, 0, []int{0, 1, 2}); err == nil {
			t.Error("error is expected for non-binary classes, but not")
		}
	})
}

func TestPayload(t *testing.T) {
	t.Run("a model decodes back from its own payload", func(t *testing.T) {
		trained := try.To(linear.Train(trainFeatures, trainLabels, linear.TrainConfig{
			LearningRate: 0.5,
			Epochs:       300,
		})).OrFatal(t)

		a := &model.Artifact{
			Format:    model.Format,
			Family:    linear.Family,
			ModelName: "ml_classifier",
			InputDim:  trained.InputDim(),
			Classes:   trained.Classes(),
			TrainedAt: try.To(rfctime.ParseRFC3339DateTime(
				"2026-08-01T10:00:00.000+00:00",
			)).OrFatal(t),
			Payload: try.To(trained.Payload()).OrFatal(t),
		}

		restorer := model.NewRestorer()
		linear.Register(restorer)

		_, restored, err := restorer.Restore(try.To(a.Encode()).OrFatal(t))
		if err != nil {
			t.Fatalf("unexpected error: %+v", err)
		}

		for _, features := range [][]float64{
			{0.2, 0.2}, {5.2, 5.2}, {2.5, 2.5},
		} {
			want := try.To(trained.Predict(features)).OrFatal(t)
			got := try.To(restored.Predict(features)).OrFatal(t)
			if got.Class != want.Class {
				t.Errorf("unmatch class for %v: (actual, expected) = (%d, %d)", features, got.Class, want.Class)
			}
			if !cmp.SliceEqWith(got.Probability, want.Probability, cmp.EqEq[float64]) {
				t.Errorf("unmatch probability for %v: (actual, expected) = (%v, %v)", features, got.Probability, want.Probability)
			}
		}
	})
}

func TestTrainConfig(t *testing.T) {
	params := linear.TrainConfig{}.Params()
	expected := map[string]string{
		"model_family":  "logreg",
		"learning_rate": "0.1",
		"epochs":        "200",
	}
	if !cmp.MapEq(params, expected) {
		t.Errorf("unmatch params: (actual, expected) = (%v, %v)", params, expected)
	}
}
