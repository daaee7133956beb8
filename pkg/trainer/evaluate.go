package trainer

import (
	"errors"
	"fmt"

	"github.com/YounessBoumeshouli/MLOps/pkg/dataset"
	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	"github.com/YounessBoumeshouli/MLOps/pkg/model"
)

// Evaluation is the final metric set of one training run. Precision,
// Recall and F1 are support-weighted averages over the classes.
type Evaluation struct {
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

// Metrics renders the evaluation under its tracking metric names.
func (e Evaluation) Metrics() map[string]float64 {
	return map[string]float64{
		"accuracy":  e.Accuracy,
		"precision": e.Precision,
		"recall":    e.Recall,
		"f1_score":  e.F1,
	}
}

// Evaluate scores the predictor on the test set.
//
// Per class, precision = TP/(TP+FP) and recall = TP/(TP+FN), each 0
// when its denominator is; F1 is their harmonic mean. The weighted
// averages weigh every class by its share of true samples.
func Evaluate(p model.Predictor, test dataset.Set) (Evaluation, error) {
	if test.Len() == 0 {
		return Evaluation{}, errors.New("nothing to evaluate on")
	}

	// confusion counts, keyed by class label
	truePos := map[int]int{}
	falsePos := map[int]int{}
	support := map[int]int{}

	correct := 0
	for i, x := range test.Features {
		pred, err := p.Predict(x)
		if err != nil {
			return Evaluation{}, xe.Wrap(fmt.Errorf("sample #%d: %w", i, err))
		}

		truth := test.Labels[i]
		support[truth] += 1
		if pred.Class == truth {
			truePos[truth] += 1
			correct += 1
		} else {
			falsePos[pred.Class] += 1
		}
	}

	n := float64(test.Len())
	ev := Evaluation{Accuracy: float64(correct) / n}

	for label, sup := range support {
		weight := float64(sup) / n

		precision := 0.0
		if predicted := truePos[label] + falsePos[label]; 0 < predicted {
			precision = float64(truePos[label]) / float64(predicted)
		}
		recall := float64(truePos[label]) / float64(sup)

		f1 := 0.0
		if 0 < precision+recall {
			f1 = 2 * precision * recall / (precision + recall)
		}

		ev.Precision += weight * precision
		ev.Recall += weight * recall
		ev.F1 += weight * f1
	}
	return ev, nil
}
