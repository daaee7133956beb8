// Package linear implements the "logreg" model family: binary
// logistic regression trained by full-batch gradient descent.
package linear

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/YounessBoumeshouli/MLOps/pkg/model"
)

const Family = "logreg"

// Register adds this family to the Restorer.
func Register(r *model.Restorer) {
	r.Register(Family, Decode)
}

// Model is a trained binary logistic regression. Immutable.
type Model struct {
	weights []float64
	bias    float64

	// the two class labels, ascending. Probability reports
	// [P(classes[0]), P(classes[1])].
	classes []int
}

var _ model.Predictor = &Model{}

// New builds a Model from trained parameters. classes must hold
// exactly two distinct labels.
func New(weights []float64, bias float64, classes []int) (*Model, error) {
	if len(weights) == 0 {
		return nil, errors.New("no weights")
	}
	if len(classes) != 2 || classes[0] == classes[1] {
		return nil, fmt.Errorf("logreg is binary, but classes are %v", classes)
	}
	return &Model{
		weights: weights,
		bias:    bias,
		classes: []int{classes[0], classes[1]},
	}, nil
}

func (m *Model) Predict(features []float64) (model.Prediction, error) {
	if len(features) != len(m.weights) {
		return model.Prediction{}, fmt.Errorf(
			"expected %d features, got %d", len(m.weights), len(features),
		)
	}

	z := m.bias
	for i, w := range m.weights {
		z += w * features[i]
	}
	p := sigmoid(z)

	pred := model.Prediction{
		Class:       m.classes[0],
		Probability: []float64{1 - p, p},
	}
	if 0.5 <= p {
		pred.Class = m.classes[1]
	}
	return pred, nil
}

func (m *Model) InputDim() int {
	return len(m.weights)
}

func (m *Model) Classes() []int {
	return []int{m.classes[0], m.classes[1]}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// TrainConfig tunes gradient descent. Zero values fall back to
// defaults.
type TrainConfig struct {
	LearningRate float64 // default 0.1
	Epochs       int     // default 200

	// OnEpoch, when set, is called after each epoch with the number of
	// epochs done. Progress reporting hook.
	OnEpoch func(done int)
}

func (c TrainConfig) withDefaults() TrainConfig {
	if c.LearningRate == 0 {
		c.LearningRate = 0.1
	}
	if c.Epochs == 0 {
		c.Epochs = 200
	}
	return c
}

// Params describes the effective training configuration, for run
// tracking.
func (c TrainConfig) Params() map[string]string {
	c = c.withDefaults()
	return map[string]string{
		"model_family":  Family,
		"learning_rate": fmt.Sprintf("%g", c.LearningRate),
		"epochs":        fmt.Sprintf("%d", c.Epochs),
	}
}

// Train fits a binary logistic regression on the samples. labels must
// contain exactly two distinct values; the smaller label becomes the
// negative class.
func Train(features [][]float64, labels []int, conf TrainConfig) (*Model, error) {
	conf = conf.withDefaults()

	if len(features) == 0 {
		return nil, errors.New("no training samples")
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf(
			"%d samples, but %d labels", len(features), len(labels),
		)
	}

	dim := len(features[0])
	for i, x := range features {
		if len(x) != dim {
			return nil, fmt.Errorf(
				"sample #%d has %d features (expected: %d)", i, len(x), dim,
			)
		}
	}

	classes := distinctLabels(labels)
	if len(classes) != 2 {
		return nil, fmt.Errorf(
			"logreg is binary, but training data has %d classes", len(classes),
		)
	}

	// y[i] is 1 for the positive class, 0 otherwise.
	y := make([]float64, len(labels))
	for i, label := range labels {
		if label == classes[1] {
			y[i] = 1
		}
	}

	n := float64(len(features))
	weights := make([]float64, dim)
	bias := 0.0
	for epoch := 0; epoch < conf.Epochs; epoch++ {
		gradW := make([]float64, dim)
		gradB := 0.0
		for i, x := range features {
			z := bias
			for j, w := range weights {
				z += w * x[j]
			}
			diff := sigmoid(z) - y[i]
			for j, xj := range x {
				gradW[j] += diff * xj
			}
			gradB += diff
		}
		for j := range weights {
			weights[j] -= conf.LearningRate * gradW[j] / n
		}
		bias -= conf.LearningRate * gradB / n

		if conf.OnEpoch != nil {
			conf.OnEpoch(epoch + 1)
		}
	}

	return New(weights, bias, classes)
}

func distinctLabels(labels []int) []int {
	seen := map[int]struct{}{}
	distinct := []int{}
	for _, label := range labels {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		distinct = append(distinct, label)
	}
	sort.Ints(distinct)
	return distinct
}

type payload struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Payload renders the trained parameters for the artifact document.
func (m *Model) Payload() (json.RawMessage, error) {
	return json.Marshal(payload{Weights: m.weights, Bias: m.bias})
}

// Decode rebuilds a Model from an artifact document of this family.
func Decode(a *model.Artifact) (model.Predictor, error) {
	var p payload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, err
	}
	return New(p.Weights, p.Bias, a.Classes)
}
