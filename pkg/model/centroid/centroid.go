// Package centroid implements the "centroid" model family: nearest
// class centroid by euclidean distance. It produces no calibrated
// scores, so its predictions carry a nil probability.
package centroid

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/YounessBoumeshouli/MLOps/pkg/model"
)

const Family = "centroid"

// Register adds this family to the Restorer.
func Register(r *model.Restorer) {
	r.Register(Family, Decode)
}

// Model holds one centroid per class. Immutable.
type Model struct {
	classes   []int
	centroids [][]float64
}

var _ model.Predictor = &Model{}

// New builds a Model from per-class centroids, aligned with classes.
func New(classes []int, centroids [][]float64) (*Model, error) {
	if len(classes) == 0 {
		return nil, errors.New("no classes")
	}
	if len(classes) != len(centroids) {
		return nil, fmt.Errorf(
			"%d classes, but %d centroids", len(classes), len(centroids),
		)
	}
	dim := len(centroids[0])
	for i, c := range centroids {
		if len(c) != dim {
			return nil, fmt.Errorf(
				"centroid of class %d has %d features (expected: %d)",
				classes[i], len(c), dim,
			)
		}
	}
	return &Model{classes: classes, centroids: centroids}, nil
}

func (m *Model) Predict(features []float64) (model.Prediction, error) {
	if len(features) != m.InputDim() {
		return model.Prediction{}, fmt.Errorf(
			"expected %d features, got %d", m.InputDim(), len(features),
		)
	}

	nearest := 0
	best := squaredDistance(features, m.centroids[0])
	for i := 1; i < len(m.centroids); i++ {
		if d := squaredDistance(features, m.centroids[i]); d < best {
			nearest, best = i, d
		}
	}
	return model.Prediction{Class: m.classes[nearest]}, nil
}

func (m *Model) InputDim() int {
	return len(m.centroids[0])
}

func (m *Model) Classes() []int {
	classes := make([]int, len(m.classes))
	copy(classes, m.classes)
	return classes
}

func squaredDistance(a, b []float64) float64 {
	sum := 0.0
	for i, ai := range a {
		d := ai - b[i]
		sum += d * d
	}
	return sum
}

// Train computes the mean feature vector of each class.
func Train(features [][]float64, labels []int) (*Model, error) {
	if len(features) == 0 {
		return nil, errors.New("no training samples")
	}
	if len(features) != len(labels) {
		return nil, fmt.Errorf(
			"%d samples, but %d labels", len(features), len(labels),
		)
	}

	dim := len(features[0])
	sums := map[int][]float64{}
	counts := map[int]int{}
	for i, x := range features {
		if len(x) != dim {
			return nil, fmt.Errorf(
				"sample #%d has %d features (expected: %d)", i, len(x), dim,
			)
		}
		label := labels[i]
		if _, ok := sums[label]; !ok {
			sums[label] = make([]float64, dim)
		}
		for j, xj := range x {
			sums[label][j] += xj
		}
		counts[label] += 1
	}

	classes := make([]int, 0, len(sums))
	for label := range sums {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	centroids := make([][]float64, len(classes))
	for i, label := range classes {
		centroid := sums[label]
		for j := range centroid {
			centroid[j] /= float64(counts[label])
		}
		centroids[i] = centroid
	}

	return New(classes, centroids)
}

type payload struct {
	Centroids [][]float64 `json:"centroids"`
}

// Payload renders the trained parameters for the artifact document.
func (m *Model) Payload() (json.RawMessage, error) {
	return json.Marshal(payload{Centroids: m.centroids})
}

// Decode rebuilds a Model from an artifact document of this family.
// Centroids in the payload align with the classes in the envelope.
func Decode(a *model.Artifact) (model.Predictor, error) {
	var p payload
	if err := json.Unmarshal(a.Payload, &p); err != nil {
		return nil, err
	}
	return New(a.Classes, p.Centroids)
}
