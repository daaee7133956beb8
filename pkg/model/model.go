// Package model defines the predictor boundary of the serving cache
// and the artifact document trained models are shipped in.
package model

// Prediction is the outcome of scoring one feature vector.
type Prediction struct {
	// predicted class label.
	Class int

	// per-class scores aligned with the predictor's Classes. nil when
	// the family does not produce calibrated scores.
	Probability []float64
}

// Predictor scores feature vectors. Implementations are immutable
// after construction and safe for concurrent use.
type Predictor interface {
	// Predict scores a single feature vector of length InputDim.
	Predict(features []float64) (Prediction, error)

	// InputDim is the feature vector length Predict accepts.
	InputDim() int

	// Classes lists the class labels this predictor can emit, in the
	// order Prediction.Probability is aligned to.
	Classes() []int
}
