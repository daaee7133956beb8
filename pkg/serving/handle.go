// Package serving owns the model a running service predicts with: an
// atomically swapped handle, the loader which publishes new handles,
// and the health gate in front of it all.
package serving

import (
	"time"

	"github.com/YounessBoumeshouli/MLOps/pkg/model"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

// Handle is one published model: an immutable predictor plus the
// registry identity it was loaded under. A Handle never changes after
// publish; reloads swap in a whole new one.
type Handle struct {
	// scores requests. Safe for concurrent use.
	Predictor model.Predictor

	// registry version the predictor was resolved from.
	ModelVersion kreg.ModelVersion

	// envelope of the loaded artifact.
	Artifact *model.Artifact

	// final metrics of the training run. nil when the registry does
	// not know them.
	TrainingMetrics map[string]float64

	// when this handle was published.
	LoadedAt time.Time
}

// Version is the registry version string, the one clients see in
// responses.
func (h *Handle) Version() string {
	return h.ModelVersion.Version
}
