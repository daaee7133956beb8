package health

import (
	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/misc/rfctime"
)

const (
	// a model is loaded and the registry responded to the last probe.
	StatusHealthy = "healthy"

	// a model is loaded but the registry is unreachable. The service
	// keeps serving the loaded model.
	StatusDegraded = "degraded"

	// no model has ever been loaded. Traffic should not be admitted.
	StatusUnavailable = "unavailable"
)

// Report is the payload of the health endpoint.
type Report struct {
	Status            string          `json:"status"`
	ModelLoaded       bool            `json:"model_loaded"`
	RegistryConnected bool            `json:"registry_connected"`
	ModelVersion      string          `json:"model_version,omitempty"`
	CheckedAt         rfctime.RFC3339 `json:"checked_at"`
}

// Ready reports whether a load balancer may send traffic here.
func (r Report) Ready() bool {
	return r.ModelLoaded
}

func (r Report) Equal(o Report) bool {
	return r.Status == o.Status &&
		r.ModelLoaded == o.ModelLoaded &&
		r.RegistryConnected == o.RegistryConnected &&
		r.ModelVersion == o.ModelVersion &&
		r.CheckedAt.Equal(o.CheckedAt)
}
