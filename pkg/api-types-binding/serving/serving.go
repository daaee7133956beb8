// Package serving composes API payloads from serving-side state.
package serving

import (
	"time"

	apihealth "github.com/YounessBoumeshouli/MLOps/pkg/api/types/health"
	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/misc/rfctime"
	apimodel "github.com/YounessBoumeshouli/MLOps/pkg/api/types/model"
	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/predict"
	"github.com/YounessBoumeshouli/MLOps/pkg/model"
	kserving "github.com/YounessBoumeshouli/MLOps/pkg/serving"
)

// ComposeHealth renders a health snapshot for the health endpoint.
func ComposeHealth(s kserving.HealthSnapshot) apihealth.Report {
	status := apihealth.StatusHealthy
	switch {
	case !s.ModelLoaded:
		status = apihealth.StatusUnavailable
	case !s.RegistryConnected:
		status = apihealth.StatusDegraded
	}

	return apihealth.Report{
		Status:            status,
		ModelLoaded:       s.ModelLoaded,
		RegistryConnected: s.RegistryConnected,
		ModelVersion:      s.ModelVersion,
		CheckedAt:         rfctime.New(s.CheckedAt),
	}
}

// ComposeModelDescription renders the served handle for the model
// endpoint.
func ComposeModelDescription(h *kserving.Handle) apimodel.Description {
	return apimodel.Description{
		ModelName:       h.ModelVersion.Name,
		Version:         h.ModelVersion.Version,
		RunID:           h.ModelVersion.RunID,
		Family:          h.Artifact.Family,
		InputDim:        h.Artifact.InputDim,
		Classes:         h.Artifact.Classes,
		LoadedAt:        rfctime.New(h.LoadedAt),
		TrainingMetrics: h.TrainingMetrics,
	}
}

// ComposeReloadResult renders the outcome of an admin reload.
func ComposeReloadResult(h *kserving.Handle, reloaded bool) apimodel.ReloadResult {
	return apimodel.ReloadResult{
		ModelVersion: h.Version(),
		Reloaded:     reloaded,
	}
}

// ComposePrediction renders one scored request.
func ComposePrediction(p model.Prediction, version string, at time.Time) predict.Response {
	return predict.Response{
		Prediction:   float64(p.Class),
		Probability:  p.Probability,
		ModelVersion: version,
		Timestamp:    rfctime.New(at),
	}
}
