package model

import (
	"github.com/YounessBoumeshouli/MLOps/pkg/api/types/misc/rfctime"
)

// Description tells which model version this process is serving.
type Description struct {
	ModelName       string             `json:"model_name"`
	Version         string             `json:"version"`
	RunID           string             `json:"run_id,omitempty"`
	Family          string             `json:"family"`
	InputDim        int                `json:"input_dim"`
	Classes         []int              `json:"classes,omitempty"`
	LoadedAt        rfctime.RFC3339    `json:"loaded_at"`
	TrainingMetrics map[string]float64 `json:"training_metrics,omitempty"`
}

// ReloadResult is the payload of the admin reload endpoint.
type ReloadResult struct {
	ModelVersion string `json:"model_version"`

	// false when Production had not moved and the running handle was
	// kept.
	Reloaded bool `json:"reloaded"`
}

func (r ReloadResult) Equal(o ReloadResult) bool {
	return r.ModelVersion == o.ModelVersion && r.Reloaded == o.Reloaded
}

func (d Description) Equal(o Description) bool {
	if d.ModelName != o.ModelName ||
		d.Version != o.Version ||
		d.RunID != o.RunID ||
		d.Family != o.Family ||
		d.InputDim != o.InputDim ||
		!d.LoadedAt.Equal(o.LoadedAt) {
		return false
	}
	if len(d.Classes) != len(o.Classes) {
		return false
	}
	for i := range d.Classes {
		if d.Classes[i] != o.Classes[i] {
			return false
		}
	}
	if len(d.TrainingMetrics) != len(o.TrainingMetrics) {
		return false
	}
	for k, v := range d.TrainingMetrics {
		if ov, ok := o.TrainingMetrics[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
