// Package mock provides hand-written mocks of the registry boundary.
//
// Leave an Impl field nil to assert the method is never reached, or
// assign it to script the behavior. Calls records every invocation.
package mock

import (
	"context"
	"errors"

	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

type CallLog[T any] []T

func (l CallLog[T]) Times() uint {
	return uint(len(l))
}

type Registry struct {
	Impl struct {
		GetProductionVersion func(ctx context.Context, name string) (kreg.ModelVersion, error)
		FetchArtifact        func(ctx context.Context, mv kreg.ModelVersion) ([]byte, error)
		GetRunMetrics        func(ctx context.Context, runID string) (map[string]float64, error)
		Ping                 func(ctx context.Context) error
	}
	Calls struct {
		GetProductionVersion CallLog[struct{ Name string }]
		FetchArtifact        CallLog[struct{ ModelVersion kreg.ModelVersion }]
		GetRunMetrics        CallLog[struct{ RunID string }]
		Ping                 CallLog[struct{}]
	}
}

func NewRegistry() *Registry {
	return &Registry{}
}

var _ kreg.Registry = &Registry{}

func (m *Registry) GetProductionVersion(ctx context.Context, name string) (kreg.ModelVersion, error) {
	m.Calls.GetProductionVersion = append(m.Calls.GetProductionVersion, struct{ Name string }{Name: name})
	if m.Impl.GetProductionVersion != nil {
		return m.Impl.GetProductionVersion(ctx, name)
	}
	panic(errors.New("it should not be called"))
}

func (m *Registry) FetchArtifact(ctx context.Context, mv kreg.ModelVersion) ([]byte, error) {
	m.Calls.FetchArtifact = append(m.Calls.FetchArtifact, struct{ ModelVersion kreg.ModelVersion }{ModelVersion: mv})
	if m.Impl.FetchArtifact != nil {
		return m.Impl.FetchArtifact(ctx, mv)
	}
	panic(errors.New("it should not be called"))
}

func (m *Registry) GetRunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	m.Calls.GetRunMetrics = append(m.Calls.GetRunMetrics, struct{ RunID string }{RunID: runID})
	if m.Impl.GetRunMetrics != nil {
		return m.Impl.GetRunMetrics(ctx, runID)
	}
	panic(errors.New("it should not be called"))
}

func (m *Registry) Ping(ctx context.Context) error {
	m.Calls.Ping = append(m.Calls.Ping, struct{}{})
	if m.Impl.Ping != nil {
		return m.Impl.Ping(ctx)
	}
	panic(errors.New("it should not be called"))
}

type Tracker struct {
	Impl struct {
		EnsureExperiment      func(ctx context.Context, name string) (string, error)
		CreateRun             func(ctx context.Context, experimentID string, runName string) (kreg.Run, error)
		LogRunData            func(ctx context.Context, runID string, params map[string]string, metrics map[string]float64) error
		UploadModelArtifact   func(ctx context.Context, run kreg.Run, payload []byte) (string, error)
		FinishRun             func(ctx context.Context, runID string, status string) error
		EnsureRegisteredModel func(ctx context.Context, name string) error
		CreateModelVersion    func(ctx context.Context, name string, source string, runID string) (kreg.ModelVersion, error)
		TransitionStage       func(ctx context.Context, name string, version string, stage string, archiveExisting bool) (kreg.ModelVersion, error)
		LatestVersions        func(ctx context.Context, name string) ([]kreg.ModelVersion, error)
		GetModelVersion       func(ctx context.Context, name string, version string) (kreg.ModelVersion, error)
	}
	Calls struct {
		EnsureExperiment CallLog[struct{ Name string }]
		CreateRun        CallLog[struct {
			ExperimentID string
			RunName      string
		}]
		LogRunData CallLog[struct {
			RunID   string
			Params  map[string]string
			Metrics map[string]float64
		}]
		UploadModelArtifact CallLog[struct {
			Run     kreg.Run
			Payload []byte
		}]
		FinishRun CallLog[struct {
			RunID  string
			Status string
		}]
		EnsureRegisteredModel CallLog[struct{ Name string }]
		CreateModelVersion    CallLog[struct {
			Name   string
			Source string
			RunID  string
		}]
		TransitionStage CallLog[struct {
			Name            string
			Version         string
			Stage           string
			ArchiveExisting bool
		}]
		LatestVersions  CallLog[struct{ Name string }]
		GetModelVersion CallLog[struct {
			Name    string
			Version string
		}]
	}
}

func NewTracker() *Tracker {
	return &Tracker{}
}

var _ kreg.Tracker = &Tracker{}

func (m *Tracker) EnsureExperiment(ctx context.Context, name string) (string, error) {
	m.Calls.EnsureExperiment = append(m.Calls.EnsureExperiment, struct{ Name string }{Name: name})
	if m.Impl.EnsureExperiment != nil {
		return m.Impl.EnsureExperiment(ctx, name)
	}
	panic(errors.New("it should not be called"))
}

func (m *Tracker) CreateRun(ctx context.Context, experimentID string, runName string) (kreg.Run, error) {
	m.Calls.CreateRun = append(m.Calls.CreateRun, struct {
		ExperimentID string
		RunName      string
	}{ExperimentID: experimentID, RunName: runName})
	if m.Impl.CreateRun != nil {
		return m.Impl.CreateRun(ctx, experimentID, runName)
	}
	panic(errors.New("it should not be called"))
}

func (m *Tracker) LogRunData(ctx context.Context, runID string, params map[string]string, metrics map[string]float64) error {
	m.Calls.LogRunData = append(m.Calls.LogRunData, struct {
		RunID   string
		Params  map[string]string
		Metrics map[string]float64
	}{RunID: runID, Params: params, Metrics: metrics})
	if m.Impl.LogRunData != nil {
		return m.Impl.LogRunData(ctx, runID, params, metrics)
	}
	panic(errors.New("it should not be called"))
}

func (m *Tracker) UploadModelArtifact(ctx context.Context, run kreg.Run, payload []byte) (string, error) {
	m.Calls.UploadModelArtifact = append(m.Calls.UploadModelArtifact, struct {
		Run     kreg.Run
		Payload []byte
	}{Run: run, Payload: payload})
	if m.Impl.UploadModelArtifact != nil {
		return m.Impl.UploadModelArtifact(ctx, run, payload)
	}
	panic(errors.New("it should not be called"))
}

func (m *Tracker) FinishRun(ctx context.Context, runID string, status string) error {
	m.Calls.FinishRun = append(m.Calls.FinishRun, struct {
		RunID  string
		Status string
	}{RunID: runID, Status: status})
	if m.Impl.FinishRun != nil {
		return m.Impl.FinishRun(ctx, runID, status)
	}
	panic(errors.New("it should not be called"))
}

func (m *Tracker) EnsureRegisteredModel(ctx context.Context, name string) error {
	m.Calls.EnsureRegisteredModel = append(m.Calls.EnsureRegisteredModel, struct{ Name string }{Name: name})
	if m.Impl.EnsureRegisteredModel != nil {
		return m.Impl.EnsureRegisteredModel(ctx, name)
	}
	panic(errors.New("it should not be called"))
}

func (m *Tracker) CreateModelVersion(ctx context.Context, name string, source string, runID string) (kreg.ModelVersion, error) {
	m.Calls.CreateModelVersion = append(m.Calls.CreateModelVersion, struct {
		Name   string
		Source string
		RunID  string
	}{Name: name, Source: source, RunID: runID})
	if m.Impl.CreateModelVersion != nil {
		return m.Impl.CreateModelVersion(ctx, name, source, runID)
	}
	panic(errors.New("it should not be called"))
}

func (m *Tracker) TransitionStage(ctx context.Context, name string, version string, stage string, archiveExisting bool) (kreg.ModelVersion, error) {
	m.Calls.TransitionStage = append(m.Calls.TransitionStage, struct {
		Name            string
		Version         string
		Stage           string
		ArchiveExisting bool
	}{Name: name, Version: version, Stage: stage, ArchiveExisting: archiveExisting})
	if m.Impl.TransitionStage != nil {
		return m.Impl.TransitionStage(ctx, name, version, stage, archiveExisting)
	}
	panic(errors.New("it should not be called"))
}

func (m *Tracker) LatestVersions(ctx context.Context, name string) ([]kreg.ModelVersion, error) {
	m.Calls.LatestVersions = append(m.Calls.LatestVersions, struct{ Name string }{Name: name})
	if m.Impl.LatestVersions != nil {
		return m.Impl.LatestVersions(ctx, name)
	}
	panic(errors.New("it should not be called"))
}

func (m *Tracker) GetModelVersion(ctx context.Context, name string, version string) (kreg.ModelVersion, error) {
	m.Calls.GetModelVersion = append(m.Calls.GetModelVersion, struct {
		Name    string
		Version string
	}{Name: name, Version: version})
	if m.Impl.GetModelVersion != nil {
		return m.Impl.GetModelVersion(ctx, name, version)
	}
	panic(errors.New("it should not be called"))
}
