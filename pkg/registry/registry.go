package registry

import (
	"context"
	"errors"
)

// Lifecycle stages a model version can be in.
const (
	StageNone       = "None"
	StageStaging    = "Staging"
	StageProduction = "Production"
	StageArchived   = "Archived"
)

// Terminal run statuses accepted by Tracker.FinishRun.
const (
	RunFinished = "FINISHED"
	RunFailed   = "FAILED"
)

// ErrNoProductionVersion is returned when the registry knows the model
// but no version of it is staged Production. The caller must not fall
// back to an arbitrary version.
var ErrNoProductionVersion = errors.New("no Production version is registered")

// ErrUnavailable is returned when the registry cannot be reached or
// answers with a server error. The condition is transient from the
// caller's point of view.
var ErrUnavailable = errors.New("model registry is unavailable")

// ErrCorruptArtifact is returned when the registry points at an
// artifact which cannot be fetched or decoded into a usable model.
var ErrCorruptArtifact = errors.New("model artifact is corrupt")

// ModelVersion identifies one registered artifact of a model.
type ModelVersion struct {
	// registered model name.
	Name string

	// version identifier, unique per artifact. Opaque to this process.
	Version string

	// lifecycle stage (see Stage constants).
	Stage string

	// tracking run which produced the artifact. May be empty.
	RunID string

	// URI of the artifact directory in the artifact store.
	Source string
}

// Run is a tracking run accepting params, metrics and artifacts.
type Run struct {
	ID           string
	ExperimentID string

	// root URI where artifacts of this run are stored.
	ArtifactURI string
}

// Registry is the serving-side view of the model registry.
type Registry interface {
	// GetProductionVersion resolves the version of the named model
	// currently staged Production.
	//
	// Returns ErrNoProductionVersion when the model has no Production
	// version, ErrUnavailable when the registry cannot answer.
	GetProductionVersion(ctx context.Context, name string) (ModelVersion, error)

	// FetchArtifact reads the artifact document of the version.
	//
	// Returns ErrCorruptArtifact when the artifact is missing from the
	// store, ErrUnavailable on transport failures.
	FetchArtifact(ctx context.Context, mv ModelVersion) ([]byte, error)

	// GetRunMetrics reads the final metrics logged to a tracking run.
	GetRunMetrics(ctx context.Context, runID string) (map[string]float64, error)

	// Ping probes registry reachability.
	Ping(ctx context.Context) error
}

// Tracker is the training-side view: experiments, runs, registration
// and stage transitions.
type Tracker interface {
	// EnsureExperiment finds the named experiment, creating it when
	// missing, and returns its id.
	EnsureExperiment(ctx context.Context, name string) (string, error)

	// CreateRun opens a new tracking run under the experiment.
	CreateRun(ctx context.Context, experimentID string, runName string) (Run, error)

	// LogRunData records params and final metrics of the run in one batch.
	LogRunData(ctx context.Context, runID string, params map[string]string, metrics map[string]float64) error

	// UploadModelArtifact stores the model document under the run's
	// artifact root and returns the source URI to register.
	UploadModelArtifact(ctx context.Context, run Run, payload []byte) (string, error)

	// FinishRun closes the run with the given terminal status
	// ("FINISHED" or "FAILED").
	FinishRun(ctx context.Context, runID string, status string) error

	// EnsureRegisteredModel creates the registered model if it does not
	// exist yet.
	EnsureRegisteredModel(ctx context.Context, name string) error

	// CreateModelVersion registers a new version pointing at source.
	CreateModelVersion(ctx context.Context, name string, source string, runID string) (ModelVersion, error)

	// TransitionStage moves a version to the stage. With
	// archiveExisting, versions currently in that stage are archived.
	TransitionStage(ctx context.Context, name string, version string, stage string, archiveExisting bool) (ModelVersion, error)

	// LatestVersions lists the newest version per lifecycle stage.
	LatestVersions(ctx context.Context, name string) ([]ModelVersion, error)

	// GetModelVersion resolves one specific version of the model.
	GetModelVersion(ctx context.Context, name string, version string) (ModelVersion, error)
}
