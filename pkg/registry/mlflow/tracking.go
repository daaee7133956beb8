package mlflow

import (
	"context"
	"net/url"
	"time"

	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

var _ kreg.Tracker = (*Client)(nil)

// EnsureExperiment finds the experiment by name, creating it when
// missing, and returns its id.
func (c *Client) EnsureExperiment(ctx context.Context, name string) (string, error) {
	var found struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	err := c.get(
		ctx, c.apipath("experiments", "get-by-name"),
		url.Values{"experiment_name": {name}}, &found,
	)
	if err == nil {
		return found.Experiment.ExperimentID, nil
	}
	if errorCode(err) != codeResourceDoesNotExist {
		return "", xe.Wrap(err)
	}

	var created struct {
		ExperimentID string `json:"experiment_id"`
	}
	reqBody := struct {
		Name string `json:"name"`
	}{Name: name}
	if err := c.post(ctx, c.apipath("experiments", "create"), reqBody, &created); err != nil {
		return "", xe.Wrap(err)
	}
	return created.ExperimentID, nil
}

// CreateRun opens a tracking run under the experiment.
func (c *Client) CreateRun(ctx context.Context, experimentID string, runName string) (kreg.Run, error) {
	reqBody := struct {
		ExperimentID string `json:"experiment_id"`
		RunName      string `json:"run_name,omitempty"`
		StartTime    int64  `json:"start_time"`
	}{
		ExperimentID: experimentID,
		RunName:      runName,
		StartTime:    time.Now().UnixMilli(),
	}

	var respBody struct {
		Run struct {
			Info runInfoDocument `json:"info"`
		} `json:"run"`
	}
	if err := c.post(ctx, c.apipath("runs", "create"), reqBody, &respBody); err != nil {
		return kreg.Run{}, xe.Wrap(err)
	}
	return kreg.Run{
		ID:           respBody.Run.Info.RunID,
		ExperimentID: respBody.Run.Info.ExperimentID,
		ArtifactURI:  respBody.Run.Info.ArtifactURI,
	}, nil
}

// LogRunData records params and metrics of the run in a single batch.
func (c *Client) LogRunData(ctx context.Context, runID string, params map[string]string, metrics map[string]float64) error {
	reqBody := struct {
		RunID   string           `json:"run_id"`
		Params  []paramDocument  `json:"params,omitempty"`
		Metrics []metricDocument `json:"metrics,omitempty"`
	}{RunID: runID}

	for key, value := range params {
		reqBody.Params = append(reqBody.Params, paramDocument{Key: key, Value: value})
	}
	now := time.Now().UnixMilli()
	for key, value := range metrics {
		reqBody.Metrics = append(reqBody.Metrics, metricDocument{
			Key: key, Value: value, Timestamp: now,
		})
	}

	if err := c.postDiscard(ctx, c.apipath("runs", "log-batch"), reqBody); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

// FinishRun closes the run with a terminal status, "FINISHED" or
// "FAILED".
func (c *Client) FinishRun(ctx context.Context, runID string, status string) error {
	reqBody := struct {
		RunID   string `json:"run_id"`
		Status  string `json:"status"`
		EndTime int64  `json:"end_time"`
	}{
		RunID:   runID,
		Status:  status,
		EndTime: time.Now().UnixMilli(),
	}
	if err := c.postDiscard(ctx, c.apipath("runs", "update"), reqBody); err != nil {
		return xe.Wrap(err)
	}
	return nil
}

// EnsureRegisteredModel creates the registered model. Already existing
// is not an error.
func (c *Client) EnsureRegisteredModel(ctx context.Context, name string) error {
	reqBody := struct {
		Name string `json:"name"`
	}{Name: name}
	err := c.postDiscard(ctx, c.apipath("registered-models", "create"), reqBody)
	if err != nil && errorCode(err) != codeResourceAlreadyExists {
		return xe.Wrap(err)
	}
	return nil
}

// CreateModelVersion registers a new version of the model pointing at
// the artifact source.
func (c *Client) CreateModelVersion(ctx context.Context, name string, source string, runID string) (kreg.ModelVersion, error) {
	reqBody := struct {
		Name   string `json:"name"`
		Source string `json:"source"`
		RunID  string `json:"run_id,omitempty"`
	}{Name: name, Source: source, RunID: runID}

	var respBody struct {
		ModelVersion modelVersionDocument `json:"model_version"`
	}
	if err := c.post(ctx, c.apipath("model-versions", "create"), reqBody, &respBody); err != nil {
		return kreg.ModelVersion{}, xe.Wrap(err)
	}
	return respBody.ModelVersion.toModelVersion(), nil
}

// TransitionStage moves the version into stage. With archiveExisting,
// versions already in that stage are archived in the same step.
func (c *Client) TransitionStage(ctx context.Context, name string, version string, stage string, archiveExisting bool) (kreg.ModelVersion, error) {
	reqBody := struct {
		Name                    string `json:"name"`
		Version                 string `json:"version"`
		Stage                   string `json:"stage"`
		ArchiveExistingVersions bool   `json:"archive_existing_versions"`
	}{
		Name:                    name,
		Version:                 version,
		Stage:                   stage,
		ArchiveExistingVersions: archiveExisting,
	}

	var respBody struct {
		ModelVersion modelVersionDocument `json:"model_version"`
	}
	err := c.post(ctx, c.apipath("model-versions", "transition-stage"), reqBody, &respBody)
	if err != nil {
		return kreg.ModelVersion{}, xe.Wrap(err)
	}
	return respBody.ModelVersion.toModelVersion(), nil
}

// LatestVersions lists the newest version of the model per lifecycle
// stage.
func (c *Client) LatestVersions(ctx context.Context, name string) ([]kreg.ModelVersion, error) {
	reqBody := struct {
		Name string `json:"name"`
	}{Name: name}

	var respBody struct {
		ModelVersions []modelVersionDocument `json:"model_versions"`
	}
	err := c.post(
		ctx, c.apipath("registered-models", "get-latest-versions"),
		reqBody, &respBody,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	versions := make([]kreg.ModelVersion, 0, len(respBody.ModelVersions))
	for _, mv := range respBody.ModelVersions {
		versions = append(versions, mv.toModelVersion())
	}
	return versions, nil
}

// GetModelVersion resolves one specific version of the model.
func (c *Client) GetModelVersion(ctx context.Context, name string, version string) (kreg.ModelVersion, error) {
	var respBody struct {
		ModelVersion modelVersionDocument `json:"model_version"`
	}
	err := c.get(
		ctx, c.apipath("model-versions", "get"),
		url.Values{"name": {name}, "version": {version}}, &respBody,
	)
	if err != nil {
		return kreg.ModelVersion{}, xe.Wrap(err)
	}
	return respBody.ModelVersion.toModelVersion(), nil
}
