package mlflow

import (
	"context"
	"fmt"
	"net/url"

	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
)

var _ kreg.Registry = (*Client)(nil)

// GetProductionVersion resolves the latest version of the named model
// in the Production stage.
func (c *Client) GetProductionVersion(ctx context.Context, name string) (kreg.ModelVersion, error) {
	reqBody := struct {
		Name   string   `json:"name"`
		Stages []string `json:"stages"`
	}{
		Name:   name,
		Stages: []string{kreg.StageProduction},
	}

	var respBody struct {
		ModelVersions []modelVersionDocument `json:"model_versions"`
	}
	err := c.post(
		ctx, c.apipath("registered-models", "get-latest-versions"),
		reqBody, &respBody,
	)
	if err != nil {
		if errorCode(err) == codeResourceDoesNotExist {
			return kreg.ModelVersion{}, xe.Wrap(fmt.Errorf(
				"%w: model %q is not registered", kreg.ErrNoProductionVersion, name,
			))
		}
		return kreg.ModelVersion{}, xe.Wrap(err)
	}

	for _, mv := range respBody.ModelVersions {
		if mv.CurrentStage == kreg.StageProduction {
			return mv.toModelVersion(), nil
		}
	}
	return kreg.ModelVersion{}, xe.Wrap(fmt.Errorf(
		"%w: model %q", kreg.ErrNoProductionVersion, name,
	))
}

// GetRunMetrics reads the metrics logged to the tracking run. Each
// metric reports its most recent value.
func (c *Client) GetRunMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	var respBody struct {
		Run struct {
			Data struct {
				Metrics []metricDocument `json:"metrics"`
			} `json:"data"`
		} `json:"run"`
	}
	err := c.get(
		ctx, c.apipath("runs", "get"),
		url.Values{"run_id": {runID}}, &respBody,
	)
	if err != nil {
		return nil, xe.Wrap(err)
	}

	metrics := map[string]float64{}
	for _, m := range respBody.Run.Data.Metrics {
		metrics[m.Key] = m.Value
	}
	return metrics, nil
}
