// Package common wires subcommands to the registry configured in the
// environment, and carries the output shapes they share.
package common

import (
	"fmt"
	"net/url"
	"os"
	"time"

	xe "github.com/YounessBoumeshouli/MLOps/pkg/errors"
	kreg "github.com/YounessBoumeshouli/MLOps/pkg/registry"
	"github.com/YounessBoumeshouli/MLOps/pkg/registry/mlflow"
)

// Environment variables the CLI reads. The MLflow ones follow the
// names the tracking server's own tooling uses, so one .env serves
// both.
const (
	EnvTrackingURI = "MLFLOW_TRACKING_URI"
	EnvS3Endpoint  = "MLFLOW_S3_ENDPOINT_URL"
	EnvS3AccessKey = "AWS_ACCESS_KEY_ID"
	EnvS3SecretKey = "AWS_SECRET_ACCESS_KEY"

	EnvAdminSecret = "MLOPS_ADMIN_TOKEN_SECRET"
)

const defaultTrackingURI = "http://localhost:5000"

// NewClient builds an MLflow client from the environment.
//
// MLFLOW_TRACKING_URI locates the tracking server (default
// http://localhost:5000). When MLFLOW_S3_ENDPOINT_URL is set, artifacts
// are read and written against that S3 endpoint with the AWS
// credential variables; otherwise they go through the tracking
// server's artifact proxy.
func NewClient() (*mlflow.Client, error) {
	uri := os.Getenv(EnvTrackingURI)
	if uri == "" {
		uri = defaultTrackingURI
	}

	options := []mlflow.Option{mlflow.WithTimeout(30 * time.Second)}
	if endpoint := os.Getenv(EnvS3Endpoint); endpoint != "" {
		u, err := url.Parse(endpoint)
		if err != nil || u.Host == "" {
			return nil, xe.Wrap(fmt.Errorf("unusable %s: %q", EnvS3Endpoint, endpoint))
		}
		options = append(options, mlflow.WithS3(
			u.Host,
			os.Getenv(EnvS3AccessKey),
			os.Getenv(EnvS3SecretKey),
			u.Scheme == "https",
		))
	}

	return mlflow.New(uri, options...)
}

// Version is a registry model version as the CLI prints it.
type Version struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Stage   string `json:"stage"`
	RunID   string `json:"run_id,omitempty"`
	Source  string `json:"source,omitempty"`
}

func ComposeVersion(mv kreg.ModelVersion) Version {
	return Version{
		Name:    mv.Name,
		Version: mv.Version,
		Stage:   mv.Stage,
		RunID:   mv.RunID,
		Source:  mv.Source,
	}
}
