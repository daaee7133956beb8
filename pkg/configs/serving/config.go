package serving

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration which unmarshals from YAML strings
// like "30s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var expr string
	if err := node.Decode(&expr); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(expr)
	if err != nil {
		return fmt.Errorf("cannot parse duration %q: %w", expr, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

type Config struct {
	// port the prediction API listens on.
	Port int32 `yaml:"port"`

	Model         ModelConfig         `yaml:"model"`
	Registry      RegistryConfig      `yaml:"registry"`
	Admin         AdminConfig         `yaml:"admin"`
	Health        HealthConfig        `yaml:"health"`
	PredictionLog PredictionLogConfig `yaml:"predictionLog"`
}

type ModelConfig struct {
	// registered model name resolved against the registry.
	Name string `yaml:"name"`

	// input dimensionality agreed with the trained model. Requests are
	// validated against this before touching the serving cache, and
	// artifacts declaring another dimensionality are refused at load.
	FeatureDim int `yaml:"featureDim"`
}

type RegistryConfig struct {
	// base URI of the MLflow tracking server.
	URI string `yaml:"uri"`

	// per-call deadline for registry and artifact requests.
	Timeout Duration `yaml:"timeout"`

	// cadence of the Production-version poll. Zero disables polling;
	// reloads then happen only via the admin endpoint.
	PollInterval Duration `yaml:"pollInterval"`

	// number of artifact payloads kept in memory, keyed by version.
	ArtifactCache int `yaml:"artifactCache"`

	// object store credentials for s3:// artifact sources. When nil,
	// only sources proxied by the tracking server can be fetched.
	S3 *S3Config `yaml:"s3,omitempty"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
}

type AdminConfig struct {
	// HS256 secret verifying bearer tokens on the reload endpoint.
	// Empty leaves the endpoint unauthenticated (development only).
	TokenSecret string `yaml:"tokenSecret"`
}

type HealthConfig struct {
	// cadence of the background registry reachability probe.
	RegistryProbeInterval Duration `yaml:"registryProbeInterval"`
}

type PredictionLogConfig struct {
	// postgres connection string. Empty disables the prediction log.
	DBURI string `yaml:"dbURI"`

	// capacity of the fire-and-forget queue between the request path
	// and the database writer.
	Buffer int `yaml:"buffer"`
}
