package serving

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

func LoadServingConfig(filepath string) (*Config, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*Config, error) {
	var out Config
	if err := yaml.Unmarshal(conf, &out); err != nil {
		return nil, err
	}
	out.applyDefault()
	if err := out.validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Config) applyDefault() {
	if c.Port == 0 {
		c.Port = 8000
	}
	if c.Model.Name == "" {
		c.Model.Name = "ml_classifier"
	}
	if c.Model.FeatureDim == 0 {
		c.Model.FeatureDim = 20
	}
	if c.Registry.URI == "" {
		c.Registry.URI = "http://localhost:5000"
	}
	if c.Registry.Timeout == 0 {
		c.Registry.Timeout = Duration(30 * time.Second)
	}
	if c.Registry.ArtifactCache == 0 {
		c.Registry.ArtifactCache = 4
	}
	if c.Health.RegistryProbeInterval == 0 {
		c.Health.RegistryProbeInterval = Duration(30 * time.Second)
	}
	if c.PredictionLog.Buffer == 0 {
		c.PredictionLog.Buffer = 256
	}
}

func (c *Config) validate() error {
	if c.Model.FeatureDim < 1 {
		return fmt.Errorf("model.featureDim must be positive: %d", c.Model.FeatureDim)
	}
	if c.Registry.Timeout < 0 {
		return fmt.Errorf("registry.timeout must not be negative: %s", c.Registry.Timeout)
	}
	if c.Registry.PollInterval < 0 {
		return fmt.Errorf("registry.pollInterval must not be negative: %s", c.Registry.PollInterval)
	}
	return nil
}
