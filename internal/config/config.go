package config

import (
	"fmt"
	"os"
	"slices"

	dserrors "github.com/systmms/secretmem/internal/errors"
	"github.com/systmms/secretmem/internal/logging"
	"github.com/systmms/secretmem/pkg/secretmem"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file read when --config is not given.
const DefaultPath = "secretmem.yaml"

// Config holds the runtime configuration
type Config struct {
	Path string
	// Explicit is set when Path was given by the user; a missing file is
	// then an error instead of meaning defaults.
	Explicit   bool
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the secretmem.yaml structure
type Definition struct {
	Version  int            `yaml:"version"`
	SelfTest SelfTestConfig `yaml:"selftest"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// SelfTestConfig controls the selftest command
type SelfTestConfig struct {
	// Sizes are the requested allocation sizes in bytes.
	Sizes      []int `yaml:"sizes"`
	Iterations int   `yaml:"iterations"`
	// Backends restricts the run to the named backends. Empty means every
	// backend that works on this system.
	Backends []string `yaml:"backends,omitempty"`
}

// MetricsConfig controls Prometheus instrumentation
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Defaults returns the definition used when no file is present
func Defaults() *Definition {
	return &Definition{
		Version: 0,
		SelfTest: SelfTestConfig{
			Sizes:      []int{1, 32, 4096, 65536},
			Iterations: 3,
		},
	}
}

// Load reads and parses the configuration file. Fields the file leaves
// out keep their default values.
func (c *Config) Load() error {
	def := Defaults()

	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if c.Explicit {
				return dserrors.ConfigError{
					Field:      "path",
					Value:      c.Path,
					Message:    "configuration file not found",
					Suggestion: "Check the --config path, or omit it to use defaults",
				}
			}
			if c.Logger != nil {
				c.Logger.Debug("No %s found, using defaults", c.Path)
			}
			c.Definition = def
			return nil
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	if err := yaml.Unmarshal(data, def); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if err := def.Validate(); err != nil {
		return err
	}

	c.Definition = def
	return nil
}

// Validate checks every field for values the commands cannot use
func (d *Definition) Validate() error {
	if d.Version != 0 {
		return dserrors.ConfigError{
			Field:      "version",
			Value:      d.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your secretmem.yaml file",
		}
	}

	if len(d.SelfTest.Sizes) == 0 {
		return dserrors.ConfigError{
			Field:      "selftest.sizes",
			Message:    "at least one allocation size is required",
			Suggestion: "For example: sizes: [32, 4096]",
		}
	}
	for _, size := range d.SelfTest.Sizes {
		if size <= 0 {
			return dserrors.ConfigError{
				Field:      "selftest.sizes",
				Value:      size,
				Message:    "allocation sizes must be positive",
				Suggestion: "Remove zero and negative entries",
			}
		}
	}

	if d.SelfTest.Iterations < 1 {
		return dserrors.ConfigError{
			Field:      "selftest.iterations",
			Value:      d.SelfTest.Iterations,
			Message:    "iterations must be at least 1",
			Suggestion: "Omit the field to use the default of 3",
		}
	}

	valid := fmt.Sprintf("Valid backends: %s, %s, %s",
		secretmem.BackendMemfdSecret, secretmem.BackendPosix, secretmem.BackendWindows)
	for _, name := range d.SelfTest.Backends {
		if _, err := secretmem.ParseBackend(name); err != nil {
			return dserrors.ConfigError{
				Field:      "selftest.backends",
				Value:      name,
				Message:    "unknown backend",
				Suggestion: valid,
			}
		}
	}

	return nil
}

// WantsBackend reports whether the selftest should exercise backend
func (d *Definition) WantsBackend(backend secretmem.Backend) bool {
	return len(d.SelfTest.Backends) == 0 || slices.Contains(d.SelfTest.Backends, backend.String())
}
