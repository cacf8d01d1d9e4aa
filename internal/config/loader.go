package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Validator is implemented by configurations that can check themselves
type Validator interface {
	Validate() error
}

// Load reads a YAML file, expands ${VAR} references from the environment,
// unmarshals into target, and validates it when target implements Validator
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filename, err)
	}

	if validator, ok := any(target).(Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}

	return nil
}

// LoadOrDefault loads the file when it exists and falls back to defaults
// when it does not. A present but invalid file is an error.
func LoadOrDefault(filename string) (*Config, error) {
	cfg := NewDefault()
	if filename == "" {
		return cfg, nil
	}
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err := Load(filename, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
