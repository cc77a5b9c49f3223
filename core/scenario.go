package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadScenario reads a Config from r. Format is "json" or "yaml".
// Missing fields are filled from the defaults and the result is
// validated, so a scenario file only needs to name what it changes.
func LoadScenario(r io.Reader, format string) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read scenario: %w", err)
	}

	var cfg Config
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode scenario json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode scenario yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w: unsupported scenario format %q", ErrInvalidConfiguration, format)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadScenarioFile reads a scenario from disk, inferring the format
// from the file extension.
func LoadScenarioFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open scenario %q: %w", path, err)
	}
	defer f.Close()

	format := strings.TrimPrefix(filepath.Ext(path), ".")
	return LoadScenario(f, format)
}
