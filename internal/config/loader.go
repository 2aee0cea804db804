package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SearchPaths are tried in order when no explicit config file is given.
// The first existing file wins.
var SearchPaths = []string{
	"./.droneflow.yaml",
	"~/.config/droneflow/config.yaml",
}

// Loader builds a Config from defaults, a YAML file and DRONEFLOW_* env vars.
type Loader struct {
	paths  []string
	getenv func(string) string
}

// NewLoader creates a loader using SearchPaths and the process environment.
func NewLoader() *Loader {
	return &Loader{paths: SearchPaths, getenv: os.Getenv}
}

// Load returns the merged configuration. If path is non-empty it must exist.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := checkYAMLPath(path); err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		if err := loadFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else {
		for _, p := range l.paths {
			p = expandHome(p)
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := loadFile(cfg, p); err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", p, err)
			}
			break
		}
	}

	if err := l.applyEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile decodes YAML over cfg so absent keys keep their current values.
func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - operator supplied config path
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	setters := map[string]func(string) error{
		"DRONEFLOW_BACKEND_URL":             func(v string) error { cfg.Backend.URL = v; return nil },
		"DRONEFLOW_BACKEND_UPLOAD_TIMEOUT":  func(v string) error { return parseDuration(v, &cfg.Backend.UploadTimeout) },
		"DRONEFLOW_BACKEND_PROCESS_TIMEOUT": func(v string) error { return parseDuration(v, &cfg.Backend.ProcessTimeout) },
		"DRONEFLOW_MAP_CENTER_LAT":          func(v string) error { return parseFloat(v, &cfg.Map.DefaultCenter.Lat) },
		"DRONEFLOW_MAP_CENTER_LON":          func(v string) error { return parseFloat(v, &cfg.Map.DefaultCenter.Lon) },
		"DRONEFLOW_MAP_ZOOM":                func(v string) error { return parseInt(v, &cfg.Map.Zoom) },
		"DRONEFLOW_VIEW_BUNDLE_URL":         func(v string) error { cfg.View.BundleURL = v; return nil },
		"DRONEFLOW_VERBOSE":                 func(v string) error { return parseBool(v, &cfg.Verbose) },
	}

	for name, set := range setters {
		if v := l.getenv(name); v != "" {
			if err := set(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
		}
	}
	return nil
}

func checkYAMLPath(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must be .yaml or .yml, got %q", ext)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func parseDuration(v string, dst *time.Duration) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func parseFloat(v string, dst *float64) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
