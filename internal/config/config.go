// Package config holds droneflow runtime configuration.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the complete client configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend" json:"backend"`
	Map     MapConfig     `yaml:"map" json:"map"`
	View    ViewConfig    `yaml:"view" json:"view"`
	Verbose bool          `yaml:"verbose" json:"verbose"`
}

// BackendConfig locates the terrain-analysis service.
type BackendConfig struct {
	URL            string        `yaml:"url" json:"url"`
	UploadTimeout  time.Duration `yaml:"upload_timeout" json:"upload_timeout"`
	ProcessTimeout time.Duration `yaml:"process_timeout" json:"process_timeout"`
}

// MapConfig controls the initial map view.
type MapConfig struct {
	// DefaultCenter is used whenever no center can be derived from a result.
	DefaultCenter Center `yaml:"default_center" json:"default_center"`
	Zoom          int    `yaml:"zoom" json:"zoom"`
}

// Center is a latitude/longitude pair in degrees.
type Center struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lon float64 `yaml:"lon" json:"lon"`
}

// ViewConfig configures the local workspace server.
type ViewConfig struct {
	Host           string `yaml:"host" json:"host"`
	Port           int    `yaml:"port" json:"port"`
	BundleURL      string `yaml:"bundle_url" json:"bundle_url"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" json:"max_upload_bytes"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:            "http://localhost:8000/api",
			UploadTimeout:  5 * time.Minute,
			ProcessTimeout: 10 * time.Minute,
		},
		Map: MapConfig{
			DefaultCenter: Center{Lat: 51.505, Lon: -0.09},
			Zoom:          16,
		},
		View: ViewConfig{
			Host:           "127.0.0.1",
			Port:           8090,
			MaxUploadBytes: 2 << 30, // 2GB
		},
	}
}

// Validate checks the configuration for obviously invalid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid backend url: %q", c.Backend.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid backend url scheme: %s (must be http or https)", u.Scheme)
	}
	if c.Backend.UploadTimeout < 0 || c.Backend.ProcessTimeout < 0 {
		return fmt.Errorf("backend timeouts must be non-negative")
	}

	lat, lon := c.Map.DefaultCenter.Lat, c.Map.DefaultCenter.Lon
	if lat < -90 || lat > 90 {
		return fmt.Errorf("map.default_center.lat out of range: %v", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("map.default_center.lon out of range: %v", lon)
	}
	if c.Map.Zoom < 0 || c.Map.Zoom > 22 {
		return fmt.Errorf("map.zoom must be between 0 and 22")
	}

	if c.View.Port < 0 || c.View.Port > 65535 {
		return fmt.Errorf("view.port out of range: %d", c.View.Port)
	}
	if c.View.MaxUploadBytes <= 0 {
		return fmt.Errorf("view.max_upload_bytes must be greater than 0")
	}
	return nil
}

// Addr returns the host:port the workspace server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.View.Host, c.View.Port)
}
