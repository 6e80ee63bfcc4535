package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig represents a .loadlens.yaml file in a project directory.
// It supplies per-project defaults for load shape and execution that
// requirement text does not pin down.
type ProjectConfig struct {
	Version string `yaml:"version"`

	// Load shape defaults
	Load LoadConfig `yaml:"load"`

	// Execution preferences
	Execution ExecutionConfig `yaml:"execution,omitempty"`

	// Report preferences
	Report ReportConfig `yaml:"report,omitempty"`
}

// LoadConfig holds default load-shape parameters applied when neither the
// requirement text nor the request specifies them.
type LoadConfig struct {
	VUs          int    `yaml:"vus,omitempty"`
	Duration     string `yaml:"duration,omitempty"`
	RampUp       string `yaml:"ramp_up,omitempty"`
	RampDown     string `yaml:"ramp_down,omitempty"`
	TargetURL    string `yaml:"target_url,omitempty"`
	FailRateMax  string `yaml:"fail_rate_max,omitempty"`
	P95Threshold string `yaml:"p95_threshold,omitempty"`
}

// ExecutionConfig holds k6 run preferences
type ExecutionConfig struct {
	// summary or full (adds per-sample JSON output)
	OutputFormat string `yaml:"output_format,omitempty"`

	// Override k6 binary location
	K6Binary string `yaml:"k6_binary,omitempty"`

	// Per-run timeout in seconds
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`
}

// ReportConfig holds analysis report preferences
type ReportConfig struct {
	// Directory for generated markdown reports
	Dir string `yaml:"dir,omitempty"`

	// Skip the LLM analysis pass and render raw metrics only
	MetricsOnly bool `yaml:"metrics_only,omitempty"`
}

// DefaultProjectConfig returns sensible defaults
func DefaultProjectConfig() *ProjectConfig {
	return &ProjectConfig{
		Version: "1.0",
		Load: LoadConfig{
			VUs:      10,
			Duration: "30s",
		},
		Execution: ExecutionConfig{
			OutputFormat:   "summary",
			TimeoutSeconds: 3600,
		},
		Report: ReportConfig{
			Dir: "reports",
		},
	}
}

// LoadProjectConfig loads a .loadlens.yaml from the given directory
func LoadProjectConfig(dir string) (*ProjectConfig, error) {
	configPath := filepath.Join(dir, ".loadlens.yaml")

	// Check if config exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Also try .loadlens.yml
		configPath = filepath.Join(dir, ".loadlens.yml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return DefaultProjectConfig(), nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := DefaultProjectConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveProjectConfig saves the config to .loadlens.yaml
func SaveProjectConfig(dir string, cfg *ProjectConfig) error {
	configPath := filepath.Join(dir, ".loadlens.yaml")

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

// Merge applies overrides from another config (e.g., CLI flags)
func (c *ProjectConfig) Merge(other *ProjectConfig) {
	if other == nil {
		return
	}

	if other.Load.VUs != 0 {
		c.Load.VUs = other.Load.VUs
	}
	if other.Load.Duration != "" {
		c.Load.Duration = other.Load.Duration
	}
	if other.Load.RampUp != "" {
		c.Load.RampUp = other.Load.RampUp
	}
	if other.Load.RampDown != "" {
		c.Load.RampDown = other.Load.RampDown
	}
	if other.Load.TargetURL != "" {
		c.Load.TargetURL = other.Load.TargetURL
	}

	if other.Execution.OutputFormat != "" {
		c.Execution.OutputFormat = other.Execution.OutputFormat
	}
	if other.Execution.K6Binary != "" {
		c.Execution.K6Binary = other.Execution.K6Binary
	}
	if other.Execution.TimeoutSeconds != 0 {
		c.Execution.TimeoutSeconds = other.Execution.TimeoutSeconds
	}

	if other.Report.Dir != "" {
		c.Report.Dir = other.Report.Dir
	}
	if other.Report.MetricsOnly {
		c.Report.MetricsOnly = true
	}
}
