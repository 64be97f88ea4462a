// Package config loads planmesh settings from a YAML file and the process
// environment. Environment variables win over file values so deployments
// can override without editing config files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "30s" or "2m". yaml.v3 has no native duration support.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// Settings is the validated application configuration.
type Settings struct {
	// Application
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json or text

	// Security
	SharedSecret string `yaml:"shared_secret"` // HMAC secret for message signing

	// Planner model (OpenAI-compatible endpoint; Groq works via BaseURL)
	PlannerAPIKey  string `yaml:"planner_api_key"`
	PlannerModel   string `yaml:"planner_model"`
	PlannerBaseURL string `yaml:"planner_base_url"`

	// Optimizer model (Anthropic)
	OptimizerAPIKey string `yaml:"optimizer_api_key"`
	OptimizerModel  string `yaml:"optimizer_model"`

	// State management
	StateBackend string `yaml:"state_backend"` // inmemory

	// Orchestration
	AwaitTimeout     Duration `yaml:"await_timeout"`
	EnableMonitoring bool     `yaml:"enable_monitoring"`
	OutputDir        string   `yaml:"output_dir"`
}

// Default returns the baseline configuration used when no file or
// environment overrides are present.
func Default() Settings {
	return Settings{
		Environment:      "development",
		LogLevel:         "INFO",
		LogFormat:        "json",
		PlannerModel:     "llama-3.3-70b-versatile",
		PlannerBaseURL:   "https://api.groq.com/openai/v1",
		OptimizerModel:   "claude-3-5-sonnet-20241022",
		StateBackend:     "inmemory",
		AwaitTimeout:     Duration(30 * time.Second),
		EnableMonitoring: true,
		OutputDir:        "out",
	}
}

// Load builds Settings from defaults, an optional YAML file and the
// environment, in that precedence order.
func Load(path string) (Settings, error) {
	s := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	s.applyEnv()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// FromEnv builds Settings from defaults plus the environment only.
func FromEnv() (Settings, error) {
	s := Default()
	s.applyEnv()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	envString(&s.Environment, "PLANMESH_ENV")
	envString(&s.LogLevel, "PLANMESH_LOG_LEVEL")
	envString(&s.LogFormat, "PLANMESH_LOG_FORMAT")
	envString(&s.SharedSecret, "PLANMESH_SHARED_SECRET")
	envString(&s.PlannerAPIKey, "GROQ_API_KEY")
	envString(&s.PlannerModel, "PLANMESH_PLANNER_MODEL")
	envString(&s.PlannerBaseURL, "PLANMESH_PLANNER_BASE_URL")
	envString(&s.OptimizerAPIKey, "ANTHROPIC_API_KEY")
	envString(&s.OptimizerModel, "PLANMESH_OPTIMIZER_MODEL")
	envString(&s.StateBackend, "PLANMESH_STATE_BACKEND")
	envString(&s.OutputDir, "PLANMESH_OUTPUT_DIR")
	if v := os.Getenv("PLANMESH_AWAIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			s.AwaitTimeout = Duration(d)
		}
	}
	if v := os.Getenv("PLANMESH_ENABLE_MONITORING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.EnableMonitoring = b
		}
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (s Settings) Validate() error {
	if s.SharedSecret == "" {
		return fmt.Errorf("shared_secret is required (set PLANMESH_SHARED_SECRET)")
	}
	if s.AwaitTimeout <= 0 {
		return fmt.Errorf("await_timeout must be positive, got %s", s.AwaitTimeout)
	}
	switch s.StateBackend {
	case "", "inmemory":
	default:
		return fmt.Errorf("unsupported state backend %q", s.StateBackend)
	}
	return nil
}

// IsProduction reports whether the environment is production.
func (s Settings) IsProduction() bool { return s.Environment == "production" }
