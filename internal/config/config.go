package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"testgen/internal/logging"
)

// Environment selects which configured endpoint receives submissions.
type Environment string

const (
	EnvLocal    Environment = "local"
	EnvDeployed Environment = "deployed"
)

// ValidEnvironments lists the accepted environment names.
var ValidEnvironments = []Environment{EnvLocal, EnvDeployed}

// Config holds all testgen configuration.
type Config struct {
	// Environment discriminator (local, deployed)
	Environment Environment `yaml:"environment"`

	// Endpoint URL per environment
	Endpoints EndpointsConfig `yaml:"endpoints"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EndpointsConfig maps each environment to the test generation URL.
type EndpointsConfig struct {
	Local    string `yaml:"local"`
	Deployed string `yaml:"deployed"`
}

// UIConfig configures the interactive form.
type UIConfig struct {
	Theme string `yaml:"theme"` // auto, light, dark
	Watch bool   `yaml:"watch"` // resubmit when the selected file changes
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvLocal,
		Endpoints: EndpointsConfig{
			Local: "http://localhost:8000/generate-test-cases",
		},
		UI: UIConfig{
			Theme: "auto",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   filepath.Join(".testgen", "logs", "testgen.log"),
		},
	}
}

// DefaultPath returns the config file location: a project-local .testgen
// directory when one exists or can be created, else ~/.testgen.
func DefaultPath() string {
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".testgen")
		if stat, err := os.Stat(localDir); (err == nil && stat.IsDir()) || os.IsNotExist(err) {
			return filepath.Join(localDir, "config.yaml")
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".testgen", "config.yaml")
	}
	return filepath.Join(home, ".testgen", "config.yaml")
}

// Load loads configuration from a YAML file, then applies .env and
// environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults if config file doesn't exist
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// .env never overrides variables already set in the process environment
	_ = godotenv.Load()

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if env := strings.TrimSpace(os.Getenv("TESTGEN_ENV")); env != "" {
		c.Environment = Environment(strings.ToLower(env))
	}
	if url := strings.TrimSpace(os.Getenv("TESTGEN_ENDPOINT_LOCAL")); url != "" {
		c.Endpoints.Local = url
	}
	if url := strings.TrimSpace(os.Getenv("TESTGEN_ENDPOINT_DEPLOYED")); url != "" {
		c.Endpoints.Deployed = url
	}
	if level := strings.TrimSpace(os.Getenv("TESTGEN_LOG_LEVEL")); level != "" {
		c.Logging.Level = level
	}
}

// SetEndpoint overrides the URL of the active environment.
func (c *Config) SetEndpoint(url string) {
	switch c.Environment {
	case EnvDeployed:
		c.Endpoints.Deployed = url
	default:
		c.Endpoints.Local = url
	}
}

// Endpoint returns the URL for the active environment. The URL itself is not
// checked; a malformed value shows up as a request failure.
func (c *Config) Endpoint() string {
	if c.Environment == EnvDeployed {
		return c.Endpoints.Deployed
	}
	return c.Endpoints.Local
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	valid := false
	for _, env := range ValidEnvironments {
		if c.Environment == env {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid environment: %q (valid: %v)", c.Environment, ValidEnvironments)
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	switch c.UI.Theme {
	case "", "auto", "light", "dark":
	default:
		return fmt.Errorf("invalid ui theme: %q (valid: auto, light, dark)", c.UI.Theme)
	}
	return nil
}

// LogOptions converts the logging section for logging.New.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File:   c.Logging.File,
	}
}
