// Package config loads and validates the campusmarket YAML configuration.
//
// Values come from the YAML file first; CAMPUSMARKET_* environment variables
// (optionally from a .env file in the working directory) override them.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CAMPUSMARKET_API_URL.
const EnvPrefix = "CAMPUSMARKET"

const (
	defaultRequestTimeout = 15 * time.Second
	defaultPollInterval   = time.Minute
	defaultWorkers        = 4
)

// Config holds the full application configuration.
type Config struct {
	// APIURL is the base URL of the marketplace API (e.g. "https://market.example.edu").
	APIURL string `yaml:"api_url" envconfig:"API_URL"`

	// APIToken is sent as a bearer token when set.
	APIToken string `yaml:"api_token,omitempty" envconfig:"API_TOKEN"`

	// UserID is the marketplace account this installation acts for.
	UserID string `yaml:"user_id" envconfig:"USER_ID"`

	// DBPath is the local SQLite cache. Defaults to
	// ~/.local/share/campusmarket/market.db.
	DBPath string `yaml:"db_path,omitempty" envconfig:"DB_PATH"`

	// RequestTimeout bounds each marketplace request. 1s to 2m, default 15s.
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty" envconfig:"REQUEST_TIMEOUT"`

	// PollInterval is how often the daemon refreshes. 10s to 1h, default 1m.
	PollInterval time.Duration `yaml:"poll_interval,omitempty" envconfig:"POLL_INTERVAL"`

	// Workers sizes the view projection pool. 1 to 64, default 4.
	Workers int `yaml:"workers,omitempty" envconfig:"WORKERS"`

	// Telemetry configures optional OpenTelemetry export via OTLP gRPC.
	// Omit the block entirely to disable telemetry.
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty" ignored:"true"`
}

// TelemetryConfig holds optional OpenTelemetry settings.
type TelemetryConfig struct {
	// OTLPEndpoint is the gRPC host:port of the OTLP collector (e.g. "localhost:4317").
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS for the collector connection. Use for local collectors.
	Insecure bool `yaml:"insecure,omitempty"`

	// ServiceName overrides the OTel service.name attribute. Defaults to "campusmarket".
	ServiceName string `yaml:"service_name,omitempty"`

	// Headers contains key-value pairs sent as gRPC metadata on every OTLP
	// request, e.g. Authorization: "Bearer <token>".
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DefaultPath returns the default config file path: ~/.config/campusmarket/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "campusmarket", "config.yaml"), nil
}

// Load reads the configuration file at path, applies environment overrides,
// fills defaults, and validates the result.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config file %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true) // reject unknown keys to catch typos early
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, creating the parent directory. The file
// holds the API token, so it is only readable by the owner.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %q: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields whose CAMPUSMARKET_* variable is set. Unset
// variables leave the YAML value alone.
func applyEnv(cfg *Config) error {
	_ = godotenv.Load() // optional; a missing .env is not an error
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("reading %s_* environment: %w", EnvPrefix, err)
	}
	return nil
}

// validate fills defaults and checks that all fields are present and
// well-formed.
func (c *Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	u, err := url.ParseRequestURI(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("api_url %q must be a valid http or https URL", c.APIURL)
	}

	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		c.DBPath = filepath.Join(home, ".local", "share", "campusmarket", "market.db")
	}

	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if err := inRange("request_timeout", c.RequestTimeout, time.Second, 2*time.Minute); err != nil {
		return err
	}

	if c.PollInterval == 0 {
		c.PollInterval = defaultPollInterval
	}
	if err := inRange("poll_interval", c.PollInterval, 10*time.Second, time.Hour); err != nil {
		return err
	}

	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("workers %d is out of range (1 to 64)", c.Workers)
	}

	if c.Telemetry != nil {
		if c.Telemetry.OTLPEndpoint == "" {
			return fmt.Errorf("telemetry.otlp_endpoint is required when telemetry is configured")
		}
	}

	return nil
}

func inRange(name string, d, lo, hi time.Duration) error {
	if d < lo {
		return fmt.Errorf("%s %v is too short (minimum %v)", name, d, lo)
	}
	if d > hi {
		return fmt.Errorf("%s %v is too long (maximum %v)", name, d, hi)
	}
	return nil
}
