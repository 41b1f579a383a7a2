package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultPollInterval   = 30 * time.Second
	DefaultWindowMinutes  = 30
	DefaultRequestTimeout = 15 * time.Second
	DefaultHTTPPort       = 8080
	DefaultCacheTTL       = 60 * time.Second
)

// supportedWindows are the trailing health windows the dashboard offers.
var supportedWindows = []int{15, 30, 60}

// Config is the top-level registrypulse configuration.
type Config struct {
	Registry RegistryConfig `yaml:"registry"`
	Poll     PollConfig     `yaml:"poll"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// RegistryConfig describes how to reach the artifact registry API.
type RegistryConfig struct {
	// BaseURL is the root of the registry HTTP API, e.g. "https://registry.internal:9090".
	BaseURL string `yaml:"base_url"`

	// MetricsURL optionally points at the registry's Prometheus exposition
	// endpoint. When set, per-route request counts are scraped from it if the
	// health summary omits them. Leave empty to disable.
	MetricsURL string `yaml:"metrics_url"`

	// Timeout bounds every single registry request.
	Timeout time.Duration `yaml:"timeout"`

	// Auth configures how requests to the registry are authenticated.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// AuthConfig specifies the authentication mode for registry requests.
type AuthConfig struct {
	// Mode is one of: apikey | bearer | basic | none.
	Mode string `yaml:"mode"`

	// API key fields — used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// Bearer token fields — used when Mode == "bearer".
	TokenEnv string `yaml:"token_env"`

	// Basic auth fields — used when Mode == "basic".
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
}

// EffectiveHeader returns the API key header name, defaulting to "X-Api-Key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header == "" {
		return "X-Api-Key"
	}
	return a.Header
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// Password returns the basic-auth password resolved from the environment.
func (a AuthConfig) Password() string {
	if a.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(a.PasswordEnv)
}

// TLSConfig holds TLS dial options for the registry connection.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// PollConfig controls the health polling cadence.
type PollConfig struct {
	// Interval is how often the health summary and components are re-fetched.
	Interval time.Duration `yaml:"interval"`

	// WindowMinutes is the trailing window health metrics are aggregated over.
	// Must be one of 15, 30, 60.
	WindowMinutes int `yaml:"window_minutes"`

	// IncludeTimeline requests time-bucketed samples with each components report.
	IncludeTimeline bool `yaml:"include_timeline"`
}

// ServerConfig holds the dashboard backend's own listen settings.
type ServerConfig struct {
	// HTTPPort is the port the JSON API and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`
}

// CacheConfig controls the rated-listing cache.
type CacheConfig struct {
	// TTL is how long a rated listing is served from cache before a refresh.
	TTL time.Duration `yaml:"ttl"`
}

// AlertsConfig holds alerting rules and webhook delivery targets.
type AlertsConfig struct {
	Rules    []AlertRule     `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// AlertRule defines a threshold-based alert condition over health snapshots.
type AlertRule struct {
	// Name is the human-readable alert identifier.
	Name string `yaml:"name"`

	// Condition is an expression like "status == critical" or
	// "components_critical > 0".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for this duration after an alert fires.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Registry: RegistryConfig{
			Timeout: DefaultRequestTimeout,
		},
		Poll: PollConfig{
			Interval:      DefaultPollInterval,
			WindowMinutes: DefaultWindowMinutes,
		},
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
		},
		Cache: CacheConfig{
			TTL: DefaultCacheTTL,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Registry.BaseURL == "" {
		return fmt.Errorf("registry.base_url is required")
	}
	if u, err := url.Parse(cfg.Registry.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("registry.base_url %q is not a valid absolute URL", cfg.Registry.BaseURL)
	}
	if cfg.Registry.Timeout <= 0 {
		return fmt.Errorf("registry.timeout must be positive")
	}
	switch cfg.Registry.Auth.Mode {
	case "apikey", "bearer", "basic", "none", "":
	default:
		return fmt.Errorf("registry.auth: unknown mode %q", cfg.Registry.Auth.Mode)
	}
	if cfg.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive")
	}
	if !ValidWindow(cfg.Poll.WindowMinutes) {
		return fmt.Errorf("poll.window_minutes must be one of %v, got %d",
			supportedWindows, cfg.Poll.WindowMinutes)
	}
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range", cfg.Server.HTTPPort)
	}
	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	for i, rule := range cfg.Alerts.Rules {
		if rule.Name == "" {
			return fmt.Errorf("alerts.rules[%d]: name is required", i)
		}
		if rule.Condition == "" {
			return fmt.Errorf("alerts.rules[%d] %q: condition is required", i, rule.Name)
		}
		switch rule.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("alerts.rules[%d] %q: unknown severity %q", i, rule.Name, rule.Severity)
		}
	}
	return nil
}

// ValidWindow reports whether minutes is a supported health window.
func ValidWindow(minutes int) bool {
	for _, w := range supportedWindows {
		if minutes == w {
			return true
		}
	}
	return false
}
