package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// Configuration validation constants
const (
	MinRefreshInterval = 60    // Minimum refresh interval in seconds
	MinPort            = 1     // Minimum valid port number
	MaxPort            = 65535 // Maximum valid port number
	MaxAdapterTimeout  = 300   // Maximum per-adapter timeout in seconds
	MaxRetries         = 5     // Maximum retries of one upstream call

	// Default values
	DefaultRefreshInterval = 900 // 15 minutes, same as the dashboard poll
	DefaultHTTPPort        = 8080
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultAdapterTimeout  = 30 // seconds
	DefaultRateLimit       = 5.0
	DefaultBurst           = 10

	// Estimation defaults
	DefaultRailwayCreditsPerProject = 500
	DefaultRailwayBaseCredits       = 500
	DefaultRailwayCreditUSD         = 0.01
	DefaultRailwayLastMonthFactor   = 0.9
	DefaultRailwayProjectedFactor   = 1.15
	DefaultOpenAIProjectedFactor    = 1.2
	DefaultAnthropicProjectedFactor = 1.15
)

// EnvPrefix is the prefix of service setting overrides
const EnvPrefix = "COST_CONSOLE_"

// Aggregation controls one aggregation cycle
type Aggregation struct {
	AdapterTimeout *int `yaml:"adapter_timeout"` // seconds, 0 disables; pointer to distinguish 0 and unset
	MaxRetries     int  `yaml:"max_retries"`     // retries of a failed upstream call within a cycle
}

// API controls the JSON API surface
type API struct {
	RateLimit float64 `yaml:"rate_limit"` // requests per second
	Burst     int     `yaml:"burst"`
}

// Estimates holds the heuristics used where a provider has no direct cost figure.
// Keys left out of the file keep their defaults; an explicit 0 is kept as 0.
type Estimates struct {
	RailwayCreditsPerProject float64 `yaml:"railway_credits_per_project"`
	RailwayBaseCredits       float64 `yaml:"railway_base_credits"`
	RailwayCreditUSD         float64 `yaml:"railway_credit_usd"`
	RailwayLastMonthFactor   float64 `yaml:"railway_last_month_factor"`
	RailwayProjectedFactor   float64 `yaml:"railway_projected_factor"`
	OpenAIProjectedFactor    float64 `yaml:"openai_projected_factor"`
	AnthropicProjectedFactor float64 `yaml:"anthropic_projected_factor"`
}

// Credentials holds one field per provider credential. Each is also read from
// its canonical environment variable.
type Credentials struct {
	RailwayAPIToken     string `yaml:"railway_api_token"`
	OpenAIAPIKey        string `yaml:"openai_api_key"`
	AnthropicAPIKey     string `yaml:"anthropic_api_key"`
	StripeSecretKey     string `yaml:"stripe_secret_key"`
	LemonSqueezyAPIKey  string `yaml:"lemonsqueezy_api_key"`
	ElevenLabsAPIKey    string `yaml:"elevenlabs_api_key"`
	GitHubToken         string `yaml:"github_token"`
	GitHubOrg           string `yaml:"github_org"`
	GroqAPIKey          string `yaml:"groq_api_key"`
	DeepSeekAPIKey      string `yaml:"deepseek_api_key"`
	SupabaseAccessToken string `yaml:"supabase_access_token"`
	SupabaseProjectRef  string `yaml:"supabase_project_ref"`
	HFToken             string `yaml:"hf_token"`
	GoogleCredentials   string `yaml:"google_application_credentials"`
	BraveSearchAPIKey   string `yaml:"brave_search_api_key"`
	AzureSubscriptionID string `yaml:"azure_subscription_id"`
	AtlasPublicKey      string `yaml:"atlas_public_key"`
	AtlasPrivateKey     string `yaml:"atlas_private_key"`
	AtlasOrgID          string `yaml:"atlas_org_id"`
}

// Config represents the application configuration
type Config struct {
	HTTPPort        int               `yaml:"http_port"`
	LogLevel        string            `yaml:"log_level"`
	LogFormat       string            `yaml:"log_format"`
	RefreshInterval int               `yaml:"refresh_interval"` // seconds
	Aggregation     Aggregation       `yaml:"aggregation"`
	API             API               `yaml:"api"`
	Estimates       Estimates         `yaml:"estimates"`
	Endpoints       map[string]string `yaml:"endpoints"` // provider id -> base URL override
	Credentials     Credentials       `yaml:"credentials"`
}

// Load loads configuration from a YAML file and applies environment variable
// overrides. An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Config{Estimates: DefaultEstimates()}

	if path != "" {
		// #nosec G304 -- Config file path is provided by administrator via CLI flag, not user input
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment variable error: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and
// no credentials. It does not read the environment.
func Default() *Config {
	cfg := Config{Estimates: DefaultEstimates()}
	applyDefaults(&cfg)
	return &cfg
}

// DefaultEstimates returns the built-in estimation heuristics. Load decodes
// the file on top of them, so only the keys present in it change.
func DefaultEstimates() Estimates {
	return Estimates{
		RailwayCreditsPerProject: DefaultRailwayCreditsPerProject,
		RailwayBaseCredits:       DefaultRailwayBaseCredits,
		RailwayCreditUSD:         DefaultRailwayCreditUSD,
		RailwayLastMonthFactor:   DefaultRailwayLastMonthFactor,
		RailwayProjectedFactor:   DefaultRailwayProjectedFactor,
		OpenAIProjectedFactor:    DefaultOpenAIProjectedFactor,
		AnthropicProjectedFactor: DefaultAnthropicProjectedFactor,
	}
}

// applyDefaults sets default values for configuration
func applyDefaults(cfg *Config) {
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = DefaultHTTPPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	// Only apply default if AdapterTimeout is unset, not if it's explicitly 0
	if cfg.Aggregation.AdapterTimeout == nil {
		timeout := DefaultAdapterTimeout
		cfg.Aggregation.AdapterTimeout = &timeout
	}
	if cfg.API.RateLimit == 0 {
		cfg.API.RateLimit = DefaultRateLimit
	}
	if cfg.API.Burst == 0 {
		cfg.API.Burst = DefaultBurst
	}

	if cfg.Endpoints == nil {
		cfg.Endpoints = map[string]string{}
	}
}

// applyEnvOverrides applies environment variable overrides to configuration
func applyEnvOverrides(cfg *Config) error {
	if err := envInt("HTTP_PORT", &cfg.HTTPPort); err != nil {
		return err
	}
	if val := os.Getenv(EnvPrefix + "LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := os.Getenv(EnvPrefix + "LOG_FORMAT"); val != "" {
		cfg.LogFormat = val
	}
	if err := envInt("REFRESH_INTERVAL", &cfg.RefreshInterval); err != nil {
		return err
	}
	if err := envInt("ADAPTER_TIMEOUT", cfg.Aggregation.AdapterTimeout); err != nil {
		return err
	}
	if err := envInt("MAX_RETRIES", &cfg.Aggregation.MaxRetries); err != nil {
		return err
	}
	if err := envInt("BURST", &cfg.API.Burst); err != nil {
		return err
	}
	if val := os.Getenv(EnvPrefix + "RATE_LIMIT"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %sRATE_LIMIT: must be a number, got %q", EnvPrefix, val)
		}
		cfg.API.RateLimit = f
	}

	// Canonical provider variables win over the file
	for _, f := range cfg.Credentials.fields() {
		if val := os.Getenv(f.env); val != "" {
			*f.value = val
		}
	}

	return nil
}

func envInt(name string, dst *int) error {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("invalid %s%s: must be an integer, got %q", EnvPrefix, name, val)
	}
	*dst = i
	return nil
}

// validate validates the configuration and reports every problem at once
func validate(cfg *Config) error {
	var result *multierror.Error

	if cfg.HTTPPort < MinPort || cfg.HTTPPort > MaxPort {
		result = multierror.Append(result, fmt.Errorf("http_port must be between %d and %d", MinPort, MaxPort))
	}

	if cfg.RefreshInterval < MinRefreshInterval {
		result = multierror.Append(result, fmt.Errorf("refresh_interval must be at least %d seconds, got %d", MinRefreshInterval, cfg.RefreshInterval))
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", cfg.LogLevel))
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		result = multierror.Append(result, fmt.Errorf("log_format must be json or text, got %q", cfg.LogFormat))
	}

	if t := cfg.Aggregation.AdapterTimeout; t != nil && (*t < 0 || *t > MaxAdapterTimeout) {
		result = multierror.Append(result, fmt.Errorf("aggregation.adapter_timeout must be between 0 and %d seconds, got %d", MaxAdapterTimeout, *t))
	}

	if r := cfg.Aggregation.MaxRetries; r < 0 || r > MaxRetries {
		result = multierror.Append(result, fmt.Errorf("aggregation.max_retries must be between 0 and %d, got %d", MaxRetries, r))
	}

	if cfg.API.RateLimit <= 0 {
		result = multierror.Append(result, fmt.Errorf("api.rate_limit must be positive, got %g", cfg.API.RateLimit))
	}
	if cfg.API.Burst < 1 {
		result = multierror.Append(result, fmt.Errorf("api.burst must be at least 1, got %d", cfg.API.Burst))
	}

	e := cfg.Estimates
	for name, v := range map[string]float64{
		"railway_credits_per_project": e.RailwayCreditsPerProject,
		"railway_base_credits":        e.RailwayBaseCredits,
		"railway_credit_usd":          e.RailwayCreditUSD,
		"railway_last_month_factor":   e.RailwayLastMonthFactor,
		"railway_projected_factor":    e.RailwayProjectedFactor,
		"openai_projected_factor":     e.OpenAIProjectedFactor,
		"anthropic_projected_factor":  e.AnthropicProjectedFactor,
	} {
		if v < 0 {
			result = multierror.Append(result, fmt.Errorf("estimates.%s cannot be negative, got %g", name, v))
		}
	}

	for id, raw := range cfg.Endpoints {
		if err := validateEndpoint(raw); err != nil {
			result = multierror.Append(result, fmt.Errorf("endpoints.%s: %w", id, err))
		}
	}

	return result.ErrorOrNil()
}

func validateEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("scheme must be http or https")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

// AdapterTimeoutDuration returns the per-adapter bound, 0 when disabled
func (c *Config) AdapterTimeoutDuration() time.Duration {
	if c.Aggregation.AdapterTimeout == nil {
		return DefaultAdapterTimeout * time.Second
	}
	return time.Duration(*c.Aggregation.AdapterTimeout) * time.Second
}

// RefreshDuration returns the collector cycle interval
func (c *Config) RefreshDuration() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

// Endpoint returns the base URL override for a provider, or def
func (c *Config) Endpoint(id, def string) string {
	if v := strings.TrimRight(c.Endpoints[id], "/"); v != "" {
		return v
	}
	return def
}

type credentialField struct {
	env   string
	value *string
}

// fields maps every credential to its canonical environment variable
func (c *Credentials) fields() []credentialField {
	return []credentialField{
		{"RAILWAY_API_TOKEN", &c.RailwayAPIToken},
		{"OPENAI_API_KEY", &c.OpenAIAPIKey},
		{"ANTHROPIC_API_KEY", &c.AnthropicAPIKey},
		{"STRIPE_SECRET_KEY", &c.StripeSecretKey},
		{"LEMONSQUEEZY_API_KEY", &c.LemonSqueezyAPIKey},
		{"ELEVENLABS_API_KEY", &c.ElevenLabsAPIKey},
		{"GITHUB_TOKEN", &c.GitHubToken},
		{"GITHUB_ORG", &c.GitHubOrg},
		{"GROQ_API_KEY", &c.GroqAPIKey},
		{"DEEPSEEK_API_KEY", &c.DeepSeekAPIKey},
		{"SUPABASE_ACCESS_TOKEN", &c.SupabaseAccessToken},
		{"SUPABASE_PROJECT_REF", &c.SupabaseProjectRef},
		{"HF_TOKEN", &c.HFToken},
		{"GOOGLE_APPLICATION_CREDENTIALS", &c.GoogleCredentials},
		{"BRAVE_SEARCH_API_KEY", &c.BraveSearchAPIKey},
		{"AZURE_SUBSCRIPTION_ID", &c.AzureSubscriptionID},
		{"ATLAS_PUBLIC_KEY", &c.AtlasPublicKey},
		{"ATLAS_PRIVATE_KEY", &c.AtlasPrivateKey},
		{"ATLAS_ORG_ID", &c.AtlasOrgID},
	}
}

// Lookup returns the credential stored for an environment variable name
func (c *Credentials) Lookup(env string) (string, bool) {
	for _, f := range c.fields() {
		if f.env == env {
			return *f.value, *f.value != ""
		}
	}
	return "", false
}
