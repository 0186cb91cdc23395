// Package config loads the aigate YAML configuration with ${VAR}
// environment substitution, defaulting, and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the aigate service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Providers ProvidersConfig `yaml:"providers"`
	Routing   RoutingConfig   `yaml:"routing"`
	Tiers     TiersConfig     `yaml:"tiers"`
	Cache     CacheConfig     `yaml:"cache"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ProviderConfig holds one OpenAI-compatible backend's settings.
type ProviderConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	ChatModel      string `yaml:"chat_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimensions     int    `yaml:"dimensions"`
}

// ProvidersConfig holds the model backend settings. Secondary is optional;
// when absent, routes that prefer it fall back to the primary.
type ProvidersConfig struct {
	Primary           ProviderConfig  `yaml:"primary"`
	Secondary         *ProviderConfig `yaml:"secondary"`
	AttemptTimeoutSec int             `yaml:"attempt_timeout_sec"`
}

// RoutingConfig tunes provider selection and the fallback chain.
// Provider names in maps are "primary", "secondary", "local".
type RoutingConfig struct {
	FreePrimaryQuota int64             `yaml:"free_primary_quota"`
	EnterprisePrefs  map[string]string `yaml:"enterprise_prefs"` // request type -> provider
	Fallback         map[string]string `yaml:"fallback"`         // provider -> next provider
}

// TiersConfig holds per-tier daily request limits. -1 means unlimited.
type TiersConfig struct {
	DailyLimits   map[string]int64 `yaml:"daily_limits"` // free, pro, enterprise
	RetentionDays int              `yaml:"retention_days"`
}

// CacheConfig holds response cache TTL overrides in seconds, keyed by
// request type. Types not listed keep their built-in TTLs.
type CacheConfig struct {
	TTLSec map[string]int `yaml:"ttl_sec"`
}

// RetrievalConfig holds hybrid search settings.
type RetrievalConfig struct {
	DefaultLimit   int     `yaml:"default_limit"`
	MaxLimit       int     `yaml:"max_limit"`
	MinVectorScore float64 `yaml:"min_vector_score"`
}

// ChunkingConfig holds text splitting settings for indexing.
type ChunkingConfig struct {
	TargetSize int `yaml:"target_size"`
	Overlap    int `yaml:"overlap"`
}

// UpstreamConfig holds the internal admin API connection used for user
// lookup, file content, and knowledge-base permissions.
type UpstreamConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Providers.AttemptTimeoutSec <= 0 {
		c.Providers.AttemptTimeoutSec = 30
	}
	if c.Routing.FreePrimaryQuota == 0 {
		c.Routing.FreePrimaryQuota = 25
	}
	if c.Tiers.DailyLimits == nil {
		c.Tiers.DailyLimits = map[string]int64{}
	}
	if _, ok := c.Tiers.DailyLimits["free"]; !ok {
		c.Tiers.DailyLimits["free"] = 50
	}
	if _, ok := c.Tiers.DailyLimits["pro"]; !ok {
		c.Tiers.DailyLimits["pro"] = 500
	}
	if _, ok := c.Tiers.DailyLimits["enterprise"]; !ok {
		c.Tiers.DailyLimits["enterprise"] = -1
	}
	if c.Tiers.RetentionDays <= 0 {
		c.Tiers.RetentionDays = 7
	}
	if c.Retrieval.DefaultLimit <= 0 {
		c.Retrieval.DefaultLimit = 10
	}
	if c.Retrieval.MaxLimit <= 0 {
		c.Retrieval.MaxLimit = 50
	}
	if c.Retrieval.MinVectorScore <= 0 {
		c.Retrieval.MinVectorScore = 0.6
	}
	if c.Chunking.TargetSize <= 0 {
		c.Chunking.TargetSize = 1200
	}
	if c.Chunking.Overlap <= 0 {
		c.Chunking.Overlap = 150
	}
	if c.Upstream.TimeoutSec <= 0 {
		c.Upstream.TimeoutSec = 5
	}
}

var providerNames = map[string]bool{"primary": true, "secondary": true, "local": true}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Providers.Primary.APIKey == "" {
		return fmt.Errorf("providers.primary.api_key is required")
	}
	if c.Providers.Secondary != nil && c.Providers.Secondary.APIKey == "" {
		return fmt.Errorf("providers.secondary.api_key is required when secondary is configured")
	}
	if c.Chunking.Overlap >= c.Chunking.TargetSize {
		return fmt.Errorf(
			"chunking.overlap (%d) must be smaller than chunking.target_size (%d)",
			c.Chunking.Overlap, c.Chunking.TargetSize,
		)
	}
	for typ, p := range c.Routing.EnterprisePrefs {
		if !providerNames[p] {
			return fmt.Errorf("routing.enterprise_prefs.%s: unknown provider %q", typ, p)
		}
	}
	return c.validateFallback()
}

// validateFallback checks that any fallback override still forms an acyclic
// chain terminating at the local responder within a bounded hop count.
func (c *Config) validateFallback() error {
	fb := c.Routing.Fallback
	if len(fb) == 0 {
		return nil
	}
	for from, to := range fb {
		if !providerNames[from] || !providerNames[to] {
			return fmt.Errorf("routing.fallback: unknown provider in %q -> %q", from, to)
		}
		if from == "local" {
			return fmt.Errorf("routing.fallback: local is terminal and cannot fall back")
		}
	}
	for start := range fb {
		cur := start
		for hops := 0; cur != "local"; hops++ {
			if hops >= len(providerNames) {
				return fmt.Errorf("routing.fallback: chain from %q does not terminate at local", start)
			}
			next, ok := fb[cur]
			if !ok {
				return fmt.Errorf("routing.fallback: chain from %q dead-ends at %q", start, cur)
			}
			cur = next
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
