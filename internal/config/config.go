package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/qtext/internal/domain/ranking"
	"github.com/kailas-cloud/qtext/internal/domain/schema"
	"github.com/kailas-cloud/qtext/internal/resilience"
)

// Config holds the qtext API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Sparse     SparseConfig     `yaml:"sparse"`
	Reranker   RerankerConfig   `yaml:"reranker"`
	Highlight  EndpointConfig   `yaml:"highlight"`
	Ranker     RankerConfig     `yaml:"ranker"`
	Schema     SchemaConfig     `yaml:"schema"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the Postgres connection and pool settings.
type DatabaseConfig struct {
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	ReadinessTimeout   int    `yaml:"readiness_timeout_sec"`
}

// CacheConfig enables the Redis embedding cache when Addrs is set.
type CacheConfig struct {
	Addrs    []string `yaml:"addrs"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTLSec   int      `yaml:"ttl_sec"` // 0 = no expiry
}

// Enabled reports whether a cache is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// EmbeddingConfig holds the OpenAI-compatible dense embedding settings.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// EndpointConfig is one HTTP inference collaborator. An empty URL disables it.
type EndpointConfig struct {
	URL        string `yaml:"url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Enabled reports whether the endpoint is configured.
func (e EndpointConfig) Enabled() bool { return e.URL != "" }

// Timeout returns the request timeout.
func (e EndpointConfig) Timeout() time.Duration { return time.Duration(e.TimeoutSec) * time.Second }

// SparseConfig holds the sparse embedding collaborator and its vector size.
type SparseConfig struct {
	EndpointConfig `yaml:",inline"`
	Dim            int `yaml:"dim"`
}

// RerankerConfig holds the delegate reranker collaborators.
type RerankerConfig struct {
	CrossEncoder EndpointConfig `yaml:"cross_encoder"`
	Cohere       CohereConfig   `yaml:"cohere"`
}

// CohereConfig holds the Cohere rerank API settings.
type CohereConfig struct {
	EndpointConfig `yaml:",inline"`
	Model          string `yaml:"model"`
}

// RankerConfig lists the ranking pipeline steps, applied in order.
type RankerConfig struct {
	Steps []ranking.Step `yaml:"steps"`
}

// SchemaConfig selects a preset schema or declares fields explicitly.
type SchemaConfig struct {
	Preset string        `yaml:"preset"`
	Fields []FieldConfig `yaml:"fields"`
}

// FieldConfig declares one schema field.
type FieldConfig struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Roles    []string `yaml:"roles"`
	Required bool     `yaml:"required"`
	Default  any      `yaml:"default"`
}

// Build returns the configured schema. Explicit fields win over the preset.
func (s SchemaConfig) Build() (schema.Schema, error) {
	if len(s.Fields) == 0 {
		return schema.Preset(s.Preset)
	}
	specs := make([]schema.FieldSpec, len(s.Fields))
	for i, f := range s.Fields {
		specs[i] = schema.FieldSpec{
			Name:     f.Name,
			Type:     f.Type,
			Roles:    f.Roles,
			Required: f.Required,
			Default:  f.Default,
		}
	}
	return schema.FromSpecs(specs)
}

// ResilienceConfig holds retry and circuit breaker settings for collaborators.
type ResilienceConfig struct {
	Enabled                 bool    `yaml:"enabled"`
	RetryMaxAttempts        int     `yaml:"retry_max_attempts"`
	RetryInitialBackoffMS   int     `yaml:"retry_initial_backoff_ms"`
	RetryMaxBackoffMS       int     `yaml:"retry_max_backoff_ms"`
	RetryMultiplier         float64 `yaml:"retry_multiplier"`
	BreakerMinRequests      uint32  `yaml:"breaker_min_requests"`
	BreakerFailureRatio     float64 `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeoutSec   int     `yaml:"breaker_open_timeout_sec"`
	BreakerHalfOpenMaxCalls uint32  `yaml:"breaker_half_open_max_calls"`
}

// Policy converts the section into an executor policy. Zero values keep the
// executor defaults.
func (r ResilienceConfig) Policy() resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        r.RetryMaxAttempts,
		RetryInitialBackoff:     time.Duration(r.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:         time.Duration(r.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:         r.RetryMultiplier,
		BreakerEnabled:          true,
		BreakerMinRequests:      r.BreakerMinRequests,
		BreakerFailureRatio:     r.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(r.BreakerOpenTimeoutSec) * time.Second,
		BreakerHalfOpenMaxCalls: r.BreakerHalfOpenMaxCalls,
	}
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
	if c.Database.MaxOpenConns <= 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns <= 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetimeSec <= 0 {
		c.Database.ConnMaxLifetimeSec = 1800
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}
	for _, e := range []*EndpointConfig{
		&c.Sparse.EndpointConfig,
		&c.Reranker.CrossEncoder,
		&c.Reranker.Cohere.EndpointConfig,
		&c.Highlight,
	} {
		if e.TimeoutSec <= 0 {
			e.TimeoutSec = 30
		}
	}
	if c.Reranker.Cohere.Model == "" {
		c.Reranker.Cohere.Model = "rerank-english-v3.0"
	}
	if c.Schema.Preset == "" && len(c.Schema.Fields) == 0 {
		c.Schema.Preset = schema.PresetDefault
	}
	if len(c.Ranker.Steps) == 0 {
		c.Ranker.Steps = ranking.DefaultSteps()
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Sparse.Dim < 0 {
		return fmt.Errorf("sparse.dim must not be negative, got %d", c.Sparse.Dim)
	}
	if c.Sparse.Enabled() && c.Sparse.Dim == 0 {
		return errors.New("sparse.dim is required when sparse.url is set")
	}
	if _, err := c.Schema.Build(); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	for i, step := range c.Ranker.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("ranker.steps[%d]: %w", i, err)
		}
		switch step.Strategy {
		case ranking.CrossEncoder:
			if !c.Reranker.CrossEncoder.Enabled() {
				return fmt.Errorf("ranker.steps[%d]: cross_encoder requires reranker.cross_encoder.url", i)
			}
		case ranking.Cohere:
			if c.Reranker.Cohere.APIKey == "" {
				return fmt.Errorf("ranker.steps[%d]: cohere requires reranker.cohere.api_key", i)
			}
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
