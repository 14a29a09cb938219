package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Auth modes for the search backend.
const (
	AuthAWS   = "aws"
	AuthBasic = "basic"
	AuthNone  = "none"
)

const minSecretLen = 16

// Config holds the seqsearch API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Search     SearchConfig     `yaml:"search"`
	Pagination PaginationConfig `yaml:"pagination"`
	Session    SessionConfig    `yaml:"session"`
	Vector     VectorConfig     `yaml:"vector"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	CORS       CORSConfig       `yaml:"cors"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchConfig holds search backend connection and query settings.
type SearchConfig struct {
	Endpoints       []string `yaml:"endpoints"`
	Auth            string   `yaml:"auth"`    // aws, basic, none (default: aws)
	Region          string   `yaml:"region"`  // falls back to the AWS default chain
	Service         string   `yaml:"service"` // aoss, es (default: aoss)
	Username        string   `yaml:"username"`
	Password        string   `yaml:"password"`
	CompaniesIndex  string   `yaml:"companies_index"`
	ProfilesIndex   string   `yaml:"profiles_index"`
	MaxRetries      int      `yaml:"max_retries"`
	CompanyLimit    int      `yaml:"company_limit"`
	CompanyTotalCap int      `yaml:"company_track_total_hits"`
	ProfileTotalCap int      `yaml:"profile_track_total_hits"`
	CompanyTimeout  int      `yaml:"company_timeout_sec"`
	ProfileTimeout  int      `yaml:"profile_timeout_sec"`
	LookupTimeout   int      `yaml:"lookup_timeout_sec"`
}

// PaginationConfig holds page size bounds and offset limits.
type PaginationConfig struct {
	DefaultPageSize    int `yaml:"default_page_size"`
	MinPageSize        int `yaml:"min_page_size"`
	MaxPageSize        int `yaml:"max_page_size"`
	OffsetPageCeiling  int `yaml:"offset_page_ceiling"`
	LargeResultWarning int `yaml:"large_result_threshold"`
}

// SessionConfig holds session token settings.
type SessionConfig struct {
	Secret string `yaml:"secret"`
	TTLSec int    `yaml:"ttl_sec"`
}

// VectorConfig holds the specialty vector store settings.
type VectorConfig struct {
	Enabled             bool     `yaml:"enabled"`
	Addrs               []string `yaml:"addrs"`
	Username            string   `yaml:"username"`
	Password            string   `yaml:"password"`
	IndexName           string   `yaml:"index_name"`
	KeyPrefix           string   `yaml:"key_prefix"`
	ReadinessTimeout    int      `yaml:"readiness_timeout_sec"`
	DefaultExpansion    int      `yaml:"default_expansion"`
	MaxExpansion        int      `yaml:"max_expansion"`
	EmbeddingCacheTTLHr int      `yaml:"embedding_cache_ttl_hours"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey           string `yaml:"api_key"`
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SessionTTL returns the token lifetime.
func (c SessionConfig) SessionTTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded first when present.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands env variables in raw YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
	c.applyHTTPDefaults()
	c.applySearchDefaults()
	c.applyPaginationDefaults()

	if c.Session.TTLSec <= 0 {
		c.Session.TTLSec = 3600
	}

	if c.Vector.IndexName == "" {
		c.Vector.IndexName = "seqsearch:specialty:idx"
	}
	if c.Vector.KeyPrefix == "" {
		c.Vector.KeyPrefix = "seqsearch:"
	}
	if c.Vector.ReadinessTimeout <= 0 {
		c.Vector.ReadinessTimeout = 10
	}
	if c.Vector.DefaultExpansion <= 0 {
		c.Vector.DefaultExpansion = 5
	}
	if c.Vector.MaxExpansion <= 0 {
		c.Vector.MaxExpansion = 20
	}
	if c.Vector.EmbeddingCacheTTLHr <= 0 {
		c.Vector.EmbeddingCacheTTLHr = 24 * 30
	}
}

func (c *Config) applyHTTPDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

func (c *Config) applySearchDefaults() {
	s := &c.Search
	if s.Auth == "" {
		s.Auth = AuthAWS
	}
	if s.Service == "" {
		s.Service = "aoss"
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = 2
	}
	if s.CompanyLimit <= 0 {
		s.CompanyLimit = 1000
	}
	if s.CompanyTotalCap <= 0 {
		s.CompanyTotalCap = 10000
	}
	if s.ProfileTotalCap <= 0 {
		s.ProfileTotalCap = 10000
	}
	if s.CompanyTimeout <= 0 {
		s.CompanyTimeout = 10
	}
	if s.ProfileTimeout <= 0 {
		s.ProfileTimeout = 15
	}
	if s.LookupTimeout <= 0 {
		s.LookupTimeout = 10
	}
}

func (c *Config) applyPaginationDefaults() {
	p := &c.Pagination
	if p.DefaultPageSize <= 0 {
		p.DefaultPageSize = 25
	}
	if p.MinPageSize <= 0 {
		p.MinPageSize = 10
	}
	if p.MaxPageSize <= 0 {
		p.MaxPageSize = 50
	}
	if p.OffsetPageCeiling <= 0 {
		p.OffsetPageCeiling = 20
	}
	if p.LargeResultWarning <= 0 {
		p.LargeResultWarning = 1000
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Search.Endpoints) == 0 {
		return fmt.Errorf("search.endpoints is required")
	}
	if c.Search.CompaniesIndex == "" || c.Search.ProfilesIndex == "" {
		return fmt.Errorf("search.companies_index and search.profiles_index are required")
	}
	switch c.Search.Auth {
	case AuthAWS, AuthNone:
	case AuthBasic:
		if c.Search.Username == "" {
			return fmt.Errorf("search.username is required for basic auth")
		}
	default:
		return fmt.Errorf("search.auth must be \"aws\", \"basic\" or \"none\", got %q", c.Search.Auth)
	}
	if len(c.Session.Secret) < minSecretLen {
		return fmt.Errorf("session.secret must be at least %d bytes", minSecretLen)
	}
	p := c.Pagination
	if p.MinPageSize > p.MaxPageSize || p.DefaultPageSize < p.MinPageSize || p.DefaultPageSize > p.MaxPageSize {
		return fmt.Errorf(
			"pagination bounds inconsistent: min=%d default=%d max=%d",
			p.MinPageSize, p.DefaultPageSize, p.MaxPageSize,
		)
	}
	if c.Vector.Enabled {
		if len(c.Vector.Addrs) == 0 {
			return fmt.Errorf("vector.addrs is required when vector.enabled")
		}
		if c.Embedding.Model == "" {
			return fmt.Errorf("embedding.model is required when vector.enabled")
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// Relative to the source file, for tests and `go run` from subdirectories.
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
