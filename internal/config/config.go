package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/boardrag/internal/domain"
	"github.com/kailas-cloud/boardrag/internal/domain/contextwindow"
)

// Config holds the boardrag configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	CORS       CORSConfig       `yaml:"cors"`
	Index      IndexConfig      `yaml:"index"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Games      []GameConfig     `yaml:"games"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port              int `yaml:"port"`
	ReadTimeoutSec    int `yaml:"read_timeout_sec"`
	WriteTimeoutSec   int `yaml:"write_timeout_sec"`
	ShutdownSec       int `yaml:"shutdown_timeout_sec"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
}

// CORSConfig holds cross-origin settings for browser clients.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Index drivers.
const (
	IndexDriverChromem = "chromem"
	IndexDriverRedis   = "redis"
)

// IndexConfig selects and configures the vector index the rulebooks were loaded into.
type IndexConfig struct {
	Driver  string        `yaml:"driver"` // chromem (default), redis
	Chromem ChromemConfig `yaml:"chromem"`
	Redis   RedisConfig   `yaml:"redis"`
}

// ChromemConfig holds settings for the embedded chromem-go store.
type ChromemConfig struct {
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	Compress   bool   `yaml:"compress"`
}

// RedisConfig holds settings for a Redis / Valkey search index.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	IndexName        string   `yaml:"index_name"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// EmbeddingConfig holds query embedding settings.
// The model must match the one used when the index was populated.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"` // ollama (default), openai
	BaseURL          string `yaml:"base_url"`
	APIKey           string `yaml:"api_key"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
}

// CompletionConfig holds language model settings.
type CompletionConfig struct {
	Provider    string  `yaml:"provider"` // ollama (default), openai, anthropic, gemini
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// RetrievalConfig holds the pipeline constants.
type RetrievalConfig struct {
	FanOut         int    `yaml:"fan_out"`
	ContextCap     int    `yaml:"context_cap"`
	SnippetChars   int    `yaml:"snippet_chars"`
	PromptTemplate string `yaml:"prompt_template"` // empty = built-in template
}

// GameConfig describes one supported game.
type GameConfig struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description"`
	Keywords     []string `yaml:"keywords"`
	SourceMarker string   `yaml:"source_marker"`
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

// Parse decodes YAML configuration, expanding ${VAR} references, then applies
// defaults and validates the result.
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
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8000
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.RequestTimeoutSec <= 0 {
		c.HTTP.RequestTimeoutSec = 90
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}

	if c.Index.Driver == "" {
		c.Index.Driver = IndexDriverChromem
	}
	if c.Index.Chromem.Path == "" {
		c.Index.Chromem.Path = "chroma"
	}
	if c.Index.Chromem.Collection == "" {
		c.Index.Chromem.Collection = "langchain"
	}
	if c.Index.Redis.IndexName == "" {
		c.Index.Redis.IndexName = "boardrag:rules"
	}
	if c.Index.Redis.KeyPrefix == "" {
		c.Index.Redis.KeyPrefix = "boardrag:chunk:"
	}
	if c.Index.Redis.ReadinessTimeout <= 0 {
		c.Index.Redis.ReadinessTimeout = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOllama
	}
	if c.Embedding.Model == "" && c.Embedding.Provider == ProviderOllama {
		c.Embedding.Model = "nomic-embed-text"
	}
	if c.Embedding.BaseURL == "" && c.Embedding.Provider == ProviderOllama {
		c.Embedding.BaseURL = "http://localhost:11434"
	}

	if c.Completion.Provider == "" {
		c.Completion.Provider = ProviderOllama
	}
	if c.Completion.Model == "" && c.Completion.Provider == ProviderOllama {
		c.Completion.Model = "llama3.2"
	}
	if c.Completion.BaseURL == "" && c.Completion.Provider == ProviderOllama {
		c.Completion.BaseURL = "http://localhost:11434"
	}
	if c.Completion.MaxTokens <= 0 {
		c.Completion.MaxTokens = 1024
	}
	if c.Completion.TimeoutSec <= 0 {
		c.Completion.TimeoutSec = 60
	}

	if c.Retrieval.FanOut <= 0 {
		c.Retrieval.FanOut = 8
	}
	if c.Retrieval.ContextCap <= 0 {
		c.Retrieval.ContextCap = 5
	}
	if c.Retrieval.SnippetChars <= 0 {
		c.Retrieval.SnippetChars = 200
	}

	if len(c.Games) == 0 {
		c.Games = DefaultGames()
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Index.Driver {
	case IndexDriverChromem:
		if c.Index.Chromem.Path == "" {
			return fmt.Errorf("index.chromem.path is required")
		}
	case IndexDriverRedis:
		if len(c.Index.Redis.Addrs) == 0 {
			return fmt.Errorf("index.redis.addrs is required")
		}
	default:
		return fmt.Errorf("index.driver must be %q or %q, got %q",
			IndexDriverChromem, IndexDriverRedis, c.Index.Driver)
	}

	switch c.Embedding.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOllama, ProviderOpenAI, c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}

	switch c.Completion.Provider {
	case ProviderOllama, ProviderOpenAI:
	case ProviderAnthropic, ProviderGemini:
		if c.Completion.APIKey == "" {
			return fmt.Errorf("completion.api_key is required for provider %q", c.Completion.Provider)
		}
	default:
		return fmt.Errorf("completion.provider %q is not supported", c.Completion.Provider)
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("completion.model is required")
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("completion.temperature must be between 0 and 2, got %g", c.Completion.Temperature)
	}

	if c.Retrieval.ContextCap > contextwindow.DefaultCap {
		return fmt.Errorf("retrieval.context_cap must be at most %d, got %d",
			contextwindow.DefaultCap, c.Retrieval.ContextCap)
	}
	if c.Retrieval.ContextCap > c.Retrieval.FanOut {
		return fmt.Errorf("retrieval.context_cap (%d) must not exceed retrieval.fan_out (%d)",
			c.Retrieval.ContextCap, c.Retrieval.FanOut)
	}

	seen := make(map[string]struct{}, len(c.Games))
	for i, g := range c.Games {
		if g.ID == "" {
			return fmt.Errorf("games[%d].id is required", i)
		}
		if _, dup := seen[g.ID]; dup {
			return fmt.Errorf("games[%d]: duplicate id %q", i, g.ID)
		}
		seen[g.ID] = struct{}{}
		if g.SourceMarker == "" {
			return fmt.Errorf("games.%s.source_marker is required", g.ID)
		}
		if len(g.Keywords) == 0 {
			return fmt.Errorf("games.%s.keywords must not be empty", g.ID)
		}
	}
	return nil
}

// DefaultGames returns the built-in game table in config form.
func DefaultGames() []GameConfig {
	games := domain.DefaultGames()
	out := make([]GameConfig, len(games))
	for i, g := range games {
		out[i] = GameConfig{
			ID:           g.ID,
			Name:         g.Name,
			Description:  g.Description,
			Keywords:     append([]string(nil), g.Keywords...),
			SourceMarker: g.SourceMarker,
		}
	}
	return out
}

// DomainGames converts the configured games to domain values.
func (c *Config) DomainGames() []domain.Game {
	out := make([]domain.Game, len(c.Games))
	for i, g := range c.Games {
		out[i] = domain.Game{
			ID:           g.ID,
			Name:         g.Name,
			Description:  g.Description,
			Keywords:     append([]string(nil), g.Keywords...),
			SourceMarker: g.SourceMarker,
		}
	}
	return out
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
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
