package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified"; Default and WithDefaults fill them in.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	// Registry
	TrackingURI            string `json:"tracking_uri" yaml:"tracking_uri" toml:"tracking_uri"`
	RegistryDir            string `json:"registry_dir" yaml:"registry_dir" toml:"registry_dir"`
	RegistryPrefix         string `json:"registry_prefix" yaml:"registry_prefix" toml:"registry_prefix"`
	RegistryTimeoutSeconds int    `json:"registry_timeout_seconds" yaml:"registry_timeout_seconds" toml:"registry_timeout_seconds"`

	// Artifacts and models
	CacheDir        string   `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	Models          []string `json:"models" yaml:"models" toml:"models"`
	LoadConcurrency int      `json:"load_concurrency" yaml:"load_concurrency" toml:"load_concurrency"`

	// Engine
	Engine       string `json:"engine" yaml:"engine" toml:"engine"`
	EngineURL    string `json:"engine_url" yaml:"engine_url" toml:"engine_url"`
	EngineAPIKey string `json:"engine_api_key" yaml:"engine_api_key" toml:"engine_api_key"`
	LlamaCtx     int    `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	// EngineTimeoutSeconds bounds each request to an engine server.
	// Zero leaves generation bounded only by infer_timeout_seconds.
	EngineTimeoutSeconds int `json:"engine_timeout_seconds" yaml:"engine_timeout_seconds" toml:"engine_timeout_seconds"`

	// Sampling, fixed for every request
	MaxTokens   int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64  `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP        float64  `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK        int      `json:"top_k" yaml:"top_k" toml:"top_k"`
	Stop        []string `json:"stop" yaml:"stop" toml:"stop"`
	Seed        int      `json:"seed" yaml:"seed" toml:"seed"`
	// RepeatPenalty of zero keeps the engine's default.
	RepeatPenalty float64 `json:"repeat_penalty" yaml:"repeat_penalty" toml:"repeat_penalty"`

	// Download coordination and load history
	RedisURL       string `json:"redis_url" yaml:"redis_url" toml:"redis_url"`
	LockTTLSeconds int    `json:"lock_ttl_seconds" yaml:"lock_ttl_seconds" toml:"lock_ttl_seconds"`
	HistoryDB      string `json:"history_db" yaml:"history_db" toml:"history_db"`

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`

	// HTTP
	MaxBodyBytes        int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	InferTimeoutSeconds int64    `json:"infer_timeout_seconds" yaml:"infer_timeout_seconds" toml:"infer_timeout_seconds"`
	CORSEnabled         bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins         []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
}

// Defaults applied by WithDefaults when the corresponding field is unset.
const (
	DefaultAddr            = ":9000"
	DefaultTrackingURI     = "http://mlflow-server-0.mlflow-model.svc.cluster.local:5000"
	DefaultRegistryPrefix  = "vllm-"
	DefaultCacheDir        = "/models"
	DefaultEngine          = "llama"
	DefaultMaxTokens       = 256
	DefaultLoadConcurrency = 1
	DefaultRegistryTimeout = 60
	DefaultLockTTLSeconds  = 1800
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
)

// ErrNoModels is returned by Validate when no model names are configured.
var ErrNoModels = errors.New("no model names configured")

// Default returns a Config with every default applied and no models.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with defaults filled into unset fields.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.TrackingURI == "" && c.RegistryDir == "" {
		c.TrackingURI = DefaultTrackingURI
	}
	if c.RegistryPrefix == "" {
		c.RegistryPrefix = DefaultRegistryPrefix
	}
	if c.RegistryTimeoutSeconds <= 0 {
		c.RegistryTimeoutSeconds = DefaultRegistryTimeout
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.LoadConcurrency <= 0 {
		c.LoadConcurrency = DefaultLoadConcurrency
	}
	if c.Engine == "" {
		c.Engine = DefaultEngine
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.LockTTLSeconds <= 0 {
		c.LockTTLSeconds = DefaultLockTTLSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	return c
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto c. Unset variables leave the
// corresponding field untouched.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := getenv("MLFLOW_TRACKING_URI"); v != "" {
		c.TrackingURI = v
	}
	if v := getenv("MODEL_NAMES"); v != "" {
		c.Models = SplitNames(v)
	}
	if v := getenv("MLSERVE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := getenv("MLSERVE_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := getenv("MLSERVE_REGISTRY_DIR"); v != "" {
		c.RegistryDir = v
	}
	if v := getenv("MLSERVE_ENGINE"); v != "" {
		c.Engine = v
	}
	if v := getenv("MLSERVE_ENGINE_URL"); v != "" {
		c.EngineURL = v
	}
	if v := getenv("MLSERVE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := getenv("MLSERVE_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MLSERVE_MAX_TOKENS: %w", err)
		}
		c.MaxTokens = n
	}
	return nil
}

// Validate checks preconditions that must hold before loading starts.
func (c Config) Validate() error {
	if len(SplitNames(strings.Join(c.Models, ","))) == 0 {
		return ErrNoModels
	}
	switch c.Engine {
	case "llama", "openai":
	default:
		return fmt.Errorf("unsupported engine: %q", c.Engine)
	}
	if c.Engine == "openai" && strings.TrimSpace(c.EngineURL) == "" {
		return fmt.Errorf("engine %q requires engine_url", c.Engine)
	}
	return nil
}

// SplitNames splits a comma-separated list of model names, trimming
// whitespace and dropping empty entries. Order is preserved.
func SplitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
