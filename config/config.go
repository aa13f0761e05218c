// Package config loads the service configuration with koanf: built-in
// defaults, then an optional YAML file, then AGENTMUX_* environment variables.
//
// Environment keys map the first underscore after the prefix to a section
// separator: AGENTMUX_SERVER_ADDR sets server.addr and
// AGENTMUX_GENERATION_MAX_ROUNDS sets generation.max_rounds. Capability
// keys also split off the trailing field: AGENTMUX_CAPABILITIES_CHAT_MODEL
// sets capabilities.chat.model.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hupe1980/agentmux/telemetry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AGENTMUX_"

// Config is the complete service configuration.
type Config struct {
	Log          LogConfig                   `koanf:"log"`
	Server       ServerConfig                `koanf:"server"`
	Telemetry    telemetry.Config            `koanf:"telemetry"`
	Generation   GenerationConfig            `koanf:"generation"`
	Providers    ProvidersConfig             `koanf:"providers"`
	Capabilities map[string]CapabilityConfig `koanf:"capabilities"`
	Memory       MemoryConfig                `koanf:"memory"`
	Artifacts    ArtifactsConfig             `koanf:"artifacts"`
}

// LogConfig selects level and output format of the slog handler.
type LogConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"` // json, text
	AddSource bool   `koanf:"add_source"`
}

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	PublicURL      string        `koanf:"public_url"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	// MaxConcurrent bounds simultaneous dispatches; 0 is unlimited.
	MaxConcurrent int `koanf:"max_concurrent"`
}

// GenerationConfig bounds the generation loop.
type GenerationConfig struct {
	MaxRounds        int           `koanf:"max_rounds"`
	MaxDepth         int           `koanf:"max_depth"`
	MaxHistory       int           `koanf:"max_history"`
	ReportToolErrors bool          `koanf:"report_tool_errors"`
	ToolTimeout      time.Duration `koanf:"tool_timeout"`
}

// ProvidersConfig holds provider credentials and endpoints. Empty API keys
// fall back to the provider's conventional environment variable.
type ProvidersConfig struct {
	GroqAPIKey       string        `koanf:"groq_api_key"`
	GroqBaseURL      string        `koanf:"groq_base_url"`
	OpenAIAPIKey     string        `koanf:"openai_api_key"`
	OpenAIBaseURL    string        `koanf:"openai_base_url"`
	AnthropicAPIKey  string        `koanf:"anthropic_api_key"`
	AnthropicBaseURL string        `koanf:"anthropic_base_url"`
	OllamaBaseURL    string        `koanf:"ollama_base_url"`
	Timeout          time.Duration `koanf:"timeout"`
	Temperature      float64       `koanf:"temperature"`
}

// CapabilityConfig binds a capability name to a provider model.
type CapabilityConfig struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
}

// MemoryConfig selects the conversation store.
type MemoryConfig struct {
	Backend       string        `koanf:"backend"` // none, inmemory, sqlite, redis
	MaxTurns      int           `koanf:"max_turns"`
	SQLitePath    string        `koanf:"sqlite_path"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	TTL           time.Duration `koanf:"ttl"`
}

// ArtifactsConfig selects the artifact publisher.
type ArtifactsConfig struct {
	Backend        string `koanf:"backend"` // inmemory, minio
	BaseURL        string `koanf:"base_url"`
	MinioEndpoint  string `koanf:"minio_endpoint"`
	MinioAccessKey string `koanf:"minio_access_key"`
	MinioSecretKey string `koanf:"minio_secret_key"`
	MinioBucket    string `koanf:"minio_bucket"`
	MinioRegion    string `koanf:"minio_region"`
	MinioSecure    bool   `koanf:"minio_secure"`
	MinioPublicURL string `koanf:"minio_public_url"`
}

// Providers known to the capability registry.
var Providers = []string{"groq", "openai", "anthropic", "ollama", "scripted"}

var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "json",

	"server.addr":            ":8080",
	"server.public_url":      "http://localhost:8080",
	"server.read_timeout":    "30s",
	"server.write_timeout":   "120s",
	"server.request_timeout": "90s",

	"telemetry.exporter":        "none",
	"telemetry.otlp_endpoint":   "localhost:4317",
	"telemetry.otlp_insecure":   true,
	"telemetry.metric_interval": "30s",

	"generation.max_rounds":   8,
	"generation.max_depth":    8,
	"generation.max_history":  20,
	"generation.tool_timeout": "60s",

	"providers.ollama_base_url": "http://localhost:11434",
	"providers.timeout":         "60s",
	"providers.temperature":     0.7,

	"capabilities.chat.provider":    "groq",
	"capabilities.chat.model":       "gemma2-9b-it",
	"capabilities.writer.provider":  "groq",
	"capabilities.writer.model":     "gemma2-9b-it",
	"capabilities.planner.provider": "groq",
	"capabilities.planner.model":    "llama-3.3-70b-versatile",
	"capabilities.shout.provider":   "scripted",
	"capabilities.shout.model":      "uppercase-tool",

	"memory.backend":     "inmemory",
	"memory.max_turns":   100,
	"memory.sqlite_path": "agentmux.db",
	"memory.redis_addr":  "localhost:6379",

	"artifacts.backend":      "inmemory",
	"artifacts.minio_bucket": "memes",
}

// Load reads configuration from defaults, the optional YAML file at path and
// the environment, then validates it.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("config default %s: %w", key, err)
		}
	}

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// 2. Load from ENV (AGENTMUX_MEMORY_REDIS_ADDR -> memory.redis_addr)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Providers.applyEnvFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func envKey(s string) string {
	key := strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)

	if rest, ok := strings.CutPrefix(key, "capabilities."); ok {
		if i := strings.LastIndex(rest, "_"); i > 0 {
			return "capabilities." + rest[:i] + "." + rest[i+1:]
		}
	}

	return key
}

func (p *ProvidersConfig) applyEnvFallbacks() {
	fallback := func(dst *string, name string) {
		if *dst == "" {
			*dst = os.Getenv(name)
		}
	}

	fallback(&p.GroqAPIKey, "GROQ_API_KEY")
	fallback(&p.OpenAIAPIKey, "OPENAI_API_KEY")
	fallback(&p.AnthropicAPIKey, "ANTHROPIC_API_KEY")
}

// Validate rejects unknown backends, exporters and providers.
func (c *Config) Validate() error {
	if err := oneOf("log.format", c.Log.Format, "json", "text"); err != nil {
		return err
	}

	if err := oneOf("telemetry.exporter", c.Telemetry.Exporter, "none", "stdout", "otlp"); err != nil {
		return err
	}

	if err := oneOf("memory.backend", c.Memory.Backend, "none", "inmemory", "sqlite", "redis"); err != nil {
		return err
	}

	if err := oneOf("artifacts.backend", c.Artifacts.Backend, "inmemory", "minio"); err != nil {
		return err
	}

	if c.Artifacts.Backend == "minio" && c.Artifacts.MinioEndpoint == "" {
		return fmt.Errorf("config: artifacts.minio_endpoint is required for the minio backend")
	}

	if c.Generation.MaxRounds < 1 {
		return fmt.Errorf("config: generation.max_rounds must be positive, got %d", c.Generation.MaxRounds)
	}

	if c.Generation.MaxDepth < 1 {
		return fmt.Errorf("config: generation.max_depth must be positive, got %d", c.Generation.MaxDepth)
	}

	for _, name := range c.CapabilityNames() {
		capCfg := c.Capabilities[name]
		if err := oneOf("capabilities."+name+".provider", capCfg.Provider, Providers...); err != nil {
			return err
		}

		if capCfg.Model == "" {
			return fmt.Errorf("config: capabilities.%s.model is required", name)
		}
	}

	return nil
}

// CapabilityNames returns the configured capability names, sorted.
func (c *Config) CapabilityNames() []string {
	names := make([]string, 0, len(c.Capabilities))
	for name := range c.Capabilities {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func oneOf(key, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	return fmt.Errorf("config: %s must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}
