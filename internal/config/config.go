package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfigPaths lists where config files are searched, in order.
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/skyflick/config.yaml",
}

// Config holds all service settings, populated from defaults, an optional
// YAML file, and environment variables, in that precedence order.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Logging LoggingConfig `koanf:"logging"`
	KMA     KMAConfig     `koanf:"kma"`
	Gemini  GeminiConfig  `koanf:"gemini"`
	TMDB    TMDBConfig    `koanf:"tmdb"`
	Events  EventsConfig  `koanf:"events"`
}

// ServerConfig configures the ops/API HTTP server.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// KMAConfig configures the weather gateway.
type KMAConfig struct {
	BaseURL     string        `koanf:"base_url"`
	ServiceKey  string        `koanf:"service_key"`
	Timeout     time.Duration `koanf:"timeout"`
	BaseTimeLag time.Duration `koanf:"base_time_lag"`
}

// GeminiConfig configures the text generation gateway.
type GeminiConfig struct {
	BaseURL         string        `koanf:"base_url"`
	APIKey          string        `koanf:"api_key"`
	Model           string        `koanf:"model"`
	Timeout         time.Duration `koanf:"timeout"`
	Temperature     float64       `koanf:"temperature"`
	MaxOutputTokens int           `koanf:"max_output_tokens"`
}

// TMDBConfig configures the movie catalog gateway.
type TMDBConfig struct {
	BaseURL      string        `koanf:"base_url"`
	APIKey       string        `koanf:"api_key"`
	Timeout      time.Duration `koanf:"timeout"`
	CacheSize    int           `koanf:"cache_size"`
	ImageBaseURL string        `koanf:"image_base_url"`
	PosterSize   string        `koanf:"poster_size"`
}

// EventsConfig configures the optional recommendation event stream.
type EventsConfig struct {
	Enabled bool     `koanf:"enabled"`
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		KMA: KMAConfig{
			BaseURL:     "http://apis.data.go.kr/1360000/VilageFcstInfoService_2.0",
			Timeout:     10 * time.Second,
			BaseTimeLag: 40 * time.Minute,
		},
		Gemini: GeminiConfig{
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
			Model:           "gemini-2.0-flash",
			Timeout:         10 * time.Second,
			Temperature:     0.8,
			MaxOutputTokens: 1024,
		},
		TMDB: TMDBConfig{
			BaseURL:      "https://api.themoviedb.org/3",
			Timeout:      10 * time.Second,
			CacheSize:    1000,
			ImageBaseURL: "https://image.tmdb.org/t/p/",
			PosterSize:   "w500",
		},
		Events: EventsConfig{
			Enabled: false,
			Brokers: []string{"localhost:9092"},
			Topic:   "recommendation-events",
		},
	}
}

// Load reads configuration with layered precedence: struct defaults, then an
// optional YAML file, then environment variables, followed by validation.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := normalizeBrokers(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envMappings maps environment variable names to config paths. Variables not
// listed here are ignored.
var envMappings = map[string]string{
	"SERVER_ADDR":      "server.addr",
	"SHUTDOWN_TIMEOUT": "server.shutdown_timeout",
	"LOG_LEVEL":        "logging.level",
	"LOG_FORMAT":       "logging.format",

	"KMA_BASE_URL":      "kma.base_url",
	"KMA_SERVICE_KEY":   "kma.service_key",
	"KMA_TIMEOUT":       "kma.timeout",
	"KMA_BASE_TIME_LAG": "kma.base_time_lag",

	"GEMINI_BASE_URL":          "gemini.base_url",
	"GEMINI_API_KEY":           "gemini.api_key",
	"GEMINI_MODEL":             "gemini.model",
	"GEMINI_TIMEOUT":           "gemini.timeout",
	"GEMINI_TEMPERATURE":       "gemini.temperature",
	"GEMINI_MAX_OUTPUT_TOKENS": "gemini.max_output_tokens",

	"TMDB_BASE_URL":       "tmdb.base_url",
	"TMDB_API_KEY":        "tmdb.api_key",
	"TMDB_TIMEOUT":        "tmdb.timeout",
	"TMDB_CACHE_SIZE":     "tmdb.cache_size",
	"TMDB_IMAGE_BASE_URL": "tmdb.image_base_url",
	"TMDB_POSTER_SIZE":    "tmdb.poster_size",

	"EVENTS_ENABLED": "events.enabled",
	"KAFKA_BROKERS":  "events.brokers",
	"KAFKA_TOPIC":    "events.topic",
}

// envTransform maps an environment variable name to its koanf path; returning
// "" drops the variable.
func envTransform(key string) string {
	return envMappings[key]
}

// normalizeBrokers splits a comma-separated broker list coming from the
// environment into a slice.
func normalizeBrokers(k *koanf.Koanf) error {
	v := k.Get("events.brokers")
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return k.Set("events.brokers", brokers)
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	if c.KMA.ServiceKey == "" {
		return errors.New("KMA_SERVICE_KEY is required")
	}
	if c.KMA.Timeout <= 0 || c.KMA.BaseTimeLag <= 0 {
		return errors.New("kma.timeout and kma.base_time_lag must be positive")
	}
	if c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY is required")
	}
	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 1 {
		return fmt.Errorf("gemini.temperature %v out of range [0,1]", c.Gemini.Temperature)
	}
	if c.Gemini.MaxOutputTokens < 1 {
		return errors.New("gemini.max_output_tokens must be positive")
	}
	if c.TMDB.APIKey == "" {
		return errors.New("TMDB_API_KEY is required")
	}
	if c.TMDB.CacheSize < 1 {
		return errors.New("tmdb.cache_size must be positive")
	}
	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return errors.New("EVENTS_ENABLED is true but no Kafka brokers are configured")
		}
		if c.Events.Topic == "" {
			return errors.New("EVENTS_ENABLED is true but KAFKA_TOPIC is not set")
		}
	}
	return nil
}
