// Package config loads wordtrans settings from an optional config file,
// WORDTRANS_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "WORDTRANS"

type Config struct {
	Pool      PoolConfig
	Translate TranslateConfig
	Breaker   BreakerConfig
	OpenAI    OpenAIConfig
	Gemini    GeminiConfig
	Storage   StorageConfig
	Segment   SegmentConfig
	Service   ServiceConfig
	Server    ServerConfig
}

type PoolConfig struct {
	Workers        int
	QueueCapacity  int
	QueueWarnDepth int
	ShutdownGrace  time.Duration
}

type TranslateConfig struct {
	TaskDelay      time.Duration
	Backend        string
	APIURL         string
	APIKey         string
	AuthScheme     string
	FolderID       string
	RequestTimeout time.Duration
	Speller        bool
}

type BreakerConfig struct {
	Enabled     bool
	MaxFailures int
	OpenTimeout time.Duration
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type StorageConfig struct {
	Driver string
	DSN    string
}

type SegmentConfig struct {
	MaxLen int
}

type ServiceConfig struct {
	MaxInputLen int
	SaveDelay   time.Duration
}

type ServerConfig struct {
	Addr string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("pool.workers", 10)
	v.SetDefault("pool.queue_capacity", 0)
	v.SetDefault("pool.queue_warn_depth", 1000)
	v.SetDefault("pool.shutdown_grace", 15*time.Second)

	v.SetDefault("translate.task_delay", 400*time.Millisecond)
	v.SetDefault("translate.backend", "cloud")
	v.SetDefault("translate.api_url", "https://translate.api.cloud.yandex.net/translate/v2/translate")
	v.SetDefault("translate.api_key", "")
	v.SetDefault("translate.auth_scheme", "Api-Key")
	v.SetDefault("translate.folder_id", "")
	v.SetDefault("translate.request_timeout", 30*time.Second)
	v.SetDefault("translate.speller", true)

	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.max_failures", 5)
	v.SetDefault("breaker.open_timeout", 30*time.Second)

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.base_url", "")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.base_url", "")

	v.SetDefault("storage.driver", "sqlite3")
	v.SetDefault("storage.dsn", "wordtrans.db")

	v.SetDefault("segment.max_len", 100)

	v.SetDefault("service.max_input_len", 100)
	v.SetDefault("service.save_delay", 100*time.Millisecond)

	v.SetDefault("server.addr", ":8080")
}

// New returns a viper instance with defaults and environment binding set up.
// If cfgFile is empty, wordtrans.yaml is looked up in the working directory
// and .wordtrans.yaml in the home directory; a missing file is not an error.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys that also answer to the names used by the hosted deployments.
	_ = v.BindEnv("translate.api_key", EnvPrefix+"_TRANSLATE_API_KEY", "API_KEY")
	_ = v.BindEnv("translate.folder_id", EnvPrefix+"_TRANSLATE_FOLDER_ID", "FOLDER_ID")
	_ = v.BindEnv("openai.api_key", EnvPrefix+"_OPENAI_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("gemini.api_key", EnvPrefix+"_GEMINI_API_KEY", "GEMINI_API_KEY")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
		return v, nil
	}

	v.SetConfigType("yaml")
	v.SetConfigName("wordtrans")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err == nil {
		return v, nil
	} else if !errors.As(err, new(viper.ConfigFileNotFoundError)) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigName(".wordtrans")
		v.AddConfigPath(home)
		if err := v.ReadInConfig(); err != nil && !errors.As(err, new(viper.ConfigFileNotFoundError)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// Load reads the settings out of v and validates them.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Pool: PoolConfig{
			Workers:        v.GetInt("pool.workers"),
			QueueCapacity:  v.GetInt("pool.queue_capacity"),
			QueueWarnDepth: v.GetInt("pool.queue_warn_depth"),
			ShutdownGrace:  v.GetDuration("pool.shutdown_grace"),
		},
		Translate: TranslateConfig{
			TaskDelay:      v.GetDuration("translate.task_delay"),
			Backend:        strings.ToLower(v.GetString("translate.backend")),
			APIURL:         v.GetString("translate.api_url"),
			APIKey:         v.GetString("translate.api_key"),
			AuthScheme:     v.GetString("translate.auth_scheme"),
			FolderID:       v.GetString("translate.folder_id"),
			RequestTimeout: v.GetDuration("translate.request_timeout"),
			Speller:        v.GetBool("translate.speller"),
		},
		Breaker: BreakerConfig{
			Enabled:     v.GetBool("breaker.enabled"),
			MaxFailures: v.GetInt("breaker.max_failures"),
			OpenTimeout: v.GetDuration("breaker.open_timeout"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  v.GetString("openai.api_key"),
			Model:   v.GetString("openai.model"),
			BaseURL: v.GetString("openai.base_url"),
		},
		Gemini: GeminiConfig{
			APIKey:  v.GetString("gemini.api_key"),
			Model:   v.GetString("gemini.model"),
			BaseURL: v.GetString("gemini.base_url"),
		},
		Storage: StorageConfig{
			Driver: v.GetString("storage.driver"),
			DSN:    v.GetString("storage.dsn"),
		},
		Segment: SegmentConfig{
			MaxLen: v.GetInt("segment.max_len"),
		},
		Service: ServiceConfig{
			MaxInputLen: v.GetInt("service.max_input_len"),
			SaveDelay:   v.GetDuration("service.save_delay"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
	}

	// the generic key is the fallback for the model backends
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = cfg.Translate.APIKey
	}
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = cfg.Translate.APIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.Pool.Workers < 1:
		return fmt.Errorf("pool.workers must be at least 1, got %d", c.Pool.Workers)
	case c.Pool.QueueCapacity < 0:
		return fmt.Errorf("pool.queue_capacity must not be negative, got %d", c.Pool.QueueCapacity)
	case c.Pool.ShutdownGrace <= 0:
		return fmt.Errorf("pool.shutdown_grace must be positive, got %s", c.Pool.ShutdownGrace)
	case c.Translate.TaskDelay < 0:
		return fmt.Errorf("translate.task_delay must not be negative, got %s", c.Translate.TaskDelay)
	case c.Segment.MaxLen < 1:
		return fmt.Errorf("segment.max_len must be at least 1, got %d", c.Segment.MaxLen)
	case c.Service.MaxInputLen < 1:
		return fmt.Errorf("service.max_input_len must be at least 1, got %d", c.Service.MaxInputLen)
	}
	switch c.Translate.Backend {
	case "cloud", "openai", "gemini":
	default:
		return fmt.Errorf("unknown translate.backend %q (want cloud, openai or gemini)", c.Translate.Backend)
	}
	switch c.Storage.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unknown storage.driver %q (want sqlite3 or postgres)", c.Storage.Driver)
	}
	return nil
}
