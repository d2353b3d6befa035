package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "FIFTYONE"

type ServerConfig struct {
	Port           int      `mapstructure:"port" validate:"required|uint|min:1|max:65535"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type APIConfig struct {
	// URL, when set, is configured as an entry at startup unless an entry
	// for it already exists.
	URL          string        `mapstructure:"url" validate:"fullUrl"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"required|min:1"`
	ImageTimeout time.Duration `mapstructure:"imageTimeout" validate:"required|min:1"`
	MaxHeight    int           `mapstructure:"maxHeight" validate:"required|min:1"`
}

type CoordinatorConfig struct {
	Interval  time.Duration `mapstructure:"interval" validate:"required|min:1"`
	Resources []string      `mapstructure:"resources"`
}

type DatabaseConfig struct {
	// URL selects Postgres; empty keeps entries in memory.
	URL string `mapstructure:"url"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required|in:debug,info,warn,error"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type CacheConfig struct {
	// Size of the rendered-response cache in MB; 0 disables it.
	Size int `mapstructure:"size" validate:"min:0"`
	TTL  int `mapstructure:"ttl" validate:"min:0"`
}

type MQTTConfig struct {
	// Broker such as tcp://localhost:1883; empty disables publishing.
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topicPrefix"`
	ClientID    string `mapstructure:"clientID"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	API         APIConfig         `mapstructure:"api"`
	Coordinator CoordinatorConfig `mapstructure:"coordinator"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Cache       CacheConfig       `mapstructure:"cache"`
	MQTT        MQTTConfig        `mapstructure:"mqtt"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("api.url", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.imageTimeout", 60*time.Second)
	v.SetDefault("api.maxHeight", 900)
	v.SetDefault("coordinator.interval", 10*time.Minute)
	v.SetDefault("coordinator.resources", []string{"stocks", "webcams", "aviation"})
	v.SetDefault("database.url", "")
	v.SetDefault("logger.level", "info")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("cache.size", 32)
	v.SetDefault("cache.ttl", 600)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.topicPrefix", "fiftyone")
	v.SetDefault("mqtt.clientID", "")
}

// Load reads .env (if present), then the YAML file at path (optional when
// path is empty), then FIFTYONE_* environment variables, and validates the
// result. DATABASE_URL and PORT are honoured as fallbacks.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	v := validate.Struct(c)
	if !v.Validate() {
		return fmt.Errorf("invalid config: %w", v.Errors)
	}
	return nil
}

// SlogLevel maps the configured level name onto slog.
func (l LoggerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Addr is the listen address of the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}
