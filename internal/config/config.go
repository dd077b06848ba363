package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider" mapstructure:"provider"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ProviderConfig configures the listing provider.
type ProviderConfig struct {
	TTLSecs     int    `yaml:"ttl_secs" mapstructure:"ttl_secs"`
	IDField     string `yaml:"id_field" mapstructure:"id_field"`
	URLTemplate string `yaml:"url_template" mapstructure:"url_template"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	// Categories overlays the built-in category table. An empty path removes a name.
	Categories     map[string]string `yaml:"categories" mapstructure:"categories"`
	CategoriesFile string            `yaml:"categories_file" mapstructure:"categories_file"`
}

// FetchConfig configures upstream requests.
type FetchConfig struct {
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts      int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RatePerSec       float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CircuitThreshold int     `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs int     `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" mapstructure:"max_entries"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("provider.ttl_secs", 3600)
	v.SetDefault("provider.id_field", "featureId")
	v.SetDefault("provider.url_template", "https://{city}.craigslist.org/jsonsearch/{path}/?map=1")
	v.SetDefault("provider.user_agent", "listing-features/1.0")
	v.SetDefault("provider.categories_file", "")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.rate_per_sec", 2.0)
	v.SetDefault("fetch.circuit_threshold", 5)
	v.SetDefault("fetch.circuit_reset_secs", 30)
	v.SetDefault("cache.max_entries", 256)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. mode is "serve", "get"
// or "translate".
func (c *Config) Validate(mode string) error {
	var problems []string

	if strings.TrimSpace(c.Provider.IDField) == "" {
		problems = append(problems, "provider.id_field is required")
	}

	switch mode {
	case "serve", "get":
		if !strings.Contains(c.Provider.URLTemplate, "{city}") || !strings.Contains(c.Provider.URLTemplate, "{path}") {
			problems = append(problems, "provider.url_template must contain {city} and {path}")
		}
		if c.Provider.TTLSecs < 0 {
			problems = append(problems, "provider.ttl_secs must not be negative")
		}
		if c.Fetch.RatePerSec < 0 {
			problems = append(problems, "fetch.rate_per_sec must not be negative")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			problems = append(problems, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		}
	case "translate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
