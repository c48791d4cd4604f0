package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. DENORM_CACHE_CAPACITY.
const EnvPrefix = "DENORM"

// Config holds settings shared by all commands. Flags override it.
type Config struct {
	// Memoized is the default walker mode for run.
	Memoized bool `mapstructure:"memoized"`
	// Format is the default output format.
	Format string `mapstructure:"format"`
	// Cache configures memo caches created by run.
	Cache CacheConfig `mapstructure:"cache"`
	// Log configures diagnostic output on stderr.
	Log LogConfig `mapstructure:"log"`
}

// CacheConfig bounds memo caches.
type CacheConfig struct {
	// Capacity is the slot limit; 0 means unbounded.
	Capacity int `mapstructure:"capacity"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// LoadConfig reads configuration from defaults, an optional config file and
// DENORM_* environment variables, in increasing priority. envFile, when set,
// is loaded into the process environment first and must exist.
func LoadConfig(configFile, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Overload(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetDefault("memoized", false)
	v.SetDefault("format", "text")
	v.SetDefault("cache.capacity", 0)
	v.SetDefault("log.level", "warn")

	// DENORM_CACHE_CAPACITY -> cache.capacity
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if !isValidFormat(c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, ValidFormats)
	}
	if c.Cache.Capacity < 0 {
		return errors.New("cache.capacity must be non-negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
