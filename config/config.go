// Package config loads the settings of the ta command from a YAML file,
// REGISTRAR_* environment variables and a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/etnz/registrar"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "registrar.yaml"

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type ClassifierConfig struct {
	Unknown string `mapstructure:"unknown"` // fail-open or exclude
}

type PricesConfig struct {
	URL      string `mapstructure:"url"`
	Path     string `mapstructure:"path"`
	CacheDir string `mapstructure:"cache_dir"`
}

type Config struct {
	DB         string           `mapstructure:"db"`
	Books      string           `mapstructure:"books"`
	Issuer     string           `mapstructure:"issuer"`
	Currency   string           `mapstructure:"currency"`
	LogLevel   string           `mapstructure:"log_level"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Prices     PricesConfig     `mapstructure:"prices"`
}

// Load reads the configuration file at path, DefaultPath if empty. A
// missing file is not an error. The .env file next to it, if any, is
// loaded into the environment first without overriding it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("REGISTRAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if _, err := registrar.ParseUnknownPolicy(cfg.Classifier.Unknown); err != nil {
		return nil, fmt.Errorf("classifier.unknown: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db", "registrar.db")
	v.SetDefault("books", "")
	v.SetDefault("issuer", "")
	v.SetDefault("currency", registrar.DefaultCurrency)
	v.SetDefault("log_level", "info")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("classifier.unknown", "fail-open")
	v.SetDefault("prices.url", "")
	v.SetDefault("prices.path", "$.last")
	v.SetDefault("prices.cache_dir", "")
}
