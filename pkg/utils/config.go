package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, file or memory
	Path   string `mapstructure:"path"`
}

type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type Config struct {
	HTTPAddr     string        `mapstructure:"http_addr"`
	TCPAddr      string        `mapstructure:"tcp_addr"`
	GRPCAddr     string        `mapstructure:"grpc_addr"`
	Catalog      string        `mapstructure:"catalog"`
	Page         string        `mapstructure:"page"`
	WatchCatalog bool          `mapstructure:"watch_catalog"`
	Storage      StorageConfig `mapstructure:"storage"`
	Session      SessionConfig `mapstructure:"session"`
}

// LoadConfig reads defaults, then an optional recetas.{yaml,json,toml} in the
// working directory (or the file named by RECETAS_CONFIG), then RECETAS_*
// environment variables. Nested keys use underscores: RECETAS_STORAGE_DRIVER.
func LoadConfig() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RECETAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if p := os.Getenv("RECETAS_CONFIG"); p != "" {
		v.SetConfigFile(p)
	} else {
		v.SetConfigName("recetas")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Session.TTL <= 0 {
		cfg.Session.TTL = 30 * 24 * time.Hour
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("tcp_addr", ":7070")
	v.SetDefault("grpc_addr", ":9090")
	v.SetDefault("catalog", "assets/data/recetas.json")
	v.SetDefault("page", "index.html")
	v.SetDefault("watch_catalog", false)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", defaultDataPath())
	// dev default (change for demo / production)
	v.SetDefault("session.secret", "dev-secret-change-me")
	v.SetDefault("session.issuer", "recetas")
	v.SetDefault("session.ttl", "720h")
}

// defaultDataPath is ~/.recetas/data.db, or ./.recetas/data.db without a home dir.
func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".recetas", "data.db")
}
