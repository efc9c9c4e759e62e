package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Store StoreConfig
	Auth  AuthConfig
	Tier  TierConfig
}

type StoreConfig struct {
	// Path to the curated sqlite database maintained by the
	// ingestion pipeline.
	Path string
}

type AuthConfig struct {
	// Tokens is a comma-separated list of static bearer tokens.
	// Empty means open access.
	Tokens string
}

type TierConfig struct {
	// MaxHours is the free-tier lookback ceiling in hours.
	MaxHours int
}

// Load reads configuration from an optional config file and
// PERIPHERAL_-prefixed environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/peripheral")

	v.SetEnvPrefix("PERIPHERAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.path", "./data/peripheral.db")
	v.SetDefault("auth.tokens", "")
	v.SetDefault("tier.maxHours", 720)
}
