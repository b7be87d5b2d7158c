// Package config содержит логику чтения конфигурации ядра витрины.
package config

import (
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации ядра витрины.
// Денежные значения заданы в минорных единицах валюты.
type Config struct {
	APIBaseURL            string `env:"API_BASE_URL"`
	RunAddress            string `env:"RUN_ADDRESS"`
	StoragePath           string `env:"STORAGE_PATH"`
	RedisAddress          string `env:"REDIS_ADDRESS"`
	// Отрицательное значение означает «не задано»: явный ноль допустим
	// и не подменяется значением по умолчанию.
	FreeDeliveryThreshold int64 `env:"FREE_DELIVERY_THRESHOLD" envDefault:"-1"`
	DeliveryFee           int64 `env:"DELIVERY_FEE" envDefault:"-1"`
	CartKey               string `env:"CART_STORAGE_KEY"`
	AuthKey               string `env:"AUTH_STORAGE_KEY"`
	RefreshTokenKey       string `env:"REFRESH_TOKEN_STORAGE_KEY"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envAPIBaseURL := cfg.APIBaseURL
	envRunAddress := cfg.RunAddress
	envStoragePath := cfg.StoragePath
	envRedisAddress := cfg.RedisAddress
	envThreshold := cfg.FreeDeliveryThreshold
	envDeliveryFee := cfg.DeliveryFee

	flag.StringVar(&cfg.APIBaseURL, "a", "", "base URL of the storefront backend API")
	flag.StringVar(&cfg.RunAddress, "l", "localhost:8000", "address for the embedded mock backend")
	flag.StringVar(&cfg.StoragePath, "s", "storefront-state.json", "path to the local state file")
	flag.StringVar(&cfg.RedisAddress, "r", "", "redis address for durable state (overrides the state file)")
	flag.Int64Var(&cfg.FreeDeliveryThreshold, "t", -1, "free delivery threshold in minor currency units")
	flag.Int64Var(&cfg.DeliveryFee, "f", -1, "flat delivery fee in minor currency units")

	flag.Parse()

	if envAPIBaseURL != "" {
		cfg.APIBaseURL = envAPIBaseURL
	}
	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envStoragePath != "" {
		cfg.StoragePath = envStoragePath
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envThreshold >= 0 {
		cfg.FreeDeliveryThreshold = envThreshold
	}
	if envDeliveryFee >= 0 {
		cfg.DeliveryFee = envDeliveryFee
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8000"
	}
	if cfg.StoragePath == "" {
		cfg.StoragePath = "storefront-state.json"
	}
	if cfg.FreeDeliveryThreshold < 0 {
		cfg.FreeDeliveryThreshold = 10000
	}
	if cfg.DeliveryFee < 0 {
		cfg.DeliveryFee = 500
	}
	if cfg.CartKey == "" {
		cfg.CartKey = "jemi-cart"
	}
	if cfg.AuthKey == "" {
		cfg.AuthKey = "jemi-auth"
	}
	if cfg.RefreshTokenKey == "" {
		cfg.RefreshTokenKey = "jemi-refresh-token"
	}
}
