package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Draft struct {
		DefaultTimePerPickSec int  `yaml:"default_time_per_pick_sec"`
		ThirdRoundReversal    bool `yaml:"third_round_reversal"`
	} `yaml:"draft"`
	Events struct {
		NatsEnabled bool   `yaml:"nats_enabled"`
		NatsURL     string `yaml:"nats_url"`
	} `yaml:"events"`
	Database struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Draft.DefaultTimePerPickSec <= 0 {
		config.Draft.DefaultTimePerPickSec = 30
	}
	if config.Events.NatsURL == "" {
		config.Events.NatsURL = "nats://localhost:4222"
	}

	return &config, nil
}
