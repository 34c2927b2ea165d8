package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type MigratorConfig struct {
	BatchSize int `yaml:"batch_size"`
	Workers   int `yaml:"workers"`
}

type ValidationConfig struct {
	Concurrency     int     `yaml:"concurrency"`
	Attempts        int     `yaml:"attempts"`
	FetchTimeoutSec int     `yaml:"fetch_timeout_seconds"`
	RateLimit       float64 `yaml:"rate_limit"`
	SelectorsPath   string  `yaml:"selectors_path"`
}

func (c ValidationConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

type AppConfig struct {
	Postgres    PostgresConfig   `yaml:"postgres"`
	Mongo       MongoConfig      `yaml:"mongo"`
	Migrator    MigratorConfig   `yaml:"migrator"`
	Validation  ValidationConfig `yaml:"validation"`
	MetricsAddr string           `yaml:"metrics_addr"`
}

func LoadConfig(filename string) (*AppConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	config := &AppConfig{}
	if err := decoder.Decode(config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return config, nil
}

// DefaultConfig returns a config built from environment variables only,
// used when no yaml file is present.
func DefaultConfig() *AppConfig {
	config := &AppConfig{
		Postgres: *GetConfig(),
		Mongo:    *GetMongoConfig(),
	}
	config.applyDefaults()
	return config
}

func (c *AppConfig) applyDefaults() {
	if c.Migrator.BatchSize <= 0 {
		c.Migrator.BatchSize = 1000
	}
	if c.Migrator.Workers <= 0 {
		c.Migrator.Workers = 1
	}
	if c.Validation.Concurrency <= 0 {
		c.Validation.Concurrency = 50
	}
	if c.Validation.Attempts <= 0 {
		c.Validation.Attempts = 3
	}
	if c.Validation.FetchTimeoutSec <= 0 {
		c.Validation.FetchTimeoutSec = 20
	}
	if c.Validation.SelectorsPath == "" {
		c.Validation.SelectorsPath = "selectors.yaml"
	}
	if c.Postgres.Host == "" {
		c.Postgres = *GetConfig()
	}
	if c.Mongo.URI == "" {
		c.Mongo = *GetMongoConfig()
	}
}
