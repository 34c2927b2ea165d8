package config

import (
	"os"
	"strconv"
)

func GetConfig() *PostgresConfig {
	return &PostgresConfig{
		Host:         getEnv("POSTGRES_HOST", "localhost"),
		Port:         getEnv("POSTGRES_PORT", "5432"),
		User:         getEnv("POSTGRES_USER", "postgres"),
		Password:     getEnv("POSTGRES_PASSWORD", "postgres"),
		DBName:       getEnv("POSTGRES_NAME", "postgres"),
		MaxOpenConns: getEnvInt("POSTGRES_MAX_OPEN_CONNS", 20),
	}
}

func GetMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		Database:   getEnv("MONGO_DB", "contrast"),
		Collection: getEnv("MONGO_COLLECTION", "listings"),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
