package config

import (
	"os"
	"strconv"
)

type Config struct {
	HTTPAddr       string
	PostgresDSN    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	ProtocolPrefix string
	Environment    string
	MigrationsDir  string
	CatalogMode    string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:       envDefault("HTTP_ADDR", ":8080"),
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        envInt("REDIS_DB", 0),
		ProtocolPrefix: envDefault("PROTOCOL_PREFIX", "SOL"),
		Environment:    envDefault("ENVIRONMENT", "development"),
		MigrationsDir:  envDefault("MIGRATIONS_DIR", "migrations"),
		CatalogMode:    envDefault("CATALOG_MODE", "postgres"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}
