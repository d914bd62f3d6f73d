package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		CacheTTL         string `yaml:"cache_ttl"`
		DefaultTimeLimit string `yaml:"default_time_limit"`
	} `yaml:"quiz"`
	Lock struct {
		TTL string `yaml:"ttl"`
	} `yaml:"lock"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Admin struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"admin"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads YAML config from path and applies environment overrides.
// A missing file is not an error; the service then runs on env and defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Server.Port, "PORT")
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.RabbitMQ.URL, "RABBITMQ_URL")
	override(&cfg.Admin.JWTSecret, "ADMIN_JWT_SECRET")
	override(&cfg.Log.Level, "LOG_LEVEL")
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
