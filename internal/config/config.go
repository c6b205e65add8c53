// Package config provides runtime configuration for the storefront
// services.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the knobs shared by the storefront API and the worker.
type Config struct {
	Port            string
	PostgresURL     string
	KafkaBrokers    []string
	OTLPEndpoint    string
	ShutdownTimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durenvs(key string, defSec int) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return time.Duration(defSec) * time.Second
	}
	sec, err := strconv.Atoi(v)
	if err != nil {
		return time.Duration(defSec) * time.Second
	}
	return time.Duration(sec) * time.Second
}

// Load collects configuration from the environment. POSTGRES_URL is the
// only required value; KAFKA_BROKERS being empty disables eventing.
func Load() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		PostgresURL:     os.Getenv("POSTGRES_URL"),
		OTLPEndpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 10),
	}

	if cfg.PostgresURL == "" {
		return Config{}, errors.New("POSTGRES_URL environment variable is required")
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg, nil
}

// LoadWorker collects the worker's configuration. The worker only talks
// to the broker, so KAFKA_BROKERS is required and the database is not.
func LoadWorker() (Config, error) {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		return Config{}, errors.New("KAFKA_BROKERS environment variable is required")
	}

	return Config{
		KafkaBrokers:    strings.Split(brokers, ","),
		OTLPEndpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ShutdownTimeout: durenvs("SHUTDOWN_TIMEOUT", 10),
	}, nil
}
