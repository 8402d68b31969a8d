package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Sinks configures where committed turn summaries are published. Every sink
// is optional; an empty value leaves it off.
type Sinks struct {
	KafkaBrokers  []string `env:"LABELSIM_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic    string   `env:"LABELSIM_KAFKA_TOPIC" envDefault:"labelsim.turns"`
	ArchiveBucket string   `env:"LABELSIM_ARCHIVE_BUCKET"`
	ArchivePrefix string   `env:"LABELSIM_ARCHIVE_PREFIX" envDefault:"turns"`
}

type APIConfig struct {
	Port         string        `env:"PORT"`
	Addr         string        `env:"LABELSIM_API_ADDR" envDefault:":8080"`
	DatabaseURL  string        `env:"DATABASE_URL,required"`
	MaxConns     int32         `env:"LABELSIM_DB_MAX_CONNS" envDefault:"20"`
	BalanceFile  string        `env:"LABELSIM_BALANCE_FILE"`
	ROICacheTTL  time.Duration `env:"LABELSIM_ROI_CACHE_TTL" envDefault:"60s"`
	ROICacheSize int           `env:"LABELSIM_ROI_CACHE_SIZE" envDefault:"4096"`
	OTelEndpoint string        `env:"LABELSIM_OTEL_ENDPOINT"`
	Sinks
}

type WorkerConfig struct {
	DatabaseURL  string        `env:"DATABASE_URL,required"`
	MaxConns     int32         `env:"LABELSIM_DB_MAX_CONNS" envDefault:"5"`
	BalanceFile  string        `env:"LABELSIM_BALANCE_FILE"`
	TickEvery    time.Duration `env:"LABELSIM_WORKER_TICK_EVERY" envDefault:"1m"`
	BatchSize    int           `env:"LABELSIM_WORKER_BATCH" envDefault:"50"`
	OTelEndpoint string        `env:"LABELSIM_OTEL_ENDPOINT"`
	Sinks
}

type CLIConfig struct {
	APIBaseURL  string `env:"LSIM_API_BASE_URL" envDefault:"http://localhost:8080"`
	LocalDB     string `env:"LSIM_LOCAL_DB" envDefault:"labelsim.db"`
	BalanceFile string `env:"LABELSIM_BALANCE_FILE"`
}

func LoadAPIFromEnv() (APIConfig, error) {
	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	// PORT wins when a platform injects one.
	if p := strings.TrimSpace(cfg.Port); p != "" {
		if !strings.HasPrefix(p, ":") {
			p = ":" + p
		}
		cfg.Addr = p
	}
	if cfg.ROICacheTTL <= 0 {
		return cfg, fmt.Errorf("LABELSIM_ROI_CACHE_TTL must be positive")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	var cfg WorkerConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickEvery < time.Second {
		return cfg, fmt.Errorf("LABELSIM_WORKER_TICK_EVERY must be at least 1s")
	}
	if cfg.BatchSize <= 0 {
		return cfg, fmt.Errorf("LABELSIM_WORKER_BATCH must be positive")
	}
	return cfg, nil
}

func LoadCLIFromEnv() (CLIConfig, error) {
	var cfg CLIConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg, nil
}
