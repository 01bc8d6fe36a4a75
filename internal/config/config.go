package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var drivers = []string{DriverPgx, DriverPostgres, DriverSQLite}

type Config struct {
	DBDriver       string
	DBDSN          string
	HTTPAddr       string
	LogLevel       string
	LogFormat      string
	AMQPURL        string
	AMQPQueue      string
	ValidityMonths int
}

var (
	once   sync.Once
	config *Config
	err    error
)

// GetConfig loads the configuration once per process.
func GetConfig() (*Config, error) {
	once.Do(func() {
		// A missing .env is fine; the environment may carry everything.
		_ = godotenv.Load()
		config, err = Load()
	})
	return config, err
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("DB_DRIVER", DriverPgx)
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("AMQP_QUEUE", "raqs.events")
	v.SetDefault("CERTIFICATE_VALIDITY_MONTHS", 6)

	cfg := &Config{
		DBDriver:       v.GetString("DB_DRIVER"),
		DBDSN:          v.GetString("DB_DSN"),
		HTTPAddr:       v.GetString("HTTP_ADDR"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		AMQPURL:        v.GetString("AMQP_URL"),
		AMQPQueue:      v.GetString("AMQP_QUEUE"),
		ValidityMonths: v.GetInt("CERTIFICATE_VALIDITY_MONTHS"),
	}

	if !slices.Contains(drivers, cfg.DBDriver) {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.DBDSN == "" {
		return nil, errors.New("required environment variable DB_DSN is missing")
	}
	if cfg.ValidityMonths <= 0 {
		return nil, fmt.Errorf("CERTIFICATE_VALIDITY_MONTHS must be positive, got %d", cfg.ValidityMonths)
	}

	return cfg, nil
}
