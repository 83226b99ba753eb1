package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName    string `env:"APP_NAME" envDefault:"sprig-orders"`
	Port       int    `env:"PORT" envDefault:"3000"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	PrettyLogs bool   `env:"PRETTY_LOGS" envDefault:"false"`

	// Database driver: postgres or sqlite
	DatabaseDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	// Data source name passed to sql.Open
	DatabaseDSN string `env:"DB_DSN" envDefault:"file:orders.db?_pragma=foreign_keys(1)"`
	// Max Open Conns
	DatabaseMaxOpenConns int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	// Migration Folder Path
	DatabaseMigrationFolderPath string `env:"DB_MIGRATION_FOLDER_PATH" envDefault:"db/migrations"`
	// Database Migration Version
	DatabaseMigrationVersion uint `env:"DB_MIGRATION_VERSION" envDefault:"0"`

	TracingEnabled bool `env:"TRACING_ENABLED" envDefault:"false"`

	// Failure reporting
	KafkaEnabled      bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers      []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	KafkaFailureTopic string   `env:"KAFKA_FAILURE_TOPIC" envDefault:"interactor-failures"`

	// Request objects
	RequestReturnMode        string `env:"REQUEST_RETURN_MODE" envDefault:"self"`
	RequestDataShape         string `env:"REQUEST_DATA_SHAPE" envDefault:"string_map"`
	RequestKeyCase           string `env:"REQUEST_KEY_CASE" envDefault:"declared"`
	RequestLogUnknownAttrs   bool   `env:"REQUEST_LOG_UNKNOWN_ATTRIBUTES" envDefault:"false"`
	RequestUnknownAttrsLevel string `env:"REQUEST_UNKNOWN_ATTRIBUTES_LOG_LEVEL" envDefault:"debug"`
}

// Load reads an optional .env file, then parses the environment into Config.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}
