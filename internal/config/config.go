package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds runtime configuration, read from STOCKPRO_* environment variables.
type Config struct {
	Env  string `envconfig:"ENV" default:"development"`
	Addr string `envconfig:"ADDR" default:":8081"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Backend selects the slot store: memory, file, redis or sql.
	Backend       string `envconfig:"BACKEND" default:"file"`
	DataDir       string `envconfig:"DATA_DIR" default:"./data"`
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"stockpro:"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"./data/stockpro.db"`

	JWTSecret       string        `envconfig:"JWT_SECRET" default:"change-me"`
	TokenTTL        time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	AdminEmail      string        `envconfig:"ADMIN_EMAIL" default:"admin@starlink.com"`
	AdminPassword   string        `envconfig:"ADMIN_PASSWORD" default:"admin123"`
	ProviderSignIn  bool          `envconfig:"PROVIDER_SIGNIN" default:"true"`
	ProviderAccount string        `envconfig:"PROVIDER_ACCOUNT" default:"google-user@starlink.com"`

	// AttachmentDriver selects how images are stored: dataurl or minio.
	AttachmentDriver   string `envconfig:"ATTACHMENT_DRIVER" default:"dataurl"`
	AttachmentMaxBytes int64  `envconfig:"ATTACHMENT_MAX_BYTES" default:"5242880"`
	MinioEndpoint      string `envconfig:"MINIO_ENDPOINT" default:"127.0.0.1:9000"`
	MinioAccessKey     string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey     string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket        string `envconfig:"MINIO_BUCKET" default:"stockpro"`
	MinioUseSSL        bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	LowStockThreshold int `envconfig:"LOW_STOCK_THRESHOLD" default:"5"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("stockpro", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Backend {
	case "memory", "file", "redis", "sql":
	default:
		return fmt.Errorf("unsupported backend %q (supported: memory, file, redis, sql)", c.Backend)
	}
	switch c.AttachmentDriver {
	case "dataurl", "minio":
	default:
		return fmt.Errorf("unsupported attachment driver %q (supported: dataurl, minio)", c.AttachmentDriver)
	}
	if c.JWTSecret == "" {
		return errors.New("jwt secret must be provided")
	}
	if c.IsProduction() && c.JWTSecret == "change-me" {
		return errors.New("jwt secret must be changed in production")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

// NewLogger builds the zap logger described by the configuration.
func NewLogger(c *Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.LogFormat == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
