package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"stock_pro/internal/attachment"
	"stock_pro/internal/config"
	"stock_pro/internal/inventory"
	"stock_pro/internal/kv"
	"stock_pro/internal/metrics"
)

// app holds the wired collaborators shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	backend kv.Storage
	store   *inventory.Store
	metrics *metrics.Metrics
	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	backend, closer, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		backend: backend,
		metrics: metrics.New(),
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	a.store = inventory.NewStore(backend, logger, inventory.WithRecorder(a.metrics))
	if err := a.store.Load(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	return a, nil
}

// Close releases backend connections.
func (a *app) Close() {
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			a.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
}

// openBackend builds the slot store selected by cfg.Backend.
func openBackend(ctx context.Context, cfg *config.Config) (kv.Storage, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return kv.NewLocalStorage(), nil, nil
	case "file":
		s, err := kv.NewFileStorage(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "redis":
		client, err := kv.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return kv.NewRedisStorage(client, cfg.RedisPrefix), client.Close, nil
	case "sql":
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, err
		}
		db, err := kv.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		s, err := kv.NewSQLStorage(db)
		if err != nil {
			sqlDB.Close()
			return nil, nil, err
		}
		return s, sqlDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// openAttachments builds the image store selected by cfg.AttachmentDriver.
func openAttachments(ctx context.Context, cfg *config.Config, logger *zap.Logger) (attachment.Store, error) {
	switch cfg.AttachmentDriver {
	case "dataurl":
		return attachment.NewDataURLStore(cfg.AttachmentMaxBytes), nil
	case "minio":
		client, err := attachment.NewMinioClient(attachment.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := attachment.EnsureBucket(ctx, client, cfg.MinioBucket); err != nil {
			return nil, err
		}
		return attachment.NewMinioStore(client, cfg.MinioBucket, cfg.AttachmentMaxBytes, logger), nil
	default:
		return nil, fmt.Errorf("unknown attachment driver %q", cfg.AttachmentDriver)
	}
}

// setup loads configuration, the logger and the app for a command.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return newApp(ctx, cfg, logger)
}
