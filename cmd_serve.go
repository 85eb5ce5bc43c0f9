package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stock_pro/api"
	"stock_pro/internal/auth"
)

// stockpro serve: start the HTTP server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := setup(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		defer a.logger.Sync()

		return serve(ctx, a)
	},
}

// serve runs the HTTP server until ctx is done or the listener fails.
func serve(ctx context.Context, a *app) error {
	cfg := a.cfg

	authenticator := auth.NewLocalAuthenticator(a.backend, a.logger, auth.LocalOptions{
		ProviderEnabled: cfg.ProviderSignIn,
		ProviderAccount: cfg.ProviderAccount,
	})
	if err := authenticator.Seed(ctx, auth.Credentials{Email: cfg.AdminEmail, Password: cfg.AdminPassword}); err != nil {
		return err
	}

	attachments, err := openAttachments(ctx, cfg, a.logger)
	if err != nil {
		return err
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestLogger(a.logger))
	api.InitRoutes(router, api.Dependencies{
		Store:              a.store,
		Auth:               authenticator,
		Tokens:             auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Attachments:        attachments,
		Metrics:            a.metrics,
		Logger:             a.logger,
		LowStockThreshold:  cfg.LowStockThreshold,
		AttachmentMaxBytes: cfg.AttachmentMaxBytes,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting http server", zap.String("addr", cfg.Addr), zap.String("backend", cfg.Backend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.logger.Error("http server", zap.Error(err))
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("graceful shutdown", zap.Error(err))
		return err
	}
	return nil
}
