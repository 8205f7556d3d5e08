// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lettermill Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/lettermill/lettermill/internal/auth"
	authpg "github.com/lettermill/lettermill/internal/auth/postgres"
	"github.com/lettermill/lettermill/internal/config"
	"github.com/lettermill/lettermill/internal/email"
	"github.com/lettermill/lettermill/internal/httpapi"
	"github.com/lettermill/lettermill/internal/logging"
	"github.com/lettermill/lettermill/internal/observability"
	"github.com/lettermill/lettermill/internal/session"
	"github.com/lettermill/lettermill/internal/store"
	"github.com/lettermill/lettermill/internal/subscription"
	subpg "github.com/lettermill/lettermill/internal/subscription/postgres"
	"github.com/lettermill/lettermill/internal/xdg"
	"github.com/lettermill/lettermill/pkg/errutil"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Lettermill API server",
		Long: `Start the HTTP API server along with the metrics and health
probe listener. Configuration comes from the config file; any flag below
overrides its file counterpart.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().String("server.addr", ":8000", "API listen address")
	cmd.Flags().String("server.base_url", "http://localhost:8000", "public base URL for confirmation links")
	cmd.Flags().String("observability.addr", "127.0.0.1:9100", "metrics/health HTTP address")
	cmd.Flags().String("log.format", "json", "log format (json or text)")
	cmd.Flags().String("log.level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().Bool("auto-migrate", false, "run pending database migrations before serving")

	return cmd
}

// resolveConfigPath picks the explicit --config path, or the XDG default
// when that file exists.
func resolveConfigPath() string {
	if configFile != "" {
		return configFile
	}
	path := xdg.DefaultConfigPath()
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func runServe(cmd *cobra.Command) error {
	cfg, err := config.Load(resolveConfigPath(), cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("lettermill", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if autoMigrate, _ := cmd.Flags().GetBool("auto-migrate"); autoMigrate {
		if err := migrateUp(cfg.Database.URL.Reveal()); err != nil {
			return err
		}
	}

	pool, err := store.NewPool(ctx, cfg.Database.URL.Reveal())
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := session.Open(ctx, cfg.Redis.URL.Reveal())
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			slog.Warn("redis close failed", "error", err)
		}
	}()

	sessions := session.NewStore(redisClient, cfg.Session.TTL)

	sender, err := buildSender(cfg)
	if err != nil {
		return err
	}

	subscriptions := subscription.NewService(
		subpg.NewStore(pool), sender, cfg.Server.BaseURL)

	credentials := authpg.NewCredentialRepository(pool)
	hashPool := auth.NewHashPool(auth.NewArgon2idHasher(), 0)
	validator := auth.NewCredentialValidator(credentials, hashPool)
	passwords := auth.NewPasswordService(credentials, validator, hashPool, auth.DefaultPasswordPolicy())

	obsServer := observability.NewServer(cfg.Observability.Addr, func() bool {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})
	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.With("operation", "start observability server").Wrap(err)
	}

	apiServer := httpapi.NewServer(
		httpapi.Options{
			Addr:       cfg.Server.Addr,
			SessionTTL: cfg.Session.TTL,
		},
		httpapi.Deps{
			Subscriptions: subscriptions,
			Newsletters:   subscriptions,
			Authenticator: validator,
			Passwords:     passwords,
			Sessions:      httpapi.NewSessionStore(sessions),
			Metrics:       obsServer.Metrics(),
		},
	)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServer(obsServer.Stop)
		return oops.With("operation", "start api server").Wrap(err)
	}

	slog.Info("lettermill running",
		"api_addr", apiServer.Addr(),
		"metrics_addr", obsServer.Addr(),
		"email_provider", cfg.Email.Provider,
	)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-apiErrCh:
		if err != nil {
			errutil.LogError(slog.Default(), "api server failed", err)
		}
	case err := <-obsErrCh:
		if err != nil {
			errutil.LogError(slog.Default(), "observability server failed", err)
		}
	}

	stopServer(apiServer.Stop)
	stopServer(obsServer.Stop)
	return nil
}

// stopServer runs a graceful stop with the shutdown timeout.
func stopServer(stop func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stop(ctx); err != nil {
		errutil.LogError(slog.Default(), "graceful stop failed", err)
	}
}

// buildSender picks the configured email delivery mechanism.
func buildSender(cfg *config.Config) (email.Sender, error) {
	switch cfg.Email.Provider {
	case "postmark":
		return email.NewPostmarkSender(email.PostmarkConfig{
			ServerToken:  cfg.Email.ServerToken,
			AccountToken: cfg.Email.AccountToken,
			SenderEmail:  cfg.Email.Sender,
		})
	default:
		return email.NewDevSender(slog.Default()), nil
	}
}
