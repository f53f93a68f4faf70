package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"connectrpc.com/connect"

	"github.com/mmynk/profilekeeper/internal/api"
	"github.com/mmynk/profilekeeper/internal/auth"
	"github.com/mmynk/profilekeeper/internal/config"
	"github.com/mmynk/profilekeeper/internal/metrics"
	"github.com/mmynk/profilekeeper/internal/middleware"
	"github.com/mmynk/profilekeeper/internal/profile"
	"github.com/mmynk/profilekeeper/internal/server"
	"github.com/mmynk/profilekeeper/internal/service"
	"github.com/mmynk/profilekeeper/internal/storage/instrumented"
	"github.com/mmynk/profilekeeper/pkg/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if cfg.Auth.JWTSecret == config.DevJWTSecret {
		logger.Warn("Using the built-in development JWT secret; set PROFILEKEEPER_AUTH_JWTSECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	backend, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()
	logger.Info("Storage initialized", "driver", cfg.Storage.Driver)

	store := instrumented.Wrap(backend, m)
	assembler := profile.NewAssembler(store, profile.NewValidator(cfg.ProfileRules()))
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	accountSvc := service.NewAccountService(store, assembler, m, logger, service.AccountOptions{
		StrictUpdates: cfg.Accounts.StrictUpdates,
	})
	accountPath, accountHandler := api.NewAccountServiceHandler(accountSvc,
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(logger)),
		connect.WithReadMaxBytes(api.MaxRequestBytes(cfg.ProfileRules())),
	)
	services := []server.Service{{Path: accountPath, Handler: accountHandler}}

	if cfg.Auth.DevLogin {
		challenges := auth.NewChallengeStore(cfg.Auth.ChallengeTTL)
		authSvc := service.NewAuthService(challenges, auth.NewKeyAuthenticator(challenges), jwtManager, logger)
		authPath, authHandler := api.NewAuthServiceHandler(authSvc,
			connect.WithInterceptors(middleware.LoggingInterceptor(logger)),
		)
		services = append(services, server.Service{Path: authPath, Handler: authHandler})
		logger.Info("Development key login enabled", "path", authPath)
	}

	router := server.NewRouter(server.Options{
		Services:       services,
		Metrics:        m.Handler(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})

	if err := server.New(cfg.Addr(), router, logger).Run(ctx, cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
