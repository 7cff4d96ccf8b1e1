package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/medvault/medvault/internal/app"
	"github.com/medvault/medvault/internal/audit"
	"github.com/medvault/medvault/internal/auth"
	"github.com/medvault/medvault/internal/crypto"
	"github.com/medvault/medvault/internal/observability"
	"github.com/medvault/medvault/internal/platform/cache"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/token"
	"github.com/medvault/medvault/internal/users"
	"github.com/medvault/medvault/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, 10)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	secret, devFallback := cfg.ResolveJWTSecret()
	if devFallback {
		logger.Warn("JWT_SECRET not set, using development signing secret")
	}
	tokens, err := token.NewService(token.Config{
		Secret:   secret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	})
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}
	registry := token.NewRedisRegistry(redisClient, tokens.TTL())

	metrics := observability.NewMetrics()
	cryptoService := crypto.NewService(cfg.BcryptCost)
	if cfg.DataKey != "" {
		// Fail fast on a key that could not decrypt anything at request time.
		if _, err := cryptoService.EncryptString("probe", cfg.DataKey); err != nil {
			logger.Error("data key rejected", slog.Any("error", err))
			os.Exit(1)
		}
	}

	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()
	auditService := audit.NewService(audit.NewPGSink(pool), queue, logger, metrics.AuditDropped())

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, cryptoService, tokens, registry, auditService, logger, metrics)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.Middleware{Service: authService, Logger: logger}

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, cryptoService, auditService, logger)
	usersHandler := users.NewHandler(logger, usersService)

	auditHandler := audit.NewHandler(logger, auditService)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    authHandler,
		AuthMiddleware: authMiddleware,
		AuditHandler:   auditHandler,
		UsersHandler:   usersHandler,
		Pool:           pool,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
