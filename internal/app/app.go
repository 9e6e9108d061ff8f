package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skillgauge/assessment-platform/internal/assessment"
	"github.com/skillgauge/assessment-platform/internal/auth"
	authjwt "github.com/skillgauge/assessment-platform/internal/auth/jwt"
	"github.com/skillgauge/assessment-platform/internal/config"
	"github.com/skillgauge/assessment-platform/internal/db/repository"
	"github.com/skillgauge/assessment-platform/internal/logging"
	"github.com/skillgauge/assessment-platform/internal/question"
	"github.com/skillgauge/assessment-platform/internal/server"
	ws "github.com/skillgauge/assessment-platform/pkg/http/ws"
)

// Application owns process lifecycle: dependency construction, the HTTP
// server, background workers, and graceful shutdown.
type Application struct {
	cfg         *config.App
	logger      zerolog.Logger
	pool        *pgxpool.Pool
	redis       *redis.Client
	httpServer  *http.Server
	broadcaster *assessment.Broadcaster
}

// New wires the full dependency graph.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	runRepo := repository.NewRunRepository(pool)

	// Question bank
	bankCache := question.NewCache(rdb, cfg.Assessment.BankCacheTTL)
	bank := question.NewService(questionRepo, bankCache, logger)

	// Assessment engine + service
	selector := assessment.NewSelector(bank)
	publisher := assessment.NewRedisPublisher(rdb, assessment.DefaultEventChannel, logger)
	engine := assessment.NewEngine(runRepo, bank, selector, assessment.EngineOptions{
		Config: assessment.Config{
			MaxQuestions:    cfg.Assessment.MaxQuestions,
			StartDifficulty: cfg.Assessment.StartDifficulty,
			MasteryStreak:   cfg.Assessment.MasteryStreak,
		},
		Events: publisher,
	}, logger)
	runSvc := assessment.NewService(runRepo, engine, logger)

	// Auth
	authSvc := auth.NewService(userRepo, auth.ServiceOptions{
		TokenConfig: authjwt.TokenConfig{
			AccessSecret:  []byte(cfg.Security.JWTSecret),
			RefreshSecret: []byte(cfg.Security.JWTSecret),
			Issuer:        cfg.Name,
		},
	}, logger)

	var oauthSvc *auth.OAuthService
	if cfg.OAuth.GoogleClientID != "" {
		oauthSvc = auth.NewOAuthService(
			cfg.OAuth.GoogleClientID,
			cfg.OAuth.GoogleClientSecret,
			cfg.OAuth.GoogleRedirectURL,
			logger,
		)
	}

	// HTTP surface
	authHandlers := auth.NewHTTPHandlers(authSvc, oauthSvc, logger)
	runHandlers := assessment.NewHTTPHandlers(runSvc, engine, logger)
	questionHandlers := question.NewHTTPHandlers(bank, logger)
	hub := ws.NewHub(logger)
	broadcaster := assessment.NewBroadcaster(rdb, hub, assessment.DefaultEventChannel, logger)

	httpServer := server.NewHTTPServer(*cfg, server.Dependencies{
		Pool:            pool,
		Redis:           rdb,
		AuthHandler:     authHandlers,
		RunHandler:      runHandlers,
		QuestionHandler: questionHandlers,
		AuthService:     authSvc,
		Hub:             hub,
	}, logger)

	return &Application{
		cfg:         cfg,
		logger:      logger,
		pool:        pool,
		redis:       rdb,
		httpServer:  httpServer,
		broadcaster: broadcaster,
	}, nil
}

// Run starts the HTTP server and background workers, then blocks until a
// termination signal arrives and shutdown completes.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	go func() {
		if err := a.broadcaster.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error().Err(err).Msg("run event broadcaster stopped")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		stopWorkers()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("http shutdown incomplete")
	}

	stopWorkers()
	a.redis.Close()
	a.pool.Close()

	a.logger.Info().Msg("shutdown complete")
	return nil
}
