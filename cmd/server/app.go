package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/phrazzld/scry-scheduler/internal/domain/srs"
	"github.com/phrazzld/scry-scheduler/internal/events"
	"github.com/phrazzld/scry-scheduler/internal/platform/postgres"
	"github.com/phrazzld/scry-scheduler/internal/ratelimit"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"github.com/phrazzld/scry-scheduler/internal/service/card_review"
	"github.com/phrazzld/scry-scheduler/internal/service/queue"
	"github.com/phrazzld/scry-scheduler/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	cardStore   store.CardStore
	stateStore  store.CardStateStore
	reviewStore store.ReviewStore
	apiKeyStore store.APIKeyStore

	srsService        srs.Service
	cardReviewService card_review.CardReviewService
	queueService      queue.QueueService
	jwtService        auth.JWTService
	apiKeyVerifier    auth.APIKeyVerifier

	eventEmitter *events.InMemoryEventEmitter

	generalLimiter *ratelimit.Limiter
	batchLimiter   *ratelimit.Limiter
}

// newApplication wires stores, services and limiters from configuration.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.stateStore = postgres.NewPostgresCardStateStore(db, logger)
	app.reviewStore = postgres.NewPostgresReviewStore(db, logger)
	app.apiKeyStore = postgres.NewPostgresAPIKeyStore(db, logger)

	app.apiKeyVerifier = auth.NewAPIKeyVerifier(app.apiKeyStore, auth.NewBcryptVerifier(), logger)

	params, err := srs.NewParams(srsParamsConfig(cfg.SRS))
	if err != nil {
		return nil, fmt.Errorf("failed to build SRS parameters: %w", err)
	}
	app.srsService, err = srs.NewServiceWithParams(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create SRS service: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewReviewAnalyticsHandler(logger), events.TypeReviewRecorded)

	app.cardReviewService = card_review.NewCardReviewService(
		db,
		app.cardStore,
		app.stateStore,
		app.reviewStore,
		app.srsService,
		logger,
		card_review.WithEventEmitter(app.eventEmitter),
	)

	app.queueService = queue.NewQueueService(
		app.stateStore,
		logger,
		queue.WithLimits(cfg.Queue.DefaultLimit, cfg.Queue.MaxLimit),
	)

	rl := cfg.RateLimit
	app.generalLimiter, err = ratelimit.New("general", rl.GeneralLimit, rl.Window, rl.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create general rate limiter: %w", err)
	}
	app.batchLimiter, err = ratelimit.New("batch", rl.BatchLimit, rl.Window, rl.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create batch rate limiter: %w", err)
	}

	logger.Info("application initialized",
		slog.Int("general_limit", rl.GeneralLimit),
		slog.Int("batch_limit", rl.BatchLimit),
		slog.Duration("rate_window", rl.Window))
	return app, nil
}

// Run serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func srsParamsConfig(c config.SRSConfig) srs.ParamsConfig {
	return srs.ParamsConfig{
		MinEaseFactor:             c.MinEaseFactor,
		MaxEaseFactor:             c.MaxEaseFactor,
		GraduationThreshold:       c.GraduationThreshold,
		AgainEaseFactorAdjustment: c.AgainEaseFactorAdjustment,
		HardEaseFactorAdjustment:  c.HardEaseFactorAdjustment,
		EasyEaseFactorAdjustment:  c.EasyEaseFactorAdjustment,
		HardIntervalModifier:      c.HardIntervalModifier,
		EasyIntervalModifier:      c.EasyIntervalModifier,
		FirstReviewHardInterval:   c.FirstReviewHardInterval,
		FirstReviewGoodInterval:   c.FirstReviewGoodInterval,
		FirstReviewEasyInterval:   c.FirstReviewEasyInterval,
		AgainStep:                 c.AgainStep,
		MaxInterval:               c.MaxInterval,
	}
}
