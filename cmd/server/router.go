package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-scheduler/internal/api"
	apiMiddleware "github.com/phrazzld/scry-scheduler/internal/api/middleware"
	"github.com/phrazzld/scry-scheduler/internal/ratelimit"
	"github.com/phrazzld/scry-scheduler/internal/service/auth"
	"github.com/phrazzld/scry-scheduler/internal/service/card_review"
	"github.com/phrazzld/scry-scheduler/internal/service/queue"
)

// routerDeps is everything the HTTP surface needs.
type routerDeps struct {
	logger            *slog.Logger
	db                api.Pinger
	cardReviewService card_review.CardReviewService
	queueService      queue.QueueService
	jwtService        auth.JWTService
	apiKeyVerifier    auth.APIKeyVerifier
	generalLimiter    *ratelimit.Limiter
	batchLimiter      *ratelimit.Limiter
	reviewMaxRetries  uint64
	reviewRetryBase   time.Duration
}

func (app *application) setupRouter() http.Handler {
	return newRouter(routerDeps{
		logger:            app.logger,
		db:                app.db,
		cardReviewService: app.cardReviewService,
		queueService:      app.queueService,
		jwtService:        app.jwtService,
		apiKeyVerifier:    app.apiKeyVerifier,
		generalLimiter:    app.generalLimiter,
		batchLimiter:      app.batchLimiter,
		reviewMaxRetries:  app.config.Review.MaxRetries,
		reviewRetryBase:   app.config.Review.RetryBaseDelay,
	})
}

// newRouter creates the chi router with all routes and middleware.
func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(deps.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(deps.jwtService, deps.apiKeyVerifier)
	cardHandler := api.NewCardHandler(deps.cardReviewService, deps.logger,
		api.WithReviewRetry(deps.reviewMaxRetries, deps.reviewRetryBase))
	queueHandler := api.NewQueueHandler(deps.queueService, deps.logger)
	quotaHandler := api.NewQuotaHandler(deps.logger, deps.generalLimiter, deps.batchLimiter)
	healthHandler := api.NewHealthHandler(deps.db, deps.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Use(apiMiddleware.RateLimit(deps.generalLimiter))

		r.Get("/queue", queueHandler.GetQueue)
		r.Get("/queue/summary", queueHandler.GetSummary)

		r.Get("/reviews", cardHandler.ListReviews)
		r.Get("/quota", quotaHandler.GetQuota)

		r.With(apiMiddleware.RateLimit(deps.batchLimiter)).Post("/cards/enroll", cardHandler.EnrollCards)

		r.Route("/cards/{id}", func(r chi.Router) {
			r.Get("/state", cardHandler.GetCardState)
			r.Post("/review", cardHandler.SubmitReview)
			r.Post("/postpone", cardHandler.PostponeCard)
			r.Post("/suspend", cardHandler.SuspendCard)
			r.Post("/unsuspend", cardHandler.UnsuspendCard)
		})
	})

	r.Get("/health", healthHandler.Health)

	return r
}
