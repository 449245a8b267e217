package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/showring/notify/internal/api/handler"
	apimw "github.com/showring/notify/internal/api/middleware"
	"github.com/showring/notify/internal/capture"
	"github.com/showring/notify/internal/ratelimiter"
	"github.com/showring/notify/internal/repository"
	"github.com/showring/notify/internal/worker"
)

// Deps bundles everything the HTTP surface needs. Handlers depend on
// services and repositories, never on each other.
type Deps struct {
	Capture       *capture.Service
	Processor     *worker.Processor
	Cleaner       *worker.Cleaner
	Subscriptions repository.SubscriptionRepository
	Queue         repository.QueueRepository
	DeadLetters   repository.DeadLetterRepository
	Secrets       repository.SecretsRepository
	AuthLimiter   *ratelimiter.AuthLimiter
	Registry      prometheus.Gatherer
	Logger        *zap.Logger
}

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(d.Logger))

	// --- handler instances ---
	ch := handler.NewChangeHandler(d.Capture, d.Logger)
	sh := handler.NewSubscriptionHandler(d.Subscriptions, d.Logger)
	dh := handler.NewDeadLetterHandler(d.DeadLetters, d.Queue, d.Logger)
	ah := handler.NewAdminHandler(d.Processor, d.Cleaner, d.Secrets, d.AuthLimiter, d.Logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// State-change feed from the scoring/announcement collaborator.
		r.Post("/changes", ch.Create)

		// Recipient opt-in / opt-out.
		r.Post("/subscriptions", sh.Create)
		r.Delete("/subscriptions/{id}", sh.Delete)

		// Operator dashboard.
		r.Get("/dead-letters", dh.List)
		r.Post("/dead-letters/{id}/ack", dh.Acknowledge)
		r.Get("/stats", dh.Stats)
	})

	// Entry points for the external scheduler and the auth collaborator.
	r.Route("/internal", func(r chi.Router) {
		r.Post("/process", ah.Process)
		r.Post("/cleanup", ah.Cleanup)
		r.Post("/auth/failures", ah.AuthFailure)
		r.Get("/auth/status", ah.AuthStatus)
	})

	r.Put("/admin/secrets", ah.RotateSecrets)

	return r
}
