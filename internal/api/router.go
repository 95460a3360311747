package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"iterable-forwarder/internal/engine"
	"iterable-forwarder/internal/pipeline"
	"iterable-forwarder/internal/store"
	ws "iterable-forwarder/internal/websocket"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(processor *pipeline.Processor, queue *engine.Queue, pgStore *store.PostgresStore, hub *ws.Hub) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// Handlers
	batchHandler := NewBatchHandler(processor, queue)
	audienceHandler := NewAudienceHandler(processor, queue)
	attemptHandler := NewAttemptHandler(pgStore)
	statsHandler := NewStatsHandler(queue, hub)

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWebSocket)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", HealthHandler())
		r.Get("/registration", RegistrationHandler())

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", batchHandler.Process)
			r.Post("/queue", batchHandler.Enqueue)
		})

		r.Route("/audiences", func(r chi.Router) {
			r.Post("/", audienceHandler.Process)
			r.Post("/queue", audienceHandler.Enqueue)
		})

		r.Get("/attempts", attemptHandler.List)
		r.Get("/stats", statsHandler.Stats)
	})

	return r
}
