package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"modelchat-backend/internal/handlers"
	"modelchat-backend/internal/middleware"
)

func New(
	generateHandler *handlers.GenerateHandler,
	sessionHandler *handlers.SessionHandler,
	allowedOrigins []string,
	maxRequestBytes int64,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.CORS(allowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.MaxBodyBytes(maxRequestBytes))

		// ──── Generation ────
		r.Post("/generate", generateHandler.Generate)
		r.Get("/models", generateHandler.ListModels)

		// ──── Chat Sessions ────
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)

				r.Post("/messages", sessionHandler.SendMessage)
				r.Put("/messages/{messageID}", sessionHandler.EditMessage)
				r.Delete("/messages", sessionHandler.ClearMessages)

				r.Get("/export", sessionHandler.Export)
				r.Post("/import", sessionHandler.Import)

				// ──── WebSocket ────
				r.Get("/ws", sessionHandler.Notifications)
			})
		})
	})

	return r
}
