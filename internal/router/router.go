package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"medichat-backend/internal/handlers"
	"medichat-backend/internal/middleware"
	"medichat-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	sessionHandler *handlers.SessionHandler,
	chatHandler *handlers.ChatHandler,
	corpusHandler *handlers.CorpusHandler,
	wsHub *websocket.Hub,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Session creation rate limiter (10 req/min per IP)
	sessionLimiter := middleware.NewRateLimiter(10, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Session Routes ────
		r.Route("/sessions", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(sessionLimiter.Middleware)
				r.Post("/", sessionHandler.Create)
			})

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Put("/identify", sessionHandler.Identify)
				r.Delete("/patient", sessionHandler.ClearIdentification)
				r.Post("/clear", sessionHandler.Clear)
				r.Get("/history", sessionHandler.History)
				r.Delete("/", sessionHandler.End)
			})
		})

		// ──── Chat Routes ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/chat", chatHandler.Ask)
		})

		// ──── Corpus Routes ────
		r.Group(func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/corpus/import", corpusHandler.Import)
			r.Get("/jobs/{id}", corpusHandler.GetJob)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
