package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"aether-backend/internal/handlers"
	"aether-backend/internal/middleware"
	"aether-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	locks middleware.LockStore,
	aiRequestsPerMinute int,
	authBridgeHandler *handlers.AuthBridgeHandler,
	aiHandler *handlers.AIHandler,
	sessionHandler *handlers.SessionHandler,
	chatHandler *handlers.ChatHandler,
	ingestHandler *handlers.IngestHandler,
	settingsHandler *handlers.SettingsHandler,
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

	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	aiLimiter := middleware.NewRateLimiter(aiRequestsPerMinute, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Bridge (verifies its own token) ────
		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/firebase-token", authBridgeHandler.FirebaseToken)
		})

		// ──── AI Tools ────
		r.Route("/ai", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(aiLimiter.Middleware)
			r.With(middleware.InFlightGuard(locks, "study")).Post("/study", aiHandler.Study)
			r.With(middleware.InFlightGuard(locks, "chat")).Post("/chat", aiHandler.Chat)
			r.With(middleware.InFlightGuard(locks, "automate")).Post("/automate", aiHandler.Automate)
			r.With(middleware.InFlightGuard(locks, "code")).Post("/code", aiHandler.Code)
		})

		// ──── Chat Sessions ────
		r.Route("/sessions", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", sessionHandler.List)
			r.Post("/", sessionHandler.Create)
			r.Put("/{id}", sessionHandler.Rename)
			r.Delete("/{id}", sessionHandler.Delete)
			r.Put("/{id}/star", sessionHandler.ToggleStar)
			r.Put("/{id}/archive", sessionHandler.ToggleArchive)
			r.Get("/{id}/messages", chatHandler.ListMessages)
			r.With(aiLimiter.Middleware, middleware.InFlightGuard(locks, "chat")).
				Post("/{id}/messages", chatHandler.SendMessage)
		})

		// ──── Ingestion ────
		r.Route("/ingest", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Post("/file", ingestHandler.UploadFile)
			r.With(middleware.InFlightGuard(locks, "ingest-url")).Post("/url", ingestHandler.FetchURL)
		})

		// ──── User Settings ────
		r.Route("/user", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/settings", settingsHandler.Get)
			r.Put("/settings", settingsHandler.Update)
		})

		// ──── WebSocket (token in query) ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
