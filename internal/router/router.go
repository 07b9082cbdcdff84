package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sessionclock-backend/internal/handlers"
	"sessionclock-backend/internal/middleware"
)

func New(
	jwtAuth *middleware.JWTAuth,
	authService handlers.Authenticator,
	authLimiter *middleware.RateLimiter,
	authHandler *handlers.AuthHandler,
	timerHandler *handlers.TimerHandler,
	adminHandler *handlers.AdminHandler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	requireSession := handlers.RequireSession(authService)

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes ────
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authLimiter.Middleware)
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			r.Group(func(r chi.Router) {
				r.Use(jwtAuth.Middleware)
				r.Post("/logout", authHandler.Logout)
				r.With(requireSession).Get("/me", authHandler.Me)
			})
		})

		// ──── Timer Routes ────
		r.Route("/timers", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(requireSession)
			r.Get("/", timerHandler.Board)
			r.Post("/", timerHandler.Create)
			r.Post("/refresh", timerHandler.Refresh)
			r.Put("/focus/{id}", timerHandler.Focus)
			r.Delete("/focus", timerHandler.Unfocus)
			r.Delete("/{id}", timerHandler.Delete)
			r.Post("/{id}/complete", timerHandler.Complete)
			r.Get("/{id}/countdown", timerHandler.Countdown)
		})

		// ──── Admin Routes ────
		r.Route("/admin", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Use(requireSession)
			r.Get("/queue", adminHandler.Queue)
			r.Post("/timers/{id}/approve", adminHandler.ApproveTimer)
			r.Post("/timers/{id}/reject", adminHandler.RejectTimer)
			r.Post("/superusers/{id}/approve", adminHandler.ApproveSuperuser)
			r.Post("/superusers/{id}/reject", adminHandler.RejectSuperuser)
		})
	})

	return r
}
