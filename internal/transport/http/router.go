package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/schoolstream/internal/application/announcement"
	"github.com/schoolstream/internal/application/notification"
	"github.com/schoolstream/internal/application/session"
	"github.com/schoolstream/internal/application/user"
	"github.com/schoolstream/internal/config"
	"github.com/schoolstream/internal/domain"
	"github.com/schoolstream/internal/metrics"
	"github.com/schoolstream/internal/transport/http/handler"
	appmiddleware "github.com/schoolstream/internal/transport/http/middleware"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider)

	// 5 requests/second, burst of 10 — applied to the login endpoint.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionSvc := session.NewService(session.Deps{
		UserRepo:        deps.UserRepo,
		SessionRepo:     deps.SessionRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})
	userSvc := user.NewService(deps.UserRepo, deps.SessionRepo)
	notifSvc := notification.NewService(deps.NotificationRepo)
	announcementSvc := announcement.NewService(deps.AnnouncementRepo, deps.AttachmentStore, deps.Emitter, deps.UserRepo)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	announcementH := handler.NewAnnouncementHandler(announcementSvc)
	wsH := handler.NewWSHandler(deps.Hub, deps.JWTProvider, sessionSvc, originChecker(cfg.AllowedOrigins))

	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)

		// The WebSocket endpoint authenticates itself: browsers cannot set
		// headers on the upgrade request, so the shared Auth middleware
		// cannot gate it.
		r.Get("/ws", wsH.Connect)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/{id}", userH.Get)

			r.Get("/notifications", notifH.ListRecent)
			r.Put("/notifications/read-all", notifH.MarkAllRead)
			r.Put("/notifications/{id}/read", notifH.MarkRead)

			r.Get("/announcements", announcementH.List)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/users", userH.Create)
				r.Get("/users", userH.List)
				r.Delete("/users/{id}", userH.Delete)

				r.Post("/announcements", announcementH.Create)
				r.Delete("/announcements/{id}", announcementH.Delete)
			})
		})
	})

	return r
}

// originChecker builds the WebSocket origin check from the CORS allowlist.
// A "*" entry or an absent Origin header (non-browser client) is allowed.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}
