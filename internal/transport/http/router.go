package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-notify-nosql/internal/application/bulk"
	"github.com/go-notify-nosql/internal/application/device"
	"github.com/go-notify-nosql/internal/application/notification"
	"github.com/go-notify-nosql/internal/config"
	"github.com/go-notify-nosql/internal/domain"
	"github.com/go-notify-nosql/internal/transport/http/handler"
	appmiddleware "github.com/go-notify-nosql/internal/transport/http/middleware"
	"golang.org/x/time/rate"
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

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to the unauthenticated
	// click-tracking endpoint.
	clickRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	notifSvc := notification.NewService(deps.NotificationRepo, deps.PreferenceRepo, deps.Feed)
	deviceSvc := device.NewService(deps.DeviceRepo)
	bulkDispatcher := bulk.NewDispatcher(deps.NotificationRepo, deps.Registry, deps.UserRepo, deps.DeviceRepo)

	healthH := handler.NewHealthHandler()
	notifH := handler.NewNotificationHandler(notifSvc)
	deviceH := handler.NewDeviceHandler(deviceSvc)
	adminH := handler.NewAdminNotificationHandler(notifSvc, bulkDispatcher)
	startupH := handler.NewStartupHandler(deps.Listener)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(clickRL.Limit).Post("/notifications/{id}/clicked", notifH.MarkClicked)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/notifications", notifH.List)
			r.Put("/notifications/{id}/read", notifH.MarkAsRead)
			r.Post("/notifications/bulk-action", notifH.BulkAction)
			r.Get("/notifications/preferences", notifH.GetPreferences)
			r.Put("/notifications/preferences", notifH.UpdatePreferences)

			r.Post("/devices/register", deviceH.Register)
			r.Delete("/devices", deviceH.Remove)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/notifications/send", adminH.Send)
				r.Post("/notifications/bulk", adminH.SendBulk)
				r.Post("/startup", startupH.Start)
				r.Get("/startup", startupH.Status)
			})
		})
	})

	return r
}
