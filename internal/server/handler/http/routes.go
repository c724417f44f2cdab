package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/staffdesk/staffdesk/internal/middleware"
)

// NewRouter builds the server API.
//
// Routes:
//
//	POST   /api/auth/check-staff/                  → CheckStaff
//	POST   /api/auth/setup-password/               → SetupPassword
//	POST   /api/auth/login/                        → Login
//	POST   /api/auth/forgot-password/              → ForgotPassword
//	POST   /auth/reset-password/                   → ResetPassword
//	POST   /api/auth/token/refresh/                → Refresh
//	GET    /api/user/profile/                      → Profile (bearer)
//	POST   /api/user/complaints/create/            → Create (bearer)
//	GET    /api/user/dashboard/                    → Dashboard (bearer)
//	GET    /api/user/dashboard/public-anonymous/   → Public (bearer)
//	DELETE /api/user/complaints/{id}/delete/       → Delete (bearer)
//	GET    /metrics                                → Prometheus exposition
func NewRouter(
	authHandler *AuthHandler,
	complaintHandler *ComplaintHandler,
	authenticator middleware.Authenticator,
	metrics *middleware.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.WithRequestLogging(logger))
	if metrics != nil {
		r.Use(metrics.Middleware)
		r.Handle("/metrics", metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		// Bodies sent to the API must be JSON.
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Route("/api/auth", func(r chi.Router) {
			r.Post("/check-staff/", authHandler.CheckStaff)
			r.Post("/setup-password/", authHandler.SetupPassword)
			r.Post("/login/", authHandler.Login)
			r.Post("/forgot-password/", authHandler.ForgotPassword)
			r.Post("/token/refresh/", authHandler.Refresh)
		})
		r.Post("/auth/reset-password/", authHandler.ResetPassword)

		r.Route("/api/user", func(r chi.Router) {
			r.Use(middleware.BearerAuth(authenticator))
			r.Get("/profile/", complaintHandler.Profile)
			r.Post("/complaints/create/", complaintHandler.Create)
			r.Get("/dashboard/", complaintHandler.Dashboard)
			r.Get("/dashboard/public-anonymous/", complaintHandler.Public)
			r.Delete("/complaints/{id}/delete/", complaintHandler.Delete)
		})
	})

	return r
}
