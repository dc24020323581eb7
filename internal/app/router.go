package app

import (
	"net/http"

	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sweepdesk/sweepdesk/internal/auth"
	"github.com/sweepdesk/sweepdesk/internal/bookings"
	"github.com/sweepdesk/sweepdesk/internal/observability"
	"github.com/sweepdesk/sweepdesk/internal/rbac"
	"github.com/sweepdesk/sweepdesk/internal/reviews"
	"github.com/sweepdesk/sweepdesk/internal/roles"
	"github.com/sweepdesk/sweepdesk/internal/users"
	"github.com/sweepdesk/sweepdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	AuthHandler     *auth.Handler
	UsersHandler    *users.Handler
	BookingsHandler *bookings.Handler
	ReviewsHandler  *reviews.Handler
	RolesHandler    *roles.Handler
	JobHandler      *jobs.Handler
	Guard           rbac.Middleware
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router for the API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Everything below requires a verified token.
	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Authenticate)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/bookings", params.BookingsHandler.MountRoutes)
		r.Route("/reviews", params.ReviewsHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/permissions", params.RolesHandler.MountPermissionRoutes)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
