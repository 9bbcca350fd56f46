package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"server/internal/http/handlers"
	"server/internal/middleware"
)

// Options carries the router's cross-cutting collaborators.
type Options struct {
	CountryLookup  middleware.CountryLookup
	Registry       *prometheus.Registry
	AllowedOrigins []string
	RateLimit      int
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N("en", opts.CountryLookup),
	)
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, time.Minute))
	}

	r.Get("/v1/healthz", app.Health)
	if opts.Registry != nil {
		r.Method(stdhttp.MethodGet, "/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/signup", app.AuthSignUp)
		r.Post("/signin", app.AuthSignIn)
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthJWT(app.Config.JWTSecret))
			r.Post("/signout", app.AuthSignOut)
		})
	})

	r.Get("/v1/garments", app.GarmentsList)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(app.Config.JWTSecret))
		r.Get("/v1/me", app.Me)
		r.Post("/v1/tryon", app.TryOnCreate)
		r.Post("/v1/garments", app.GarmentsCreate)
		r.Route("/v1/credits", func(r chi.Router) {
			r.Post("/purchase", app.CreditsPurchase)
			r.Get("/transactions", app.CreditsTransactions)
		})
	})

	return r
}
