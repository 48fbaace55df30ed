// Package http provides HTTP routing and handlers for the business card
// directory API.
package http

import (
	"net/http"
	"time"

	"github.com/atinyakov/bcards/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// RouterOptions configures the cross-cutting middlewares of NewRouter.
type RouterOptions struct {
	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string
	// RateLimit is the number of requests per minute per client IP; zero disables it.
	RateLimit int
	// Metrics, when set, is served at GET /metrics.
	Metrics http.Handler
}

// NewRouter constructs and returns an HTTP handler that serves the card
// directory API.
//
// Routes:
//
//	GET    /healthz
//	GET    /metrics
//	GET    /api/cards            → cards.List
//	GET    /api/cards/my-cards   → cards.MyCards
//	GET    /api/cards/{id}       → cards.Get
//	POST   /api/cards/search     → cards.Search
//	POST   /api/cards            → cards.Create
//	PUT    /api/cards/{id}       → cards.Update
//	PATCH  /api/cards/{id}       → cards.Like
//	DELETE /api/cards/{id}       → cards.Delete
//	GET    /api/users            → users.List
//	GET    /api/users/{id}       → users.Get
//	POST   /api/users            → users.Create
//	POST   /api/users/login      → users.Login
//	PUT    /api/users/{id}       → users.Update
//	PATCH  /api/users/{id}       → users.SetBusiness
//	DELETE /api/users/{id}       → users.Delete
//
// Authorization is decided by the services; the Identity middleware only
// attaches the caller.
func NewRouter(
	cards *CardHandler,
	users *UserHandler,
	tokens middleware.TokenParser,
	logger *zap.Logger,
	opts RouterOptions,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.WithMetrics)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	if opts.RateLimit > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimit, time.Minute))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		// Only allow requests with Content-Type: application/json
		r.Use(chiMiddleware.AllowContentType("application/json"))
		r.Use(middleware.Identity(tokens))

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cards.List)
			r.Get("/my-cards", cards.MyCards)
			r.Post("/search", cards.Search)
			r.Post("/", cards.Create)
			r.Get("/{id}", cards.Get)
			r.Put("/{id}", cards.Update)
			r.Patch("/{id}", cards.Like)
			r.Delete("/{id}", cards.Delete)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", users.List)
			r.Post("/", users.Create)
			r.Post("/login", users.Login)
			r.Get("/{id}", users.Get)
			r.Put("/{id}", users.Update)
			r.Patch("/{id}", users.SetBusiness)
			r.Delete("/{id}", users.Delete)
		})
	})

	return r
}
