package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/health"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/middleware"
)

const serviceName = "review"

// RouterConfig holds the router settings that come from configuration.
type RouterConfig struct {
	CORS              middleware.CORSConfig
	PublicCacheMaxAge int
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all rating and review routes registered.
func NewRouter(
	ratings RatingService,
	reviews ReviewService,
	tokenValidator middleware.TokenValidator,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	middleware.MountPprof(r, cfg.PprofAllowedCIDRs, logger)

	ratingHandler := NewRatingHandler(ratings, logger)
	reviewHandler := NewReviewHandler(reviews, logger)
	admin := string(domain.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Public reads. Stats must reflect a rating the moment it is saved.
		r.With(middleware.CacheControl(0)).Get("/rating/stats/{entityKind}/{id}", ratingHandler.GetEntityRatingStats)
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.PublicCacheMaxAge))
			r.Get("/review/entity/{entityKind}/{id}", reviewHandler.ListEntityReviews)
			r.Get("/review/{id}/responses", reviewHandler.ListResponses)
		})

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Use(middleware.RequestLogger(logger))
			r.Use(middleware.CacheControl(0))

			r.Post("/rating", ratingHandler.SubmitRating)
			r.Get("/rating/my/{entityKind}/{id}", ratingHandler.GetUserRating)

			r.Post("/review", reviewHandler.SubmitReview)
			r.Delete("/review/{id}", reviewHandler.DeleteReview)
			r.Post("/review/{id}/responses", reviewHandler.RespondToReview)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(admin))

				r.Post("/rating/recompute/{entityKind}/{id}", ratingHandler.RecomputeAggregates)
				r.Get("/review/pending", reviewHandler.ListPending)
				r.Patch("/review/{id}/moderate", reviewHandler.ModerateReview)
			})
		})
	})

	return r
}
