package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ratingsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratings_submitted_total",
			Help: "Rating submissions written to the ledger",
		},
		[]string{"entity_kind"},
	)

	aggregationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_aggregation_failures_total",
			Help: "Aggregate recomputations that failed; stage is inline or final",
		},
		[]string{"entity_kind", "stage"},
	)

	aggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rating_aggregation_duration_seconds",
			Help:    "Time spent recomputing an entity's aggregates",
			Buckets: prometheus.DefBuckets,
		},
	)

	reviewsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Reviews entering the moderation queue",
		},
		[]string{"entity_kind"},
	)

	reviewsModerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_moderated_total",
			Help: "Moderation decisions by resulting status",
		},
		[]string{"status"},
	)

	reviewsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reviews_deleted_total",
			Help: "Reviews deleted by their author or an admin",
		},
	)

	reviewResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "review_responses_total",
			Help: "Responses posted to reviews",
		},
	)
)
