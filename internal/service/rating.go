package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/event"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/repository"
	apperrors "github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/errors"
)

// RatingService owns the rating ledger and the aggregates derived from it.
type RatingService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewRatingService creates a new rating service. repos run outside any
// transaction; tx opens transactions for recomputation.
func NewRatingService(
	repos repository.Repositories,
	tx repository.Transactor,
	producer *event.Producer,
	logger *slog.Logger,
) *RatingService {
	return &RatingService{
		repos:    repos,
		tx:       tx,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitRating records the caller's score for target, overwriting any
// earlier score, then recomputes the target's average.
//
// The ledger write commits on its own. If recomputation still fails after one
// inline retry, a recompute request is published and the caller gets
// AGGREGATION_PENDING; the ledger write stays.
func (s *RatingService) SubmitRating(ctx context.Context, caller domain.Caller, target domain.Target, score int) (*domain.Rating, error) {
	if err := domain.ValidateScore(score); err != nil {
		return nil, err
	}
	if target.ID == "" {
		return nil, domain.InvalidTarget()
	}

	now := s.now()
	rating := &domain.Rating{
		ID:        uuid.New().String(),
		UserID:    caller.ID,
		Target:    target,
		Score:     score,
		CreatedAt: now,
		UpdatedAt: now,
	}

	saved, err := s.repos.Ratings.Upsert(ctx, rating)
	if errors.Is(err, apperrors.ErrConflict) {
		s.logger.WarnContext(ctx, "rating upsert conflicted, retrying",
			slog.String("user_id", caller.ID),
			slog.String("target", target.String()),
		)
		saved, err = s.repos.Ratings.Upsert(ctx, rating)
	}
	if err != nil {
		return nil, fmt.Errorf("submit rating: %w", err)
	}
	ratingsSubmitted.WithLabelValues(string(target.Kind)).Inc()

	if err := s.producer.PublishRatingSubmitted(ctx, saved); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish rating.submitted event",
			slog.String("rating_id", saved.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.recomputeAverageWithRetry(ctx, target); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "rating submitted",
		slog.String("rating_id", saved.ID),
		slog.String("target", target.String()),
		slog.Int("score", saved.Score),
	)

	return saved, nil
}

func (s *RatingService) recomputeAverageWithRetry(ctx context.Context, target domain.Target) error {
	err := s.recomputeAverage(ctx, target)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrEntityNotFound) {
		return err
	}

	aggregationFailures.WithLabelValues(string(target.Kind), "inline").Inc()
	s.logger.WarnContext(ctx, "rating aggregation failed, retrying",
		slog.String("target", target.String()),
		slog.String("error", err.Error()),
	)

	if err = s.recomputeAverage(ctx, target); err == nil {
		return nil
	}

	aggregationFailures.WithLabelValues(string(target.Kind), "final").Inc()
	s.logger.ErrorContext(ctx, "rating aggregation failed, deferring to background recompute",
		slog.String("target", target.String()),
		slog.String("error", err.Error()),
	)

	if pubErr := s.producer.PublishRecomputeRequested(ctx, target, err.Error()); pubErr != nil {
		s.logger.ErrorContext(ctx, "failed to publish rating.recompute_requested event",
			slog.String("target", target.String()),
			slog.String("error", pubErr.Error()),
		)
	}

	return domain.AggregationPending(err)
}

// recomputeAverage rebuilds the average from the full ledger slice while
// holding the entity row lock.
func (s *RatingService) recomputeAverage(ctx context.Context, target domain.Target) error {
	start := time.Now()
	defer func() { aggregationDuration.Observe(time.Since(start).Seconds()) }()

	return s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Entities.LockEntity(ctx, target); err != nil {
			return err
		}

		histogram, err := repos.Ratings.ScoreHistogram(ctx, target)
		if err != nil {
			return err
		}

		stats := domain.NewRatingStats(histogram)
		return repos.Entities.UpdateAverageRating(ctx, target, stats.AverageRating)
	})
}

// RecomputeAggregates rebuilds both denormalized fields of target from
// scratch. It is safe to run any number of times.
func (s *RatingService) RecomputeAggregates(ctx context.Context, target domain.Target) (*domain.EntityAggregates, error) {
	start := time.Now()
	defer func() { aggregationDuration.Observe(time.Since(start).Seconds()) }()

	agg := &domain.EntityAggregates{Target: target}
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Entities.LockEntity(ctx, target); err != nil {
			return err
		}

		histogram, err := repos.Ratings.ScoreHistogram(ctx, target)
		if err != nil {
			return err
		}
		agg.AverageRating = domain.NewRatingStats(histogram).AverageRating
		if err := repos.Entities.UpdateAverageRating(ctx, target, agg.AverageRating); err != nil {
			return err
		}

		agg.ReviewCount, err = repos.Reviews.CountApproved(ctx, target)
		if err != nil {
			return err
		}
		return repos.Entities.UpdateReviewCount(ctx, target, agg.ReviewCount)
	})
	if err != nil {
		return nil, fmt.Errorf("recompute aggregates: %w", err)
	}

	s.logger.InfoContext(ctx, "aggregates recomputed",
		slog.String("target", target.String()),
		slog.Float64("average_rating", agg.AverageRating),
		slog.Int("review_count", agg.ReviewCount),
	)

	return agg, nil
}

// GetUserRating returns the caller's score for target, or 0 if they have
// not rated it.
func (s *RatingService) GetUserRating(ctx context.Context, caller domain.Caller, target domain.Target) (domain.UserRating, error) {
	score, _, err := s.repos.Ratings.GetScore(ctx, caller.ID, target)
	if err != nil {
		return domain.UserRating{}, fmt.Errorf("get user rating: %w", err)
	}
	return domain.UserRating{Score: score}, nil
}

// GetEntityRatingStats reads the stats straight from the ledger rather than
// the cached average on the entity.
func (s *RatingService) GetEntityRatingStats(ctx context.Context, target domain.Target) (domain.RatingStats, error) {
	histogram, err := s.repos.Ratings.ScoreHistogram(ctx, target)
	if err != nil {
		return domain.RatingStats{}, fmt.Errorf("get rating stats: %w", err)
	}
	return domain.NewRatingStats(histogram), nil
}
