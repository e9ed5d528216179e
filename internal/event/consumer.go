package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	pkgkafka "github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/kafka"
)

// AggregateRecomputer defines what the recompute consumer needs from the
// rating service.
type AggregateRecomputer interface {
	RecomputeAggregates(ctx context.Context, target domain.Target) (*domain.EntityAggregates, error)
}

// Consumer processes aggregation retry requests published after an inline
// recomputation failed.
type Consumer struct {
	logger  *slog.Logger
	service AggregateRecomputer
}

// NewConsumer creates a new recompute consumer.
func NewConsumer(service AggregateRecomputer, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandleRecomputeRequested re-runs aggregation for the entity named in the
// event. A malformed target is logged and dropped since retrying it cannot
// succeed.
func (c *Consumer) HandleRecomputeRequested(ctx context.Context, event *pkgkafka.Event) error {
	var data RecomputeRequestedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal rating.recompute_requested data: %w", err)
	}

	target, err := domain.TargetFor(data.EntityKind, data.EntityID)
	if err != nil {
		c.logger.WarnContext(ctx, "dropping recompute request with invalid target",
			slog.String("event_id", event.EventID),
			slog.String("entity_kind", data.EntityKind),
			slog.String("entity_id", data.EntityID),
		)
		return nil
	}

	c.logger.InfoContext(ctx, "processing rating.recompute_requested event",
		slog.String("target", target.String()),
		slog.String("reason", data.Reason),
	)

	agg, err := c.service.RecomputeAggregates(ctx, target)
	if err != nil {
		return fmt.Errorf("recompute aggregates for %s: %w", target, err)
	}

	c.logger.InfoContext(ctx, "aggregates recomputed",
		slog.String("target", target.String()),
		slog.Float64("average_rating", agg.AverageRating),
		slog.Int("review_count", agg.ReviewCount),
	)
	return nil
}
