package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	pkgkafka "github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/kafka"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/logger"
)

// Kafka topics for rating and review events.
var (
	TopicRatingSubmitted          = pkgkafka.Topic("rating", "submitted")
	TopicRatingRecomputeRequested = pkgkafka.Topic("rating", "recompute_requested")
	TopicReviewSubmitted          = pkgkafka.Topic("review", "submitted")
	TopicReviewModerated          = pkgkafka.Topic("review", "moderated")
	TopicReviewDeleted            = pkgkafka.Topic("review", "deleted")
	TopicReviewResponded          = pkgkafka.Topic("review", "responded")
)

// Aggregate type constants.
const (
	AggregateTypeEntity = "rated_entity"
	AggregateTypeReview = "review"
)

// SourceReviewService identifies events originating from this service.
const SourceReviewService = "review-service"

// RatingSubmittedData is the payload for a rating.submitted event.
type RatingSubmittedData struct {
	RatingID   string `json:"rating_id"`
	UserID     string `json:"user_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Score      int    `json:"score"`
}

// RecomputeRequestedData is the payload for a rating.recompute_requested
// event.
type RecomputeRequestedData struct {
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	Reason     string `json:"reason,omitempty"`
}

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ReviewID   string `json:"review_id"`
	UserID     string `json:"user_id"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
}

// ReviewModeratedData is the payload for a review.moderated event.
type ReviewModeratedData struct {
	ReviewID    string `json:"review_id"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id"`
	FromStatus  string `json:"from_status"`
	ToStatus    string `json:"to_status"`
	ReviewCount *int   `json:"review_count,omitempty"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ReviewID    string `json:"review_id"`
	EntityKind  string `json:"entity_kind"`
	EntityID    string `json:"entity_id"`
	DeletedBy   string `json:"deleted_by"`
	WasApproved bool   `json:"was_approved"`
}

// ReviewRespondedData is the payload for a review.responded event.
type ReviewRespondedData struct {
	ResponseID string `json:"response_id"`
	ReviewID   string `json:"review_id"`
	UserID     string `json:"user_id"`
}

// Publisher is satisfied by *pkgkafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes rating and review domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishRatingSubmitted publishes a rating.submitted event. Rating events are
// keyed by entity so they stay ordered per entity.
func (p *Producer) PublishRatingSubmitted(ctx context.Context, r *domain.Rating) error {
	return p.publish(ctx, TopicRatingSubmitted, r.Target.String(), AggregateTypeEntity, RatingSubmittedData{
		RatingID:   r.ID,
		UserID:     r.UserID,
		EntityKind: string(r.Target.Kind),
		EntityID:   r.Target.ID,
		Score:      r.Score,
	})
}

// PublishRecomputeRequested asks the background consumer to recompute the
// aggregates of target.
func (p *Producer) PublishRecomputeRequested(ctx context.Context, target domain.Target, reason string) error {
	return p.publish(ctx, TopicRatingRecomputeRequested, target.String(), AggregateTypeEntity, RecomputeRequestedData{
		EntityKind: string(target.Kind),
		EntityID:   target.ID,
		Reason:     reason,
	})
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, r *domain.Review) error {
	return p.publish(ctx, TopicReviewSubmitted, r.ID, AggregateTypeReview, ReviewSubmittedData{
		ReviewID:   r.ID,
		UserID:     r.UserID,
		EntityKind: string(r.Target.Kind),
		EntityID:   r.Target.ID,
	})
}

// PublishReviewModerated publishes a review.moderated event. reviewCount is
// nil when the transition did not touch the approved count.
func (p *Producer) PublishReviewModerated(ctx context.Context, r *domain.Review, from domain.ReviewStatus, reviewCount *int) error {
	return p.publish(ctx, TopicReviewModerated, r.ID, AggregateTypeReview, ReviewModeratedData{
		ReviewID:    r.ID,
		EntityKind:  string(r.Target.Kind),
		EntityID:    r.Target.ID,
		FromStatus:  string(from),
		ToStatus:    string(r.Status),
		ReviewCount: reviewCount,
	})
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, r *domain.Review, deletedBy string) error {
	return p.publish(ctx, TopicReviewDeleted, r.ID, AggregateTypeReview, ReviewDeletedData{
		ReviewID:    r.ID,
		EntityKind:  string(r.Target.Kind),
		EntityID:    r.Target.ID,
		DeletedBy:   deletedBy,
		WasApproved: r.Status == domain.ReviewStatusApproved,
	})
}

// PublishReviewResponded publishes a review.responded event.
func (p *Producer) PublishReviewResponded(ctx context.Context, resp *domain.ReviewResponse) error {
	return p.publish(ctx, TopicReviewResponded, resp.ReviewID, AggregateTypeReview, ReviewRespondedData{
		ResponseID: resp.ID,
		ReviewID:   resp.ReviewID,
		UserID:     resp.UserID,
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_id", event.EventID),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
