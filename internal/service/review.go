package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/event"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/repository"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/pagination"
)

// ReviewPolicy holds the review rules that are product decisions rather than
// invariants.
type ReviewPolicy struct {
	// AllowDuplicates lets a user post several reviews for one entity.
	AllowDuplicates bool
	// AllowRemoderation lets an admin flip APPROVED and REJECTED.
	AllowRemoderation bool
}

// ReviewInput carries the fields of a new review.
type ReviewInput struct {
	Target  domain.Target
	Content string
	Pros    *string
	Cons    *string
}

// ReviewService implements the review ledger, moderation and the response
// thread.
type ReviewService struct {
	repos    repository.Repositories
	tx       repository.Transactor
	producer *event.Producer
	logger   *slog.Logger
	policy   ReviewPolicy
	now      func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(
	repos repository.Repositories,
	tx repository.Transactor,
	producer *event.Producer,
	logger *slog.Logger,
	policy ReviewPolicy,
) *ReviewService {
	return &ReviewService{
		repos:    repos,
		tx:       tx,
		producer: producer,
		logger:   logger,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReview stores a new review as PENDING, whatever the caller's role.
func (s *ReviewService) SubmitReview(ctx context.Context, caller domain.Caller, in ReviewInput) (*domain.Review, error) {
	if in.Target.ID == "" {
		return nil, domain.InvalidTarget()
	}
	content, err := domain.NormalizeContent(in.Content)
	if err != nil {
		return nil, err
	}

	if !s.policy.AllowDuplicates {
		exists, err := s.repos.Reviews.ExistsForUser(ctx, caller.ID, in.Target)
		if err != nil {
			return nil, fmt.Errorf("submit review: %w", err)
		}
		if exists {
			return nil, domain.DuplicateReview()
		}
	}

	now := s.now()
	review := &domain.Review{
		ID:        uuid.New().String(),
		UserID:    caller.ID,
		Target:    in.Target,
		Content:   content,
		Pros:      domain.OptionalText(in.Pros),
		Cons:      domain.OptionalText(in.Cons),
		Status:    domain.ReviewStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repos.Reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}
	reviewsSubmitted.WithLabelValues(string(in.Target.Kind)).Inc()

	if err := s.producer.PublishReviewSubmitted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.submitted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("target", in.Target.String()),
	)

	return review, nil
}

// ListPending returns one page of the moderation queue, oldest first.
func (s *ReviewService) ListPending(ctx context.Context, params pagination.Params) ([]domain.PendingReview, int, error) {
	reviews, total, err := s.repos.Reviews.ListPending(ctx, params.Page, params.PerPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending reviews: %w", err)
	}
	return reviews, total, nil
}

// Moderate moves a review to APPROVED or REJECTED. When the move can change
// the number of approved reviews, the entity's review_count is recomputed in
// the same transaction.
func (s *ReviewService) Moderate(ctx context.Context, reviewID, status string) (*domain.Review, error) {
	next, ok := domain.ParseReviewStatus(status)
	if !ok || !next.IsTerminal() {
		return nil, domain.InvalidStatus(status)
	}

	var (
		updated     *domain.Review
		from        domain.ReviewStatus
		reviewCount *int
	)
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		review, err := repos.Reviews.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if err := review.Status.CheckTransition(next, s.policy.AllowRemoderation); err != nil {
			return err
		}
		from = review.Status

		updated = review
		if from != next {
			if updated, err = repos.Reviews.UpdateStatus(ctx, reviewID, next); err != nil {
				return err
			}
		}

		if from.AffectsApprovedCount(next) {
			count, err := recountApproved(ctx, repos, review.Target)
			if err != nil {
				return err
			}
			reviewCount = &count
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("moderate review: %w", err)
	}
	reviewsModerated.WithLabelValues(string(next)).Inc()

	if err := s.producer.PublishReviewModerated(ctx, updated, from, reviewCount); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.moderated event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review moderated",
		slog.String("review_id", reviewID),
		slog.String("from", string(from)),
		slog.String("to", string(next)),
	)

	return updated, nil
}

// DeleteReview removes a review. Only its author or an admin may do so.
// Deleting an APPROVED review recomputes the entity's review_count.
func (s *ReviewService) DeleteReview(ctx context.Context, caller domain.Caller, reviewID string) error {
	var deleted *domain.Review
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		review, err := repos.Reviews.GetByIDForUpdate(ctx, reviewID)
		if err != nil {
			return err
		}
		if !caller.IsAdmin() && caller.ID != review.UserID {
			return domain.NotAuthorized()
		}

		if err := repos.Reviews.Delete(ctx, reviewID); err != nil {
			return err
		}

		if review.Status == domain.ReviewStatusApproved {
			if _, err := recountApproved(ctx, repos, review.Target); err != nil {
				return err
			}
		}
		deleted = review
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	reviewsDeleted.Inc()

	if err := s.producer.PublishReviewDeleted(ctx, deleted, caller.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("deleted_by", caller.ID),
	)

	return nil
}

// recountApproved locks the entity and stores the approved review count.
// The lock is taken after the review row so moderation and deletion always
// lock in the same order.
func recountApproved(ctx context.Context, repos repository.Repositories, target domain.Target) (int, error) {
	if err := repos.Entities.LockEntity(ctx, target); err != nil {
		return 0, err
	}
	count, err := repos.Reviews.CountApproved(ctx, target)
	if err != nil {
		return 0, err
	}
	if err := repos.Entities.UpdateReviewCount(ctx, target, count); err != nil {
		return 0, err
	}
	return count, nil
}

// RespondToReview attaches a response to a review. The caller must be an
// admin or the user owning the reviewed entity's business; the review's
// author gets no special right. An unknown review is reported before the
// permission check.
func (s *ReviewService) RespondToReview(ctx context.Context, caller domain.Caller, reviewID, content string) (*domain.ReviewResponse, error) {
	content, err := domain.NormalizeContent(content)
	if err != nil {
		return nil, err
	}

	review, err := s.repos.Reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("respond to review: %w", err)
	}

	if !caller.IsAdmin() {
		ownerID, ok, err := s.repos.Entities.ResolveOwner(ctx, review.Target)
		if err != nil {
			return nil, fmt.Errorf("respond to review: %w", err)
		}
		if !ok || ownerID != caller.ID {
			return nil, domain.NotAuthorized()
		}
	}

	resp := &domain.ReviewResponse{
		ID:        uuid.New().String(),
		ReviewID:  review.ID,
		UserID:    caller.ID,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.repos.Responses.Create(ctx, resp); err != nil {
		return nil, fmt.Errorf("respond to review: %w", err)
	}
	reviewResponses.Inc()

	if err := s.producer.PublishReviewResponded(ctx, resp); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.responded event",
			slog.String("response_id", resp.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review response posted",
		slog.String("review_id", review.ID),
		slog.String("response_id", resp.ID),
	)

	return resp, nil
}

// ListResponses returns the responses to a review, oldest first.
func (s *ReviewService) ListResponses(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error) {
	if _, err := s.repos.Reviews.GetByID(ctx, reviewID); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	responses, err := s.repos.Responses.ListByReview(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}

// ListEntityReviews returns one page of target's approved reviews, newest
// first, each with its responses.
func (s *ReviewService) ListEntityReviews(ctx context.Context, target domain.Target, params pagination.Params) ([]domain.PublishedReview, int, error) {
	reviews, total, err := s.repos.Reviews.ListApproved(ctx, target, params.Page, params.PerPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list entity reviews: %w", err)
	}
	if len(reviews) == 0 {
		return reviews, total, nil
	}

	ids := make([]string, len(reviews))
	for i := range reviews {
		ids[i] = reviews[i].ID
	}
	responses, err := s.repos.Responses.ListByReviews(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list entity reviews: %w", err)
	}
	for i := range reviews {
		if rs, ok := responses[reviews[i].ID]; ok {
			reviews[i].Responses = rs
		}
	}

	return reviews, total, nil
}
