package repository

import (
	"context"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
)

// RatingRepository defines persistence for the rating ledger.
type RatingRepository interface {
	// Upsert inserts the rating or, when the user already rated the target,
	// overwrites its score and updated_at. The stored row is returned.
	Upsert(ctx context.Context, rating *domain.Rating) (*domain.Rating, error)

	// GetScore returns the user's score for target; found is false when the
	// user has not rated it.
	GetScore(ctx context.Context, userID string, target domain.Target) (score int, found bool, err error)

	// ScoreHistogram returns the number of ratings per score for target.
	ScoreHistogram(ctx context.Context, target domain.Target) (map[int]int, error)
}

// ReviewRepository defines persistence for the review ledger.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByIDForUpdate reads the review and locks its row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Review, error)

	UpdateStatus(ctx context.Context, id string, status domain.ReviewStatus) (*domain.Review, error)
	Delete(ctx context.Context, id string) error

	// ExistsForUser reports whether the user already reviewed target.
	ExistsForUser(ctx context.Context, userID string, target domain.Target) (bool, error)

	// CountApproved counts APPROVED reviews of target.
	CountApproved(ctx context.Context, target domain.Target) (int, error)

	// ListPending returns the moderation queue oldest-first with the total
	// queue length.
	ListPending(ctx context.Context, page, perPage int) ([]domain.PendingReview, int, error)

	// ListApproved returns APPROVED reviews of target newest-first. Responses
	// are not populated.
	ListApproved(ctx context.Context, target domain.Target, page, perPage int) ([]domain.PublishedReview, int, error)
}

// ResponseRepository defines persistence for review responses.
type ResponseRepository interface {
	Create(ctx context.Context, response *domain.ReviewResponse) error
	ListByReview(ctx context.Context, reviewID string) ([]domain.ReviewResponse, error)

	// ListByReviews groups the responses of several reviews by review id.
	ListByReviews(ctx context.Context, reviewIDs []string) (map[string][]domain.ReviewResponse, error)
}

// EntityStore is the narrow view this service has of establishments and POS
// systems. Only average_rating and review_count are ever written.
type EntityStore interface {
	// LockEntity locks the entity row for the rest of the transaction. It
	// fails with domain.ErrEntityNotFound when the entity does not exist.
	LockEntity(ctx context.Context, target domain.Target) error

	UpdateAverageRating(ctx context.Context, target domain.Target, average float64) error
	UpdateReviewCount(ctx context.Context, target domain.Target, count int) error

	// ResolveOwner returns the user id of the business that owns target.
	// ok is false when the entity has no owner or does not exist.
	ResolveOwner(ctx context.Context, target domain.Target) (ownerID string, ok bool, err error)
}

// Repositories groups the repositories bound to one connection or
// transaction.
type Repositories struct {
	Ratings   RatingRepository
	Reviews   ReviewRepository
	Responses ResponseRepository
	Entities  EntityStore
}

// Transactor runs a unit of work inside a single database transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
