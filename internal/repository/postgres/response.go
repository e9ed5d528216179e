package postgres

import (
	"context"
	"fmt"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/database"
)

// ResponseRepository implements repository.ResponseRepository using PostgreSQL.
type ResponseRepository struct {
	pool database.DBTX
}

// NewResponseRepository creates a new PostgreSQL-backed response repository.
func NewResponseRepository(pool database.DBTX) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Create inserts a response. A review deleted in the meantime surfaces as
// review not found, an unknown author as user not found.
func (r *ResponseRepository) Create(ctx context.Context, resp *domain.ReviewResponse) (err error) {
	ctx, end := database.TraceQuery(ctx, "InsertReviewResponse", "review_responses")
	defer func() { end(err) }()

	query := `
		INSERT INTO review_responses (id, review_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.pool.Exec(ctx, query,
		resp.ID,
		resp.ReviewID,
		resp.UserID,
		resp.Content,
		resp.CreatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			if isUserReference(err) {
				return domain.UserNotFound(resp.UserID)
			}
			return domain.ReviewNotFound(resp.ReviewID)
		}
		return fmt.Errorf("insert review response: %w", err)
	}

	return nil
}

// ListByReview returns the responses to one review oldest-first.
func (r *ResponseRepository) ListByReview(ctx context.Context, reviewID string) (_ []domain.ReviewResponse, err error) {
	ctx, end := database.TraceQuery(ctx, "ListReviewResponses", "review_responses")
	defer func() { end(err) }()

	query := `
		SELECT id, review_id, user_id, content, created_at
		FROM review_responses
		WHERE review_id = $1
		ORDER BY created_at ASC, id ASC`

	grouped, err := r.list(ctx, query, reviewID)
	if err != nil {
		return nil, err
	}

	responses := grouped[reviewID]
	if responses == nil {
		responses = []domain.ReviewResponse{}
	}
	return responses, nil
}

// ListByReviews loads the responses of several reviews in one query.
func (r *ResponseRepository) ListByReviews(ctx context.Context, reviewIDs []string) (_ map[string][]domain.ReviewResponse, err error) {
	if len(reviewIDs) == 0 {
		return map[string][]domain.ReviewResponse{}, nil
	}

	ctx, end := database.TraceQuery(ctx, "ListReviewResponsesBatch", "review_responses")
	defer func() { end(err) }()

	query := `
		SELECT id, review_id, user_id, content, created_at
		FROM review_responses
		WHERE review_id = ANY($1)
		ORDER BY created_at ASC, id ASC`

	return r.list(ctx, query, reviewIDs)
}

func (r *ResponseRepository) list(ctx context.Context, query string, arg any) (map[string][]domain.ReviewResponse, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list review responses: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]domain.ReviewResponse)
	for rows.Next() {
		var resp domain.ReviewResponse
		if err := rows.Scan(
			&resp.ID,
			&resp.ReviewID,
			&resp.UserID,
			&resp.Content,
			&resp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review response row: %w", err)
		}
		grouped[resp.ReviewID] = append(grouped[resp.ReviewID], resp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review response rows: %w", err)
	}

	return grouped, nil
}
