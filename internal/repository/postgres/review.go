package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/database"
)

const reviewColumns = `id, user_id, establishment_id, pos_system_id, content, pros, cons, status, created_at, updated_at`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) (err error) {
	ctx, end := database.TraceQuery(ctx, "InsertReview", "reviews")
	defer func() { end(err) }()

	query := `
		INSERT INTO reviews (` + reviewColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	est, pos := review.Target.Columns()
	_, err = r.pool.Exec(ctx, query,
		review.ID,
		review.UserID,
		est,
		pos,
		review.Content,
		review.Pros,
		review.Cons,
		string(review.Status),
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			if isUserReference(err) {
				return domain.UserNotFound(review.UserID)
			}
			return domain.EntityNotFound(review.Target)
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its id.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "GetReview", "reviews")
	defer func() { end(err) }()

	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ReviewNotFound(id)
		}
		return nil, fmt.Errorf("get review by id: %w", err)
	}

	return review, nil
}

// GetByIDForUpdate retrieves a review and locks its row.
func (r *ReviewRepository) GetByIDForUpdate(ctx context.Context, id string) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "LockReview", "reviews")
	defer func() { end(err) }()

	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1 FOR UPDATE`
	review, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ReviewNotFound(id)
		}
		return nil, fmt.Errorf("lock review: %w", err)
	}

	return review, nil
}

// UpdateStatus sets the review's status and returns the updated row.
func (r *ReviewRepository) UpdateStatus(ctx context.Context, id string, status domain.ReviewStatus) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateReviewStatus", "reviews")
	defer func() { end(err) }()

	query := `
		UPDATE reviews SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + reviewColumns

	review, err := scanReview(r.pool.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ReviewNotFound(id)
		}
		return nil, fmt.Errorf("update review status: %w", err)
	}

	return review, nil
}

// Delete removes a review; its responses go with it.
func (r *ReviewRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteReview", "reviews")
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return domain.ReviewNotFound(id)
	}

	return nil
}

// ExistsForUser reports whether the user already reviewed target.
func (r *ReviewRepository) ExistsForUser(ctx context.Context, userID string, target domain.Target) (exists bool, err error) {
	ctx, end := database.TraceQuery(ctx, "ReviewExistsForUser", "reviews")
	defer func() { end(err) }()

	query := `SELECT EXISTS (SELECT 1 FROM reviews WHERE user_id = $1 AND ` + targetColumn(target.Kind) + ` = $2)`
	if err = r.pool.QueryRow(ctx, query, userID, target.ID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check existing review: %w", err)
	}

	return exists, nil
}

// CountApproved counts the APPROVED reviews of target.
func (r *ReviewRepository) CountApproved(ctx context.Context, target domain.Target) (count int, err error) {
	ctx, end := database.TraceQuery(ctx, "CountApprovedReviews", "reviews")
	defer func() { end(err) }()

	query := `SELECT count(*) FROM reviews WHERE ` + targetColumn(target.Kind) + ` = $1 AND status = 'APPROVED'`
	if err = r.pool.QueryRow(ctx, query, target.ID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count approved reviews: %w", err)
	}

	return count, nil
}

// ListPending returns PENDING reviews oldest-first, with the author's name
// and the reviewed entity's name joined in.
func (r *ReviewRepository) ListPending(ctx context.Context, page, perPage int) (_ []domain.PendingReview, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListPendingReviews", "reviews")
	defer func() { end(err) }()

	limit, offset := pageOffset(page, perPage)

	query := `
		SELECT r.id, r.user_id, r.establishment_id, r.pos_system_id, r.content, r.pros, r.cons,
			   r.status, r.created_at, r.updated_at,
			   COALESCE(u.name, ''), COALESCE(e.name, p.name, ''),
			   count(*) OVER() AS total_count
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id
		LEFT JOIN establishments e ON e.id = r.establishment_id
		LEFT JOIN pos_systems p ON p.id = r.pos_system_id
		WHERE r.status = 'PENDING'
		ORDER BY r.created_at ASC, r.id ASC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list pending reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.PendingReview
		totalCount int
	)

	for rows.Next() {
		var (
			pr         domain.PendingReview
			authorName string
			targetName string
		)
		review, err := scanReviewWith(rows, &authorName, &targetName, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan pending review row: %w", err)
		}
		pr.Review = *review
		pr.AuthorName = authorName
		pr.TargetName = targetName
		reviews = append(reviews, pr)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate pending review rows: %w", err)
	}
	rows.Close()

	if reviews == nil {
		reviews = []domain.PendingReview{}
		if offset > 0 {
			if totalCount, err = r.count(ctx, `r.status = 'PENDING'`); err != nil {
				return nil, 0, err
			}
		}
	}

	return reviews, totalCount, nil
}

// ListApproved returns APPROVED reviews of target newest-first.
func (r *ReviewRepository) ListApproved(ctx context.Context, target domain.Target, page, perPage int) (_ []domain.PublishedReview, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListApprovedReviews", "reviews")
	defer func() { end(err) }()

	limit, offset := pageOffset(page, perPage)

	query := `
		SELECT r.id, r.user_id, r.establishment_id, r.pos_system_id, r.content, r.pros, r.cons,
			   r.status, r.created_at, r.updated_at,
			   COALESCE(u.name, ''),
			   count(*) OVER() AS total_count
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.` + targetColumn(target.Kind) + ` = $1 AND r.status = 'APPROVED'
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, target.ID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list approved reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.PublishedReview
		totalCount int
	)

	for rows.Next() {
		var authorName string
		review, err := scanReviewWith(rows, &authorName, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan approved review row: %w", err)
		}
		reviews = append(reviews, domain.PublishedReview{
			Review:     *review,
			AuthorName: authorName,
			Responses:  []domain.ReviewResponse{},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate approved review rows: %w", err)
	}
	rows.Close()

	if reviews == nil {
		reviews = []domain.PublishedReview{}
		if offset > 0 {
			where := `r.` + targetColumn(target.Kind) + ` = $1 AND r.status = 'APPROVED'`
			if totalCount, err = r.count(ctx, where, target.ID); err != nil {
				return nil, 0, err
			}
		}
	}

	return reviews, totalCount, nil
}

// count backs the page total when a page past the end returns no rows for the
// window count to ride on.
func (r *ReviewRepository) count(ctx context.Context, where string, args ...any) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM reviews r WHERE `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

func scanReview(row scanner) (*domain.Review, error) {
	return scanReviewWith(row)
}

// scanReviewWith scans the review columns followed by extra destinations.
func scanReviewWith(row scanner, extra ...any) (*domain.Review, error) {
	var (
		rv       domain.Review
		est, pos *string
		status   string
	)
	dest := append([]any{
		&rv.ID,
		&rv.UserID,
		&est,
		&pos,
		&rv.Content,
		&rv.Pros,
		&rv.Cons,
		&status,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	target, err := domain.TargetFromColumns(est, pos)
	if err != nil {
		return nil, fmt.Errorf("review %s: %w", rv.ID, err)
	}
	rv.Target = target
	rv.Status = domain.ReviewStatus(status)
	return &rv, nil
}
