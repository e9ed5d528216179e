package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/database"
	apperrors "github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/errors"
)

// RatingRepository implements repository.RatingRepository using PostgreSQL.
type RatingRepository struct {
	pool database.DBTX
}

// NewRatingRepository creates a new PostgreSQL-backed rating repository.
func NewRatingRepository(pool database.DBTX) *RatingRepository {
	return &RatingRepository{pool: pool}
}

// Upsert inserts the rating or overwrites the score of the user's existing
// row for the same target. The conflict target matches the partial unique
// index of the target's kind, so two concurrent first submissions still end
// in one row.
func (r *RatingRepository) Upsert(ctx context.Context, rating *domain.Rating) (_ *domain.Rating, err error) {
	ctx, end := database.TraceQuery(ctx, "UpsertRating", "ratings")
	defer func() { end(err) }()

	col := targetColumn(rating.Target.Kind)
	query := `
		INSERT INTO ratings (id, user_id, establishment_id, pos_system_id, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, ` + col + `) WHERE ` + col + ` IS NOT NULL DO UPDATE SET
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, establishment_id, pos_system_id, score, created_at, updated_at`

	est, pos := rating.Target.Columns()
	result, err := scanRating(r.pool.QueryRow(ctx, query,
		rating.ID,
		rating.UserID,
		est,
		pos,
		rating.Score,
		rating.CreatedAt,
		rating.UpdatedAt,
	))
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return nil, apperrors.Conflict("concurrent rating submission for the same entity")
		case database.IsForeignKeyViolation(err) && isUserReference(err):
			return nil, domain.UserNotFound(rating.UserID)
		case database.IsForeignKeyViolation(err):
			return nil, domain.EntityNotFound(rating.Target)
		}
		return nil, fmt.Errorf("upsert rating: %w", err)
	}

	return result, nil
}

// GetScore returns the user's score for target.
func (r *RatingRepository) GetScore(ctx context.Context, userID string, target domain.Target) (score int, found bool, err error) {
	ctx, end := database.TraceQuery(ctx, "GetRatingScore", "ratings")
	defer func() { end(err) }()

	query := `SELECT score FROM ratings WHERE user_id = $1 AND ` + targetColumn(target.Kind) + ` = $2`

	err = r.pool.QueryRow(ctx, query, userID, target.ID).Scan(&score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("get rating score: %w", err)
	}

	return score, true, nil
}

// ScoreHistogram reads the whole ledger slice for target in one query.
func (r *RatingRepository) ScoreHistogram(ctx context.Context, target domain.Target) (_ map[int]int, err error) {
	ctx, end := database.TraceQuery(ctx, "RatingHistogram", "ratings")
	defer func() { end(err) }()

	query := `
		SELECT score, count(*)
		FROM ratings
		WHERE ` + targetColumn(target.Kind) + ` = $1
		GROUP BY score`

	rows, err := r.pool.Query(ctx, query, target.ID)
	if err != nil {
		return nil, fmt.Errorf("rating histogram: %w", err)
	}
	defer rows.Close()

	histogram := make(map[int]int, domain.MaxScore)
	for rows.Next() {
		var score, count int
		if err := rows.Scan(&score, &count); err != nil {
			return nil, fmt.Errorf("scan rating histogram row: %w", err)
		}
		histogram[score] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating histogram rows: %w", err)
	}

	return histogram, nil
}

func scanRating(row scanner) (*domain.Rating, error) {
	var (
		rt       domain.Rating
		est, pos *string
	)
	if err := row.Scan(
		&rt.ID,
		&rt.UserID,
		&est,
		&pos,
		&rt.Score,
		&rt.CreatedAt,
		&rt.UpdatedAt,
	); err != nil {
		return nil, err
	}

	target, err := domain.TargetFromColumns(est, pos)
	if err != nil {
		return nil, fmt.Errorf("rating %s: %w", rt.ID, err)
	}
	rt.Target = target
	return &rt, nil
}
