package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/database"
)

// EntityStore implements repository.EntityStore over the establishments and
// pos_systems tables. Both tables belong to the directory's catalog; this
// store only touches average_rating and review_count.
type EntityStore struct {
	pool database.DBTX
}

// NewEntityStore creates a new PostgreSQL-backed entity store.
func NewEntityStore(pool database.DBTX) *EntityStore {
	return &EntityStore{pool: pool}
}

// LockEntity takes a row lock on the entity. Concurrent recomputations for
// the same entity queue behind it, so the last one to commit has read the
// latest ledger state. NO KEY UPDATE leaves the KEY SHARE locks taken by
// ledger inserts' foreign key checks unblocked.
func (s *EntityStore) LockEntity(ctx context.Context, target domain.Target) (err error) {
	table := entityTable(target.Kind)
	ctx, end := database.TraceQuery(ctx, "LockEntity", table)
	defer func() { end(err) }()

	var id string
	err = s.pool.QueryRow(ctx, `SELECT id FROM `+table+` WHERE id = $1 FOR NO KEY UPDATE`, target.ID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.EntityNotFound(target)
		}
		return fmt.Errorf("lock %s: %w", table, err)
	}

	return nil
}

// UpdateAverageRating stores the recomputed average.
func (s *EntityStore) UpdateAverageRating(ctx context.Context, target domain.Target, average float64) (err error) {
	return s.update(ctx, "UpdateAverageRating", target, "average_rating", average)
}

// UpdateReviewCount stores the recomputed approved review count.
func (s *EntityStore) UpdateReviewCount(ctx context.Context, target domain.Target, count int) (err error) {
	return s.update(ctx, "UpdateReviewCount", target, "review_count", count)
}

func (s *EntityStore) update(ctx context.Context, operation string, target domain.Target, column string, value any) (err error) {
	table := entityTable(target.Kind)
	ctx, end := database.TraceQuery(ctx, operation, table)
	defer func() { end(err) }()

	ct, err := s.pool.Exec(ctx, `UPDATE `+table+` SET `+column+` = $2 WHERE id = $1`, target.ID, value)
	if err != nil {
		return fmt.Errorf("update %s.%s: %w", table, column, err)
	}

	if ct.RowsAffected() == 0 {
		return domain.EntityNotFound(target)
	}

	return nil
}

// ResolveOwner follows entity -> business profile -> user.
func (s *EntityStore) ResolveOwner(ctx context.Context, target domain.Target) (ownerID string, ok bool, err error) {
	table := entityTable(target.Kind)
	ctx, end := database.TraceQuery(ctx, "ResolveOwner", table)
	defer func() { end(err) }()

	query := `
		SELECT bp.user_id
		FROM ` + table + ` t
		JOIN business_profiles bp ON bp.id = t.business_id
		WHERE t.id = $1`

	err = s.pool.QueryRow(ctx, query, target.ID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve owner of %s: %w", target, err)
	}

	return ownerID, true, nil
}
