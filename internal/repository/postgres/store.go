package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/domain"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/internal/repository"
	"github.com/Moutamanmst/oritool-project-zaklad-ua-sub002/pkg/database"
)

// Store hands out repositories bound either to the pool or to a transaction.
type Store struct {
	pool database.DBTX
}

// NewStore creates a PostgreSQL-backed store.
func NewStore(pool database.DBTX) *Store {
	return &Store{pool: pool}
}

// Repositories returns repositories that run each call on the pool.
func (s *Store) Repositories() repository.Repositories {
	return reposFor(s.pool)
}

// WithinTx implements repository.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return database.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(reposFor(tx))
	})
}

func reposFor(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Ratings:   NewRatingRepository(db),
		Reviews:   NewReviewRepository(db),
		Responses: NewResponseRepository(db),
		Entities:  NewEntityStore(db),
	}
}

// targetColumn is the ledger column that references target's kind.
func targetColumn(kind domain.EntityKind) string {
	if kind == domain.KindPOSSystem {
		return "pos_system_id"
	}
	return "establishment_id"
}

// entityTable is the table holding entities of kind.
func entityTable(kind domain.EntityKind) string {
	if kind == domain.KindPOSSystem {
		return "pos_systems"
	}
	return "establishments"
}

type scanner interface {
	Scan(dest ...any) error
}

// isUserReference reports whether err violates one of the user_id foreign
// keys, which use the default <table>_user_id_fkey names.
func isUserReference(err error) bool {
	return strings.HasSuffix(database.ConstraintName(err), "_user_id_fkey")
}

// pageOffset normalizes paging input the same way for every list query.
func pageOffset(page, perPage int) (limit, offset int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	return perPage, (page - 1) * perPage
}
