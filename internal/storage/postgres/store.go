package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vitrine/internal/domain/store"
)

const (
	getStoreBySlugSQL = `SELECT id::text, slug, name, whatsapp FROM stores WHERE slug = $1`

	upsertStoreSQL = `INSERT INTO stores (slug, name, whatsapp) VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name, whatsapp = EXCLUDED.whatsapp
		RETURNING id::text`
)

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// GetBySlug returns the store published under slug.
func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (*store.Store, error) {
	rows, err := r.pool.Query(ctx, getStoreBySlugSQL, store.NormalizeSlug(slug))
	if err != nil {
		return nil, fmt.Errorf("getting store %q: %w", slug, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[store.Store])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting store %q: %w", slug, err)
	}
	return &s, nil
}

// Upsert creates or updates the store by slug and sets its ID.
func (r *StoreRepository) Upsert(ctx context.Context, s *store.Store) error {
	s.Slug = store.NormalizeSlug(s.Slug)
	err := r.pool.QueryRow(ctx, upsertStoreSQL, s.Slug, s.Name, s.WhatsApp).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("upserting store %q: %w", s.Slug, err)
	}
	return nil
}
