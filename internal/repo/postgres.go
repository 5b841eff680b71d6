package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/trip-planner/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, pgx.Tx and
// pgxmock. Integration tests pass a transaction that is rolled back after each
// test; unit tests pass a pgxmock pool.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgDraftStore keeps drafts in the trip_drafts table as jsonb.
type pgDraftStore struct {
	db db
}

// NewPostgresStore constructs a DraftStore backed by the provided db
// connection. In production pass *pgxpool.Pool.
func NewPostgresStore(db db) DraftStore {
	return &pgDraftStore{db: db}
}

func (r *pgDraftStore) Load(ctx context.Context, key string) (domain.Trip, error) {
	const q = `SELECT draft FROM trip_drafts WHERE key = $1`

	var raw []byte
	if err := r.db.QueryRow(ctx, q, key).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, fmt.Errorf("repo.PostgresStore.Load: %w", domain.ErrNotFound)
		}
		return domain.Trip{}, fmt.Errorf("repo.PostgresStore.Load: %w", err)
	}
	t, err := decodeTrip(raw)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.PostgresStore.Load: %w", err)
	}
	return t, nil
}

func (r *pgDraftStore) Save(ctx context.Context, key string, trip domain.Trip) error {
	const q = `
		INSERT INTO trip_drafts (key, draft, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET draft      = EXCLUDED.draft,
		    updated_at = now()`

	raw, err := encodeTrip(trip)
	if err != nil {
		return fmt.Errorf("repo.PostgresStore.Save: %w", err)
	}
	if _, err := r.db.Exec(ctx, q, key, raw); err != nil {
		return fmt.Errorf("repo.PostgresStore.Save: %w", err)
	}
	return nil
}

func (r *pgDraftStore) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM trip_drafts WHERE key = $1`

	tag, err := r.db.Exec(ctx, q, key)
	if err != nil {
		return fmt.Errorf("repo.PostgresStore.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.PostgresStore.Delete: %w", domain.ErrNotFound)
	}
	return nil
}
