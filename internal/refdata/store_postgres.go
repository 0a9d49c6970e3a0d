package refdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the reference snapshot as one JSONB document. The
// tables change rarely and are always replaced wholesale, so a single row
// keeps reads and writes atomic without transactions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const Schema = `
CREATE TABLE IF NOT EXISTS reference_tables (
    name TEXT PRIMARY KEY,
    body JSONB NOT NULL
);
`

const snapshotName = "authority"

func (s *PostgresStore) Replace(ctx context.Context, t Tables) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal reference tables: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO reference_tables (name, body) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body`,
		snapshotName, body,
	)
	return err
}

func (s *PostgresStore) Load(ctx context.Context) (Tables, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM reference_tables WHERE name = $1`, snapshotName).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tables{}, nil
	}
	if err != nil {
		return Tables{}, err
	}
	var t Tables
	if err := json.Unmarshal(body, &t); err != nil {
		return Tables{}, fmt.Errorf("unmarshal reference tables: %w", err)
	}
	return t, nil
}
