package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fiscal/internal/domain"
	"fiscal/pkg/platform/sentinel"
)

// PostgresStore persists receipts in PostgreSQL. Line items and the
// validation outcome travel as JSONB documents owned by their receipt row,
// matching the ownership rules of the domain model.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Schema is the DDL this store expects, applied by the operator or test
// harness.
const Schema = `
CREATE TABLE IF NOT EXISTS receipts (
    id               UUID PRIMARY KEY,
    point_of_sales   INT NOT NULL,
    receipt_type     TEXT NOT NULL,
    receipt_number   BIGINT,
    body             JSONB NOT NULL,
    validation       JSONB,
    UNIQUE (point_of_sales, receipt_type, receipt_number)
);
CREATE INDEX IF NOT EXISTS receipts_pending_idx ON receipts (point_of_sales, receipt_type) WHERE receipt_number IS NULL;
`

type receiptRow struct {
	Receipt domain.Receipt `json:"receipt"`
}

func (s *PostgresStore) Save(ctx context.Context, r domain.Receipt) error {
	body, err := json.Marshal(receiptRow{Receipt: r})
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}
	var validation []byte
	if r.Validation != nil {
		validation, err = json.Marshal(r.Validation)
		if err != nil {
			return fmt.Errorf("marshal validation: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO receipts (id, point_of_sales, receipt_type, receipt_number, body, validation)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET receipt_number = EXCLUDED.receipt_number,
		    body = EXCLUDED.body,
		    validation = EXCLUDED.validation`,
		r.ID, r.PointOfSales.Number, r.ReceiptType.Code, r.Number, body, validation,
	)
	return err
}

func (s *PostgresStore) Find(ctx context.Context, id uuid.UUID) (domain.Receipt, error) {
	row := s.pool.QueryRow(ctx, `SELECT body, validation FROM receipts WHERE id = $1`, id)
	return scanReceipt(row)
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]domain.Receipt, error) {
	rows, err := s.pool.Query(ctx, `SELECT body, validation FROM receipts WHERE receipt_number IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanReceipt(row scannable) (domain.Receipt, error) {
	var body, validation []byte
	if err := row.Scan(&body, &validation); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Receipt{}, sentinel.ErrNotFound
		}
		return domain.Receipt{}, err
	}
	var rr receiptRow
	if err := json.Unmarshal(body, &rr); err != nil {
		return domain.Receipt{}, fmt.Errorf("unmarshal receipt: %w", err)
	}
	r := rr.Receipt
	if len(validation) > 0 {
		var v domain.Validation
		if err := json.Unmarshal(validation, &v); err != nil {
			return domain.Receipt{}, fmt.Errorf("unmarshal validation: %w", err)
		}
		r.Validation = &v
	}
	return r, nil
}
