package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PostgresStore appends audit events to PostgreSQL through database/sql. The
// driver (lib/pq) is registered by the binary that opens the pool.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
    id         UUID PRIMARY KEY,
    kind       TEXT NOT NULL,
    receipt_id UUID,
    body       JSONB NOT NULL,
    at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_events_receipt_idx ON audit_events (receipt_id);
`

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, kind, receipt_id, body, at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.Kind, nullableUUID(event.ReceiptID), body, event.At,
	)
	return err
}

func (s *PostgresStore) ListByReceipt(ctx context.Context, receiptID uuid.UUID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM audit_events WHERE receipt_id = $1 ORDER BY at`, receiptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var e Event
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, fmt.Errorf("unmarshal audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullableUUID(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}
