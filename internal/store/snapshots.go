package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetSnapshot returns the stored export payload of an estimate. The payload is
// returned undecoded so callers can decide how to treat corrupt data.
func (s *Store) GetSnapshot(ctx context.Context, estimateID string) ([]byte, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload FROM export_snapshots WHERE estimate_id = ?
	`, estimateID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query snapshot: %w", err)
	}
	return []byte(payload), true, nil
}

// PutSnapshot stores or replaces the export payload of an estimate.
func (s *Store) PutSnapshot(ctx context.Context, estimateID string, payload []byte) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO export_snapshots (estimate_id, payload, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(estimate_id) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at
	`, estimateID, string(payload)); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (s *Store) DeleteSnapshot(ctx context.Context, estimateID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM export_snapshots WHERE estimate_id = ?`, estimateID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
