package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/pricing"
)

// ListCoefficients returns the whole catalog ordered by kind, then name.
func (s *Store) ListCoefficients(ctx context.Context) ([]pricing.Coefficient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, value, kind
		FROM coefficients
		ORDER BY kind, name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query coefficients: %w", err)
	}
	defer rows.Close()

	catalog := make([]pricing.Coefficient, 0)
	for rows.Next() {
		var c pricing.Coefficient
		var kind string
		if err := rows.Scan(&c.ID, &c.Name, &c.Value, &kind); err != nil {
			return nil, fmt.Errorf("scan coefficient: %w", err)
		}
		c.Kind = pricing.Kind(kind)
		catalog = append(catalog, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coefficients: %w", err)
	}

	return catalog, nil
}

func (s *Store) GetCoefficient(ctx context.Context, id string) (pricing.Coefficient, error) {
	var c pricing.Coefficient
	var kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, value, kind FROM coefficients WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Value, &kind)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.Coefficient{}, fmt.Errorf("coefficient %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return pricing.Coefficient{}, fmt.Errorf("query coefficient: %w", err)
	}
	c.Kind = pricing.Kind(kind)
	return c, nil
}

// CreateCoefficient validates and inserts a catalog entry, generating an ID when empty.
func (s *Store) CreateCoefficient(ctx context.Context, c pricing.Coefficient) (pricing.Coefficient, error) {
	c.ID = ensureID(c.ID)
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return pricing.Coefficient{}, err
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO coefficients (id, name, value, kind)
		VALUES (?, ?, ?, ?)
	`, c.ID, c.Name, c.Value, string(c.Kind)); err != nil {
		return pricing.Coefficient{}, fmt.Errorf("insert coefficient: %w", err)
	}
	return c, nil
}

// UpdateCoefficient edits the live catalog. Frozen export snapshots are not touched.
func (s *Store) UpdateCoefficient(ctx context.Context, c pricing.Coefficient) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE coefficients
		SET
			name = ?,
			value = ?,
			kind = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, c.Name, c.Value, string(c.Kind), c.ID)
	if err != nil {
		return fmt.Errorf("update coefficient: %w", err)
	}
	return requireAffected(result, "update coefficient "+c.ID)
}

// DeleteCoefficient removes a catalog entry. Estimates that selected it keep the
// reference; pricing then treats it as a multiplier of 1.
func (s *Store) DeleteCoefficient(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM coefficients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete coefficient: %w", err)
	}
	return requireAffected(result, "delete coefficient "+id)
}
