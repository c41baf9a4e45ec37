package seed

import (
	"database/sql"
	"fmt"
)

// Config contains the values required by startup seed.
type Config struct {
	// Demo adds two sample estimates, one per estimate variant.
	Demo bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type coefficient struct {
	id    string
	name  string
	value float64
	kind  string
}

var defaultCatalog = []coefficient{
	{id: "contractor-markup", name: "Наценка подрядчика", value: 1.1, kind: "normal"},
	{id: "complex-object", name: "Сложный объект", value: 1.15, kind: "normal"},
	{id: "client-discount", name: "Скидка клиенту", value: 0.95, kind: "final"},
}

// Run executes the startup seed in an idempotent way. Existing rows are never
// overwritten, so catalog edits made through the admin API survive restarts.
func Run(db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	for _, c := range defaultCatalog {
		if err := ensureCoefficient(tx, c, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	if cfg.Demo {
		for _, e := range demoEstimates() {
			if err := ensureEstimate(tx, e, &stats); err != nil {
				_ = tx.Rollback()
				return Stats{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureCoefficient(tx *sql.Tx, c coefficient, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM coefficients WHERE id = ? LIMIT 1)`, c.id).Scan(&exists); err != nil {
		return fmt.Errorf("check coefficient %s existence: %w", c.id, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO coefficients (id, name, value, kind)
		VALUES (?, ?, ?, ?)
	`, c.id, c.name, c.value, c.kind); err != nil {
		return fmt.Errorf("insert coefficient %s: %w", c.id, err)
	}
	stats.Inserts++
	return nil
}
