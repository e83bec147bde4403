package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the Postgres schema used for the distance cache and the
// reconciliation audit trail. Route and load records live in the registries.
func InitSchema(db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS route_distance_cache (
		cache_key TEXT PRIMARY KEY,
		distance_meters DOUBLE PRECISION NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createOutcomesQuery := `
	CREATE TABLE IF NOT EXISTS reconciliation_outcomes (
		id BIGSERIAL PRIMARY KEY,
		run_id TEXT NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		route_id INTEGER NOT NULL,
		route_name TEXT NOT NULL,
		carrier_id INTEGER,
		purchase_order_id INTEGER,
		purchase_line_id INTEGER,
		action TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_reconciliation_outcomes_route_recorded
	ON reconciliation_outcomes(route_id, recorded_at DESC);
	`

	statements := []string{
		createDistanceCacheQuery,
		createOutcomesQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
