package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/platform/obs"
	"logistics-route-service/internal/ports"
)

// SQLReconciliationLog stores reconciliation outcomes in Postgres.
type SQLReconciliationLog struct {
	DB *sql.DB
}

var _ ports.ReconciliationLog = (*SQLReconciliationLog)(nil)

func NewSQLReconciliationLog(db *sql.DB) *SQLReconciliationLog {
	return &SQLReconciliationLog{DB: db}
}

// Append writes all outcomes of one run in a single transaction.
func (s *SQLReconciliationLog) Append(
	ctx context.Context,
	runID string,
	outcomes []domain.ReconcileOutcome,
) (err error) {
	defer obs.Time(ctx, "reconciliation.log.Append")(&err)

	if s.DB == nil {
		return errors.New("reconciliation log: db is nil")
	}
	if runID == "" {
		return errors.New("append reconciliation log: run id must not be empty")
	}
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append reconciliation log: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO reconciliation_outcomes
		(run_id, route_id, route_name, carrier_id, purchase_order_id, purchase_line_id, action, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`)
	if err != nil {
		return fmt.Errorf("append reconciliation log: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, o := range outcomes {
		_, err := stmt.ExecContext(ctx,
			runID, o.RouteID, o.RouteName,
			nullInt(o.CarrierID), nullInt(o.PurchaseOrderID), nullInt(o.PurchaseLineID),
			string(o.Action), o.Error,
		)
		if err != nil {
			return fmt.Errorf("append reconciliation log route=%d: %w", o.RouteID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append reconciliation log commit: %w", err)
	}

	return nil
}

// Recent returns the latest outcomes, newest first.
func (s *SQLReconciliationLog) Recent(ctx context.Context, limit int) (_ []ports.LoggedOutcome, err error) {
	defer obs.Time(ctx, "reconciliation.log.Recent")(&err)

	if s.DB == nil {
		return nil, errors.New("reconciliation log: db is nil")
	}
	if limit <= 0 {
		limit = 50
	}

	q := `
	SELECT run_id, recorded_at, route_id, route_name, carrier_id, purchase_order_id, purchase_line_id, action, error
	FROM reconciliation_outcomes
	ORDER BY recorded_at DESC, id DESC
	LIMIT $1;
	`

	rows, err := s.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("recent reconciliation log: query: %w", err)
	}
	defer rows.Close()

	out := make([]ports.LoggedOutcome, 0, limit)
	for rows.Next() {
		var (
			rec                  ports.LoggedOutcome
			carrier, order, line sql.NullInt64
			action               string
		)
		if err := rows.Scan(
			&rec.RunID, &rec.RecordedAt, &rec.RouteID, &rec.RouteName,
			&carrier, &order, &line, &action, &rec.Error,
		); err != nil {
			return nil, fmt.Errorf("recent reconciliation log: scan row: %w", err)
		}
		rec.CarrierID = intPtr(carrier)
		rec.PurchaseOrderID = intPtr(order)
		rec.PurchaseLineID = intPtr(line)
		rec.Action = domain.ReconcileAction(action)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent reconciliation log: row iteration: %w", err)
	}

	return out, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
