package ports

import (
	"context"
	"logistics-route-service/internal/domain"
	"time"
)

// LoggedOutcome is a stored reconciliation outcome.
type LoggedOutcome struct {
	RunID      string
	RecordedAt time.Time
	domain.ReconcileOutcome
}

// ReconciliationLog is the audit trail of reconciliation runs.
type ReconciliationLog interface {
	Append(ctx context.Context, runID string, outcomes []domain.ReconcileOutcome) error
	Recent(ctx context.Context, limit int) ([]LoggedOutcome, error)
}
