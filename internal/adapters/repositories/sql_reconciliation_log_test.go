package repositories

import (
	"context"
	"errors"
	"logistics-route-service/internal/domain"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconciliationLogAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	carrier, order, line := 11, 7, 501
	outcomes := []domain.ReconcileOutcome{
		{RouteID: 1, RouteName: "R1", CarrierID: &carrier, PurchaseOrderID: &order, PurchaseLineID: &line, Action: domain.ActionCreatedLine},
		{RouteID: 2, RouteName: "", Action: domain.ActionSkipped, Error: "missing carrier"},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO reconciliation_outcomes"))
	prep.ExpectExec().
		WithArgs("run-1", 1, "R1", 11, 7, 501, "created_line", "").
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs("run-1", 2, "", nil, nil, nil, "skipped", "missing carrier").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	log := NewSQLReconciliationLog(db)
	require.NoError(t, log.Append(context.Background(), "run-1", outcomes))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationLogAppendRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO reconciliation_outcomes")).
		ExpectExec().
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	log := NewSQLReconciliationLog(db)
	err = log.Append(context.Background(), "run-1", []domain.ReconcileOutcome{{RouteID: 3, Action: domain.ActionError}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "route=3")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationLogAppendNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, NewSQLReconciliationLog(db).Append(context.Background(), "run-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciliationLogRecent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"run_id", "recorded_at", "route_id", "route_name", "carrier_id",
		"purchase_order_id", "purchase_line_id", "action", "error",
	}).
		AddRow("run-2", at, 1, "R1", 11, 7, nil, "marked_existing_line", "").
		AddRow("run-1", at.Add(-time.Hour), 2, "R2", nil, nil, nil, "no_order_found", "")

	mock.ExpectQuery(regexp.QuoteMeta("FROM reconciliation_outcomes")).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := NewSQLReconciliationLog(db).Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "run-2", got[0].RunID)
	assert.Equal(t, domain.ActionMarkedExistingLine, got[0].Action)
	require.NotNil(t, got[0].PurchaseOrderID)
	assert.Equal(t, 7, *got[0].PurchaseOrderID)
	assert.Nil(t, got[0].PurchaseLineID)
	assert.Nil(t, got[1].CarrierID)
	assert.True(t, got[1].RecordedAt.Equal(at.Add(-time.Hour)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS route_distance_cache")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS reconciliation_outcomes")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE INDEX IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, InitSchema(db))
	require.NoError(t, mock.ExpectationsWereMet())
}
