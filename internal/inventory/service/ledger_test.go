package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/medflow/medstock/internal/inventory/events"
	"github.com/medflow/medstock/internal/inventory/repository"
	"github.com/medflow/medstock/pkg/config"
	"github.com/medflow/medstock/pkg/database"
	apperrors "github.com/medflow/medstock/pkg/errors"
	"github.com/medflow/medstock/pkg/logger"
	"github.com/medflow/medstock/pkg/messaging"
	"github.com/medflow/medstock/pkg/metrics"
	"github.com/medflow/medstock/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemCols = []string{"id", "drug_code", "drug_name", "barcode", "quantity", "expiry_date", "category"}

type ledgerFixture struct {
	svc       *LedgerService
	mock      *testutil.MockDB
	publisher *testutil.MockPublisher
	metrics   *metrics.Metrics
}

func newLedger(t *testing.T, auditMode string) *ledgerFixture {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.NewWithWriter("test", io.Discard)
	db := database.Wrap(mockDB.DB, log)
	pub := testutil.NewMockPublisher()
	m := metrics.New("medstock")

	svc := NewLedgerService(
		db,
		repository.NewItemRepository(db),
		repository.NewTransactionRepository(db),
		&config.InventoryConfig{LowStockThreshold: 20, ExpiryWindowDays: 90, AuditMode: auditMode},
		events.NewWithPublisher(pub, log),
		m,
		log,
	)
	svc.SetClock(testutil.FixedClock(2026, 10, 15))

	return &ledgerFixture{svc: svc, mock: mockDB, publisher: pub, metrics: m}
}

func (f *ledgerFixture) expectLockedItem(id int64, quantity int) {
	f.mock.ExpectQuery(`FROM drugs WHERE id = $1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(testutil.MockRows(itemCols...).
			AddRow(id, "G-1", "Gloves", nil, quantity, nil, "PPE"))
}

func (f *ledgerFixture) scrape(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	f.metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Body.String()
}

func intPtr(i int) *int { return &i }

func glovesInput(quantity int) *ItemInput {
	return &ItemInput{Code: "G-1", Name: "Gloves", Quantity: intPtr(quantity), Category: "PPE"}
}

func TestAddItem(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`INSERT INTO drugs`).
		WithArgs("G-1", "Gloves", nil, 50, nil, "PPE").
		WillReturnRows(testutil.MockRows("id").AddRow(7))
	f.mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(int64(7), "Initial Add", 50, "Initial stock entry").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	id, err := f.svc.AddItem(context.Background(), glovesInput(50))

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	f.publisher.AssertEventPublished(t, messaging.EventItemAdded)
	f.mock.ExpectationsWereMet(t)
	assert.Contains(t, f.scrape(t), `medstock_ledger_operations_total{operation="add",outcome="success"} 1`)
}

func TestAddItem_Validation(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	tests := []struct {
		name  string
		in    *ItemInput
		field string
	}{
		{"missing code", &ItemInput{Name: "Gloves", Quantity: intPtr(1), Category: "PPE"}, "drugCode"},
		{"missing quantity", &ItemInput{Code: "G-1", Name: "Gloves", Category: "PPE"}, "quantity"},
		{"negative quantity", &ItemInput{Code: "G-1", Name: "Gloves", Quantity: intPtr(-1), Category: "PPE"}, "quantity"},
		{"quantity beyond column range", &ItemInput{Code: "G-1", Name: "Gloves", Quantity: intPtr(3000000000), Category: "PPE"}, "quantity"},
		{"unknown category", &ItemInput{Code: "G-1", Name: "Gloves", Quantity: intPtr(1), Category: "Snacks"}, "category"},
		{"bad expiry", &ItemInput{Code: "G-1", Name: "Gloves", Quantity: intPtr(1), Category: "PPE", ExpiryDate: "31/12/2026"}, "expiryDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddItem(context.Background(), tt.in)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
			assert.Contains(t, appErr.Details, tt.field)
		})
	}

	f.publisher.AssertNoEventsPublished(t)
	f.mock.ExpectationsWereMet(t)
}

func TestWithdraw_LowStockEvent(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	f.mock.ExpectBegin()
	f.expectLockedItem(3, 40)
	f.mock.ExpectExec(`UPDATE drugs SET quantity = $1 WHERE id = $2`).
		WithArgs(15, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(int64(3), "Withdrawal", -25, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()

	q, err := f.svc.Withdraw(context.Background(), 3, 25, "")

	require.NoError(t, err)
	assert.Equal(t, 15, q)
	f.publisher.AssertEventPublished(t, messaging.EventStockWithdrawn)
	low := f.publisher.EventsOfType(messaging.EventStockLow)
	require.Len(t, low, 1)
	assert.Equal(t, 15, low[0].Payload.(messaging.StockLowEvent).Quantity)
	f.mock.ExpectationsWereMet(t)
}

func TestWithdraw_InvalidAmount(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	for _, amount := range []int{0, -3} {
		_, err := f.svc.Withdraw(context.Background(), 3, amount, "")

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Withdrawal quantity must be greater than zero.", appErr.Message)
	}
	f.mock.ExpectationsWereMet(t)
}

func TestWithdraw_InsufficientStockRollsBack(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	f.mock.ExpectBegin()
	f.expectLockedItem(3, 5)
	f.mock.ExpectRollback()

	_, err := f.svc.Withdraw(context.Background(), 3, 6, "")

	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))
	f.publisher.AssertNoEventsPublished(t)
	f.mock.ExpectationsWereMet(t)
	assert.Contains(t, f.scrape(t), `outcome="insufficient_stock"`)
}

func TestWithdraw_NotFound(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	f.mock.ExpectBegin()
	f.mock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(99)).WillReturnRows(testutil.MockRows(itemCols...))
	f.mock.ExpectRollback()

	_, err := f.svc.Withdraw(context.Background(), 99, 1, "")

	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	f.mock.ExpectationsWereMet(t)
}

func TestWithdraw_StrictAuditFailureRollsBack(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	f.mock.ExpectBegin()
	f.expectLockedItem(3, 50)
	f.mock.ExpectExec(`UPDATE drugs SET quantity`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`INSERT INTO transactions`).WillReturnError(errors.New("disk full"))
	f.mock.ExpectRollback()

	_, err := f.svc.Withdraw(context.Background(), 3, 10, "")

	require.Error(t, err)
	f.publisher.AssertNoEventsPublished(t)
	f.mock.ExpectationsWereMet(t)
	assert.Contains(t, f.scrape(t), `medstock_ledger_operations_total{operation="withdraw",outcome="error"} 1`)
}

func TestWithdraw_BestEffortAuditFailureCommits(t *testing.T) {
	f := newLedger(t, config.AuditModeBestEffort)

	f.mock.ExpectBegin()
	f.expectLockedItem(3, 50)
	f.mock.ExpectExec(`UPDATE drugs SET quantity`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`SAVEPOINT ledger_entry`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec(`INSERT INTO transactions`).WillReturnError(errors.New("disk full"))
	f.mock.ExpectExec(`ROLLBACK TO SAVEPOINT ledger_entry`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectCommit()

	q, err := f.svc.Withdraw(context.Background(), 3, 10, "ward 3")

	require.NoError(t, err)
	assert.Equal(t, 40, q)
	f.publisher.AssertEventPublished(t, messaging.EventStockWithdrawn)
	f.mock.ExpectationsWereMet(t)
	assert.Contains(t, f.scrape(t), `medstock_ledger_audit_entries_skipped_total 1`)
}

func TestWithdraw_BestEffortReleasesSavepoint(t *testing.T) {
	f := newLedger(t, config.AuditModeBestEffort)

	f.mock.ExpectBegin()
	f.expectLockedItem(3, 50)
	f.mock.ExpectExec(`UPDATE drugs SET quantity`).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`SAVEPOINT ledger_entry`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectExec(`INSERT INTO transactions`).
		WithArgs(int64(3), "Withdrawal", -10, "ward 3").
		WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectExec(`RELEASE SAVEPOINT ledger_entry`).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectCommit()

	_, err := f.svc.Withdraw(context.Background(), 3, 10, "ward 3")

	require.NoError(t, err)
	f.mock.ExpectationsWereMet(t)
}

func TestUpdateItem_Notes(t *testing.T) {
	tests := []struct {
		name     string
		old, new int
		change   int
		note     string
	}{
		{"quantity changed", 50, 45, -5, "Quantity updated from 50 to 45"},
		{"quantity unchanged", 50, 50, 0, "Item details updated (quantity unchanged)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedger(t, config.AuditModeStrict)

			f.mock.ExpectBegin()
			f.expectLockedItem(3, tt.old)
			f.mock.ExpectExec(`UPDATE drugs SET drug_code = $1`).
				WithArgs("G-1", "Gloves", nil, tt.new, nil, "PPE", int64(3)).
				WillReturnResult(sqlmock.NewResult(0, 1))
			f.mock.ExpectExec(`INSERT INTO transactions`).
				WithArgs(int64(3), "Update", tt.change, tt.note).
				WillReturnResult(sqlmock.NewResult(0, 1))
			f.mock.ExpectCommit()

			require.NoError(t, f.svc.UpdateItem(context.Background(), 3, glovesInput(tt.new)))
			f.mock.ExpectationsWereMet(t)
		})
	}
}

func TestDeleteItem_NotFound(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	f.mock.ExpectExec(`DELETE FROM drugs WHERE id = $1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := f.svc.DeleteItem(context.Background(), 5)

	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	f.publisher.AssertNoEventsPublished(t)
	f.mock.ExpectationsWereMet(t)
}

func TestListItems_Category(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	_, err := f.svc.ListItems(context.Background(), "", "")
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Category is required.", appErr.Message)

	_, err = f.svc.ListItems(context.Background(), "Snacks", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	f.mock.ExpectationsWereMet(t)
}

func TestListItems_UsesClock(t *testing.T) {
	f := newLedger(t, config.AuditModeStrict)

	f.mock.ExpectQuery(`expiry_date < $2::date`).
		WithArgs("Airway", "2026-10-15").
		WillReturnRows(testutil.MockRows(itemCols...))

	items, err := f.svc.ListItems(context.Background(), "Airway", repository.FilterExpired)

	require.NoError(t, err)
	assert.Empty(t, items)
	f.mock.ExpectationsWereMet(t)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, metrics.OutcomeSuccess, outcomeOf(nil))
	assert.Equal(t, metrics.OutcomeConflict, outcomeOf(apperrors.Conflict("dup")))
	assert.Equal(t, metrics.OutcomeNotFound, outcomeOf(apperrors.NotFound("item")))
	assert.Equal(t, metrics.OutcomeInvalid, outcomeOf(apperrors.ValidationMessage("x")))
	assert.Equal(t, metrics.OutcomeInsufficientStock, outcomeOf(apperrors.InsufficientStock()))
	assert.Equal(t, metrics.OutcomeError, outcomeOf(errors.New("boom")))
}
