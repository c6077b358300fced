package repository

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/medflow/medstock/pkg/database"
	apperrors "github.com/medflow/medstock/pkg/errors"
	"github.com/medflow/medstock/pkg/logger"
	"github.com/medflow/medstock/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItemRepo(t *testing.T) (*ItemRepository, *database.DB, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	db := database.Wrap(mockDB.DB, logger.NewWithWriter("test", io.Discard))
	return NewItemRepository(db), db, mockDB
}

var itemCols = []string{"id", "drug_code", "drug_name", "barcode", "quantity", "expiry_date", "category"}

func TestCategory(t *testing.T) {
	assert.Len(t, Categories(), 6)
	for _, c := range Categories() {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Category("Snacks").Valid())
	assert.False(t, Category("").Valid())
	assert.Equal(t, "Emergency Medication", CategoryEmergencyMedication.DisplayName())
	assert.Equal(t, "Burns/Dressings", CategoryBurnsDressings.DisplayName())
}

func TestList_Filters(t *testing.T) {
	tests := []struct {
		name   string
		filter string
		sql    string
		args   []driver.Value
	}{
		{"no filter", FilterNone, `WHERE category = $1 ORDER BY drug_name ASC, id ASC`, []driver.Value{"PPE"}},
		{"low stock", FilterLowStock, `AND quantity < $2 ORDER BY`, []driver.Value{"PPE", 20}},
		{"expiring soon", FilterExpiringSoon, `BETWEEN $2::date AND $2::date + $3::int`, []driver.Value{"PPE", "2026-10-15", 90}},
		{"expired", FilterExpired, `expiry_date < $2::date`, []driver.Value{"PPE", "2026-10-15"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _, mockDB := newItemRepo(t)

			mockDB.ExpectQuery(tt.sql).
				WithArgs(tt.args...).
				WillReturnRows(testutil.MockRows(itemCols...).
					AddRow(1, "G-1", "Gloves", nil, 10, "2026-11-01", "PPE"))

			items, err := repo.List(context.Background(), ListQuery{
				Category:          CategoryPPE,
				Filter:            tt.filter,
				Today:             "2026-10-15",
				LowStockThreshold: 20,
				ExpiryWindowDays:  90,
			})
			require.NoError(t, err)
			require.Len(t, items, 1)
			assert.Nil(t, items[0].Barcode)
			require.NotNil(t, items[0].ExpiryDate)
			assert.Equal(t, "2026-11-01", *items[0].ExpiryDate)
			mockDB.ExpectationsWereMet(t)
		})
	}
}

func TestList_UnknownFilter(t *testing.T) {
	repo, _, _ := newItemRepo(t)

	_, err := repo.List(context.Background(), ListQuery{Category: CategoryPPE, Filter: "cheap"})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestList_EmptyIsNotNil(t *testing.T) {
	repo, _, mockDB := newItemRepo(t)
	mockDB.ExpectQuery(`FROM drugs WHERE category = $1`).WillReturnRows(testutil.MockRows(itemCols...))

	items, err := repo.List(context.Background(), ListQuery{Category: CategoryAirway})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestDelete_NotFound(t *testing.T) {
	repo, _, mockDB := newItemRepo(t)
	mockDB.ExpectExec(`DELETE FROM drugs WHERE id = $1`).WithArgs(int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 99)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestGetForUpdate_NotFound(t *testing.T) {
	repo, db, mockDB := newItemRepo(t)
	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`FROM drugs WHERE id = $1 FOR UPDATE`).WithArgs(int64(5)).WillReturnRows(testutil.MockRows(itemCols...))
	mockDB.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	_, err = repo.GetForUpdate(context.Background(), tx, 5)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, tx.Rollback())
	mockDB.ExpectationsWereMet(t)
}

func TestInsert_DuplicateCodeIsConflict(t *testing.T) {
	repo, db, mockDB := newItemRepo(t)
	mockDB.ExpectBegin()
	mockDB.ExpectQuery(`INSERT INTO drugs`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "drugs_code_category_key"})
	mockDB.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	_, err = repo.Insert(context.Background(), tx, &ItemFields{Code: "G-1", Name: "Gloves", Quantity: 1, Category: CategoryPPE})
	require.NoError(t, tx.Rollback())

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
	assert.Equal(t, "an item with this code already exists in this category", appErr.Message)
}
