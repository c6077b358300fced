package repository

import (
	"context"
	"fmt"

	"github.com/medflow/medstock/pkg/database"
)

// CategoryCount is the number of items in one category
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int    `db:"count" json:"count"`
}

// StockRow is one line of the current-stock report
type StockRow struct {
	Code       string `db:"drug_code"`
	Name       string `db:"drug_name"`
	Barcode    string `db:"barcode"`
	Quantity   int    `db:"quantity"`
	ExpiryDate string `db:"expiry_date"`
}

// TransactionRow is one line of the transaction-history report
type TransactionRow struct {
	Timestamp      string `db:"timestamp"`
	ItemName       string `db:"drug_name"`
	ItemCode       string `db:"drug_code"`
	Barcode        string `db:"barcode"`
	Type           string `db:"type"`
	QuantityChange int    `db:"quantity_change"`
	Notes          string `db:"notes"`
}

// ReportRepository runs read-only aggregate queries
type ReportRepository struct {
	db *database.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// CountLowStock counts items below threshold across all categories
func (r *ReportRepository) CountLowStock(ctx context.Context, threshold int) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM drugs WHERE quantity < $1`, threshold); err != nil {
		return 0, fmt.Errorf("failed to count low stock: %w", err)
	}
	return n, nil
}

// CountExpiringSoon counts items expiring between today and today+windowDays inclusive
func (r *ReportRepository) CountExpiringSoon(ctx context.Context, today string, windowDays int) (int, error) {
	query := `
		SELECT COUNT(*) FROM drugs
		WHERE expiry_date IS NOT NULL AND expiry_date BETWEEN $1::date AND $1::date + $2::int
	`

	var n int
	if err := r.db.GetContext(ctx, &n, query, today, windowDays); err != nil {
		return 0, fmt.Errorf("failed to count expiring items: %w", err)
	}
	return n, nil
}

// CategoryCounts returns the item count per category
func (r *ReportRepository) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	query := `SELECT category, COUNT(*) AS count FROM drugs GROUP BY category ORDER BY category`

	counts := []CategoryCount{}
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	return counts, nil
}

// StockReport returns the current stock of a category
func (r *ReportRepository) StockReport(ctx context.Context, category Category) ([]StockRow, error) {
	query := `
		SELECT drug_code, drug_name, COALESCE(barcode, '') AS barcode, quantity,
		       COALESCE(to_char(expiry_date, 'YYYY-MM-DD'), '') AS expiry_date
		FROM drugs
		WHERE category = $1
		ORDER BY drug_name ASC, id ASC
	`

	rows := []StockRow{}
	if err := r.db.SelectContext(ctx, &rows, query, string(category)); err != nil {
		return nil, fmt.Errorf("failed to build stock report: %w", err)
	}
	return rows, nil
}

// TransactionReport returns the ledger of a category, newest first
func (r *ReportRepository) TransactionReport(ctx context.Context, category Category) ([]TransactionRow, error) {
	query := `
		SELECT to_char(t.timestamp, 'YYYY-MM-DD HH24:MI:SS') AS timestamp,
		       d.drug_name, d.drug_code, COALESCE(d.barcode, '') AS barcode,
		       t.type, t.quantity_change, COALESCE(t.notes, '') AS notes
		FROM transactions t
		JOIN drugs d ON d.id = t.drug_id
		WHERE d.category = $1
		ORDER BY t.timestamp DESC, t.id DESC
	`

	rows := []TransactionRow{}
	if err := r.db.SelectContext(ctx, &rows, query, string(category)); err != nil {
		return nil, fmt.Errorf("failed to build transaction report: %w", err)
	}
	return rows, nil
}
