package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/medflow/medstock/pkg/database"
	apperrors "github.com/medflow/medstock/pkg/errors"
)

// Item is a row of the drugs table
type Item struct {
	ID         int64   `db:"id" json:"id"`
	Code       string  `db:"drug_code" json:"drug_code"`
	Name       string  `db:"drug_name" json:"drug_name"`
	Barcode    *string `db:"barcode" json:"barcode"`
	Quantity   int     `db:"quantity" json:"quantity"`
	ExpiryDate *string `db:"expiry_date" json:"expiry_date"`
	Category   string  `db:"category" json:"category"`
}

// ItemFields are the mutable columns of an item. Nil Barcode or ExpiryDate store NULL.
type ItemFields struct {
	Code       string
	Name       string
	Barcode    *string
	Quantity   int
	ExpiryDate *string
	Category   Category
}

// Stock filters
const (
	FilterNone         = ""
	FilterLowStock     = "low_stock"
	FilterExpiringSoon = "expiring_soon"
	FilterExpired      = "expired"
)

// ListQuery selects items of one category, optionally narrowed by a filter
type ListQuery struct {
	Category          Category
	Filter            string
	Today             string
	LowStockThreshold int
	ExpiryWindowDays  int
}

const itemColumns = `id, drug_code, drug_name, barcode, quantity,
	to_char(expiry_date, 'YYYY-MM-DD') AS expiry_date, category`

// ItemRepository handles stock item persistence
type ItemRepository struct {
	db *database.DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *database.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Insert creates an item inside tx and returns its id
func (r *ItemRepository) Insert(ctx context.Context, tx *sqlx.Tx, f *ItemFields) (int64, error) {
	query := `
		INSERT INTO drugs (drug_code, drug_name, barcode, quantity, expiry_date, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := tx.QueryRowxContext(ctx, query, f.Code, f.Name, f.Barcode, f.Quantity, f.ExpiryDate, string(f.Category)).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err, "failed to insert item")
	}
	return id, nil
}

// GetForUpdate reads an item and holds its row lock until tx ends
func (r *ItemRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*Item, error) {
	var item Item
	query := `SELECT ` + itemColumns + ` FROM drugs WHERE id = $1 FOR UPDATE`

	if err := tx.GetContext(ctx, &item, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("item")
		}
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}
	return &item, nil
}

// SetQuantity overwrites the on-hand quantity
func (r *ItemRepository) SetQuantity(ctx context.Context, tx *sqlx.Tx, id int64, quantity int) error {
	if _, err := tx.ExecContext(ctx, `UPDATE drugs SET quantity = $1 WHERE id = $2`, quantity, id); err != nil {
		return mapWriteError(err, "failed to update quantity")
	}
	return nil
}

// Update overwrites every mutable column
func (r *ItemRepository) Update(ctx context.Context, tx *sqlx.Tx, id int64, f *ItemFields) error {
	query := `
		UPDATE drugs
		SET drug_code = $1, drug_name = $2, barcode = $3, quantity = $4, expiry_date = $5, category = $6
		WHERE id = $7
	`

	if _, err := tx.ExecContext(ctx, query, f.Code, f.Name, f.Barcode, f.Quantity, f.ExpiryDate, string(f.Category), id); err != nil {
		return mapWriteError(err, "failed to update item")
	}
	return nil
}

// Delete removes an item; its ledger rows go with it through the FK cascade
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM drugs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("item")
	}
	return nil
}

// List returns the items of a category ordered by name
func (r *ItemRepository) List(ctx context.Context, q ListQuery) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM drugs WHERE category = $1`
	args := []interface{}{string(q.Category)}

	switch q.Filter {
	case FilterNone:
	case FilterLowStock:
		query += ` AND quantity < $2`
		args = append(args, q.LowStockThreshold)
	case FilterExpiringSoon:
		query += ` AND expiry_date IS NOT NULL AND expiry_date BETWEEN $2::date AND $2::date + $3::int`
		args = append(args, q.Today, q.ExpiryWindowDays)
	case FilterExpired:
		query += ` AND expiry_date IS NOT NULL AND expiry_date < $2::date`
		args = append(args, q.Today)
	default:
		return nil, apperrors.ValidationMessage(fmt.Sprintf("unknown filter %q", q.Filter))
	}

	query += ` ORDER BY drug_name ASC, id ASC`

	items := []Item{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

func mapWriteError(err error, msg string) error {
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return fmt.Errorf("%s: %w", msg, err)
}
