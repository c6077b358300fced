package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/medflow/medstock/pkg/database"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionInitialAdd TransactionType = "Initial Add"
	TransactionWithdrawal TransactionType = "Withdrawal"
	TransactionUpdate     TransactionType = "Update"
)

// Transaction is one append-only ledger entry
type Transaction struct {
	ID             int64           `db:"id" json:"id"`
	DrugID         int64           `db:"drug_id" json:"drug_id"`
	Type           TransactionType `db:"type" json:"type"`
	QuantityChange int             `db:"quantity_change" json:"quantity_change"`
	Notes          *string         `db:"notes" json:"notes"`
	Timestamp      time.Time       `db:"timestamp" json:"timestamp"`
}

// TransactionRepository appends to and reads the stock ledger
type TransactionRepository struct {
	db *database.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Append writes a ledger entry inside tx
func (r *TransactionRepository) Append(ctx context.Context, tx *sqlx.Tx, t *Transaction) error {
	query := `
		INSERT INTO transactions (drug_id, type, quantity_change, notes)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := tx.ExecContext(ctx, query, t.DrugID, string(t.Type), t.QuantityChange, t.Notes); err != nil {
		return mapWriteError(err, "failed to append ledger entry")
	}
	return nil
}
