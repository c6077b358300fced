package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/medflow/medstock/internal/inventory/events"
	"github.com/medflow/medstock/internal/inventory/repository"
	"github.com/medflow/medstock/pkg/config"
	"github.com/medflow/medstock/pkg/database"
	apperrors "github.com/medflow/medstock/pkg/errors"
	"github.com/medflow/medstock/pkg/httputil"
	"github.com/medflow/medstock/pkg/logger"
	"github.com/medflow/medstock/pkg/metrics"
)

const (
	noteInitialStock     = "Initial stock entry"
	noteQuantityUnchange = "Item details updated (quantity unchanged)"
	ledgerSavepoint      = "ledger_entry"
	dateLayout           = "2006-01-02"
)

// Ledger operation names used for metrics and logs
const (
	opAdd      = "add"
	opWithdraw = "withdraw"
	opUpdate   = "update"
	opDelete   = "delete"
	opList     = "list"
)

// ItemInput is the client's view of an item's mutable fields
type ItemInput struct {
	Code       string `json:"drugCode" validate:"required,max=100"`
	Name       string `json:"drugName" validate:"required,max=255"`
	Barcode    string `json:"barcode" validate:"max=100"`
	Quantity   *int   `json:"quantity" validate:"required,min=0,max=2147483647"`
	ExpiryDate string `json:"expiryDate" validate:"omitempty,datetime=2006-01-02"`
	Category   string `json:"category" validate:"required,category"`
}

func (in *ItemInput) fields() *repository.ItemFields {
	f := &repository.ItemFields{
		Code:     in.Code,
		Name:     in.Name,
		Quantity: *in.Quantity,
		Category: repository.Category(in.Category),
	}
	if in.Barcode != "" {
		f.Barcode = &in.Barcode
	}
	if in.ExpiryDate != "" {
		f.ExpiryDate = &in.ExpiryDate
	}
	return f
}

// LedgerService performs every stock mutation together with its audit entry
type LedgerService struct {
	db        *database.DB
	items     *repository.ItemRepository
	ledger    *repository.TransactionRepository
	cfg       config.InventoryConfig
	publisher *events.InventoryEventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    *logger.Logger
}

// NewLedgerService creates a new ledger service. publisher and m may be nil.
func NewLedgerService(
	db *database.DB,
	items *repository.ItemRepository,
	ledger *repository.TransactionRepository,
	cfg *config.InventoryConfig,
	publisher *events.InventoryEventPublisher,
	m *metrics.Metrics,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		db:        db,
		items:     items,
		ledger:    ledger,
		cfg:       *cfg,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
		logger:    log.WithComponent("ledger"),
	}
}

// SetClock replaces the clock used to decide what "today" is
func (s *LedgerService) SetClock(now func() time.Time) {
	s.now = now
}

// AddItem creates an item and its Initial Add ledger entry
func (s *LedgerService) AddItem(ctx context.Context, in *ItemInput) (id int64, err error) {
	defer s.record(opAdd, &err)

	if err := httputil.Validate(in); err != nil {
		return 0, err
	}
	f := in.fields()

	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		id, err = s.items.Insert(ctx, tx, f)
		if err != nil {
			return err
		}

		return s.appendEntry(ctx, tx, &repository.Transaction{
			DrugID:         id,
			Type:           repository.TransactionInitialAdd,
			QuantityChange: f.Quantity,
			Notes:          strPtr(noteInitialStock),
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("item_id", id).Str("category", f.Category.DisplayName()).Int("quantity", f.Quantity).Msg("item added")
	s.publisher.PublishItemAdded(ctx, id, f)
	return id, nil
}

// Withdraw removes amount units from an item and returns the new quantity
func (s *LedgerService) Withdraw(ctx context.Context, id int64, amount int, notes string) (newQuantity int, err error) {
	defer s.record(opWithdraw, &err)

	if amount <= 0 {
		return 0, apperrors.ValidationMessage("Withdrawal quantity must be greater than zero.")
	}

	var item *repository.Item
	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		item, err = s.items.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if amount > item.Quantity {
			return apperrors.InsufficientStock()
		}

		item.Quantity -= amount
		if err := s.items.SetQuantity(ctx, tx, id, item.Quantity); err != nil {
			return err
		}

		var n *string
		if notes != "" {
			n = &notes
		}
		return s.appendEntry(ctx, tx, &repository.Transaction{
			DrugID:         id,
			Type:           repository.TransactionWithdrawal,
			QuantityChange: -amount,
			Notes:          n,
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info().Int64("item_id", id).Int("amount", amount).Int("new_quantity", item.Quantity).Msg("stock withdrawn")
	s.publisher.PublishStockWithdrawn(ctx, item, amount, notes)
	s.checkLowStock(ctx, id, item.Name, repository.Category(item.Category), item.Quantity)
	return item.Quantity, nil
}

// UpdateItem overwrites an item's fields and records the quantity delta
func (s *LedgerService) UpdateItem(ctx context.Context, id int64, in *ItemInput) (err error) {
	defer s.record(opUpdate, &err)

	if err := httputil.Validate(in); err != nil {
		return err
	}
	f := in.fields()

	var change int
	err = s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		old, err := s.items.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := s.items.Update(ctx, tx, id, f); err != nil {
			return err
		}

		change = f.Quantity - old.Quantity
		note := noteQuantityUnchange
		if change != 0 {
			note = fmt.Sprintf("Quantity updated from %d to %d", old.Quantity, f.Quantity)
		}

		return s.appendEntry(ctx, tx, &repository.Transaction{
			DrugID:         id,
			Type:           repository.TransactionUpdate,
			QuantityChange: change,
			Notes:          &note,
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info().Int64("item_id", id).Int("quantity_change", change).Msg("item updated")
	s.publisher.PublishItemUpdated(ctx, id, f, change)
	s.checkLowStock(ctx, id, f.Name, f.Category, f.Quantity)
	return nil
}

// DeleteItem removes an item together with its ledger history
func (s *LedgerService) DeleteItem(ctx context.Context, id int64) (err error) {
	defer s.record(opDelete, &err)

	if err := s.items.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Int64("item_id", id).Msg("item deleted")
	s.publisher.PublishItemDeleted(ctx, id)
	return nil
}

// ListItems returns a category's items, optionally narrowed by filter
func (s *LedgerService) ListItems(ctx context.Context, category, filter string) (items []repository.Item, err error) {
	defer s.record(opList, &err)

	c, err := parseCategory(category)
	if err != nil {
		return nil, err
	}

	return s.items.List(ctx, repository.ListQuery{
		Category:          c,
		Filter:            filter,
		Today:             s.now().Format(dateLayout),
		LowStockThreshold: s.cfg.LowStockThreshold,
		ExpiryWindowDays:  s.cfg.ExpiryWindowDays,
	})
}

// appendEntry writes the ledger entry according to the audit mode.
// In best-effort mode a failed append is rolled back to a savepoint and the
// stock mutation still commits.
func (s *LedgerService) appendEntry(ctx context.Context, tx *sqlx.Tx, entry *repository.Transaction) error {
	if s.cfg.AuditMode != config.AuditModeBestEffort {
		return s.ledger.Append(ctx, tx, entry)
	}

	err := database.Savepoint(ctx, tx, ledgerSavepoint, func() error {
		return s.ledger.Append(ctx, tx, entry)
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Int64("item_id", entry.DrugID).
			Str("type", string(entry.Type)).
			Msg("ledger entry skipped")
		s.metrics.AuditEntrySkipped()
	}
	return nil
}

func (s *LedgerService) checkLowStock(ctx context.Context, id int64, name string, category repository.Category, quantity int) {
	if quantity < s.cfg.LowStockThreshold {
		s.publisher.PublishStockLow(ctx, id, name, category, quantity, s.cfg.LowStockThreshold)
	}
}

func (s *LedgerService) record(operation string, err *error) {
	outcome := outcomeOf(*err)
	s.metrics.LedgerOperation(operation, outcome)
	if outcome == metrics.OutcomeError {
		s.logger.Error().Err(*err).Str("operation", operation).Msg("ledger operation failed")
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case apperrors.Is(err, apperrors.ErrConflict):
		return metrics.OutcomeConflict
	case apperrors.Is(err, apperrors.ErrNotFound):
		return metrics.OutcomeNotFound
	case apperrors.Is(err, apperrors.ErrInsufficientStock):
		return metrics.OutcomeInsufficientStock
	case apperrors.Is(err, apperrors.ErrValidation), apperrors.Is(err, apperrors.ErrBadRequest):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

func parseCategory(category string) (repository.Category, error) {
	if category == "" {
		return "", apperrors.ValidationMessage("Category is required.")
	}

	c := repository.Category(category)
	if !c.Valid() {
		return "", apperrors.ValidationMessage(fmt.Sprintf("unknown category %q", category))
	}
	return c, nil
}

func strPtr(s string) *string {
	return &s
}
