package events

import (
	"context"

	"github.com/medflow/medstock/internal/inventory/repository"
	"github.com/medflow/medstock/pkg/logger"
	"github.com/medflow/medstock/pkg/messaging"
)

// Publisher sends a typed payload to the event bus
type Publisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// InventoryEventPublisher publishes inventory-related events.
// A nil *InventoryEventPublisher is valid and publishes nothing.
type InventoryEventPublisher struct {
	publisher Publisher
	logger    *logger.Logger
}

// NewInventoryEventPublisher creates a publisher on the given exchange
func NewInventoryEventPublisher(rmq *messaging.RabbitMQ, exchange string, log *logger.Logger) (*InventoryEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, exchange, "medstock", log)
	if err != nil {
		return nil, err
	}

	return NewWithPublisher(publisher, log), nil
}

// NewWithPublisher wraps an existing publisher
func NewWithPublisher(p Publisher, log *logger.Logger) *InventoryEventPublisher {
	return &InventoryEventPublisher{
		publisher: p,
		logger:    log.WithComponent("inventory-events"),
	}
}

// PublishItemAdded publishes an item added event
func (p *InventoryEventPublisher) PublishItemAdded(ctx context.Context, id int64, f *repository.ItemFields) {
	if p == nil {
		return
	}

	p.publish(ctx, messaging.EventItemAdded, id, messaging.ItemAddedEvent{
		ItemID:   id,
		Code:     f.Code,
		Name:     f.Name,
		Category: f.Category.DisplayName(),
		Quantity: f.Quantity,
	})
}

// PublishStockWithdrawn publishes a stock withdrawn event
func (p *InventoryEventPublisher) PublishStockWithdrawn(ctx context.Context, item *repository.Item, amount int, notes string) {
	if p == nil {
		return
	}

	p.publish(ctx, messaging.EventStockWithdrawn, item.ID, messaging.StockWithdrawnEvent{
		ItemID:      item.ID,
		Category:    repository.Category(item.Category).DisplayName(),
		Amount:      amount,
		NewQuantity: item.Quantity,
		Notes:       notes,
	})
}

// PublishItemUpdated publishes an item updated event
func (p *InventoryEventPublisher) PublishItemUpdated(ctx context.Context, id int64, f *repository.ItemFields, change int) {
	if p == nil {
		return
	}

	p.publish(ctx, messaging.EventItemUpdated, id, messaging.ItemUpdatedEvent{
		ItemID:         id,
		Category:       f.Category.DisplayName(),
		QuantityChange: change,
		NewQuantity:    f.Quantity,
	})
}

// PublishItemDeleted publishes an item deleted event
func (p *InventoryEventPublisher) PublishItemDeleted(ctx context.Context, id int64) {
	if p == nil {
		return
	}

	p.publish(ctx, messaging.EventItemDeleted, id, messaging.ItemDeletedEvent{ItemID: id})
}

// PublishStockLow publishes a low stock event
func (p *InventoryEventPublisher) PublishStockLow(ctx context.Context, id int64, name string, category repository.Category, quantity, threshold int) {
	if p == nil {
		return
	}

	p.publish(ctx, messaging.EventStockLow, id, messaging.StockLowEvent{
		ItemID:    id,
		Name:      name,
		Category:  category.DisplayName(),
		Quantity:  quantity,
		Threshold: threshold,
	})
}

func (p *InventoryEventPublisher) publish(ctx context.Context, eventType string, itemID int64, data interface{}) {
	if err := p.publisher.Publish(ctx, eventType, data); err != nil {
		p.logger.Error().Err(err).Str("event_type", eventType).Int64("item_id", itemID).Msg("failed to publish event")
	}
}
