package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	EventItemAdded      = "inventory.item.added"
	EventItemUpdated    = "inventory.item.updated"
	EventItemDeleted    = "inventory.item.deleted"
	EventStockWithdrawn = "inventory.stock.withdrawn"
	EventStockLow       = "inventory.stock.low"
)

// ExchangeInventoryEvents is the default topic exchange for inventory events.
const ExchangeInventoryEvents = "inventory.events"

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// ItemAddedEvent is published when an item is created
type ItemAddedEvent struct {
	ItemID   int64  `json:"item_id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// ItemUpdatedEvent is published when an item's fields are overwritten
type ItemUpdatedEvent struct {
	ItemID         int64  `json:"item_id"`
	Category       string `json:"category"`
	QuantityChange int    `json:"quantity_change"`
	NewQuantity    int    `json:"new_quantity"`
}

// ItemDeletedEvent is published when an item and its history are removed
type ItemDeletedEvent struct {
	ItemID int64 `json:"item_id"`
}

// StockWithdrawnEvent is published after a successful withdrawal
type StockWithdrawnEvent struct {
	ItemID      int64  `json:"item_id"`
	Category    string `json:"category"`
	Amount      int    `json:"amount"`
	NewQuantity int    `json:"new_quantity"`
	Notes       string `json:"notes,omitempty"`
}

// StockLowEvent is published when a mutation leaves an item below the low-stock threshold
type StockLowEvent struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	Threshold int    `json:"threshold"`
}
