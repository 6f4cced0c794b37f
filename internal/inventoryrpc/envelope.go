package inventoryrpc

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Event names accepted on the inventory command subscription.
const (
	EventReduceStock   = "reduce_stock"
	EventRollbackStock = "rollback_stock"
	EventIncreaseStock = "increase_stock"
	EventFindStock     = "find_stock"
)

// CommandEnvelope is the wire shape of an inventory command: an event name
// and an event-specific payload.
type CommandEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ReduceStockPayload is the data for reduce_stock commands.
type ReduceStockPayload struct {
	TransactionID string                   `json:"transaction_id"`
	Lines         []ReduceStockPayloadLine `json:"lines"`
}

// ReduceStockPayloadLine is one product decrement inside a reduce_stock command.
type ReduceStockPayloadLine struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// RollbackStockPayload is the data for rollback_stock commands.
type RollbackStockPayload struct {
	TransactionID string `json:"transaction_id"`
}

// IncreaseStockPayload is the data for increase_stock commands.
type IncreaseStockPayload struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// FindStockPayload is the data for find_stock commands.
type FindStockPayload struct {
	ProductID uuid.UUID `json:"product_id"`
}
