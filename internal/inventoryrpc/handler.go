package inventoryrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vendorhub/marketplace-backend/internal/ledger"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
	"github.com/vendorhub/marketplace-backend/pkg/types"
)

// Handler dispatches decoded inventory commands to the stock ledger and maps
// every outcome to the uniform result envelope.
type Handler struct {
	ledger ledger.Service
}

// NewHandler builds an inventory command handler.
func NewHandler(ledgerService ledger.Service) (*Handler, error) {
	if ledgerService == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &Handler{ledger: ledgerService}, nil
}

// ErrUnknownEvent signals an event name the handler does not dispatch.
var ErrUnknownEvent = fmt.Errorf("unknown inventory event")

// HandleResult is the outcome of one command: the result envelope to publish
// plus the correlation attributes attached to the message.
type HandleResult struct {
	Envelope      types.Envelope
	TransactionID string
}

// Handle decodes the payload for the named event, runs it against the ledger,
// and returns the result envelope. A decode failure returns an error so the
// caller can drop the message; an unknown event returns ErrUnknownEvent.
func (h *Handler) Handle(ctx context.Context, envelope CommandEnvelope) (*HandleResult, error) {
	switch envelope.Event {
	case EventReduceStock:
		var payload ReduceStockPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode reduce_stock payload: %w", err)
		}
		lines := make([]ledger.ReduceLine, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, ledger.ReduceLine{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		result, err := h.ledger.ReduceStock(ctx, ledger.ReduceStockInput{
			TransactionID: payload.TransactionID,
			Lines:         lines,
		})
		return &HandleResult{
			Envelope:      toEnvelope(result, err),
			TransactionID: payload.TransactionID,
		}, nil

	case EventRollbackStock:
		var payload RollbackStockPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode rollback_stock payload: %w", err)
		}
		result, err := h.ledger.RollbackStock(ctx, payload.TransactionID)
		return &HandleResult{
			Envelope:      toEnvelope(result, err),
			TransactionID: payload.TransactionID,
		}, nil

	case EventIncreaseStock:
		var payload IncreaseStockPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode increase_stock payload: %w", err)
		}
		result, err := h.ledger.IncreaseStock(ctx, payload.ProductID, payload.Quantity)
		return &HandleResult{Envelope: toEnvelope(result, err)}, nil

	case EventFindStock:
		var payload FindStockPayload
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode find_stock payload: %w", err)
		}
		result, err := h.ledger.FindStock(ctx, payload.ProductID)
		return &HandleResult{Envelope: toEnvelope(result, err)}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, envelope.Event)
	}
}

func toEnvelope(data any, err error) types.Envelope {
	if err != nil {
		appErr := pkgerrors.As(err)
		if appErr == nil {
			return types.Failure(pkgerrors.MetadataFor(pkgerrors.CodeInternal).PublicMessage)
		}
		meta := pkgerrors.MetadataFor(appErr.Code())
		// Internal causes stay in the logs; callers only see the public text.
		if appErr.Code() == pkgerrors.CodeInternal || appErr.Code() == pkgerrors.CodeDependency {
			return types.Failure(meta.PublicMessage)
		}
		return types.Failure(appErr.Message())
	}
	return types.Success(data)
}
