package inventoryrpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/vendorhub/marketplace-backend/internal/ledger"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
	"github.com/vendorhub/marketplace-backend/pkg/types"
)

type fakeLedger struct {
	reduceFn   func(ctx context.Context, input ledger.ReduceStockInput) (*ledger.ReduceStockResult, error)
	rollbackFn func(ctx context.Context, transactionID string) (*ledger.RollbackStockResult, error)
	increaseFn func(ctx context.Context, productID uuid.UUID, qty int) (*ledger.StockLevel, error)
	findFn     func(ctx context.Context, productID uuid.UUID) (*ledger.StockLevel, error)
}

func (f *fakeLedger) ReduceStock(ctx context.Context, input ledger.ReduceStockInput) (*ledger.ReduceStockResult, error) {
	if f.reduceFn != nil {
		return f.reduceFn(ctx, input)
	}
	return &ledger.ReduceStockResult{TransactionID: input.TransactionID, Lines: input.Lines}, nil
}

func (f *fakeLedger) RollbackStock(ctx context.Context, transactionID string) (*ledger.RollbackStockResult, error) {
	if f.rollbackFn != nil {
		return f.rollbackFn(ctx, transactionID)
	}
	return &ledger.RollbackStockResult{TransactionID: transactionID}, nil
}

func (f *fakeLedger) IncreaseStock(ctx context.Context, productID uuid.UUID, qty int) (*ledger.StockLevel, error) {
	if f.increaseFn != nil {
		return f.increaseFn(ctx, productID, qty)
	}
	return &ledger.StockLevel{ProductID: productID, Stock: qty}, nil
}

func (f *fakeLedger) FindStock(ctx context.Context, productID uuid.UUID) (*ledger.StockLevel, error) {
	if f.findFn != nil {
		return f.findFn(ctx, productID)
	}
	return &ledger.StockLevel{ProductID: productID, Stock: 0}, nil
}

func mustEnvelope(t *testing.T, event string, payload any) CommandEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return CommandEnvelope{Event: event, Data: data}
}

func TestHandleReduceStock(t *testing.T) {
	t.Parallel()

	fake := &fakeLedger{}
	var gotInput ledger.ReduceStockInput
	fake.reduceFn = func(ctx context.Context, input ledger.ReduceStockInput) (*ledger.ReduceStockResult, error) {
		gotInput = input
		return &ledger.ReduceStockResult{TransactionID: input.TransactionID, Lines: input.Lines}, nil
	}
	handler, err := NewHandler(fake)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	productID := uuid.New()
	result, err := handler.Handle(context.Background(), mustEnvelope(t, EventReduceStock, ReduceStockPayload{
		TransactionID: "order-9",
		Lines:         []ReduceStockPayloadLine{{ProductID: productID, Quantity: 2}},
	}))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if result.Envelope.Status != types.StatusSuccess {
		t.Fatalf("status = %s, want success", result.Envelope.Status)
	}
	if result.TransactionID != "order-9" {
		t.Fatalf("transaction id = %q", result.TransactionID)
	}
	if gotInput.TransactionID != "order-9" || len(gotInput.Lines) != 1 || gotInput.Lines[0].ProductID != productID {
		t.Fatalf("unexpected ledger input: %+v", gotInput)
	}
}

func TestHandleMapsLedgerErrors(t *testing.T) {
	t.Parallel()

	fake := &fakeLedger{
		reduceFn: func(ctx context.Context, input ledger.ReduceStockInput) (*ledger.ReduceStockResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product x")
		},
		findFn: func(ctx context.Context, productID uuid.UUID) (*ledger.StockLevel, error) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("db down"), "reading stock")
		},
	}
	handler, err := NewHandler(fake)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	result, err := handler.Handle(context.Background(), mustEnvelope(t, EventReduceStock, ReduceStockPayload{
		TransactionID: "order-9",
		Lines:         []ReduceStockPayloadLine{{ProductID: uuid.New(), Quantity: 2}},
	}))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if result.Envelope.Status != types.StatusError {
		t.Fatalf("status = %s, want error", result.Envelope.Status)
	}
	if result.Envelope.Message == nil || *result.Envelope.Message != "insufficient stock for product x" {
		t.Fatalf("message = %v", result.Envelope.Message)
	}

	// Internal causes are replaced with the public message.
	result, err = handler.Handle(context.Background(), mustEnvelope(t, EventFindStock, FindStockPayload{ProductID: uuid.New()}))
	if err != nil {
		t.Fatalf("Handle error: %v", err)
	}
	if result.Envelope.Message == nil || *result.Envelope.Message != "internal server error" {
		t.Fatalf("internal message leaked: %v", result.Envelope.Message)
	}
}

func TestHandleUnknownEvent(t *testing.T) {
	t.Parallel()

	handler, err := NewHandler(&fakeLedger{})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	_, err = handler.Handle(context.Background(), CommandEnvelope{Event: "emit_sparks", Data: json.RawMessage(`{}`)})
	if !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("expected ErrUnknownEvent, got %v", err)
	}
}

func TestHandleMalformedPayload(t *testing.T) {
	t.Parallel()

	handler, err := NewHandler(&fakeLedger{})
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	for _, event := range []string{EventReduceStock, EventRollbackStock, EventIncreaseStock, EventFindStock} {
		if _, err := handler.Handle(context.Background(), CommandEnvelope{
			Event: event,
			Data:  json.RawMessage(`"not-an-object"`),
		}); err == nil {
			t.Fatalf("%s: expected decode error", event)
		}
	}
}
