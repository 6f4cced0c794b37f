package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vendorhub/marketplace-backend/api/responses"
	"github.com/vendorhub/marketplace-backend/api/validators"
	"github.com/vendorhub/marketplace-backend/internal/ledger"
	pkgerrors "github.com/vendorhub/marketplace-backend/pkg/errors"
	"github.com/vendorhub/marketplace-backend/pkg/logger"
)

const defaultStockCallTimeout = 5 * time.Second

// stockCall bounds a ledger call so a stalled ledger surfaces as a dependency
// failure instead of hanging the gateway.
func stockCall[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (*T, error)) (*T, error) {
	if timeout <= 0 {
		timeout = defaultStockCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := fn(callCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stock ledger timed out")
		}
		return nil, err
	}
	return result, nil
}

type reduceStockRequest struct {
	TransactionID string                   `json:"transaction_id" validate:"required,min=1"`
	Lines         []reduceStockRequestLine `json:"lines" validate:"required,min=1,dive"`
}

type reduceStockRequestLine struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

func (req reduceStockRequest) toInput() (ledger.ReduceStockInput, error) {
	input := ledger.ReduceStockInput{TransactionID: req.TransactionID}
	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return ledger.ReduceStockInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id")
		}
		input.Lines = append(input.Lines, ledger.ReduceLine{ProductID: productID, Quantity: line.Quantity})
	}
	return input, nil
}

// StockReduce decrements stock for every line of a transaction atomically.
func StockReduce(svc ledger.Service, timeout time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		var body reduceStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := stockCall(r.Context(), timeout, func(ctx context.Context) (*ledger.ReduceStockResult, error) {
			return svc.ReduceStock(ctx, input)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type rollbackStockRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,min=1"`
}

// StockRollback restores every open line of a recorded transaction.
func StockRollback(svc ledger.Service, timeout time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		var body rollbackStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := stockCall(r.Context(), timeout, func(ctx context.Context) (*ledger.RollbackStockResult, error) {
			return svc.RollbackStock(ctx, body.TransactionID)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type increaseStockRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// StockIncrease raises stock without recording a ledger line.
func StockIncrease(svc ledger.Service, timeout time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		var body increaseStockRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product_id"))
			return
		}

		result, err := stockCall(r.Context(), timeout, func(ctx context.Context) (*ledger.StockLevel, error) {
			return svc.IncreaseStock(ctx, productID, body.Quantity)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// StockGet reports the current stock level for one product.
func StockGet(svc ledger.Service, timeout time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stock service unavailable"))
			return
		}

		productID, err := pathUUID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := stockCall(r.Context(), timeout, func(ctx context.Context) (*ledger.StockLevel, error) {
			return svc.FindStock(ctx, productID)
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
