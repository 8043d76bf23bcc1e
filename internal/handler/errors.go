package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/checkout"
	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/domain/money"
	"github.com/xenking/vitrine/internal/domain/product"
	"github.com/xenking/vitrine/internal/domain/store"
)

// ProductNotFoundError indicates a cart line references an unknown product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// decodeError is returned for malformed request bodies.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *decodeError) Unwrap() error { return e.err }

// statusOf maps an error to an HTTP status and a client message.
func statusOf(err error) (int, string) {
	var (
		decodeErr   *decodeError
		notFoundErr *ProductNotFoundError
	)
	switch {
	case errors.As(err, &decodeErr):
		return http.StatusBadRequest, decodeErr.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, store.ErrNotFound.Error()
	case errors.Is(err, product.ErrNotFound):
		return http.StatusNotFound, product.ErrNotFound.Error()
	case errors.As(err, &notFoundErr):
		return http.StatusUnprocessableEntity, notFoundErr.Error()
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, cart.ErrUnknownVariation),
		errors.Is(err, checkout.ErrMissingCustomerInfo),
		errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, checkout.ErrInProgress):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := statusOf(err)
	if status >= http.StatusInternalServerError {
		zctx.From(ctx).Error("Request failed", zap.Error(err))
	}
	writeError(w, status, message)
}

func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(status) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
	})
	writeJSON(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// couponMessage is the customer-facing text for a failed coupon.
func couponMessage(err error, cur money.Currency) string {
	var below *coupon.BelowMinimumOrderError
	switch {
	case errors.As(err, &below):
		return "minimum order amount is " + cur.Format(below.Minimum)
	case errors.Is(err, coupon.ErrNotFound):
		return "coupon not found"
	case errors.Is(err, coupon.ErrExpired):
		return "coupon expired"
	case errors.Is(err, coupon.ErrUsageLimitReached):
		return "coupon usage limit reached"
	default:
		return "coupon could not be validated"
	}
}
