// Package handler exposes the storefront over HTTP.
package handler

import (
	"net/http"

	"github.com/xenking/vitrine/internal/domain/checkout"
	"github.com/xenking/vitrine/internal/domain/product"
	"github.com/xenking/vitrine/internal/domain/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler serves the public storefront API.
type Handler struct {
	stores   store.Repository
	products product.Repository
	checkout *checkout.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	stores store.Repository,
	products product.Repository,
	checkoutService *checkout.Service,
) *Handler {
	return &Handler{
		stores:   stores,
		products: products,
		checkout: checkoutService,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stores/{slug}", h.GetStore)
	mux.HandleFunc("GET /api/stores/{slug}/products", h.ListProducts)
	mux.HandleFunc("GET /api/stores/{slug}/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/stores/{slug}/quote", h.Quote)
	mux.HandleFunc("POST /api/stores/{slug}/orders", h.PlaceOrder)
}
