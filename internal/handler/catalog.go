package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/vitrine/internal/domain/store"
)

func (h *Handler) loadStore(ctx context.Context, r *http.Request) (*store.Store, error) {
	s, err := h.stores.GetBySlug(ctx, store.NormalizeSlug(r.PathValue("slug")))
	if err != nil {
		return nil, errors.Wrap(err, "get store")
	}
	return s, nil
}

// GetStore returns the public details of a store.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.loadStore(ctx, r)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	var e jx.Encoder
	encodeStore(&e, s)
	writeJSON(w, http.StatusOK, e.Bytes())
}

// ListProducts returns the catalog of a store and records the visit.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.loadStore(ctx, r)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	products, err := h.products.ListByStore(ctx, s.ID)
	if err != nil {
		h.fail(ctx, w, errors.Wrap(err, "list products"))
		return
	}
	h.checkout.RecordVisit(ctx, s.ID)

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, p := range products {
			encodeProduct(e, p)
		}
	})
	writeJSON(w, http.StatusOK, e.Bytes())
}

// GetProduct returns a single product of a store.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.loadStore(ctx, r)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	p, err := h.products.GetByID(ctx, s.ID, r.PathValue("id"))
	if err != nil {
		h.fail(ctx, w, errors.Wrap(err, "get product"))
		return
	}

	var e jx.Encoder
	encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, e.Bytes())
}
