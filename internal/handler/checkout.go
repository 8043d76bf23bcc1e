package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/checkout"
	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/domain/product"
	"github.com/xenking/vitrine/internal/domain/store"
)

// newSession builds a checkout session holding the requested lines. Every
// product is loaded from the store's catalog so client prices are never
// trusted.
func (h *Handler) newSession(ctx context.Context, s *store.Store, req *cartRequest) (*checkout.Session, error) {
	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := h.products.GetByIDs(ctx, s.ID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	sess := checkout.NewSession(*s)
	sess.Customer = req.Customer
	for _, it := range req.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: it.ProductID}
		}
		var variation *product.Variation
		if it.VariationID != "" {
			v, ok := p.Variation(it.VariationID)
			if !ok {
				return nil, errors.Wrapf(cart.ErrUnknownVariation, "product %s variation %s", p.ID, it.VariationID)
			}
			variation = &v
		}
		if err := sess.Cart.Add(p, variation, it.Quantity); err != nil {
			return nil, errors.Wrapf(err, "add product %s", p.ID)
		}
	}
	return sess, nil
}

func (h *Handler) prepare(w http.ResponseWriter, r *http.Request) (*checkout.Session, *cartRequest, bool) {
	ctx := r.Context()
	s, err := h.loadStore(ctx, r)
	if err != nil {
		h.fail(ctx, w, err)
		return nil, nil, false
	}
	req, err := decodeCartRequest(w, r)
	if err != nil {
		h.fail(ctx, w, err)
		return nil, nil, false
	}
	sess, err := h.newSession(ctx, s, req)
	if err != nil {
		h.fail(ctx, w, err)
		return nil, nil, false
	}
	return sess, req, true
}

// Quote prices a cart. A rejected coupon does not fail the request: the
// undiscounted quote is returned together with the reason.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, req, ok := h.prepare(w, r)
	if !ok {
		return
	}

	var couponErr string
	if req.CouponCode != "" {
		if _, err := h.checkout.ApplyCoupon(ctx, sess, req.CouponCode); err != nil {
			if !coupon.IsRejection(err) && ctx.Err() != nil {
				h.fail(ctx, w, err)
				return
			}
			couponErr = couponMessage(err, h.checkout.Currency())
		}
	}

	var e jx.Encoder
	encodeQuote(&e, sess.Quote(), couponErr)
	writeJSON(w, http.StatusOK, e.Bytes())
}

// PlaceOrder submits an order and returns it with the rendered message and
// the delivery receipt. Coupon rejections are returned as warnings. Storage
// and delivery failures are only logged by checkout; the response carries
// them as the persisted flag and a null delivery.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, req, ok := h.prepare(w, r)
	if !ok {
		return
	}

	res, err := h.checkout.Submit(ctx, sess, checkout.SubmitRequest{CouponCode: req.CouponCode})
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	var warnings []string
	if res.CouponErr != nil {
		warnings = append(warnings, couponMessage(res.CouponErr, h.checkout.Currency()))
	}

	status := http.StatusCreated
	if !res.Persisted() {
		status = http.StatusAccepted
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("order", func(e *jx.Encoder) { encodeOrder(e, res.Order) })
		e.Field("message", func(e *jx.Encoder) { e.Str(res.Message) })
		e.Field("delivery", func(e *jx.Encoder) { encodeReceipt(e, res.Receipt) })
		e.Field("persisted", func(e *jx.Encoder) { e.Bool(res.Persisted()) })
		e.Field("warnings", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, msg := range warnings {
					e.Str(msg)
				}
			})
		})
	})
	writeJSON(w, status, e.Bytes())
}
