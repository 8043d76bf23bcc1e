package checkout

import (
	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/pricing"
	"github.com/xenking/vitrine/internal/domain/store"
)

// Session is the state of one customer's checkout at one store. A session has
// a single writer and is not safe for concurrent use.
type Session struct {
	Store    store.Store
	Cart     *cart.Cart
	Customer order.Customer

	applied *coupon.Applied
	// couponCode outlives a stale applied coupon so Submit can validate it
	// again against the current subtotal.
	couponCode string
	state      State
	err        error
}

// NewSession returns an idle session with an empty cart.
func NewSession(s store.Store) *Session {
	return &Session{Store: s, Cart: cart.New()}
}

// State returns the current checkout state.
func (s *Session) State() State { return s.state }

// Err returns the reason of the last failure.
func (s *Session) Err() error { return s.err }

// AppliedCoupon returns the applied coupon, discarding it first if the cart
// subtotal changed since it was applied.
func (s *Session) AppliedCoupon() *coupon.Applied {
	if s.applied != nil && !s.applied.ValidFor(pricing.Subtotal(s.Cart.Lines())) {
		s.applied = nil
	}
	return s.applied
}

// CouponCode returns the code of the coupon the customer applied, even when
// the cart changed since and the discount awaits validation.
func (s *Session) CouponCode() string { return s.couponCode }

// RemoveCoupon drops the applied coupon.
func (s *Session) RemoveCoupon() {
	s.applied = nil
	s.couponCode = ""
}

func (s *Session) applyCoupon(a *coupon.Applied) {
	s.applied = a
	s.couponCode = a.Code
}

// Quote prices the cart with the applied coupon.
func (s *Session) Quote() pricing.Quote {
	return pricing.NewQuote(s.Cart.Lines(), s.AppliedCoupon())
}

// Reset returns a failed or completed session to idle. Cart and customer are
// kept.
func (s *Session) Reset() {
	if s.state.busy() {
		return
	}
	s.state = StateIdle
	s.err = nil
}

func (s *Session) complete() {
	s.Cart.Clear()
	s.Customer = order.Customer{}
	s.applied = nil
	s.couponCode = ""
	s.state = StateCompleted
	s.err = nil
}
