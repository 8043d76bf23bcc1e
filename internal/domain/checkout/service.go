// Package checkout turns a cart and customer details into a persisted order and
// an outbound message.
package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/delivery"
	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/domain/money"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/pricing"
)

const instrumentationName = "github.com/xenking/vitrine/internal/domain/checkout"

var (
	// ErrMissingCustomerInfo is returned when the customer name or phone is blank.
	ErrMissingCustomerInfo = errors.New("customer name and phone are required")
	// ErrEmptyCart is returned when submitting a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInProgress is returned when a submit is already running on the session.
	ErrInProgress = errors.New("checkout already in progress")
)

// Config bounds the external calls made during checkout.
type Config struct {
	Currency          money.Currency
	CouponTimeout     time.Duration
	PersistTimeout    time.Duration
	PersistAttempts   int
	PersistRetryDelay time.Duration
	DeliveryTimeout   time.Duration
	// BackgroundTimeout bounds usage increments and analytics events.
	BackgroundTimeout time.Duration
}

// DefaultConfig returns the default checkout configuration.
func DefaultConfig() Config {
	return Config{
		Currency:          money.BRL,
		CouponTimeout:     3 * time.Second,
		PersistTimeout:    5 * time.Second,
		PersistAttempts:   2,
		PersistRetryDelay: 200 * time.Millisecond,
		DeliveryTimeout:   5 * time.Second,
		BackgroundTimeout: 5 * time.Second,
	}
}

func (c *Config) setDefaults() {
	def := DefaultConfig()
	if c.Currency == (money.Currency{}) {
		c.Currency = def.Currency
	}
	if c.CouponTimeout <= 0 {
		c.CouponTimeout = def.CouponTimeout
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = def.PersistTimeout
	}
	if c.PersistAttempts < 1 {
		c.PersistAttempts = 1
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = def.DeliveryTimeout
	}
	if c.BackgroundTimeout <= 0 {
		c.BackgroundTimeout = def.BackgroundTimeout
	}
}

// Deps are the collaborators of the checkout service.
type Deps struct {
	Validator coupon.Validator
	// Coupons receives the usage increment of applied coupons.
	Coupons   coupon.Repository
	Orders    order.Repository
	Delivery  delivery.Channel
	Analytics analytics.Sink
}

// Option configures a Service.
type Option func(*Service)

// WithMeterProvider sets the meter provider for checkout metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithClock overrides the clock used for order timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// SubmitRequest holds the input for submitting a session.
type SubmitRequest struct {
	// CouponCode overrides the session's applied coupon when set.
	CouponCode string
}

// Result reports the outcome of a submit. Coupon, persistence and delivery
// failures do not fail the checkout and are reported here instead.
type Result struct {
	Order   *order.Order
	Message string
	Receipt *delivery.Receipt

	CouponErr   error
	PersistErr  error
	DeliveryErr error

	// Transitions lists the states the session went through.
	Transitions []State
}

// Persisted reports whether the order was stored.
func (r *Result) Persisted() bool { return r.PersistErr == nil }

// Service runs checkout flows.
type Service struct {
	deps Deps
	cfg  Config
	now  func() time.Time

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracer         trace.Tracer

	orders          metric.Int64Counter
	couponRejects   metric.Int64Counter
	persistFailures metric.Int64Counter
	deliveryFails   metric.Int64Counter

	wg sync.WaitGroup
}

// NewService creates a checkout Service.
func NewService(deps Deps, cfg Config, opts ...Option) (*Service, error) {
	if deps.Analytics == nil {
		deps.Analytics = analytics.Discard{}
	}
	cfg.setDefaults()

	s := &Service{
		deps:           deps,
		cfg:            cfg,
		now:            time.Now,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.orders, err = meter.Int64Counter("vitrine.checkout.orders",
		metric.WithDescription("Completed checkouts"),
	); err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	if s.couponRejects, err = meter.Int64Counter("vitrine.checkout.coupon_rejections",
		metric.WithDescription("Coupons rejected or not validated"),
	); err != nil {
		return nil, errors.Wrap(err, "coupon rejections counter")
	}
	if s.persistFailures, err = meter.Int64Counter("vitrine.checkout.persist_failures",
		metric.WithDescription("Orders that could not be stored"),
	); err != nil {
		return nil, errors.Wrap(err, "persist failures counter")
	}
	if s.deliveryFails, err = meter.Int64Counter("vitrine.checkout.delivery_failures",
		metric.WithDescription("Order messages that could not be handed off"),
	); err != nil {
		return nil, errors.Wrap(err, "delivery failures counter")
	}

	return s, nil
}

// Currency returns the currency used for order messages.
func (s *Service) Currency() money.Currency { return s.cfg.Currency }

// ApplyCoupon validates code against the session's cart. On success the
// coupon is held by the session; on rejection the session is unchanged.
func (s *Service) ApplyCoupon(ctx context.Context, sess *Session, code string) (*coupon.Applied, error) {
	if sess.state.busy() {
		return nil, ErrInProgress
	}
	if sess.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	applied, err := s.validateCoupon(ctx, sess, code)
	if err != nil {
		return nil, err
	}
	sess.applyCoupon(applied)
	return applied, nil
}

func (s *Service) validateCoupon(ctx context.Context, sess *Session, code string) (*coupon.Applied, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CouponTimeout)
	defer cancel()

	subtotal := pricing.Subtotal(sess.Cart.Lines())
	return s.deps.Validator.Validate(ctx, sess.Store.ID, code, subtotal)
}

// Submit places the session's order. It fails only when customer details are
// missing, the cart is empty, or ctx ends during the coupon check.
// After a successful submit the cart, customer and coupon are reset.
func (s *Service) Submit(ctx context.Context, sess *Session, req SubmitRequest) (_ *Result, rerr error) {
	if sess.state.busy() {
		return nil, ErrInProgress
	}
	sess.Reset()

	customer := order.Customer{
		Name:  strings.TrimSpace(sess.Customer.Name),
		Phone: strings.TrimSpace(sess.Customer.Phone),
	}
	if customer.Name == "" || customer.Phone == "" {
		return nil, ErrMissingCustomerInfo
	}
	if sess.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	ctx, span := s.tracer.Start(ctx, "checkout.Submit",
		trace.WithAttributes(attribute.String("store.id", sess.Store.ID)),
	)
	defer span.End()

	lg := zctx.From(ctx).With(zap.String("store_id", sess.Store.ID))
	res := &Result{}

	enter := func(st State) {
		sess.state = st
		res.Transitions = append(res.Transitions, st)
	}
	defer func() {
		if rerr != nil {
			sess.err = rerr
			enter(StateFailed)
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
			s.orders.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
		}
	}()

	enter(StateValidating)
	lines := sess.Cart.Lines()

	code := req.CouponCode
	if code == "" {
		code = sess.CouponCode()
	}
	var applied *coupon.Applied

	if code != "" {
		enter(StateCouponCheck)
		got, err := s.validateCoupon(ctx, sess, code)
		switch {
		case err == nil:
			applied = got
		case coupon.IsRejection(err):
			res.CouponErr = err
			lg.Info("Coupon rejected", zap.String("code", coupon.NormalizeCode(code)), zap.Error(err))
		default:
			res.CouponErr = err
			lg.Warn("Coupon validation failed", zap.String("code", coupon.NormalizeCode(code)), zap.Error(err))
		}
		if res.CouponErr != nil {
			s.couponRejects.Add(ctx, 1)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "coupon check")
	}

	enter(StatePersisting)
	o := order.Compose(sess.Store.ID, lines, customer, applied, s.now())
	res.Order = o
	if err := s.persist(ctx, o); err != nil {
		res.PersistErr = err
		s.persistFailures.Add(ctx, 1)
		lg.Error("Persist order failed, continuing with delivery", zap.Error(err))
	}

	enter(StateDelivering)
	res.Message = order.RenderMessage(o, sess.Store.Name, s.cfg.Currency)
	receipt, err := s.deliver(ctx, delivery.Message{
		OrderID:     o.ID,
		Destination: sess.Store.WhatsApp,
		Text:        res.Message,
	})
	if err != nil {
		res.DeliveryErr = err
		s.deliveryFails.Add(ctx, 1)
		lg.Error("Deliver order message failed", zap.String("order_id", o.ID), zap.Error(err))
	} else {
		res.Receipt = &receipt
	}

	enter(StateCompleted)
	sess.complete()

	if applied != nil && s.deps.Coupons != nil {
		s.incrementUsage(ctx, applied.CouponID)
	}
	s.recordEvent(ctx, analytics.Event{
		Type:       analytics.EventOrderPlaced,
		StoreID:    o.StoreID,
		OrderID:    o.ID,
		Amount:     o.Total,
		OccurredAt: o.CreatedAt,
	})

	s.orders.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", "completed"),
		attribute.Bool("persisted", res.PersistErr == nil),
		attribute.Bool("delivered", res.DeliveryErr == nil),
	))
	span.SetAttributes(attribute.String("order.id", o.ID))
	lg.Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("total", money.Fixed(o.Total)),
		zap.String("coupon", o.CouponCode),
	)

	return res, nil
}

// persist stores o, retrying on failure. Each attempt has its own timeout.
func (s *Service) persist(ctx context.Context, o *order.Order) error {
	var err error
	for attempt := 1; attempt <= s.cfg.PersistAttempts; attempt++ {
		if attempt > 1 {
			zctx.From(ctx).Warn("Retrying order persist", zap.Int("attempt", attempt), zap.Error(err))
			select {
			case <-ctx.Done():
				return errors.Wrap(err, "persist order")
			case <-time.After(s.cfg.PersistRetryDelay):
			}
		}
		if err = s.createOrder(ctx, o); err == nil {
			return nil
		}
	}
	return errors.Wrapf(err, "persist order after %d attempts", s.cfg.PersistAttempts)
}

func (s *Service) createOrder(ctx context.Context, o *order.Order) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PersistTimeout)
	defer cancel()
	return s.deps.Orders.Create(ctx, o)
}

func (s *Service) deliver(ctx context.Context, msg delivery.Message) (delivery.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()

	r, err := s.deps.Delivery.Deliver(ctx, msg)
	if err != nil {
		return delivery.Receipt{}, errors.Wrap(err, "deliver message")
	}
	return r, nil
}

// incrementUsage bumps the coupon usage counter in the background.
func (s *Service) incrementUsage(ctx context.Context, couponID string) {
	s.background(ctx, "increment coupon usage", func(ctx context.Context) error {
		return s.deps.Coupons.IncrementUsedCount(ctx, couponID)
	})
}

// RecordVisit records a catalog visit in the background.
func (s *Service) RecordVisit(ctx context.Context, storeID string) {
	s.recordEvent(ctx, analytics.Event{
		Type:       analytics.EventCatalogVisit,
		StoreID:    storeID,
		OccurredAt: s.now(),
	})
}

func (s *Service) recordEvent(ctx context.Context, e analytics.Event) {
	s.background(ctx, "record "+string(e.Type), func(ctx context.Context) error {
		return s.deps.Analytics.Record(ctx, e)
	})
}

// background runs fn detached from ctx cancellation, bounded by the
// background timeout. Failures are logged.
func (s *Service) background(ctx context.Context, name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.BackgroundTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if err := fn(ctx); err != nil {
			zctx.From(ctx).Warn("Background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
}

// Wait blocks until background tasks finish.
func (s *Service) Wait() {
	s.wg.Wait()
}
