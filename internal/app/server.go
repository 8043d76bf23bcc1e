package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"

	"github.com/xenking/vitrine/internal/delivery"
	"github.com/xenking/vitrine/internal/delivery/whatsapp"
	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/checkout"
	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/handler"
	"github.com/xenking/vitrine/internal/kafka"
	"github.com/xenking/vitrine/internal/storage/postgres"
	"github.com/xenking/vitrine/pkg/health"
	"github.com/xenking/vitrine/pkg/httpmiddleware"
)

// server holds the HTTP handler and the resources it owns.
type server struct {
	handler  http.Handler
	health   *health.Health
	checkout *checkout.Service
	closers  []io.Closer
}

// newServer wires repositories, outbound channels and the checkout service
// into the HTTP handler chain. The pool must already be migrated.
func newServer(
	ctx context.Context,
	cfg *Config,
	pool *pgxpool.Pool,
	mp metric.MeterProvider,
	tp trace.TracerProvider,
) (_ *server, rerr error) {
	s := &server{health: health.New()}
	defer func() {
		if rerr != nil {
			_ = s.Close()
		}
	}()

	s.health.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	s.health.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	storeRepo := postgres.NewStoreRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	couponRepo := postgres.NewCouponRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	// Outbound channels.
	sinks := analytics.Tee{postgres.NewEventSink(pool)}
	kafkaClient := kafka.NewClient(cfg.Kafka.Brokers)
	if kafkaClient.Enabled() {
		events, err := kafkaClient.NewPublisher(cfg.Kafka.EventsTopic)
		if err != nil {
			return nil, errors.Wrap(err, "events publisher")
		}
		s.closers = append(s.closers, events)
		sinks = append(sinks, events)
	}

	var channel delivery.Channel = whatsapp.NewLinks(cfg.Delivery.WhatsAppBaseURL)
	if cfg.Delivery.Mode == DeliveryKafka {
		orders, err := kafkaClient.NewPublisher(cfg.Kafka.OrdersTopic)
		if err != nil {
			return nil, errors.Wrap(err, "orders publisher")
		}
		s.closers = append(s.closers, orders)
		channel = orders
	}

	// Domain services.
	checkoutCfg, err := cfg.CheckoutServiceConfig()
	if err != nil {
		return nil, err
	}
	s.checkout, err = checkout.NewService(checkout.Deps{
		Validator: coupon.NewRepoValidator(couponRepo),
		Coupons:   couponRepo,
		Orders:    orderRepo,
		Delivery:  channel,
		Analytics: sinks,
	}, checkoutCfg,
		checkout.WithMeterProvider(mp),
		checkout.WithTracerProvider(tp),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create checkout service")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", s.health.LiveEndpoint)
	mux.HandleFunc("GET /readyz", s.health.ReadyEndpoint)
	handler.NewHandler(storeRepo, productRepo, s.checkout).Register(mux)

	s.handler = otelhttp.NewHandler(
		httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID, "Retry-After"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
		"vitrine-api",
		otelhttp.WithMeterProvider(mp),
		otelhttp.WithTracerProvider(tp),
	)
	return s, nil
}

// Close waits for pending checkout side effects and closes publishers.
func (s *server) Close() error {
	if s.checkout != nil {
		s.checkout.Wait()
	}
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
