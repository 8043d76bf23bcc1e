//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/product"
	"github.com/xenking/vitrine/internal/domain/store"
	"github.com/xenking/vitrine/internal/storage/postgres"
)

type repositorySuite struct {
	suite.Suite

	container *tcpostgres.PostgresContainer
	pool      *pgxpool.Pool

	stores   *postgres.StoreRepository
	products *postgres.ProductRepository
	coupons  *postgres.CouponRepository
	orders   *postgres.OrderRepository
	events   *postgres.EventSink
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(repositorySuite))
}

func (s *repositorySuite) SetupSuite() {
	ctx := s.T().Context()

	var err error
	s.container, err = tcpostgres.Run(ctx, "postgres:17.6-alpine3.22",
		tcpostgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)

	connStr, err := s.container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.pool, err = postgres.NewPool(ctx, connStr)
	s.Require().NoError(err)
	s.Require().NoError(postgres.RunMigrations(ctx, s.pool))
	// Migrations are idempotent.
	s.Require().NoError(postgres.RunMigrations(ctx, s.pool))

	s.stores = postgres.NewStoreRepository(s.pool)
	s.products = postgres.NewProductRepository(s.pool)
	s.coupons = postgres.NewCouponRepository(s.pool)
	s.orders = postgres.NewOrderRepository(s.pool)
	s.events = postgres.NewEventSink(s.pool)
}

func (s *repositorySuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		s.NoError(s.container.Terminate(context.Background()))
	}
}

func (s *repositorySuite) newStore() store.Store {
	st := store.Store{
		Slug:     gofakeit.Username(),
		Name:     gofakeit.Company(),
		WhatsApp: gofakeit.Phone(),
	}
	s.Require().NoError(s.stores.Upsert(s.T().Context(), &st))
	return st
}

func (s *repositorySuite) TestStoreBySlug() {
	ctx := s.T().Context()
	st := s.newStore()

	got, err := s.stores.GetBySlug(ctx, " "+st.Slug+" ")
	s.Require().NoError(err)
	s.Equal(st, *got)

	_, err = s.stores.GetBySlug(ctx, "missing-"+st.Slug)
	s.ErrorIs(err, store.ErrNotFound)
}

func (s *repositorySuite) TestProducts() {
	ctx := s.T().Context()
	st := s.newStore()

	tenis := product.Product{
		StoreID: st.ID,
		Name:    "Tênis",
		Price:   decimal.RequireFromString("129.90"),
		InStock: true,
		Variations: []product.Variation{
			{Name: "Tamanho 40", Price: decimal.RequireFromString("149.90")},
			{Name: "Tamanho 41", Price: decimal.RequireFromString("159.90")},
		},
		Options: []product.Option{
			{Name: "Embalagem", PriceAdjustment: decimal.RequireFromString("5.00")},
		},
	}
	camiseta := product.Product{StoreID: st.ID, Name: "Camiseta", Price: decimal.RequireFromString("59.90")}
	s.Require().NoError(s.products.Create(ctx, &tenis, 0))
	s.Require().NoError(s.products.Create(ctx, &camiseta, 1))

	opts := cmp.Options{
		cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
		cmpopts.EquateEmpty(),
	}

	list, err := s.products.ListByStore(ctx, st.ID)
	s.Require().NoError(err)
	if diff := cmp.Diff([]product.Product{tenis, camiseta}, list, opts); diff != "" {
		s.Failf("ListByStore mismatch", "(-want +got):\n%s", diff)
	}

	got, err := s.products.GetByID(ctx, st.ID, tenis.ID)
	s.Require().NoError(err)
	if diff := cmp.Diff(tenis, *got, opts); diff != "" {
		s.Failf("GetByID mismatch", "(-want +got):\n%s", diff)
	}

	byIDs, err := s.products.GetByIDs(ctx, st.ID, []string{camiseta.ID, "not-a-uuid", gofakeit.UUID()})
	s.Require().NoError(err)
	s.Require().Len(byIDs, 1)
	s.Equal(camiseta.ID, byIDs[0].ID)

	other := s.newStore()
	_, err = s.products.GetByID(ctx, other.ID, tenis.ID)
	s.ErrorIs(err, product.ErrNotFound)
	_, err = s.products.GetByID(ctx, st.ID, "bogus")
	s.ErrorIs(err, product.ErrNotFound)
}

func (s *repositorySuite) TestCoupons() {
	ctx := s.T().Context()
	st := s.newStore()

	minimum := decimal.RequireFromString("50")
	limit := 2
	expires := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Microsecond)
	c := coupon.Coupon{
		StoreID:        st.ID,
		Code:           "promo10",
		DiscountType:   coupon.DiscountPercentage,
		Value:          decimal.NewFromInt(10),
		MinOrderAmount: &minimum,
		UsageLimit:     &limit,
		ExpiresAt:      &expires,
		Active:         true,
	}
	s.Require().NoError(s.coupons.Upsert(ctx, &c))
	s.Equal("PROMO10", c.Code)

	got, err := s.coupons.FindByCodeAndOwner(ctx, "PROMO10", st.ID)
	s.Require().NoError(err)
	s.Equal(c.ID, got.ID)
	s.Equal(coupon.DiscountPercentage, got.DiscountType)
	s.True(minimum.Equal(*got.MinOrderAmount))
	s.Equal(2, *got.UsageLimit)
	s.True(expires.Equal(*got.ExpiresAt))

	s.Require().NoError(s.coupons.IncrementUsedCount(ctx, c.ID))
	got, err = s.coupons.FindByCodeAndOwner(ctx, "PROMO10", st.ID)
	s.Require().NoError(err)
	s.Equal(1, got.UsedCount)

	other := s.newStore()
	_, err = s.coupons.FindByCodeAndOwner(ctx, "PROMO10", other.ID)
	s.ErrorIs(err, coupon.ErrNotFound)

	c.Active = false
	s.Require().NoError(s.coupons.Upsert(ctx, &c))
	s.Equal(1, c.UsedCount)
	_, err = s.coupons.FindByCodeAndOwner(ctx, "PROMO10", st.ID)
	s.ErrorIs(err, coupon.ErrNotFound)

	s.ErrorIs(s.coupons.IncrementUsedCount(ctx, gofakeit.UUID()), coupon.ErrNotFound)
}

func (s *repositorySuite) TestOrders() {
	ctx := s.T().Context()
	st := s.newStore()

	o := &order.Order{
		StoreID:       st.ID,
		CustomerName:  gofakeit.Name(),
		CustomerPhone: gofakeit.Phone(),
		Items: []order.Item{
			{ProductID: gofakeit.UUID(), ProductName: "Camiseta", Quantity: 2, UnitPrice: decimal.RequireFromString("59.90"), LineTotal: decimal.RequireFromString("119.80")},
			{ProductID: gofakeit.UUID(), ProductName: "Tênis", VariationID: gofakeit.UUID(), VariationName: "Tamanho 40", Quantity: 1, UnitPrice: decimal.RequireFromString("149.90"), LineTotal: decimal.RequireFromString("149.90")},
		},
		Subtotal:   decimal.RequireFromString("269.70"),
		Discount:   decimal.RequireFromString("20.00"),
		Total:      decimal.RequireFromString("249.70"),
		CouponCode: "VINTE",
		Status:     order.StatusPending,
	}
	s.Require().NoError(s.orders.Create(ctx, o))
	s.NotEmpty(o.ID)
	s.False(o.CreatedAt.IsZero())

	got, err := s.orders.GetByID(ctx, o.ID)
	s.Require().NoError(err)
	opts := cmp.Options{
		cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
		cmpopts.EquateApproxTime(time.Millisecond),
	}
	if diff := cmp.Diff(*o, *got, opts); diff != "" {
		s.Failf("GetByID mismatch", "(-want +got):\n%s", diff)
	}

	noCoupon := &order.Order{
		StoreID: st.ID, CustomerName: "Ana", CustomerPhone: "1",
		Items:    o.Items[:1],
		Subtotal: o.Items[0].LineTotal, Total: o.Items[0].LineTotal,
		Status: order.StatusPending,
	}
	s.Require().NoError(s.orders.Create(ctx, noCoupon))
	got, err = s.orders.GetByID(ctx, noCoupon.ID)
	s.Require().NoError(err)
	s.Empty(got.CouponCode)
}

func (s *repositorySuite) TestEvents() {
	ctx := s.T().Context()
	st := s.newStore()

	s.Require().NoError(s.events.Record(ctx, analytics.Event{
		Type: analytics.EventCatalogVisit, StoreID: st.ID, OccurredAt: time.Now(),
	}))
	s.Require().NoError(s.events.Record(ctx, analytics.Event{
		Type: analytics.EventOrderPlaced, StoreID: st.ID, OrderID: gofakeit.UUID(),
		Amount: decimal.RequireFromString("99.80"), OccurredAt: time.Now(),
	}))

	var visits, orders int
	err := s.pool.QueryRow(ctx, `SELECT
		COUNT(*) FILTER (WHERE type = 'catalog_visit'),
		COUNT(*) FILTER (WHERE type = 'order_placed' AND amount = 99.80)
		FROM store_events WHERE store_id = $1`, st.ID).Scan(&visits, &orders)
	s.Require().NoError(err)
	s.Equal(1, visits)
	s.Equal(1, orders)
}
