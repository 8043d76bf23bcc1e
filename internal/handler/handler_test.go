package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vitrine/internal/delivery/whatsapp"
	"github.com/xenking/vitrine/internal/domain/analytics"
	"github.com/xenking/vitrine/internal/domain/checkout"
	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/product"
	"github.com/xenking/vitrine/internal/domain/store"
)

type mockStoreRepo struct {
	stores map[string]store.Store
}

func (m *mockStoreRepo) GetBySlug(_ context.Context, slug string) (*store.Store, error) {
	s, ok := m.stores[slug]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

type mockProductRepo struct {
	products []product.Product
	err      error
}

func (m *mockProductRepo) ListByStore(_ context.Context, storeID string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, p := range m.products {
		if p.StoreID == storeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) GetByID(ctx context.Context, storeID, id string) (*product.Product, error) {
	all, err := m.ListByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) GetByIDs(ctx context.Context, storeID string, ids []string) ([]product.Product, error) {
	all, err := m.ListByStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	var out []product.Product
	for _, p := range all {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

type mockCouponRepo struct {
	mu      sync.Mutex
	coupons map[string]coupon.Coupon
	used    []string
}

func (m *mockCouponRepo) FindByCodeAndOwner(_ context.Context, code, storeID string) (*coupon.Coupon, error) {
	c, ok := m.coupons[code]
	if !ok || c.StoreID != storeID {
		return nil, coupon.ErrNotFound
	}
	return &c, nil
}

func (m *mockCouponRepo) IncrementUsedCount(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used = append(m.used, id)
	return nil
}

type mockOrderRepo struct {
	err     error
	created []*order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	if m.err != nil {
		return m.err
	}
	o.ID = "order-1"
	m.created = append(m.created, o)
	return nil
}

type mockSink struct {
	mu     sync.Mutex
	events []analytics.Event
}

func (m *mockSink) Record(_ context.Context, e analytics.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

var (
	loja = store.Store{ID: "s1", Slug: "loja", Name: "Loja da Ana", WhatsApp: "+55 (11) 99999-0000"}

	camiseta = product.Product{
		ID: "p1", StoreID: "s1", Name: "Camiseta",
		Price: decimal.RequireFromString("59.90"), InStock: true,
		Variations: []product.Variation{
			{ID: "v1", Name: "G", Price: decimal.RequireFromString("64.90")},
		},
		Options: []product.Option{
			{ID: "o1", Name: "Embrulho", PriceAdjustment: decimal.RequireFromString("5.00")},
		},
	}
	esgotado = product.Product{
		ID: "p2", StoreID: "s1", Name: "Boné",
		Price: decimal.RequireFromString("30.00"), InStock: false,
	}
)

type fixture struct {
	products *mockProductRepo
	coupons  *mockCouponRepo
	orders   *mockOrderRepo
	sink     *mockSink
	mux      *http.ServeMux
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	minimum := decimal.RequireFromString("500")
	f := &fixture{
		products: &mockProductRepo{products: []product.Product{camiseta, esgotado}},
		coupons: &mockCouponRepo{coupons: map[string]coupon.Coupon{
			"DEZ": {
				ID: "c1", StoreID: "s1", Code: "DEZ", Active: true,
				DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(10),
			},
			"VIP": {
				ID: "c2", StoreID: "s1", Code: "VIP", Active: true,
				DiscountType: coupon.DiscountFixed, Value: decimal.NewFromInt(50),
				MinOrderAmount: &minimum,
			},
		}},
		orders: &mockOrderRepo{},
		sink:   &mockSink{},
		mux:    http.NewServeMux(),
	}

	svc, err := checkout.NewService(checkout.Deps{
		Validator: coupon.NewRepoValidator(f.coupons),
		Coupons:   f.coupons,
		Orders:    f.orders,
		Delivery:  whatsapp.NewLinks(""),
		Analytics: f.sink,
	}, checkout.Config{PersistAttempts: 1, PersistRetryDelay: time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(svc.Wait)

	stores := &mockStoreRepo{stores: map[string]store.Store{"loja": loja}}
	NewHandler(stores, f.products, svc).Register(f.mux)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, r)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(w.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestGetStore(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodGet, "/api/stores/LOJA", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Loja da Ana", body["name"])

	w, body = f.do(t, http.MethodGet, "/api/stores/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "store not found", body["message"])
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodGet, "/api/stores/loja/products", "")
	require.Equal(t, http.StatusOK, w.Code)

	var products []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(t, products, 2)
	assert.Equal(t, "59.90", products[0]["price"])

	options := products[0]["options"].([]any)
	require.Len(t, options, 1)
	assert.Equal(t, "64.90", options[0].(map[string]any)["price"])
}

func TestListProducts_RecordsVisit(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodGet, "/api/stores/loja/products", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Eventually(t, func() bool {
		f.sink.mu.Lock()
		defer f.sink.mu.Unlock()
		return len(f.sink.events) == 1 && f.sink.events[0].Type == analytics.EventCatalogVisit
	}, time.Second, 5*time.Millisecond)
}

func TestListProducts_RepositoryError(t *testing.T) {
	f := newFixture(t)
	f.products.err = errors.New("connection reset")

	w, body := f.do(t, http.MethodGet, "/api/stores/loja/products", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", body["message"])
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodGet, "/api/stores/loja/products/p1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Camiseta", body["name"])

	w, _ = f.do(t, http.MethodGet, "/api/stores/loja/products/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       map[string]any
	}{
		{
			name:       "no coupon",
			body:       `{"items":[{"product_id":"p1","quantity":2}]}`,
			wantStatus: http.StatusOK,
			want:       map[string]any{"subtotal": "119.80", "discount": "0.00", "total": "119.80"},
		},
		{
			name:       "percentage coupon",
			body:       `{"items":[{"product_id":"p1","quantity":2}],"coupon_code":" dez "}`,
			wantStatus: http.StatusOK,
			want:       map[string]any{"subtotal": "119.80", "discount": "11.98", "total": "107.82", "coupon_code": "DEZ"},
		},
		{
			name:       "variation price",
			body:       `{"items":[{"product_id":"p1","variation_id":"v1","quantity":1}]}`,
			wantStatus: http.StatusOK,
			want:       map[string]any{"subtotal": "64.90", "total": "64.90"},
		},
		{
			name:       "coupon below minimum",
			body:       `{"items":[{"product_id":"p1","quantity":1}],"coupon_code":"VIP"}`,
			wantStatus: http.StatusOK,
			want:       map[string]any{"total": "59.90", "coupon_error": "minimum order amount is R$ 500.00"},
		},
		{
			name:       "unknown coupon",
			body:       `{"items":[{"product_id":"p1","quantity":1}],"coupon_code":"NADA"}`,
			wantStatus: http.StatusOK,
			want:       map[string]any{"total": "59.90", "coupon_error": "coupon not found"},
		},
		{
			name:       "unknown product",
			body:       `{"items":[{"product_id":"p9","quantity":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			want:       map[string]any{"message": "product p9 not found"},
		},
		{
			name:       "unknown variation",
			body:       `{"items":[{"product_id":"p1","variation_id":"v9","quantity":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "out of stock",
			body:       `{"items":[{"product_id":"p2","quantity":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid quantity",
			body:       `{"items":[{"product_id":"p1","quantity":0}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "merged quantity overflow",
			body:       `{"items":[{"product_id":"p1","quantity":9223372036854775807},{"product_id":"p1","quantity":1}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "merged quantity above line maximum",
			body:       `{"items":[{"product_id":"p1","quantity":9000},{"product_id":"p1","quantity":1000}]}`,
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "malformed body",
			body:       `{"items":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w, body := f.do(t, http.MethodPost, "/api/stores/loja/quote", tt.body)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			for k, v := range tt.want {
				assert.Equal(t, v, body[k], k)
			}
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/stores/loja/orders", `{
		"items":[{"product_id":"p1","quantity":2},{"product_id":"p1","variation_id":"v1","quantity":1}],
		"coupon_code":"DEZ",
		"customer":{"name":" Maria ","phone":"11 98888-7777"}
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	o := body["order"].(map[string]any)
	assert.Equal(t, "order-1", o["id"])
	assert.Equal(t, "pending", o["status"])
	assert.Equal(t, "184.70", o["subtotal"])
	assert.Equal(t, "18.47", o["discount"])
	assert.Equal(t, "166.23", o["total"])
	assert.Equal(t, "DEZ", o["coupon_code"])
	assert.Len(t, o["items"], 2)

	message := body["message"].(string)
	assert.True(t, strings.HasPrefix(message, "📦 PEDIDO - Loja da Ana\n\n👤 Cliente: Maria\n"))
	assert.True(t, strings.HasSuffix(message, "💳 Total: R$ 166.23"))

	receipt := body["delivery"].(map[string]any)
	assert.Equal(t, whatsapp.ChannelName, receipt["channel"])
	assert.True(t, strings.HasPrefix(receipt["url"].(string), "https://wa.me/5511999990000?text="))
	assert.Empty(t, body["warnings"])
	assert.Equal(t, true, body["persisted"])

	require.Len(t, f.orders.created, 1)
	assert.Eventually(t, func() bool {
		f.coupons.mu.Lock()
		defer f.coupons.mu.Unlock()
		return len(f.coupons.used) == 1 && f.coupons.used[0] == "c1"
	}, time.Second, 5*time.Millisecond)
}

func TestPlaceOrder_MissingCustomer(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodPost, "/api/stores/loja/orders",
		`{"items":[{"product_id":"p1","quantity":1}],"customer":{"name":"Maria","phone":"  "}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, f.orders.created)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture(t)

	w, body := f.do(t, http.MethodPost, "/api/stores/loja/orders",
		`{"items":[],"customer":{"name":"Maria","phone":"11 98888-7777"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, checkout.ErrEmptyCart.Error(), body["message"])
}

func TestPlaceOrder_Warnings(t *testing.T) {
	f := newFixture(t)
	f.orders.err = errors.New("db down")

	w, body := f.do(t, http.MethodPost, "/api/stores/loja/orders", `{
		"items":[{"product_id":"p1","quantity":1}],
		"coupon_code":"VIP",
		"customer":{"name":"Maria","phone":"11 98888-7777"}
	}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	o := body["order"].(map[string]any)
	assert.NotContains(t, o, "id")
	assert.Equal(t, "59.90", o["total"])
	assert.NotContains(t, o, "coupon_code")
	assert.Equal(t, []any{"minimum order amount is R$ 500.00"}, body["warnings"])
	assert.Equal(t, false, body["persisted"])
	assert.NotNil(t, body["delivery"])
}
