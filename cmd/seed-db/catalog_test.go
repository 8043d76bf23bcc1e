package main

import (
	"os"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/vitrine/internal/domain/coupon"
)

func TestParseCatalog_SeedFile(t *testing.T) {
	data, err := os.ReadFile("../../db/seed/catalog.json")
	require.NoError(t, err)

	cat, err := parseCatalog(data)
	require.NoError(t, err)

	assert.Equal(t, "loja-da-ana", cat.Store.Slug)
	require.Len(t, cat.Products, 4)
	assert.Len(t, cat.Products[0].Variations, 3)
	assert.True(t, cat.Products[0].Variations[2].Price.Equal(decimal.RequireFromString("64.90")))
	assert.False(t, cat.Products[3].InStock)

	require.Len(t, cat.Coupons, 4)
	frete := cat.Coupons[1]
	assert.Equal(t, coupon.DiscountFixed, frete.DiscountType)
	require.NotNil(t, frete.MinOrderAmount)
	assert.True(t, frete.MinOrderAmount.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, cat.Coupons[2].UsageLimit)
	assert.Equal(t, 50, *cat.Coupons[2].UsageLimit)
	require.NotNil(t, cat.Coupons[3].ExpiresAt)
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "missing store", data: `{"products":[]}`},
		{name: "product without name", data: `{"store":{"slug":"a","name":"A"},"products":[{"price":"1"}]}`},
		{name: "bad discount type", data: `{"store":{"slug":"a","name":"A"},"coupons":[{"code":"X","discount_type":"bogus","value":1}]}`},
		{name: "bad price", data: `{"store":{"slug":"a","name":"A"},"products":[{"name":"x","price":"abc"}]}`},
		{name: "malformed", data: `{"store":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCatalog([]byte(tt.data))
			require.Error(t, err)
		})
	}
}

func TestParseCatalog_NumericValues(t *testing.T) {
	cat, err := parseCatalog([]byte(`{
		"store":{"slug":"a","name":"A"},
		"coupons":[{"code":" dez ","discount_type":"percentage","value":10}]
	}`))
	require.NoError(t, err)
	require.Len(t, cat.Coupons, 1)
	assert.Equal(t, "DEZ", cat.Coupons[0].Code)
	assert.True(t, cat.Coupons[0].Value.Equal(decimal.NewFromInt(10)))
	assert.True(t, cat.Coupons[0].Active)
}

func TestFakeProducts(t *testing.T) {
	products := fakeProducts(gofakeit.New(7), 6)
	require.Len(t, products, 6)
	for i, p := range products {
		assert.NotEmpty(t, p.Name)
		assert.True(t, p.Price.GreaterThanOrEqual(decimal.NewFromInt(10)), p.Price.String())
		if i%2 == 0 {
			assert.Len(t, p.Variations, len(fakeSizes))
		} else {
			assert.Empty(t, p.Variations)
		}
	}
}
