// Command seed-db loads a demo storefront into the database.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/domain/product"
	"github.com/xenking/vitrine/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
		fakeCount   int
		fakeSeed    uint64
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.IntVar(&fakeCount, "fake-products", 0, "number of generated products added to the catalog")
	flag.Uint64Var(&fakeSeed, "fake-seed", 0, "seed of generated products")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile, fakeCount, fakeSeed); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string, fakeCount int, fakeSeed uint64) error {
	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}
	cat, err := parseCatalog(data)
	if err != nil {
		return errors.Wrap(err, "parse catalog")
	}
	cat.Products = append(cat.Products, fakeProducts(gofakeit.New(fakeSeed), fakeCount)...)

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	stores := postgres.NewStoreRepository(pool)
	products := postgres.NewProductRepository(pool)
	coupons := postgres.NewCouponRepository(pool)

	if err := stores.Upsert(ctx, &cat.Store); err != nil {
		return errors.Wrap(err, "upsert store")
	}
	lg.Info("Upserted store", zap.String("id", cat.Store.ID), zap.String("slug", cat.Store.Slug))

	existing, err := products.ListByStore(ctx, cat.Store.ID)
	if err != nil {
		return errors.Wrap(err, "list products")
	}
	if len(existing) > 0 {
		lg.Info("Catalog already seeded, skipping products", zap.Int("count", len(existing)))
	} else {
		for i := range cat.Products {
			p := &cat.Products[i]
			p.StoreID = cat.Store.ID
			if err := products.Create(ctx, p, i); err != nil {
				return errors.Wrapf(err, "create product %q", p.Name)
			}
			lg.Info("Created product", zap.String("id", p.ID), zap.String("name", p.Name))
		}
	}

	for i := range cat.Coupons {
		c := &cat.Coupons[i]
		c.StoreID = cat.Store.ID
		if err := coupons.Upsert(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert coupon %q", c.Code)
		}
		lg.Info("Upserted coupon", zap.String("code", c.Code), zap.Int("used", c.UsedCount))
	}

	return nil
}

var fakeSizes = []string{"P", "M", "G", "GG"}

// fakeProducts generates n products priced between 10 and 200. Every other
// product gets size variations.
func fakeProducts(f *gofakeit.Faker, n int) []product.Product {
	out := make([]product.Product, 0, n)
	for i := 0; i < n; i++ {
		price := decimal.NewFromFloat(f.Price(10, 200)).Round(2)
		p := product.Product{
			Name:    f.ProductName(),
			Price:   price,
			InStock: f.Float64Range(0, 1) < 0.9,
		}
		if i%2 == 0 {
			for j, size := range fakeSizes {
				p.Variations = append(p.Variations, product.Variation{
					Name:  size,
					Price: price.Add(decimal.NewFromInt(int64(j * 5))),
				})
			}
		}
		out = append(out, p)
	}
	return out
}
