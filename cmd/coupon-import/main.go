// Command coupon-import bulk-loads a coupon campaign for one store from
// gzip-compressed code lists, one code per line.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/storage/postgres"
)

type options struct {
	databaseURL string
	storeSlug   string
	files       []string
	dryRun      bool
	template    coupon.Coupon
}

func main() {
	var (
		opts         options
		discountType string
		value        string
		minOrder     string
		usageLimit   int
		expiresAt    string
	)

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.storeSlug, "store", "", "slug of the store owning the coupons")
	flag.StringVar(&discountType, "type", "percentage", "discount type: percentage or fixed")
	flag.StringVar(&value, "value", "", "discount value")
	flag.StringVar(&minOrder, "min-order", "", "minimum order amount")
	flag.IntVar(&usageLimit, "usage-limit", 0, "maximum uses per code, 0 for unlimited")
	flag.StringVar(&expiresAt, "expires-at", "", "expiry time in RFC 3339")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "scan files without writing")
	flag.Parse()
	opts.files = flag.Args()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	opts.template, err = buildTemplate(discountType, value, minOrder, usageLimit, expiresAt)
	if err != nil {
		lg.Fatal("Invalid campaign", zap.Error(err))
	}
	if err := opts.validate(); err != nil {
		lg.Fatal("Invalid arguments", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, opts); err != nil {
		lg.Fatal("Coupon import failed", zap.Error(err))
	}
	lg.Info("Coupon import completed")
}

func (o options) validate() error {
	switch {
	case len(o.files) == 0:
		return errors.New("at least one code file is required")
	case len(o.files) > maxFiles:
		return errors.Errorf("at most %d code files are supported", maxFiles)
	case o.storeSlug == "":
		return errors.New("--store is required")
	case o.databaseURL == "" && !o.dryRun:
		return errors.New("database URL is required: set --database-url or DATABASE_URL")
	}
	return nil
}

// buildTemplate returns the campaign rule shared by every imported code.
func buildTemplate(discountType, value, minOrder string, usageLimit int, expiresAt string) (coupon.Coupon, error) {
	dt, err := coupon.ParseDiscountType(discountType)
	if err != nil {
		return coupon.Coupon{}, err
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return coupon.Coupon{}, errors.Wrap(err, "value")
	}
	if v.IsNegative() || (dt == coupon.DiscountPercentage && v.GreaterThan(decimal.NewFromInt(100))) {
		return coupon.Coupon{}, errors.Errorf("value %s out of range for %s", v, dt)
	}

	c := coupon.Coupon{DiscountType: dt, Value: v, Active: true}
	if minOrder != "" {
		m, err := decimal.NewFromString(minOrder)
		if err != nil {
			return coupon.Coupon{}, errors.Wrap(err, "min order")
		}
		c.MinOrderAmount = &m
	}
	if usageLimit > 0 {
		c.UsageLimit = &usageLimit
	}
	if expiresAt != "" {
		t, err := time.Parse(time.RFC3339, expiresAt)
		if err != nil {
			return coupon.Coupon{}, errors.Wrap(err, "expires at")
		}
		c.ExpiresAt = &t
	}
	return c, nil
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	for _, f := range opts.files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	lg.Info("Pass 1: building bloom filters", zap.Int("files", len(opts.files)))
	filters, err := buildBloomFilters(ctx, lg, opts.files)
	if err != nil {
		return errors.Wrap(err, "build bloom filters")
	}

	lg.Info("Pass 2: finding codes shared between files")
	shared, err := findSharedCodes(ctx, lg, opts.files, filters)
	if err != nil {
		return errors.Wrap(err, "find shared codes")
	}
	for code, mask := range shared {
		lg.Warn("Code listed in several files, importing once",
			zap.String("code", code),
			zap.Strings("files", filesOf(opts.files, mask)),
		)
	}

	if opts.dryRun {
		lg.Info("Dry run, nothing written", zap.Int("shared", len(shared)))
		return nil
	}

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	s, err := postgres.NewStoreRepository(pool).GetBySlug(ctx, opts.storeSlug)
	if err != nil {
		return errors.Wrapf(err, "get store %q", opts.storeSlug)
	}

	w := &writer{
		repo:     postgres.NewCouponRepository(pool),
		template: opts.template,
		storeID:  s.ID,
		shared:   shared,
		written:  make(map[string]struct{}, len(shared)),
	}
	for _, f := range opts.files {
		if err := w.importFile(ctx, f); err != nil {
			return err
		}
		lg.Info("File imported", zap.String("file", f), zap.Int("written", w.count))
	}
	return nil
}

// upserter is the subset of the coupon repository used by the import.
type upserter interface {
	Upsert(ctx context.Context, c *coupon.Coupon) error
}

// writer upserts codes with the campaign template. Codes shared between
// files are written once.
type writer struct {
	repo     upserter
	template coupon.Coupon
	storeID  string
	shared   map[string]uint
	written  map[string]struct{}
	count    int
}

func (w *writer) importFile(ctx context.Context, path string) error {
	var writeErr error
	err := streamCodes(ctx, path, func(code string) bool {
		if _, ok := w.shared[code]; ok {
			if _, done := w.written[code]; done {
				return true
			}
			w.written[code] = struct{}{}
		}
		c := w.template
		c.StoreID = w.storeID
		c.Code = code
		if err := w.repo.Upsert(ctx, &c); err != nil {
			writeErr = errors.Wrapf(err, "upsert coupon %s", code)
			return false
		}
		w.count++
		return true
	})
	if writeErr != nil {
		return writeErr
	}
	return err
}

func filesOf(files []string, mask uint) []string {
	var out []string
	for i, f := range files {
		if mask&(1<<uint(i)) != 0 {
			out = append(out, f)
		}
	}
	return out
}
