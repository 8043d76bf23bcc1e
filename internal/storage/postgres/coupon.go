package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/coupon"
)

const (
	couponColumns = `id::text, store_id::text, code, discount_type, value, min_order_amount,
		usage_limit, used_count, expires_at, active`

	findCouponSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE store_id = $1 AND code = UPPER($2) AND active = TRUE`

	incrementCouponUsedCountSQL = `UPDATE coupons SET used_count = used_count + 1 WHERE id = $1`

	upsertCouponSQL = `INSERT INTO coupons (store_id, code, discount_type, value, min_order_amount,
			usage_limit, expires_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (store_id, code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			min_order_amount = EXCLUDED.min_order_amount,
			usage_limit = EXCLUDED.usage_limit,
			expires_at = EXCLUDED.expires_at,
			active = EXCLUDED.active
		RETURNING id::text, used_count`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCodeAndOwner looks up an active coupon of the store by its code.
// Returns coupon.ErrNotFound when no matching active coupon exists.
func (r *CouponRepository) FindByCodeAndOwner(ctx context.Context, code, storeID string) (*coupon.Coupon, error) {
	sid, err := uuid.Parse(storeID)
	if err != nil {
		return nil, coupon.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, findCouponSQL, sid, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// IncrementUsedCount atomically increments the usage counter of the coupon.
func (r *CouponRepository) IncrementUsedCount(ctx context.Context, id string) error {
	cid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("incrementing used count: coupon id %q: %w", id, err)
	}

	tag, err := r.pool.Exec(ctx, incrementCouponUsedCountSQL, cid)
	if err != nil {
		return fmt.Errorf("incrementing used count for coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Upsert creates or updates the store's coupon by code. The used count of an
// existing coupon is kept.
func (r *CouponRepository) Upsert(ctx context.Context, c *coupon.Coupon) error {
	c.Code = coupon.NormalizeCode(c.Code)
	err := r.pool.QueryRow(ctx, upsertCouponSQL,
		c.StoreID, c.Code, string(c.DiscountType), c.Value, c.MinOrderAmount,
		c.UsageLimit, c.ExpiresAt, c.Active,
	).Scan(&c.ID, &c.UsedCount)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		minOrder     *decimal.Decimal
		usageLimit   *int32
		usedCount    int32
		expiresAt    *time.Time
	)
	if err := row.Scan(
		&c.ID, &c.StoreID, &c.Code, &discountType, &c.Value, &minOrder,
		&usageLimit, &usedCount, &expiresAt, &c.Active,
	); err != nil {
		return coupon.Coupon{}, err
	}

	dt, err := coupon.ParseDiscountType(discountType)
	if err != nil {
		return coupon.Coupon{}, err
	}
	c.DiscountType = dt
	c.MinOrderAmount = minOrder
	if usageLimit != nil {
		limit := int(*usageLimit)
		c.UsageLimit = &limit
	}
	c.UsedCount = int(usedCount)
	c.ExpiresAt = expiresAt
	return c, nil
}
