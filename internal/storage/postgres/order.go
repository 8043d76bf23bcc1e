package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (store_id, customer_name, customer_phone, items,
			subtotal, discount, total, coupon_code, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id::text, created_at`

	getOrderByIDSQL = `SELECT id::text, store_id::text, customer_name, customer_phone, items,
			subtotal, discount, total, coupon_code, status, created_at
		FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order and sets its ID and creation time. The order
// items are stored as a JSON array in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	var couponCode *string
	if o.CouponCode != "" {
		couponCode = &o.CouponCode
	}

	err := r.pool.QueryRow(ctx, createOrderSQL,
		o.StoreID, o.CustomerName, o.CustomerPhone, encodeItems(o.Items),
		o.Subtotal, o.Discount, o.Total, couponCode, string(o.Status),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating order for store %q: %w", o.StoreID, err)
	}
	return nil
}

// GetByID returns a stored order. Checkout never reads orders back; it is used
// to verify what Create stored.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, pgx.ErrNoRows)
	}

	rows, err := r.pool.Query(ctx, getOrderByIDSQL, oid)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o          order.Order
		items      []byte
		couponCode *string
		status     string
	)
	if err := row.Scan(
		&o.ID, &o.StoreID, &o.CustomerName, &o.CustomerPhone, &items,
		&o.Subtotal, &o.Discount, &o.Total, &couponCode, &status, &o.CreatedAt,
	); err != nil {
		return order.Order{}, err
	}

	var err error
	if o.Items, err = decodeItems(items); err != nil {
		return order.Order{}, errors.Wrap(err, "decode items")
	}
	if o.Status, err = order.ParseStatus(status); err != nil {
		return order.Order{}, err
	}
	if couponCode != nil {
		o.CouponCode = *couponCode
	}
	return o, nil
}

func encodeItems(items []order.Item) []byte {
	var e jx.Encoder
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(it.ProductID)
		e.FieldStart("product_name")
		e.Str(it.ProductName)
		if it.VariationID != "" || it.VariationName != "" {
			e.FieldStart("variation_id")
			e.Str(it.VariationID)
			e.FieldStart("variation_name")
			e.Str(it.VariationName)
		}
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unit_price")
		e.Str(it.UnitPrice.StringFixed(2))
		e.FieldStart("line_total")
		e.Str(it.LineTotal.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	return e.Bytes()
}

func decodeItems(data []byte) ([]order.Item, error) {
	var items []order.Item
	d := jx.DecodeBytes(data)
	err := d.Arr(func(d *jx.Decoder) error {
		var it order.Item
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "product_id":
				it.ProductID, err = d.Str()
			case "product_name":
				it.ProductName, err = d.Str()
			case "variation_id":
				it.VariationID, err = d.Str()
			case "variation_name":
				it.VariationName, err = d.Str()
			case "quantity":
				it.Quantity, err = d.Int()
			case "unit_price":
				it.UnitPrice, err = decodeDecimal(d)
			case "line_total":
				it.LineTotal, err = decodeDecimal(d)
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		if it.ProductID == "" || it.Quantity <= 0 {
			return errors.Errorf("invalid order item %q", it.ProductName)
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

// decodeDecimal reads a decimal encoded as a JSON string or number.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("unexpected %s for decimal", d.Next())
	}
}
