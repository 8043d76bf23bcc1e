package main

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/domain/product"
	"github.com/xenking/vitrine/internal/domain/store"
)

type catalog struct {
	Store    store.Store
	Products []product.Product
	Coupons  []coupon.Coupon
}

func parseCatalog(data []byte) (*catalog, error) {
	var cat catalog
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "store":
			return decodeStore(d, &cat.Store)
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return errors.Wrapf(err, "product %d", len(cat.Products))
				}
				cat.Products = append(cat.Products, p)
				return nil
			})
		case "coupons":
			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeCoupon(d)
				if err != nil {
					return errors.Wrapf(err, "coupon %d", len(cat.Coupons))
				}
				cat.Coupons = append(cat.Coupons, c)
				return nil
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	if cat.Store.Slug == "" || cat.Store.Name == "" {
		return nil, errors.New("store slug and name are required")
	}
	return &cat, nil
}

func decodeStore(d *jx.Decoder, s *store.Store) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "slug":
			s.Slug, err = d.Str()
		case "name":
			s.Name, err = d.Str()
		case "whatsapp":
			s.WhatsApp, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
}

func decodeProduct(d *jx.Decoder) (product.Product, error) {
	p := product.Product{InStock: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
		case "in_stock":
			p.InStock, err = d.Bool()
		case "variations":
			err = d.Arr(func(d *jx.Decoder) error {
				var v product.Variation
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "name":
						v.Name, err = d.Str()
					case "price":
						v.Price, err = decodeDecimal(d)
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				p.Variations = append(p.Variations, v)
				return nil
			})
		case "options":
			err = d.Arr(func(d *jx.Decoder) error {
				var o product.Option
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "name":
						o.Name, err = d.Str()
					case "price_adjustment":
						o.PriceAdjustment, err = decodeDecimal(d)
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				p.Options = append(p.Options, o)
				return nil
			})
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && p.Name == "" {
		err = errors.New("name is required")
	}
	return p, err
}

func decodeCoupon(d *jx.Decoder) (coupon.Coupon, error) {
	c := coupon.Coupon{Active: true}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			s, err := d.Str()
			c.Code = coupon.NormalizeCode(s)
			return err
		case "discount_type":
			s, err := d.Str()
			if err != nil {
				return err
			}
			c.DiscountType, err = coupon.ParseDiscountType(s)
			return err
		case "value":
			v, err := decodeDecimal(d)
			c.Value = v
			return err
		case "min_order_amount":
			v, err := decodeDecimal(d)
			c.MinOrderAmount = &v
			return err
		case "usage_limit":
			n, err := d.Int()
			c.UsageLimit = &n
			return err
		case "expires_at":
			s, err := d.Str()
			if err != nil {
				return err
			}
			t, err := time.Parse(time.RFC3339, s)
			c.ExpiresAt = &t
			return err
		case "active":
			v, err := d.Bool()
			c.Active = v
			return err
		default:
			return d.Skip()
		}
	})
	if err == nil && (c.Code == "" || c.DiscountType == "") {
		err = errors.New("code and discount_type are required")
	}
	return c, err
}

// decodeDecimal accepts both JSON strings and numbers.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(n.String())
}
