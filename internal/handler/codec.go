package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/vitrine/internal/delivery"
	"github.com/xenking/vitrine/internal/domain/money"
	"github.com/xenking/vitrine/internal/domain/order"
	"github.com/xenking/vitrine/internal/domain/pricing"
	"github.com/xenking/vitrine/internal/domain/product"
	"github.com/xenking/vitrine/internal/domain/store"
)

// lineRequest is one requested cart line.
type lineRequest struct {
	ProductID   string
	VariationID string
	Quantity    int
}

// cartRequest is the body of quote and order requests.
type cartRequest struct {
	Items      []lineRequest
	CouponCode string
	Customer   order.Customer
}

func decodeCartRequest(w http.ResponseWriter, r *http.Request) (*cartRequest, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &decodeError{err: err}
	}

	var req cartRequest
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				line, err := decodeLine(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, line)
				return nil
			})
		case "coupon_code":
			return decodeOptStr(d, &req.CouponCode)
		case "customer":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "name":
					return decodeOptStr(d, &req.Customer.Name)
				case "phone":
					return decodeOptStr(d, &req.Customer.Phone)
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, &decodeError{err: err}
	}
	return &req, nil
}

func decodeLine(d *jx.Decoder) (lineRequest, error) {
	line := lineRequest{Quantity: 1}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "product_id":
			line.ProductID, err = d.Str()
		case "variation_id":
			err = decodeOptStr(d, &line.VariationID)
		case "quantity":
			line.Quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && line.ProductID == "" {
		err = errors.New("product_id required")
	}
	return line, err
}

// decodeOptStr reads a string that may be null.
func decodeOptStr(d *jx.Decoder, s *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := d.Str()
	*s = v
	return err
}

func encodeStore(e *jx.Encoder, s *store.Store) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(s.ID) })
		e.Field("slug", func(e *jx.Encoder) { e.Str(s.Slug) })
		e.Field("name", func(e *jx.Encoder) { e.Str(s.Name) })
		e.Field("whatsapp", func(e *jx.Encoder) { e.Str(s.WhatsApp) })
	})
}

func encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { e.Str(money.Fixed(p.Price)) })
		e.Field("in_stock", func(e *jx.Encoder) { e.Bool(p.InStock) })
		e.Field("variations", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, v := range p.Variations {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(v.ID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(v.Name) })
						e.Field("price", func(e *jx.Encoder) { e.Str(money.Fixed(v.Price)) })
					})
				}
			})
		})
		e.Field("options", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, o := range p.Options {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(o.Name) })
						e.Field("price_adjustment", func(e *jx.Encoder) { e.Str(money.Fixed(o.PriceAdjustment)) })
						e.Field("price", func(e *jx.Encoder) { e.Str(money.Fixed(p.OptionPrice(o))) })
					})
				}
			})
		})
	})
}

func encodeQuote(e *jx.Encoder, q pricing.Quote, couponErr string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range q.Lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product_id", func(e *jx.Encoder) { e.Str(l.Line.Product.ID) })
						e.Field("product_name", func(e *jx.Encoder) { e.Str(l.Line.Product.Name) })
						if v := l.Line.Variation; v != nil {
							e.Field("variation_id", func(e *jx.Encoder) { e.Str(v.ID) })
							e.Field("variation_name", func(e *jx.Encoder) { e.Str(v.Name) })
						}
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Line.Quantity) })
						e.Field("unit_price", func(e *jx.Encoder) { e.Str(money.Fixed(l.UnitPrice)) })
						e.Field("line_total", func(e *jx.Encoder) { e.Str(money.Fixed(l.LineTotal)) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { e.Str(money.Fixed(q.Subtotal)) })
		e.Field("discount", func(e *jx.Encoder) { e.Str(money.Fixed(q.Discount)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(money.Fixed(q.Total)) })
		if q.CouponCode != "" {
			e.Field("coupon_code", func(e *jx.Encoder) { e.Str(q.CouponCode) })
		}
		if couponErr != "" {
			e.Field("coupon_error", func(e *jx.Encoder) { e.Str(couponErr) })
		}
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		if o.ID != "" {
			e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		}
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("customer", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("name", func(e *jx.Encoder) { e.Str(o.CustomerName) })
				e.Field("phone", func(e *jx.Encoder) { e.Str(o.CustomerPhone) })
			})
		})
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("product_id", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("product_name", func(e *jx.Encoder) { e.Str(it.ProductName) })
						if it.VariationID != "" {
							e.Field("variation_id", func(e *jx.Encoder) { e.Str(it.VariationID) })
							e.Field("variation_name", func(e *jx.Encoder) { e.Str(it.VariationName) })
						}
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("unit_price", func(e *jx.Encoder) { e.Str(money.Fixed(it.UnitPrice)) })
						e.Field("line_total", func(e *jx.Encoder) { e.Str(money.Fixed(it.LineTotal)) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { e.Str(money.Fixed(o.Subtotal)) })
		e.Field("discount", func(e *jx.Encoder) { e.Str(money.Fixed(o.Discount)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(money.Fixed(o.Total)) })
		if o.CouponCode != "" {
			e.Field("coupon_code", func(e *jx.Encoder) { e.Str(o.CouponCode) })
		}
		if !o.CreatedAt.IsZero() {
			e.Field("created_at", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
		}
	})
}

func encodeReceipt(e *jx.Encoder, r *delivery.Receipt) {
	if r == nil {
		e.Null()
		return
	}
	e.Obj(func(e *jx.Encoder) {
		e.Field("channel", func(e *jx.Encoder) { e.Str(r.Channel) })
		if r.URL != "" {
			e.Field("url", func(e *jx.Encoder) { e.Str(r.URL) })
		}
	})
}
