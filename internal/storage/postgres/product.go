package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/product"
)

const (
	productColumns = `id::text, store_id::text, name, price, in_stock`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products WHERE store_id = $1 ORDER BY position, created_at, id`

	getProductByIDSQL = `SELECT ` + productColumns + `
		FROM products WHERE store_id = $1 AND id = $2`

	getProductsByIDsSQL = `SELECT ` + productColumns + `
		FROM products WHERE store_id = $1 AND id = ANY($2) ORDER BY position, created_at, id`

	listVariationsSQL = `SELECT product_id::text, id::text, name, price
		FROM product_variations WHERE product_id = ANY($1) ORDER BY position, id`

	listOptionsSQL = `SELECT product_id::text, id::text, name, price_adjustment
		FROM product_options WHERE product_id = ANY($1) ORDER BY position, id`

	insertProductSQL = `INSERT INTO products (store_id, name, price, in_stock, position)
		VALUES ($1, $2, $3, $4, $5) RETURNING id::text`

	insertVariationSQL = `INSERT INTO product_variations (product_id, name, price, position)
		VALUES ($1, $2, $3, $4) RETURNING id::text`

	insertOptionSQL = `INSERT INTO product_options (product_id, name, price_adjustment, position)
		VALUES ($1, $2, $3, $4) RETURNING id::text`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// ListByStore returns the store's catalog in display order.
func (r *ProductRepository) ListByStore(ctx context.Context, storeID string) ([]product.Product, error) {
	sid, err := uuid.Parse(storeID)
	if err != nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, listProductsSQL, sid)
	if err != nil {
		return nil, fmt.Errorf("listing products of store %q: %w", storeID, err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products of store %q: %w", storeID, err)
	}
	return r.withChoices(ctx, products)
}

// GetByID returns a single product of the store.
func (r *ProductRepository) GetByID(ctx context.Context, storeID, id string) (*product.Product, error) {
	ids := parseIDs([]string{storeID, id})
	if len(ids) != 2 {
		return nil, product.ErrNotFound
	}

	rows, err := r.pool.Query(ctx, getProductByIDSQL, ids[0], ids[1])
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	withChoices, err := r.withChoices(ctx, []product.Product{p})
	if err != nil {
		return nil, err
	}
	return &withChoices[0], nil
}

// GetByIDs returns the store's products matching any of the given IDs.
// Unknown IDs are skipped.
func (r *ProductRepository) GetByIDs(ctx context.Context, storeID string, ids []string) ([]product.Product, error) {
	sid, err := uuid.Parse(storeID)
	if err != nil {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, sid, parseIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return r.withChoices(ctx, products)
}

// Create inserts the product with its variations and options in one
// transaction and sets the generated IDs.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product, position int) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertProductSQL,
			p.StoreID, p.Name, p.Price, p.InStock, position,
		).Scan(&p.ID); err != nil {
			return fmt.Errorf("inserting product %q: %w", p.Name, err)
		}
		for i := range p.Variations {
			v := &p.Variations[i]
			if err := tx.QueryRow(ctx, insertVariationSQL, p.ID, v.Name, v.Price, i).Scan(&v.ID); err != nil {
				return fmt.Errorf("inserting variation %q: %w", v.Name, err)
			}
		}
		for i := range p.Options {
			o := &p.Options[i]
			if err := tx.QueryRow(ctx, insertOptionSQL, p.ID, o.Name, o.PriceAdjustment, i).Scan(&o.ID); err != nil {
				return fmt.Errorf("inserting option %q: %w", o.Name, err)
			}
		}
		return nil
	})
}

// withChoices loads variations and options for products in two queries.
func (r *ProductRepository) withChoices(ctx context.Context, products []product.Product) ([]product.Product, error) {
	if len(products) == 0 {
		return products, nil
	}

	ids := make([]string, len(products))
	index := make(map[string]int, len(products))
	for i, p := range products {
		ids[i] = p.ID
		index[p.ID] = i
	}
	pids := parseIDs(ids)

	rows, err := r.pool.Query(ctx, listVariationsSQL, pids)
	if err != nil {
		return nil, fmt.Errorf("listing variations: %w", err)
	}
	variations, err := pgx.CollectRows(rows, scanVariation)
	if err != nil {
		return nil, fmt.Errorf("listing variations: %w", err)
	}
	for _, v := range variations {
		i := index[v.productID]
		products[i].Variations = append(products[i].Variations, v.Variation)
	}

	rows, err = r.pool.Query(ctx, listOptionsSQL, pids)
	if err != nil {
		return nil, fmt.Errorf("listing options: %w", err)
	}
	options, err := pgx.CollectRows(rows, scanOption)
	if err != nil {
		return nil, fmt.Errorf("listing options: %w", err)
	}
	for _, o := range options {
		i := index[o.productID]
		products[i].Options = append(products[i].Options, o.Option)
	}

	return products, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.StoreID, &p.Name, &price, &p.InStock)
	p.Price = price
	return p, err
}

type variationRow struct {
	productID string
	product.Variation
}

func scanVariation(row pgx.CollectableRow) (variationRow, error) {
	var v variationRow
	err := row.Scan(&v.productID, &v.ID, &v.Name, &v.Price)
	return v, err
}

type optionRow struct {
	productID string
	product.Option
}

func scanOption(row pgx.CollectableRow) (optionRow, error) {
	var o optionRow
	err := row.Scan(&o.productID, &o.ID, &o.Name, &o.PriceAdjustment)
	return o, err
}
