package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopsmart-dev/backend-grocer/internal/common"
	"github.com/shopsmart-dev/backend-grocer/internal/pricing"
	"github.com/shopsmart-dev/backend-grocer/internal/promo"
)

// ErrRepoUnavailable indicates the repository dependency is not configured.
var ErrRepoUnavailable = errors.New("catalog: repo unavailable")

const pgUniqueViolation = "23505"

// Product is a sellable catalog item.
type Product struct {
	ID          uuid.UUID
	Name        string
	Brand       string
	UnitCode    string
	PackageSize string
	CategoryID  *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store is a retailer location.
type Store struct {
	ID        uuid.UUID
	Name      string
	Active    bool
	CreatedAt time.Time
}

// PriceInput carries a new price observation for ingestion.
type PriceInput struct {
	StoreID      uuid.UUID
	ProductID    uuid.UUID
	Price        decimal.Decimal
	Currency     string
	ValidFrom    time.Time
	ValidTo      *time.Time
	Promotion    promo.Promotion
	Restrictions string
	Stock        pricing.StockStatus
}

// Repo provides database accessors for the grocery catalog.
type Repo interface {
	GetProduct(ctx context.Context, id uuid.UUID) (Product, error)
	ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	ListProducts(ctx context.Context, query string, limit, offset int) ([]Product, int64, error)
	GetStore(ctx context.Context, id uuid.UUID) (Store, error)
	ListStores(ctx context.Context, activeOnly bool) ([]Store, error)
	InsertPriceRecord(ctx context.Context, input PriceInput) (pricing.Record, error)
	ListPriceHistory(ctx context.Context, productID uuid.UUID, limit, offset int) ([]pricing.Record, error)
	CandidateRecords(ctx context.Context, productIDs []uuid.UUID, asOf time.Time) ([]pricing.Record, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewRepo constructs a Repo backed by a pgx connection pool.
func NewRepo(pool *pgxpool.Pool) Repo {
	return &pgRepo{pool: pool}
}

type pgRepo struct {
	pool *pgxpool.Pool
}

const productColumns = `id, name, brand, unit_code, package_size, category_id, created_at, updated_at`

// GetProduct fetches a product by id.
func (r *pgRepo) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	if r == nil || r.pool == nil {
		return Product{}, ErrRepoUnavailable
	}
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, notFound("product not found", map[string]any{"productId": id.String()}, err)
		}
		return Product{}, err
	}
	return product, nil
}

// ProductsByIDs fetches the products matching the provided ids. Missing ids
// are simply absent from the result; the caller decides whether that is an
// error.
func (r *pgRepo) ProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	if r == nil || r.pool == nil {
		return nil, ErrRepoUnavailable
	}
	if len(ids) == 0 {
		return []Product{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// ListProducts returns products matching an optional search term with pagination.
func (r *pgRepo) ListProducts(ctx context.Context, query string, limit, offset int) ([]Product, int64, error) {
	if r == nil || r.pool == nil {
		return nil, 0, ErrRepoUnavailable
	}
	query = strings.TrimSpace(query)
	pattern := "%" + query + "%"

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM products WHERE $1 = '' OR name ILIKE $2 OR brand ILIKE $2`,
		query, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
WHERE $1 = '' OR name ILIKE $2 OR brand ILIKE $2
ORDER BY name, id LIMIT $3 OFFSET $4`,
		query, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// GetStore fetches a store by id.
func (r *pgRepo) GetStore(ctx context.Context, id uuid.UUID) (Store, error) {
	if r == nil || r.pool == nil {
		return Store{}, ErrRepoUnavailable
	}
	var store Store
	err := r.pool.QueryRow(ctx, `SELECT id, name, active, created_at FROM stores WHERE id = $1`, id).
		Scan(&store.ID, &store.Name, &store.Active, &store.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Store{}, notFound("store not found", map[string]any{"storeId": id.String()}, err)
		}
		return Store{}, err
	}
	return store, nil
}

// ListStores returns stores, optionally restricted to active ones.
func (r *pgRepo) ListStores(ctx context.Context, activeOnly bool) ([]Store, error) {
	if r == nil || r.pool == nil {
		return nil, ErrRepoUnavailable
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, active, created_at FROM stores WHERE $1 = false OR active ORDER BY name, id`,
		activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stores := make([]Store, 0)
	for rows.Next() {
		var store Store
		if err := rows.Scan(&store.ID, &store.Name, &store.Active, &store.CreatedAt); err != nil {
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

const recordColumns = `id, store_id, product_id, price::text, currency, valid_from, valid_to,
promo_kind, promo_percent::text, promo_bundle_total::text, promo_bundle_size, promo_override_price::text,
restrictions, stock_status, created_at`

// InsertPriceRecord persists a new price observation. A duplicate
// (store, product, valid_from) triple maps to a CONFLICT error; overlapping
// windows are allowed and resolved at read time.
func (r *pgRepo) InsertPriceRecord(ctx context.Context, input PriceInput) (pricing.Record, error) {
	if r == nil || r.pool == nil {
		return pricing.Record{}, ErrRepoUnavailable
	}
	var (
		percent, bundleTotal, overridePrice *string
		bundleSize                          *int
	)
	switch input.Promotion.Kind {
	case promo.KindPercentOff:
		v := input.Promotion.Percent.String()
		percent = &v
	case promo.KindFixedBundle:
		v := input.Promotion.BundleTotal.String()
		bundleTotal = &v
		size := input.Promotion.BundleSize
		bundleSize = &size
	case promo.KindUnitPriceOverride:
		if input.Promotion.OverridePrice != nil {
			v := input.Promotion.OverridePrice.String()
			overridePrice = &v
		}
	}

	row := r.pool.QueryRow(ctx, `INSERT INTO price_records
(store_id, product_id, price, currency, valid_from, valid_to, promo_kind, promo_percent, promo_bundle_total, promo_bundle_size, promo_override_price, restrictions, stock_status)
VALUES ($1, $2, $3::numeric, $4, $5, $6, $7, $8::numeric, $9::numeric, $10, $11::numeric, $12, $13)
RETURNING `+recordColumns,
		input.StoreID, input.ProductID, input.Price.String(), input.Currency,
		input.ValidFrom, input.ValidTo, string(input.Promotion.Kind),
		percent, bundleTotal, bundleSize, overridePrice,
		input.Restrictions, string(input.Stock))
	record, err := scanRecord(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return pricing.Record{}, &common.AppError{
				Code:       "CONFLICT",
				Message:    "a price record already exists for this store, product, and valid_from",
				HTTPStatus: http.StatusConflict,
				Err:        err,
			}
		}
		return pricing.Record{}, fmt.Errorf("insert price record: %w", err)
	}
	return record, nil
}

// ListPriceHistory returns price records for a product, newest window first.
func (r *pgRepo) ListPriceHistory(ctx context.Context, productID uuid.UUID, limit, offset int) ([]pricing.Record, error) {
	if r == nil || r.pool == nil {
		return nil, ErrRepoUnavailable
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM price_records
WHERE product_id = $1
ORDER BY valid_from DESC, created_at DESC, id DESC
LIMIT $2 OFFSET $3`, productID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

// CandidateRecords fetches, in one bounded read, every record whose window
// covers asOf for the given products at active stores. The caller applies
// the overlap resolution order per (store, product) pair.
func (r *pgRepo) CandidateRecords(ctx context.Context, productIDs []uuid.UUID, asOf time.Time) ([]pricing.Record, error) {
	if r == nil || r.pool == nil {
		return nil, ErrRepoUnavailable
	}
	if len(productIDs) == 0 {
		return []pricing.Record{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT pr.id, pr.store_id, pr.product_id, pr.price::text, pr.currency, pr.valid_from, pr.valid_to,
pr.promo_kind, pr.promo_percent::text, pr.promo_bundle_total::text, pr.promo_bundle_size, pr.promo_override_price::text,
pr.restrictions, pr.stock_status, pr.created_at
FROM price_records pr
JOIN stores s ON s.id = pr.store_id AND s.active
WHERE pr.product_id = ANY($1)
  AND pr.valid_from <= $2
  AND (pr.valid_to IS NULL OR pr.valid_to >= $2)`,
		productIDs, asOf)
	if err != nil {
		return nil, fmt.Errorf("candidate records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// DeleteExpiredBefore removes records whose window closed before the cutoff.
func (r *pgRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r == nil || r.pool == nil {
		return 0, ErrRepoUnavailable
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM price_records WHERE valid_to IS NOT NULL AND valid_to < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.UnitCode, &p.PackageSize, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanRecord(row pgx.Row) (pricing.Record, error) {
	var (
		rec                                 pricing.Record
		price                               string
		kind                                string
		percent, bundleTotal, overridePrice *string
		bundleSize                          *int
		stock                               string
	)
	if err := row.Scan(&rec.ID, &rec.StoreID, &rec.ProductID, &price, &rec.Currency,
		&rec.ValidFrom, &rec.ValidTo, &kind, &percent, &bundleTotal, &bundleSize,
		&overridePrice, &rec.Restrictions, &stock, &rec.CreatedAt); err != nil {
		return pricing.Record{}, err
	}

	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return pricing.Record{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	rec.Price = parsed

	promotion := promo.Promotion{Kind: promo.Kind(kind)}
	if percent != nil {
		if promotion.Percent, err = decimal.NewFromString(*percent); err != nil {
			return pricing.Record{}, fmt.Errorf("parse promo percent %q: %w", *percent, err)
		}
	}
	if bundleTotal != nil {
		if promotion.BundleTotal, err = decimal.NewFromString(*bundleTotal); err != nil {
			return pricing.Record{}, fmt.Errorf("parse bundle total %q: %w", *bundleTotal, err)
		}
	}
	if bundleSize != nil {
		promotion.BundleSize = *bundleSize
	}
	if overridePrice != nil {
		override, err := decimal.NewFromString(*overridePrice)
		if err != nil {
			return pricing.Record{}, fmt.Errorf("parse override price %q: %w", *overridePrice, err)
		}
		promotion.OverridePrice = &override
	}
	rec.Promotion = promotion

	status, _ := pricing.ParseStockStatus(stock)
	rec.Stock = status
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]pricing.Record, error) {
	records := make([]pricing.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func notFound(message string, details map[string]any, err error) *common.AppError {
	return &common.AppError{
		Code:       "NOT_FOUND",
		Message:    message,
		HTTPStatus: http.StatusNotFound,
		Err:        err,
		Details:    details,
	}
}
