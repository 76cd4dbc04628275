package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsmart-dev/backend-grocer/internal/basket"
	"github.com/shopsmart-dev/backend-grocer/internal/common"
	"github.com/shopsmart-dev/backend-grocer/internal/obs"
	"github.com/shopsmart-dev/backend-grocer/internal/pricing"
	"github.com/shopsmart-dev/backend-grocer/internal/promo"
)

const (
	storesCacheKey   = "catalog:stores:active"
	productsCacheKey = "catalog:products:list:popular"
)

// Service orchestrates catalog queries, DTO assembly, caching, and snapshot
// building for the basket engine.
type Service struct {
	repo         Repo
	cache        *Cache
	defaultPage  int
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Repo         Repo
	Cache        *Cache
	DefaultPage  int
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Repo == nil {
		return nil, errors.New("catalog: repo is required")
	}
	defaultPage := cfg.DefaultPage
	if defaultPage < 1 {
		defaultPage = 1
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		repo:         cfg.Repo,
		cache:        cfg.Cache,
		defaultPage:  defaultPage,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ProductDTO is the public product payload.
type ProductDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand,omitempty"`
	UnitCode    string  `json:"unitCode,omitempty"`
	PackageSize string  `json:"packageSize,omitempty"`
	CategoryID  *string `json:"categoryId,omitempty"`
}

// StoreDTO is the public store payload.
type StoreDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// PromotionDTO describes a promotion with its typed parameters.
type PromotionDTO struct {
	Kind          promo.Kind       `json:"kind"`
	Percent       *decimal.Decimal `json:"percent,omitempty"`
	BundleTotal   *decimal.Decimal `json:"bundleTotal,omitempty"`
	BundleSize    *int             `json:"bundleSize,omitempty"`
	OverridePrice *decimal.Decimal `json:"overridePrice,omitempty"`
}

// PriceDTO is the public price record payload enriched with the effective price.
type PriceDTO struct {
	ID                 int64           `json:"id"`
	StoreID            string          `json:"storeId"`
	ProductID          string          `json:"productId"`
	Price              decimal.Decimal `json:"price"`
	Currency           string          `json:"currency"`
	ValidFrom          string          `json:"validFrom"`
	ValidTo            *string         `json:"validTo,omitempty"`
	Promotion          PromotionDTO    `json:"promotion"`
	Restrictions       string          `json:"restrictions,omitempty"`
	StockStatus        string          `json:"stockStatus"`
	EffectiveUnitPrice decimal.Decimal `json:"effectiveUnitPrice"`
	MinQuantity        int             `json:"minQuantity"`
	PromotionMalformed bool            `json:"promotionMalformed,omitempty"`
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductDTO
	Total int64
	Page  int
	Limit int
}

// ClampPaging normalises page and limit against the configured bounds.
func (s *Service) ClampPaging(page, limit int) (int, int) {
	if page < 1 {
		page = s.defaultPage
	}
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return page, limit
}

// ListStores returns active stores, served from cache when possible.
func (s *Service) ListStores(ctx context.Context) ([]StoreDTO, error) {
	var cached []StoreDTO
	if ok, err := s.cache.GetJSON(ctx, storesCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	stores, err := s.repo.ListStores(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	result := make([]StoreDTO, 0, len(stores))
	for _, store := range stores {
		result = append(result, StoreDTO{ID: store.ID.String(), Name: store.Name, Active: store.Active})
	}
	_ = s.cache.SetJSON(ctx, storesCacheKey, result)
	return result, nil
}

// GetStore returns a single store by id.
func (s *Service) GetStore(ctx context.Context, id uuid.UUID) (StoreDTO, error) {
	store, err := s.repo.GetStore(ctx, id)
	if err != nil {
		return StoreDTO{}, err
	}
	return StoreDTO{ID: store.ID.String(), Name: store.Name, Active: store.Active}, nil
}

// ListProducts returns a filtered product list with pagination metadata.
func (s *Service) ListProducts(ctx context.Context, query string, page, limit int) (ProductListResult, error) {
	page, limit = s.ClampPaging(page, limit)
	query = strings.TrimSpace(query)

	useCache := query == "" && page == s.defaultPage && limit == s.defaultLimit
	if useCache {
		var cached ProductListResult
		if ok, err := s.cache.GetJSON(ctx, productsCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	offset := (page - 1) * limit
	products, total, err := s.repo.ListProducts(ctx, query, limit, offset)
	if err != nil {
		return ProductListResult{}, err
	}
	items := make([]ProductDTO, 0, len(products))
	for _, p := range products {
		items = append(items, productDTO(p))
	}
	result := ProductListResult{Items: items, Total: total, Page: page, Limit: limit}
	if useCache {
		_ = s.cache.SetJSON(ctx, productsCacheKey, result)
	}
	return result, nil
}

// GetProduct returns a single product by id.
func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (ProductDTO, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return ProductDTO{}, err
	}
	return productDTO(product), nil
}

// PriceHistory returns a product's price records, newest first, enriched with
// the effective price the promotion yields.
func (s *Service) PriceHistory(ctx context.Context, productID uuid.UUID, page, limit int) ([]PriceDTO, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	page, limit = s.ClampPaging(page, limit)
	records, err := s.repo.ListPriceHistory(ctx, productID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	result := make([]PriceDTO, 0, len(records))
	for _, rec := range records {
		result = append(result, priceDTO(rec))
	}
	return result, nil
}

// IngestPrice validates and persists a new price observation.
func (s *Service) IngestPrice(ctx context.Context, input PriceInput) (PriceDTO, error) {
	if input.Price.IsNegative() {
		obs.ObservePriceIngest("validation_error")
		return PriceDTO{}, &common.AppError{
			Code:       "VALIDATION_ERROR",
			Message:    "price must not be negative",
			HTTPStatus: http.StatusUnprocessableEntity,
		}
	}
	if input.ValidTo != nil && input.ValidTo.Before(input.ValidFrom) {
		obs.ObservePriceIngest("validation_error")
		return PriceDTO{}, &common.AppError{
			Code:       "VALIDATION_ERROR",
			Message:    "valid_to must not precede valid_from",
			HTTPStatus: http.StatusUnprocessableEntity,
		}
	}
	if _, err := s.repo.GetStore(ctx, input.StoreID); err != nil {
		obs.ObservePriceIngest("unknown_store")
		return PriceDTO{}, err
	}
	if _, err := s.repo.GetProduct(ctx, input.ProductID); err != nil {
		obs.ObservePriceIngest("unknown_product")
		return PriceDTO{}, err
	}
	record, err := s.repo.InsertPriceRecord(ctx, input)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Code == "CONFLICT" {
			obs.ObservePriceIngest("conflict")
		} else {
			obs.ObservePriceIngest("error")
		}
		return PriceDTO{}, err
	}
	obs.ObservePriceIngest("ok")
	_ = s.cache.Invalidate(ctx, productsCacheKey)
	return priceDTO(record), nil
}

// Snapshot builds a read-consistent catalog view for one basket computation:
// products, active stores, and the winning active record per (store, product)
// pair, all fetched up front. Implements basket.SnapshotProvider.
func (s *Service) Snapshot(ctx context.Context, productIDs []uuid.UUID, asOf time.Time) (basket.Snapshot, error) {
	products, err := s.repo.ProductsByIDs(ctx, productIDs)
	if err != nil {
		return basket.Snapshot{}, fmt.Errorf("snapshot products: %w", err)
	}
	stores, err := s.repo.ListStores(ctx, true)
	if err != nil {
		return basket.Snapshot{}, fmt.Errorf("snapshot stores: %w", err)
	}
	candidates, err := s.repo.CandidateRecords(ctx, productIDs, asOf)
	if err != nil {
		return basket.Snapshot{}, fmt.Errorf("snapshot records: %w", err)
	}

	snap := basket.Snapshot{
		AsOf:     asOf,
		Products: make(map[uuid.UUID]basket.Product, len(products)),
		Stores:   make(map[uuid.UUID]basket.Store, len(stores)),
		Offers:   make(map[uuid.UUID][]pricing.Record, len(products)),
	}
	for _, p := range products {
		snap.Products[p.ID] = basket.Product{ID: p.ID, Name: p.Name}
	}
	for _, store := range stores {
		snap.Stores[store.ID] = basket.Store{ID: store.ID, Name: store.Name}
	}

	// All candidates are temporally valid; per (store, product) pair the
	// overlap resolution order decides which one is "the" price.
	type pair struct {
		store   uuid.UUID
		product uuid.UUID
	}
	winners := make(map[pair]pricing.Record)
	for _, rec := range candidates {
		key := pair{store: rec.StoreID, product: rec.ProductID}
		current, ok := winners[key]
		if !ok || pricing.Precedes(current, rec) {
			winners[key] = rec
		}
	}
	for _, rec := range winners {
		snap.Offers[rec.ProductID] = append(snap.Offers[rec.ProductID], rec)
	}
	return snap, nil
}

// WarmListings refreshes the hot listing caches. Used by the worker.
func (s *Service) WarmListings(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, storesCacheKey, productsCacheKey); err != nil {
		return err
	}
	if _, err := s.ListStores(ctx); err != nil {
		return err
	}
	_, err := s.ListProducts(ctx, "", s.defaultPage, s.defaultLimit)
	return err
}

// SweepExpired deletes price records whose window closed before now minus
// the retention period. Used by the worker.
func (s *Service) SweepExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	return s.repo.DeleteExpiredBefore(ctx, cutoff)
}

func productDTO(p Product) ProductDTO {
	dto := ProductDTO{
		ID:          p.ID.String(),
		Name:        p.Name,
		Brand:       p.Brand,
		UnitCode:    p.UnitCode,
		PackageSize: p.PackageSize,
	}
	if p.CategoryID != nil {
		category := p.CategoryID.String()
		dto.CategoryID = &category
	}
	return dto
}

func priceDTO(rec pricing.Record) PriceDTO {
	eff := rec.Effective()
	dto := PriceDTO{
		ID:                 rec.ID,
		StoreID:            rec.StoreID.String(),
		ProductID:          rec.ProductID.String(),
		Price:              rec.Price,
		Currency:           rec.Currency,
		ValidFrom:          rec.ValidFrom.Format("2006-01-02"),
		Promotion:          promotionDTO(rec.Promotion),
		Restrictions:       rec.Restrictions,
		StockStatus:        string(rec.Stock),
		EffectiveUnitPrice: eff.UnitPrice,
		MinQuantity:        eff.MinQuantity,
		PromotionMalformed: eff.Malformed,
	}
	if rec.ValidTo != nil {
		validTo := rec.ValidTo.Format("2006-01-02")
		dto.ValidTo = &validTo
	}
	return dto
}

func promotionDTO(p promo.Promotion) PromotionDTO {
	dto := PromotionDTO{Kind: p.Kind}
	switch p.Kind {
	case promo.KindPercentOff:
		percent := p.Percent
		dto.Percent = &percent
	case promo.KindFixedBundle:
		total := p.BundleTotal
		size := p.BundleSize
		dto.BundleTotal = &total
		dto.BundleSize = &size
	case promo.KindUnitPriceOverride:
		dto.OverridePrice = p.OverridePrice
	}
	return dto
}
