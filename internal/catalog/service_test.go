package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopsmart-dev/backend-grocer/internal/catalog"
	"github.com/shopsmart-dev/backend-grocer/internal/common"
	"github.com/shopsmart-dev/backend-grocer/internal/pricing"
	"github.com/shopsmart-dev/backend-grocer/internal/promo"
)

var (
	storeA = uuid.MustParse("11111111-0000-0000-0000-000000000001")
	storeB = uuid.MustParse("22222222-0000-0000-0000-000000000002")

	milkID  = uuid.MustParse("aaaaaaaa-0000-0000-0000-00000000000a")
	breadID = uuid.MustParse("bbbbbbbb-0000-0000-0000-00000000000b")
)

type fakeRepo struct {
	products   map[uuid.UUID]catalog.Product
	stores     map[uuid.UUID]catalog.Store
	candidates []pricing.Record
	history    []pricing.Record
	inserted   []catalog.PriceInput
	insertErr  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		products: map[uuid.UUID]catalog.Product{
			milkID:  {ID: milkID, Name: "Whole Milk 1L", Brand: "DairyBest"},
			breadID: {ID: breadID, Name: "White Bread 500g", Brand: "BakeHouse"},
		},
		stores: map[uuid.UUID]catalog.Store{
			storeA: {ID: storeA, Name: "FreshMart Center", Active: true},
			storeB: {ID: storeB, Name: "GreenGrocer Plaza", Active: true},
		},
	}
}

func (f *fakeRepo) GetProduct(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, common.NewAppError("NOT_FOUND", "product not found", 404, nil)
	}
	return p, nil
}

func (f *fakeRepo) ProductsByIDs(_ context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListProducts(_ context.Context, _ string, limit, offset int) ([]catalog.Product, int64, error) {
	all := []catalog.Product{f.products[milkID], f.products[breadID]}
	if offset >= len(all) {
		return []catalog.Product{}, int64(len(all)), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], int64(len(all)), nil
}

func (f *fakeRepo) GetStore(_ context.Context, id uuid.UUID) (catalog.Store, error) {
	s, ok := f.stores[id]
	if !ok {
		return catalog.Store{}, common.NewAppError("NOT_FOUND", "store not found", 404, nil)
	}
	return s, nil
}

func (f *fakeRepo) ListStores(_ context.Context, activeOnly bool) ([]catalog.Store, error) {
	out := make([]catalog.Store, 0, len(f.stores))
	for _, s := range f.stores {
		if activeOnly && !s.Active {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRepo) InsertPriceRecord(_ context.Context, input catalog.PriceInput) (pricing.Record, error) {
	if f.insertErr != nil {
		return pricing.Record{}, f.insertErr
	}
	f.inserted = append(f.inserted, input)
	return pricing.Record{
		ID:        int64(len(f.inserted)),
		StoreID:   input.StoreID,
		ProductID: input.ProductID,
		Price:     input.Price,
		Currency:  input.Currency,
		ValidFrom: input.ValidFrom,
		ValidTo:   input.ValidTo,
		Promotion: input.Promotion,
		Stock:     input.Stock,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *fakeRepo) ListPriceHistory(_ context.Context, productID uuid.UUID, _, _ int) ([]pricing.Record, error) {
	out := make([]pricing.Record, 0)
	for _, rec := range f.history {
		if rec.ProductID == productID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRepo) CandidateRecords(_ context.Context, productIDs []uuid.UUID, asOf time.Time) ([]pricing.Record, error) {
	out := make([]pricing.Record, 0)
	for _, rec := range f.candidates {
		for _, id := range productIDs {
			if rec.ProductID == id && rec.ActiveOn(asOf) {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) DeleteExpiredBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func newService(t *testing.T, repo catalog.Repo) *catalog.Service {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Repo:         repo,
		DefaultPage:  1,
		DefaultLimit: 20,
		MaxLimit:     100,
	})
	require.NoError(t, err)
	return svc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSnapshotPicksOneRecordPerStorePair(t *testing.T) {
	repo := newFakeRepo()
	newer := day(2025, 5, 1)
	older := day(2025, 4, 1)
	end := day(2025, 12, 31)
	repo.candidates = []pricing.Record{
		{ID: 1, StoreID: storeA, ProductID: milkID, Price: decimal.RequireFromString("1.50"),
			ValidFrom: older, ValidTo: &end, Promotion: promo.None(), Stock: pricing.StockInStock, CreatedAt: older},
		{ID: 2, StoreID: storeA, ProductID: milkID, Price: decimal.RequireFromString("1.39"),
			ValidFrom: newer, ValidTo: &end, Promotion: promo.None(), Stock: pricing.StockInStock, CreatedAt: newer},
		{ID: 3, StoreID: storeB, ProductID: milkID, Price: decimal.RequireFromString("1.45"),
			ValidFrom: older, Promotion: promo.None(), Stock: pricing.StockInStock, CreatedAt: older},
	}
	svc := newService(t, repo)

	snap, err := svc.Snapshot(context.Background(), []uuid.UUID{milkID}, day(2025, 6, 1))
	require.NoError(t, err)

	offers := snap.Offers[milkID]
	require.Len(t, offers, 2)
	for _, offer := range offers {
		if offer.StoreID == storeA {
			// The later window wins the overlap.
			require.Equal(t, int64(2), offer.ID)
		}
	}
	require.Len(t, snap.Stores, 2)
	require.Contains(t, snap.Products, milkID)
}

func TestSnapshotSkipsRecordsOutsideWindow(t *testing.T) {
	repo := newFakeRepo()
	expired := day(2025, 1, 31)
	repo.candidates = []pricing.Record{
		{ID: 1, StoreID: storeA, ProductID: milkID, Price: decimal.RequireFromString("1.50"),
			ValidFrom: day(2025, 1, 1), ValidTo: &expired, Promotion: promo.None(), Stock: pricing.StockInStock},
	}
	svc := newService(t, repo)

	snap, err := svc.Snapshot(context.Background(), []uuid.UUID{milkID}, day(2025, 6, 1))
	require.NoError(t, err)
	require.Empty(t, snap.Offers[milkID])
}

func TestIngestPriceValidation(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(t, repo)
	ctx := context.Background()

	base := catalog.PriceInput{
		StoreID:   storeA,
		ProductID: milkID,
		Price:     decimal.RequireFromString("1.39"),
		Currency:  "EUR",
		ValidFrom: day(2025, 6, 1),
		Promotion: promo.None(),
		Stock:     pricing.StockInStock,
	}

	t.Run("accepts a valid record", func(t *testing.T) {
		dto, err := svc.IngestPrice(ctx, base)
		require.NoError(t, err)
		require.Equal(t, milkID.String(), dto.ProductID)
		require.Len(t, repo.inserted, 1)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		input := base
		input.Price = decimal.RequireFromString("-1")
		_, err := svc.IngestPrice(ctx, input)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("rejects inverted window", func(t *testing.T) {
		input := base
		before := day(2025, 5, 1)
		input.ValidTo = &before
		_, err := svc.IngestPrice(ctx, input)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("rejects unknown store", func(t *testing.T) {
		input := base
		input.StoreID = uuid.MustParse("99999999-0000-0000-0000-000000000009")
		_, err := svc.IngestPrice(ctx, input)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "NOT_FOUND", appErr.Code)
	})

	t.Run("propagates conflicts", func(t *testing.T) {
		repo.insertErr = &common.AppError{Code: "CONFLICT", Message: "duplicate", HTTPStatus: 409}
		defer func() { repo.insertErr = nil }()
		_, err := svc.IngestPrice(ctx, base)
		var appErr *common.AppError
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, "CONFLICT", appErr.Code)
	})
}

func TestPriceHistoryReportsEffectivePrice(t *testing.T) {
	repo := newFakeRepo()
	repo.history = []pricing.Record{
		{ID: 7, StoreID: storeA, ProductID: milkID, Price: decimal.RequireFromString("2.00"),
			Currency: "EUR", ValidFrom: day(2025, 5, 1),
			Promotion: promo.Promotion{Kind: promo.KindTwoForOne}, Stock: pricing.StockInStock},
	}
	svc := newService(t, repo)

	rows, err := svc.PriceHistory(context.Background(), milkID, 1, 20)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].EffectiveUnitPrice.Equal(decimal.RequireFromString("1.00")))
	require.Equal(t, 2, rows[0].MinQuantity)
}
