package basket

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopsmart-dev/backend-grocer/internal/common"
	"github.com/shopsmart-dev/backend-grocer/internal/pricing"
	"github.com/shopsmart-dev/backend-grocer/internal/promo"
)

var (
	storeX = uuid.MustParse("11111111-0000-0000-0000-000000000001")
	storeY = uuid.MustParse("22222222-0000-0000-0000-000000000002")
	storeZ = uuid.MustParse("33333333-0000-0000-0000-000000000003")

	productA = uuid.MustParse("aaaaaaaa-0000-0000-0000-00000000000a")
	productB = uuid.MustParse("bbbbbbbb-0000-0000-0000-00000000000b")
)

func testSnapshot(records ...pricing.Record) Snapshot {
	snap := Snapshot{
		AsOf: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Products: map[uuid.UUID]Product{
			productA: {ID: productA, Name: "Milk 1L"},
			productB: {ID: productB, Name: "Bread"},
		},
		Stores: map[uuid.UUID]Store{
			storeX: {ID: storeX, Name: "Store X"},
			storeY: {ID: storeY, Name: "Store Y"},
			storeZ: {ID: storeZ, Name: "Store Z"},
		},
		Offers: map[uuid.UUID][]pricing.Record{},
	}
	for _, rec := range records {
		snap.Offers[rec.ProductID] = append(snap.Offers[rec.ProductID], rec)
	}
	return snap
}

func offer(store, product uuid.UUID, price string, p promo.Promotion, stock pricing.StockStatus) pricing.Record {
	return pricing.Record{
		StoreID:   store,
		ProductID: product,
		Price:     decimal.RequireFromString(price),
		Currency:  "EUR",
		ValidFrom: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Promotion: p,
		Stock:     stock,
	}
}

func qty(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestComparePromotionBeatsLowerListPrice(t *testing.T) {
	snap := testSnapshot(
		offer(storeX, productA, "100", promo.Promotion{Kind: promo.KindTwoForOne}, pricing.StockInStock),
		offer(storeY, productA, "90", promo.None(), pricing.StockInStock),
	)
	result, err := Compare([]Line{{ProductID: productA, Quantity: qty("2")}}, snap)
	require.NoError(t, err)

	require.Len(t, result.MixAndMatch.Lines, 1)
	line := result.MixAndMatch.Lines[0]
	require.True(t, line.Available)
	require.Equal(t, storeX, *line.StoreID)
	require.True(t, line.UnitPrice.Equal(qty("50")), "unit price %s", line.UnitPrice)
	require.True(t, line.Subtotal.Equal(qty("100")), "subtotal %s", line.Subtotal)
	require.Equal(t, promo.KindTwoForOne, line.Promotion)
	require.Equal(t, 2, line.MinQuantity)

	require.NotNil(t, result.SingleStore.Best)
	require.Equal(t, storeX, result.SingleStore.Best.StoreID)
	require.True(t, result.SingleStore.Best.Total.Equal(qty("100")))
	require.NotNil(t, result.Comparison.SavingsAbsolute)
	require.True(t, result.Comparison.SavingsAbsolute.IsZero())
}

func TestCompareBestSingleStoreMustCoverWholeBasket(t *testing.T) {
	// X is cheapest on A but does not carry B; only Z qualifies as a
	// single-store answer.
	snap := testSnapshot(
		offer(storeX, productA, "1.00", promo.None(), pricing.StockInStock),
		offer(storeZ, productA, "2.00", promo.None(), pricing.StockInStock),
		offer(storeZ, productB, "3.00", promo.None(), pricing.StockInStock),
	)
	lines := []Line{
		{ProductID: productA, Quantity: qty("1")},
		{ProductID: productB, Quantity: qty("1")},
	}
	result, err := Compare(lines, snap)
	require.NoError(t, err)

	require.NotNil(t, result.SingleStore.Best)
	require.Equal(t, storeZ, result.SingleStore.Best.StoreID)
	require.True(t, result.SingleStore.Best.Total.Equal(qty("5.00")))
	require.Len(t, result.SingleStore.Alternatives, 1)

	// Mix-and-match still splits across X and Z.
	require.True(t, result.MixAndMatch.Total.Equal(qty("4.00")), "mix total %s", result.MixAndMatch.Total)
	require.Len(t, result.MixAndMatch.PerStoreSubtotals, 2)

	require.NotNil(t, result.Comparison.SavingsAbsolute)
	require.True(t, result.Comparison.SavingsAbsolute.Equal(qty("1.00")))
	require.NotNil(t, result.Comparison.SavingsPercent)
	require.True(t, result.Comparison.SavingsPercent.Equal(qty("20")), "pct %s", result.Comparison.SavingsPercent)
}

func TestComparePriceTieBreaksOnAscendingStoreID(t *testing.T) {
	snap := testSnapshot(
		offer(storeY, productA, "5.00", promo.None(), pricing.StockInStock),
		offer(storeX, productA, "5.00", promo.None(), pricing.StockInStock),
	)
	result, err := Compare([]Line{{ProductID: productA, Quantity: qty("1")}}, snap)
	require.NoError(t, err)
	require.Equal(t, storeX, *result.MixAndMatch.Lines[0].StoreID)
}

func TestCompareOutOfStockOfferIsNotPurchasable(t *testing.T) {
	snap := testSnapshot(
		offer(storeX, productA, "1.00", promo.None(), pricing.StockOut),
		offer(storeY, productA, "9.00", promo.None(), pricing.StockInStock),
	)
	result, err := Compare([]Line{{ProductID: productA, Quantity: qty("1")}}, snap)
	require.NoError(t, err)
	require.Equal(t, storeY, *result.MixAndMatch.Lines[0].StoreID)
}

func TestCompareWholeBasketUnavailable(t *testing.T) {
	snap := testSnapshot(
		offer(storeX, productA, "1.00", promo.None(), pricing.StockOut),
	)
	result, err := Compare([]Line{{ProductID: productA, Quantity: qty("1")}}, snap)
	require.NoError(t, err)

	require.False(t, result.MixAndMatch.Lines[0].Available)
	require.Equal(t, []uuid.UUID{productA}, result.MixAndMatch.UnavailableProductIDs)
	require.True(t, result.MixAndMatch.Total.IsZero())
	require.Nil(t, result.SingleStore.Best)
	require.Nil(t, result.Comparison.SavingsAbsolute)
}

func TestCompareMalformedPromotionFallsBackWithWarning(t *testing.T) {
	snap := testSnapshot(
		offer(storeX, productA, "4.00",
			promo.Promotion{Kind: promo.KindPercentOff, Percent: qty("150")}, pricing.StockInStock),
	)
	result, err := Compare([]Line{{ProductID: productA, Quantity: qty("1")}}, snap)
	require.NoError(t, err)

	line := result.MixAndMatch.Lines[0]
	require.True(t, line.UnitPrice.Equal(qty("4.00")))
	require.Contains(t, line.Warnings, WarnPromotionMalformed)
}

func TestCompareValidationErrors(t *testing.T) {
	snap := testSnapshot(
		offer(storeX, productA, "1.00", promo.None(), pricing.StockInStock),
	)
	unknown := uuid.MustParse("dddddddd-0000-0000-0000-00000000000d")

	t.Run("empty basket", func(t *testing.T) {
		_, err := Compare(nil, snap)
		requireValidationError(t, err)
	})
	t.Run("duplicate lines", func(t *testing.T) {
		_, err := Compare([]Line{
			{ProductID: productA, Quantity: qty("1")},
			{ProductID: productA, Quantity: qty("2")},
		}, snap)
		requireValidationError(t, err)
	})
	t.Run("non-positive quantity", func(t *testing.T) {
		_, err := Compare([]Line{{ProductID: productA, Quantity: qty("0")}}, snap)
		requireValidationError(t, err)
	})
	t.Run("unknown product named in details", func(t *testing.T) {
		_, err := Compare([]Line{{ProductID: unknown, Quantity: qty("1")}}, snap)
		appErr := requireValidationError(t, err)
		details, ok := appErr.Details.(map[string]any)
		require.True(t, ok)
		require.Equal(t, []string{unknown.String()}, details["missingProductIds"])
	})
}

func TestCompareIsDeterministicAndPure(t *testing.T) {
	snap := testSnapshot(
		offer(storeX, productA, "2.50", promo.Promotion{Kind: promo.KindSecondHalfPrice}, pricing.StockInStock),
		offer(storeY, productA, "2.10", promo.None(), pricing.StockInStock),
		offer(storeX, productB, "1.80", promo.None(), pricing.StockInStock),
		offer(storeY, productB, "1.75", promo.None(), pricing.StockInStock),
	)
	lines := []Line{
		{ProductID: productA, Quantity: qty("3")},
		{ProductID: productB, Quantity: qty("2")},
	}
	first, err := Compare(lines, snap)
	require.NoError(t, err)
	second, err := Compare(lines, snap)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCompareMixTotalNeverExceedsSingleStoreTotals(t *testing.T) {
	snap := testSnapshot(
		offer(storeX, productA, "3.20", promo.Promotion{Kind: promo.KindThreeForTwo}, pricing.StockInStock),
		offer(storeY, productA, "2.90", promo.None(), pricing.StockInStock),
		offer(storeZ, productA, "3.05", promo.Promotion{Kind: promo.KindPercentOff, Percent: qty("10")}, pricing.StockInStock),
		offer(storeX, productB, "1.10", promo.None(), pricing.StockInStock),
		offer(storeY, productB, "0.99", promo.None(), pricing.StockInStock),
		offer(storeZ, productB, "1.25", promo.None(), pricing.StockInStock),
	)
	lines := []Line{
		{ProductID: productA, Quantity: qty("3")},
		{ProductID: productB, Quantity: qty("4")},
	}
	result, err := Compare(lines, snap)
	require.NoError(t, err)

	require.NotEmpty(t, result.SingleStore.Alternatives)
	for _, option := range result.SingleStore.Alternatives {
		require.True(t, result.MixAndMatch.Total.LessThanOrEqual(option.Total),
			"mix %s must not exceed store %s total %s", result.MixAndMatch.Total, option.StoreID, option.Total)
	}
}

func requireValidationError(t *testing.T, err error) *common.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
	require.Equal(t, 422, appErr.HTTPStatus)
	return appErr
}
