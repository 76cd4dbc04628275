package pricing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/shopsmart-dev/backend-grocer/internal/promo"
)

var (
	storeA   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	storeB   = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	productX = uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa")
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func record(id int64, store uuid.UUID, from string, to string, created string) Record {
	r := Record{
		ID:        id,
		StoreID:   store,
		ProductID: productX,
		Price:     decimal.NewFromInt(10),
		Currency:  "EUR",
		ValidFrom: day(from),
		Promotion: promo.None(),
		Stock:     StockInStock,
		CreatedAt: day(created),
	}
	if to != "" {
		end := day(to)
		r.ValidTo = &end
	}
	return r
}

func TestActiveForWindowBounds(t *testing.T) {
	records := []Record{record(1, storeA, "2026-01-10", "2026-01-20", "2026-01-01")}

	_, ok := ActiveFor(records, storeA, productX, day("2026-01-09"))
	require.False(t, ok, "before window")

	got, ok := ActiveFor(records, storeA, productX, day("2026-01-10"))
	require.True(t, ok, "valid_from is inclusive")
	require.EqualValues(t, 1, got.ID)

	_, ok = ActiveFor(records, storeA, productX, day("2026-01-20"))
	require.True(t, ok, "valid_to is inclusive")

	_, ok = ActiveFor(records, storeA, productX, day("2026-01-21"))
	require.False(t, ok, "after window")
}

func TestActiveForOpenEndedWindow(t *testing.T) {
	records := []Record{record(7, storeA, "2026-01-01", "", "2026-01-01")}
	_, ok := ActiveFor(records, storeA, productX, day("2030-12-31"))
	require.True(t, ok)
}

func TestActiveForIgnoresOtherPairs(t *testing.T) {
	records := []Record{record(1, storeB, "2026-01-01", "", "2026-01-01")}
	_, ok := ActiveFor(records, storeA, productX, day("2026-01-15"))
	require.False(t, ok)
}

func TestActiveForOverlapOrder(t *testing.T) {
	asOf := day("2026-02-01")

	t.Run("latest valid_from wins", func(t *testing.T) {
		records := []Record{
			record(1, storeA, "2026-01-01", "", "2026-01-01"),
			record(2, storeA, "2026-01-15", "", "2026-01-01"),
		}
		got, ok := ActiveFor(records, storeA, productX, asOf)
		require.True(t, ok)
		require.EqualValues(t, 2, got.ID)
	})

	t.Run("created_at breaks valid_from ties", func(t *testing.T) {
		records := []Record{
			record(1, storeA, "2026-01-15", "", "2026-01-16"),
			record(2, storeA, "2026-01-15", "", "2026-01-15"),
		}
		got, ok := ActiveFor(records, storeA, productX, asOf)
		require.True(t, ok)
		require.EqualValues(t, 1, got.ID)
	})

	t.Run("highest id breaks full ties", func(t *testing.T) {
		records := []Record{
			record(9, storeA, "2026-01-15", "", "2026-01-15"),
			record(4, storeA, "2026-01-15", "", "2026-01-15"),
		}
		got, ok := ActiveFor(records, storeA, productX, asOf)
		require.True(t, ok)
		require.EqualValues(t, 9, got.ID)
	})

	t.Run("order is independent of input order", func(t *testing.T) {
		forward := []Record{
			record(1, storeA, "2026-01-01", "", "2026-01-01"),
			record(2, storeA, "2026-01-15", "", "2026-01-10"),
			record(3, storeA, "2026-01-15", "", "2026-01-10"),
		}
		reversed := []Record{forward[2], forward[1], forward[0]}
		a, ok := ActiveFor(forward, storeA, productX, asOf)
		require.True(t, ok)
		b, ok := ActiveFor(reversed, storeA, productX, asOf)
		require.True(t, ok)
		require.Equal(t, a.ID, b.ID)
		require.EqualValues(t, 3, a.ID)
	})
}

func TestActiveForKeepsOutOfStockRecords(t *testing.T) {
	r := record(1, storeA, "2026-01-01", "", "2026-01-01")
	r.Stock = StockOut
	got, ok := ActiveFor([]Record{r}, storeA, productX, day("2026-01-15"))
	require.True(t, ok, "out of stock is still the valid price")
	require.Equal(t, StockOut, got.Stock)
	require.False(t, got.InStock())
}

func TestParseStockStatus(t *testing.T) {
	cases := map[string]struct {
		want StockStatus
		ok   bool
	}{
		"in_stock":     {StockInStock, true},
		"out_of_stock": {StockOut, true},
		"unknown":      {StockUnknown, true},
		"":             {StockUnknown, true},
		"maybe":        {StockUnknown, false},
	}
	for raw, expect := range cases {
		got, ok := ParseStockStatus(raw)
		require.Equal(t, expect.ok, ok, raw)
		require.Equal(t, expect.want, got, raw)
	}
}
