package basket

import (
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsmart-dev/backend-grocer/internal/common"
	"github.com/shopsmart-dev/backend-grocer/internal/pricing"
)

const maxRankedStores = 3

// ReconcileStore answers "if I commit to buying the whole basket at this
// store, what do I actually pay". Promotions round the purchase quantity up
// to their minimum, never down; lines the store cannot supply contribute
// zero and are flagged. More lenient than Compare's single-store rule: the
// store need not cover the basket to get a total.
func ReconcileStore(lines []Line, storeID uuid.UUID, snap Snapshot) (StoreTotal, error) {
	if err := validateLines(lines, snap); err != nil {
		return StoreTotal{}, err
	}
	store, ok := snap.Stores[storeID]
	if !ok {
		return StoreTotal{}, &common.AppError{
			Code:       "NOT_FOUND",
			Message:    "store not found",
			HTTPStatus: http.StatusNotFound,
			Details:    map[string]any{"storeId": storeID.String()},
		}
	}
	return reconcile(lines, store, snap), nil
}

// RankStores reconciles the basket against every store independently and
// returns the cheapest payable totals, ascending. Partial-coverage stores
// stay in the ranking with their missing lines flagged.
func RankStores(lines []Line, snap Snapshot) (Ranking, error) {
	if err := validateLines(lines, snap); err != nil {
		return Ranking{}, err
	}
	totals := make([]StoreTotal, 0, len(snap.Stores))
	for _, store := range snap.Stores {
		totals = append(totals, reconcile(lines, store, snap))
	}
	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].Total.Equal(totals[j].Total) {
			return totals[i].Total.LessThan(totals[j].Total)
		}
		return lessUUID(totals[i].StoreID, totals[j].StoreID)
	})
	if len(totals) > maxRankedStores {
		totals = totals[:maxRankedStores]
	}
	return Ranking{AsOf: snap.AsOf, Stores: totals}, nil
}

func reconcile(lines []Line, store Store, snap Snapshot) StoreTotal {
	out := StoreTotal{
		StoreID:   store.ID,
		StoreName: store.Name,
		Lines:     make([]ReconcileLine, 0, len(lines)),
		Total:     decimal.Zero,
	}
	for _, line := range lines {
		product := snap.Products[line.ProductID]
		rl := ReconcileLine{
			ProductID:         line.ProductID,
			ProductName:       product.Name,
			RequestedQuantity: line.Quantity,
			PurchaseQuantity:  line.Quantity,
			UnitPrice:         decimal.Zero,
			LineTotal:         decimal.Zero,
		}
		rec, ok := offerAt(snap.Offers[line.ProductID], store.ID)
		if !ok {
			out.MissingLines++
			out.Lines = append(out.Lines, rl)
			continue
		}
		eff := rec.Effective()
		purchase := line.Quantity
		minQty := decimal.NewFromInt(int64(eff.MinQuantity))
		if purchase.LessThan(minQty) {
			purchase = minQty
		}
		rl.Available = true
		rl.PurchaseQuantity = purchase
		rl.UnitPrice = eff.UnitPrice
		rl.LineTotal = eff.UnitPrice.Mul(purchase).Round(2)
		rl.Promotion = rec.Promotion.Kind
		rl.PromotionForcedExtraUnit = purchase.GreaterThan(line.Quantity)
		if eff.Malformed {
			rl.Warnings = append(rl.Warnings, WarnPromotionMalformed)
		}
		out.Lines = append(out.Lines, rl)
		out.Total = out.Total.Add(rl.LineTotal)
	}
	out.Total = out.Total.Round(2)
	out.CoversFullBasket = out.MissingLines == 0
	return out
}

// offerAt returns the store's purchasable record for a product. Out-of-stock
// records count as "cannot supply" here, same availability notion as Compare.
func offerAt(records []pricing.Record, storeID uuid.UUID) (pricing.Record, bool) {
	for _, rec := range records {
		if rec.StoreID == storeID && rec.InStock() {
			return rec, true
		}
	}
	return pricing.Record{}, false
}
