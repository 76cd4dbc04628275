// Package basket implements the price comparison engine: mix-and-match
// assignment, single-store ranking, and per-store reconciliation totals over
// an immutable catalog snapshot.
package basket

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsmart-dev/backend-grocer/internal/pricing"
	"github.com/shopsmart-dev/backend-grocer/internal/promo"
)

// WarnPromotionMalformed is attached to a line whose winning offer carried
// unusable promotion parameters and degraded to the list price.
const WarnPromotionMalformed = "PROMOTION_MALFORMED"

// Line is one basket entry. Quantity is a shopper-chosen rational amount.
type Line struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// Product is the identity slice of a catalog product the engine needs.
type Product struct {
	ID   uuid.UUID
	Name string
}

// Store is the identity slice of a retailer the engine needs.
type Store struct {
	ID   uuid.UUID
	Name string
}

// Snapshot is a read-consistent view of the catalog for one computation. It
// is fetched up front by the collaborator and passed by value; the engine
// never mutates it and keeps no state between invocations.
type Snapshot struct {
	AsOf     time.Time
	Products map[uuid.UUID]Product
	Stores   map[uuid.UUID]Store
	// Offers holds, per product, the active price record per store as
	// selected by the validity resolver. At most one record per store.
	Offers map[uuid.UUID][]pricing.Record
}

// LineResult reports the mix-and-match winner for a single basket line.
type LineResult struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    decimal.Decimal `json:"quantity"`
	Available   bool            `json:"available"`
	StoreID     *uuid.UUID      `json:"storeId,omitempty"`
	StoreName   string          `json:"storeName,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Promotion   promo.Kind      `json:"promotion"`
	MinQuantity int             `json:"minQuantity"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// StoreSubtotal is one store's share of the mix-and-match basket.
type StoreSubtotal struct {
	StoreID   uuid.UUID       `json:"storeId"`
	StoreName string          `json:"storeName"`
	Lines     int             `json:"lines"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// MixAndMatch aggregates the cheapest-per-line assignment.
type MixAndMatch struct {
	Lines                 []LineResult    `json:"lines"`
	PerStoreSubtotals     []StoreSubtotal `json:"perStoreSubtotals"`
	Total                 decimal.Decimal `json:"total"`
	UnavailableProductIDs []uuid.UUID     `json:"unavailableProductIds"`
}

// StoreOption is a qualifying single-store answer: the store carries every
// basket line with stock available.
type StoreOption struct {
	StoreID   uuid.UUID       `json:"storeId"`
	StoreName string          `json:"storeName"`
	Total     decimal.Decimal `json:"total"`
}

// SingleStore ranks full-coverage stores ascending by total.
type SingleStore struct {
	Best         *StoreOption  `json:"best,omitempty"`
	Alternatives []StoreOption `json:"alternatives"`
}

// Comparison reports the saving of mix-and-match shopping over the cheapest
// single store. Percent is nil when no store qualifies or its total is zero.
type Comparison struct {
	SavingsAbsolute *decimal.Decimal `json:"savingsAbsolute,omitempty"`
	SavingsPercent  *decimal.Decimal `json:"savingsPercent,omitempty"`
}

// Result is the engine output. Derived, never persisted; recomputed from
// scratch whenever the basket or the snapshot changes.
type Result struct {
	AsOf        time.Time   `json:"asOf"`
	MixAndMatch MixAndMatch `json:"mixAndMatch"`
	SingleStore SingleStore `json:"singleStore"`
	Comparison  Comparison  `json:"comparison"`
}

// ReconcileLine is one line of a committed-to-store shopping list. When a
// promotion requires buying more than asked, the purchase quantity is rounded
// up, never down.
type ReconcileLine struct {
	ProductID                uuid.UUID       `json:"productId"`
	ProductName              string          `json:"productName"`
	Available                bool            `json:"available"`
	RequestedQuantity        decimal.Decimal `json:"requestedQuantity"`
	PurchaseQuantity         decimal.Decimal `json:"purchaseQuantity"`
	UnitPrice                decimal.Decimal `json:"unitPrice"`
	LineTotal                decimal.Decimal `json:"lineTotal"`
	Promotion                promo.Kind      `json:"promotion"`
	PromotionForcedExtraUnit bool            `json:"promotionForcedExtraUnits"`
	Warnings                 []string        `json:"warnings,omitempty"`
}

// StoreTotal is the payable total when committing the whole basket to one
// store. Missing lines are flagged, never silently omitted.
type StoreTotal struct {
	StoreID          uuid.UUID       `json:"storeId"`
	StoreName        string          `json:"storeName"`
	Lines            []ReconcileLine `json:"lines"`
	Total            decimal.Decimal `json:"total"`
	MissingLines     int             `json:"missingLines"`
	CoversFullBasket bool            `json:"coversFullBasket"`
}

// Ranking surfaces the cheapest stores for committing the basket as-is.
type Ranking struct {
	AsOf   time.Time    `json:"asOf"`
	Stores []StoreTotal `json:"stores"`
}
