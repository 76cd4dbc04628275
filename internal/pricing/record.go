// Package pricing defines the price-record fact and resolves which record is
// temporally active for a (store, product) pair.
package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsmart-dev/backend-grocer/internal/promo"
)

// StockStatus reports shelf availability as recorded with the price.
type StockStatus string

const (
	// StockInStock means the product was seen available.
	StockInStock StockStatus = "in_stock"
	// StockOut means the product was seen unavailable.
	StockOut StockStatus = "out_of_stock"
	// StockUnknown means availability was not recorded.
	StockUnknown StockStatus = "unknown"
)

// ParseStockStatus validates a raw stock tag, defaulting blanks to unknown.
func ParseStockStatus(raw string) (StockStatus, bool) {
	switch StockStatus(raw) {
	case StockInStock, StockOut, StockUnknown:
		return StockStatus(raw), true
	case "":
		return StockUnknown, true
	default:
		return StockUnknown, false
	}
}

// Record is a single observed price for a product at a store, valid over a
// date window. Records are immutable facts; corrections arrive as new rows.
type Record struct {
	ID           int64
	StoreID      uuid.UUID
	ProductID    uuid.UUID
	Price        decimal.Decimal
	Currency     string
	ValidFrom    time.Time
	ValidTo      *time.Time
	Promotion    promo.Promotion
	Restrictions string
	Stock        StockStatus
	CreatedAt    time.Time
}

// ActiveOn reports whether the record's validity window covers the instant.
func (r Record) ActiveOn(asOf time.Time) bool {
	if r.ValidFrom.After(asOf) {
		return false
	}
	if r.ValidTo != nil && r.ValidTo.Before(asOf) {
		return false
	}
	return true
}

// Effective applies the record's promotion to its list price.
func (r Record) Effective() promo.Effective {
	return promo.EffectivePrice(r.Price, r.Promotion)
}

// InStock reports whether the record may back a purchasable offer. Unknown
// availability counts as purchasable; only an explicit out-of-stock excludes.
func (r Record) InStock() bool {
	return r.Stock != StockOut
}
