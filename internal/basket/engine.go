package basket

import (
	"bytes"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopsmart-dev/backend-grocer/internal/common"
	"github.com/shopsmart-dev/backend-grocer/internal/pricing"
)

const maxAlternatives = 5

// Compare computes the mix-and-match assignment, the single-store ranking,
// and the savings figure for a basket against a catalog snapshot. Pure and
// synchronous: no I/O, no mutation of inputs, O(lines x stores).
func Compare(lines []Line, snap Snapshot) (Result, error) {
	if err := validateLines(lines, snap); err != nil {
		return Result{}, err
	}

	mix := MixAndMatch{
		Lines:                 make([]LineResult, 0, len(lines)),
		PerStoreSubtotals:     []StoreSubtotal{},
		Total:                 decimal.Zero,
		UnavailableProductIDs: []uuid.UUID{},
	}
	perStore := map[uuid.UUID]*StoreSubtotal{}

	type coverage struct {
		lines int
		total decimal.Decimal
	}
	covered := map[uuid.UUID]*coverage{}

	for _, line := range lines {
		product := snap.Products[line.ProductID]
		result := LineResult{
			ProductID:   line.ProductID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   decimal.Zero,
			Subtotal:    decimal.Zero,
		}

		var (
			best      pricing.Record
			bestFound bool
		)
		for _, rec := range snap.Offers[line.ProductID] {
			if !rec.InStock() {
				continue
			}
			if !bestFound || cheaper(rec, best) {
				best = rec
				bestFound = true
			}

			// Every in-stock offer contributes to that store's
			// single-store coverage, independent of who wins the line.
			cov, ok := covered[rec.StoreID]
			if !ok {
				cov = &coverage{total: decimal.Zero}
				covered[rec.StoreID] = cov
			}
			eff := rec.Effective()
			cov.lines++
			cov.total = cov.total.Add(eff.UnitPrice.Mul(line.Quantity).Round(2))
		}

		if !bestFound {
			mix.UnavailableProductIDs = append(mix.UnavailableProductIDs, line.ProductID)
			mix.Lines = append(mix.Lines, result)
			continue
		}

		eff := best.Effective()
		storeID := best.StoreID
		result.Available = true
		result.StoreID = &storeID
		result.StoreName = snap.Stores[best.StoreID].Name
		result.UnitPrice = eff.UnitPrice
		result.Subtotal = eff.UnitPrice.Mul(line.Quantity).Round(2)
		result.Promotion = best.Promotion.Kind
		result.MinQuantity = eff.MinQuantity
		if eff.Malformed {
			result.Warnings = append(result.Warnings, WarnPromotionMalformed)
		}
		mix.Lines = append(mix.Lines, result)
		mix.Total = mix.Total.Add(result.Subtotal)

		sub, ok := perStore[best.StoreID]
		if !ok {
			sub = &StoreSubtotal{
				StoreID:   best.StoreID,
				StoreName: snap.Stores[best.StoreID].Name,
				Subtotal:  decimal.Zero,
			}
			perStore[best.StoreID] = sub
		}
		sub.Lines++
		sub.Subtotal = sub.Subtotal.Add(result.Subtotal)
	}
	mix.Total = mix.Total.Round(2)

	for _, sub := range perStore {
		mix.PerStoreSubtotals = append(mix.PerStoreSubtotals, *sub)
	}
	sort.Slice(mix.PerStoreSubtotals, func(i, j int) bool {
		a, b := mix.PerStoreSubtotals[i], mix.PerStoreSubtotals[j]
		if !a.Subtotal.Equal(b.Subtotal) {
			return a.Subtotal.LessThan(b.Subtotal)
		}
		return lessUUID(a.StoreID, b.StoreID)
	})

	single := SingleStore{Alternatives: []StoreOption{}}
	options := make([]StoreOption, 0, len(covered))
	for storeID, cov := range covered {
		if cov.lines != len(lines) {
			continue
		}
		options = append(options, StoreOption{
			StoreID:   storeID,
			StoreName: snap.Stores[storeID].Name,
			Total:     cov.total.Round(2),
		})
	}
	sort.Slice(options, func(i, j int) bool {
		if !options[i].Total.Equal(options[j].Total) {
			return options[i].Total.LessThan(options[j].Total)
		}
		return lessUUID(options[i].StoreID, options[j].StoreID)
	})
	if len(options) > maxAlternatives {
		options = options[:maxAlternatives]
	}
	single.Alternatives = options
	if len(options) > 0 {
		best := options[0]
		single.Best = &best
	}

	comparison := Comparison{}
	if single.Best != nil {
		abs := single.Best.Total.Sub(mix.Total).Round(2)
		comparison.SavingsAbsolute = &abs
		if single.Best.Total.IsPositive() {
			pct := abs.Div(single.Best.Total).Mul(decimal.NewFromInt(100)).Round(2)
			comparison.SavingsPercent = &pct
		}
	}

	return Result{
		AsOf:        snap.AsOf,
		MixAndMatch: mix,
		SingleStore: single,
		Comparison:  comparison,
	}, nil
}

// cheaper reports whether a beats b as the per-line winner: strictly lower
// effective unit price, ties resolved by ascending store id so the outcome
// never depends on catalog iteration order.
func cheaper(a, b pricing.Record) bool {
	pa := a.Effective().UnitPrice
	pb := b.Effective().UnitPrice
	if !pa.Equal(pb) {
		return pa.LessThan(pb)
	}
	return lessUUID(a.StoreID, b.StoreID)
}

func lessUUID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func validateLines(lines []Line, snap Snapshot) error {
	if len(lines) == 0 {
		return common.NewAppError("VALIDATION_ERROR", "basket is empty", http.StatusUnprocessableEntity, nil)
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	var duplicates, nonPositive, missing []string
	for _, line := range lines {
		if _, dup := seen[line.ProductID]; dup {
			duplicates = append(duplicates, line.ProductID.String())
		}
		seen[line.ProductID] = struct{}{}
		if !line.Quantity.IsPositive() {
			nonPositive = append(nonPositive, line.ProductID.String())
		}
		if _, ok := snap.Products[line.ProductID]; !ok {
			missing = append(missing, line.ProductID.String())
		}
	}
	switch {
	case len(duplicates) > 0:
		return validationError("duplicate basket lines", map[string]any{"duplicateProductIds": duplicates})
	case len(nonPositive) > 0:
		return validationError("quantity must be positive", map[string]any{"productIds": nonPositive})
	case len(missing) > 0:
		return validationError("unknown product ids", map[string]any{"missingProductIds": missing})
	}
	return nil
}

func validationError(message string, details map[string]any) error {
	return &common.AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
		Details:    details,
	}
}
