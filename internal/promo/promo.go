// Package promo models retailer promotions and derives the effective unit
// price a shopper actually pays once a promotion is applied.
package promo

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind enumerates the supported promotion mechanics.
type Kind string

const (
	// KindNone means the list price applies unchanged.
	KindNone Kind = "none"
	// KindTwoForOne is "buy two, pay one".
	KindTwoForOne Kind = "two_for_one"
	// KindThreeForTwo is "buy three, pay two".
	KindThreeForTwo Kind = "three_for_two"
	// KindSecondHalfPrice discounts the second unit by half.
	KindSecondHalfPrice Kind = "second_half_price"
	// KindPercentOff applies a percentage discount to every unit.
	KindPercentOff Kind = "percent_off"
	// KindFixedBundle sells a group of units for a fixed total.
	KindFixedBundle Kind = "fixed_bundle"
	// KindUnitPriceOverride replaces the list price with a stated price.
	KindUnitPriceOverride Kind = "unit_price_override"
	// KindConditionalBankPrice is a bank-card conditional price; without the
	// card context the list price applies.
	KindConditionalBankPrice Kind = "conditional_bank_price"
)

// Kinds returns every supported promotion kind.
func Kinds() []Kind {
	return []Kind{
		KindNone,
		KindTwoForOne,
		KindThreeForTwo,
		KindSecondHalfPrice,
		KindPercentOff,
		KindFixedBundle,
		KindUnitPriceOverride,
		KindConditionalBankPrice,
	}
}

// ParseKind validates a raw kind tag, typically read from storage or a request.
func ParseKind(raw string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown promotion kind %q", raw)
}

// Promotion carries the kind tag plus the parameters that kind needs. Only the
// fields relevant to the kind are consulted; the rest stay zero.
type Promotion struct {
	Kind          Kind
	Percent       decimal.Decimal
	BundleTotal   decimal.Decimal
	BundleSize    int
	OverridePrice *decimal.Decimal
}

// None returns the neutral promotion.
func None() Promotion {
	return Promotion{Kind: KindNone}
}

// Effective is the result of applying a promotion to a list price.
type Effective struct {
	// UnitPrice is the per-unit price once the promotion applies. Never
	// negative.
	UnitPrice decimal.Decimal
	// MinQuantity is the smallest purchase quantity at which UnitPrice
	// legitimately applies. Always >= 1.
	MinQuantity int
	// Malformed reports that the promotion parameters were unusable and the
	// list price was used instead. Recovered locally, reported upstream as a
	// warning, never fatal.
	Malformed bool
}

var (
	two        = decimal.NewFromInt(2)
	three      = decimal.NewFromInt(3)
	four       = decimal.NewFromInt(4)
	oneHundred = decimal.NewFromInt(100)
)

// EffectivePrice derives the effective unit price and minimum qualifying
// quantity for a list price under the given promotion. Malformed parameters
// degrade to the list price with MinQuantity 1 and Malformed set.
func EffectivePrice(listPrice decimal.Decimal, p Promotion) Effective {
	switch p.Kind {
	case KindTwoForOne:
		return Effective{UnitPrice: listPrice.Div(two), MinQuantity: 2}
	case KindThreeForTwo:
		return Effective{UnitPrice: listPrice.Mul(two).Div(three), MinQuantity: 3}
	case KindSecondHalfPrice:
		return Effective{UnitPrice: listPrice.Mul(three).Div(four), MinQuantity: 2}
	case KindPercentOff:
		if p.Percent.IsNegative() || p.Percent.GreaterThan(oneHundred) {
			return malformed(listPrice)
		}
		unit := listPrice.Mul(oneHundred.Sub(p.Percent)).Div(oneHundred)
		return Effective{UnitPrice: unit, MinQuantity: 1}
	case KindFixedBundle:
		if p.BundleSize < 1 || p.BundleTotal.IsNegative() {
			return malformed(listPrice)
		}
		unit := p.BundleTotal.Div(decimal.NewFromInt(int64(p.BundleSize)))
		return Effective{UnitPrice: unit, MinQuantity: p.BundleSize}
	case KindUnitPriceOverride:
		if p.OverridePrice == nil {
			return Effective{UnitPrice: listPrice, MinQuantity: 1}
		}
		if p.OverridePrice.IsNegative() {
			return malformed(listPrice)
		}
		return Effective{UnitPrice: *p.OverridePrice, MinQuantity: 1}
	case KindNone, KindConditionalBankPrice:
		return Effective{UnitPrice: listPrice, MinQuantity: 1}
	default:
		// Unknown kinds are treated like malformed parameters: the list
		// price stands.
		return malformed(listPrice)
	}
}

func malformed(listPrice decimal.Decimal) Effective {
	return Effective{UnitPrice: listPrice, MinQuantity: 1, Malformed: true}
}
