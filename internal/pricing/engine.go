package pricing

import (
	"github.com/noah-isme/backend-agency/internal/catalog"
)

// LineItem is one row of a quote or invoice. ProductID references a catalog
// entry, or carries the custom prefix (or is empty) for ad-hoc items.
type LineItem struct {
	ProductID       string   `json:"product_id"`
	Description     string   `json:"description,omitempty"`
	Quantity        int      `json:"quantity"`
	CustomUnitPrice *float64 `json:"custom_unit_price,omitempty"`
	DiscountPercent float64  `json:"discount_percent,omitempty"`
}

// Totals aggregates document-level amounts.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Split partitions a quote's line totals into one-time and monthly recurring
// buckets. Items whose product reference does not resolve belong to neither.
type Split struct {
	OneTime float64 `json:"one_time"`
	Monthly float64 `json:"monthly"`
}

// Lookup resolves product references against a catalog.
type Lookup interface {
	ProductByID(id string) (catalog.Product, bool)
}

// Pricer prices line items against an injected catalog. The zero value is
// usable and prices everything without a custom unit price to zero.
//
// An unresolved catalog reference silently prices to zero; OnUnknownProduct,
// when set, is invoked so the fallback stays observable.
type Pricer struct {
	Lookup           Lookup
	OnUnknownProduct func(productID string)
}

// LineTotal computes the extended total for a single item. The base price
// prefers the custom unit price over the catalog price over zero, the
// discount percentage reduces the effective unit price, and the result is
// multiplied by the quantity. Discounts above 100 percent and non-positive
// quantities are passed through unguarded.
func (p Pricer) LineTotal(item LineItem) float64 {
	base := p.basePrice(item)
	effective := base - base*item.DiscountPercent/100
	return effective * float64(item.Quantity)
}

func (p Pricer) basePrice(item LineItem) float64 {
	if item.CustomUnitPrice != nil {
		return *item.CustomUnitPrice
	}
	if catalog.IsCustomRef(item.ProductID) {
		return 0
	}
	if p.Lookup != nil {
		if product, ok := p.Lookup.ProductByID(item.ProductID); ok {
			return product.UnitPrice
		}
	}
	if p.OnUnknownProduct != nil {
		p.OnUnknownProduct(item.ProductID)
	}
	return 0
}

// Totals sums line totals into a subtotal, applies the tax rate and returns
// the grand total. Tax and totals are always derived from the items passed
// in; callers must re-run this after every item or tax-rate mutation.
func (p Pricer) Totals(items []LineItem, taxRate float64) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += p.LineTotal(item)
	}
	var tax float64
	if taxRate != 0 {
		tax = subtotal * taxRate / 100
	}
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax,
	}
}

// Split partitions line totals by the resolved product's pricing type.
// Ad-hoc items and unresolved references are excluded from both buckets.
func (p Pricer) Split(items []LineItem) Split {
	var s Split
	if p.Lookup == nil {
		return s
	}
	for _, item := range items {
		if catalog.IsCustomRef(item.ProductID) {
			continue
		}
		product, ok := p.Lookup.ProductByID(item.ProductID)
		if !ok {
			continue
		}
		switch product.PricingType {
		case catalog.PricingRecurring:
			s.Monthly += p.LineTotal(item)
		case catalog.PricingOneTime:
			s.OneTime += p.LineTotal(item)
		}
	}
	return s
}
