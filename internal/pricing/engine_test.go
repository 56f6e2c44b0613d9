package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-agency/internal/catalog"
	"github.com/noah-isme/backend-agency/internal/pricing"
)

func newPricer() pricing.Pricer {
	return pricing.Pricer{Lookup: catalog.Default()}
}

func TestLineTotalCatalogPrice(t *testing.T) {
	p := newPricer()
	total := p.LineTotal(pricing.LineItem{ProductID: "website-template", Quantity: 1})
	require.Equal(t, 1500.0, total)
}

func TestLineTotalQuantityAndDiscount(t *testing.T) {
	p := newPricer()
	total := p.LineTotal(pricing.LineItem{ProductID: "website-maintenance", Quantity: 2, DiscountPercent: 10})
	require.InDelta(t, 178.2, total, 1e-9)
}

func TestLineTotalCustomPriceWins(t *testing.T) {
	p := newPricer()
	custom := 2000.0
	total := p.LineTotal(pricing.LineItem{ProductID: "website-template", Quantity: 1, CustomUnitPrice: &custom})
	require.Equal(t, 2000.0, total)
}

func TestLineTotalUnknownProductPricesToZero(t *testing.T) {
	p := newPricer()
	var seen []string
	p.OnUnknownProduct = func(id string) { seen = append(seen, id) }

	total := p.LineTotal(pricing.LineItem{ProductID: "ghost-service", Quantity: 3})
	require.Equal(t, 0.0, total)
	require.Equal(t, []string{"ghost-service"}, seen)
}

func TestLineTotalCustomRefNoHook(t *testing.T) {
	p := newPricer()
	fired := false
	p.OnUnknownProduct = func(string) { fired = true }

	custom := 250.0
	total := p.LineTotal(pricing.LineItem{ProductID: "custom-photography", Quantity: 3, CustomUnitPrice: &custom})
	require.Equal(t, 750.0, total)
	require.False(t, fired)
}

func TestTotalsWithTax(t *testing.T) {
	p := newPricer()
	custom := 1000.0
	totals := p.Totals([]pricing.LineItem{
		{ProductID: "custom-retainer", Quantity: 1, CustomUnitPrice: &custom},
	}, 8.5)

	require.Equal(t, 1000.0, totals.Subtotal)
	require.InDelta(t, 85.0, totals.Tax, 1e-9)
	require.InDelta(t, 1085.0, totals.Total, 1e-9)
}

func TestTotalsZeroTaxRateSkipsTax(t *testing.T) {
	p := newPricer()
	totals := p.Totals([]pricing.LineItem{
		{ProductID: "website-template", Quantity: 1},
	}, 0)

	require.Equal(t, 1500.0, totals.Subtotal)
	require.Equal(t, 0.0, totals.Tax)
	require.Equal(t, 1500.0, totals.Total)
}

func TestSplitOneTimeVersusMonthly(t *testing.T) {
	p := newPricer()
	split := p.Split([]pricing.LineItem{
		{ProductID: "website-template", Quantity: 1},
		{ProductID: "website-maintenance", Quantity: 1},
	})

	require.Equal(t, 1500.0, split.OneTime)
	require.Equal(t, 99.0, split.Monthly)
}

func TestSplitExcludesCustomAndUnknownItems(t *testing.T) {
	p := newPricer()
	custom := 250.0
	split := p.Split([]pricing.LineItem{
		{ProductID: "custom-photography", Quantity: 3, CustomUnitPrice: &custom},
		{ProductID: "ghost-service", Quantity: 1},
		{ProductID: "website-maintenance", Quantity: 1},
	})

	require.Equal(t, 0.0, split.OneTime)
	require.Equal(t, 99.0, split.Monthly)
}

func TestZeroValuePricerPricesToZero(t *testing.T) {
	var p pricing.Pricer
	require.Equal(t, 0.0, p.LineTotal(pricing.LineItem{ProductID: "website-template", Quantity: 4}))

	custom := 40.0
	require.Equal(t, 80.0, p.LineTotal(pricing.LineItem{Quantity: 2, CustomUnitPrice: &custom}))
}
