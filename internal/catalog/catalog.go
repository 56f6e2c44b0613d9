package catalog

import "strings"

// Category classifies a product for presentation purposes only; it plays no
// role in pricing math.
type Category string

// Known product categories.
const (
	CategoryCore    Category = "core"
	CategoryMonthly Category = "monthly"
	CategoryAddon   Category = "addon"
)

// PricingType determines which bucket a line item's total is accumulated into
// when a quote summary is split.
type PricingType string

// Known pricing types.
const (
	PricingOneTime   PricingType = "one-time"
	PricingRecurring PricingType = "recurring"
)

// CustomPrefix tags line-item product references that are ad-hoc entries
// rather than catalog lookups.
const CustomPrefix = "custom-"

// Product is an immutable catalog entry.
type Product struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    Category    `json:"category"`
	PricingType PricingType `json:"pricing_type"`
	UnitPrice   float64     `json:"unit_price"`
}

// Catalog is a read-only lookup table over a fixed product list. Construct it
// once and inject it; it is safe for concurrent use.
type Catalog struct {
	products []Product
	byID     map[string]int
}

// New builds a catalog preserving declaration order. Later duplicates of an id
// are ignored so the first declaration wins.
func New(products []Product) *Catalog {
	c := &Catalog{
		products: make([]Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}
	for _, p := range products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			continue
		}
		if _, exists := c.byID[id]; exists {
			continue
		}
		p.ID = id
		c.byID[id] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// ProductByID looks up a product by its id.
func (c *Catalog) ProductByID(id string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	idx, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return Product{}, false
	}
	return c.products[idx], true
}

// ProductsByCategory returns products of the given category in declaration
// order.
func (c *Catalog) ProductsByCategory(category Category) []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, 0)
	for _, p := range c.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// Products returns all products in declaration order.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// Len reports the number of catalog entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.products)
}

// IsCustomRef reports whether a product reference denotes an ad-hoc line item
// instead of a catalog lookup.
func IsCustomRef(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref == "" || strings.HasPrefix(ref, CustomPrefix)
}

// Default returns the seeded agency catalog.
func Default() *Catalog {
	return New([]Product{
		{ID: "website-template", Name: "Website (template)", Description: "Template-based website build", Category: CategoryCore, PricingType: PricingOneTime, UnitPrice: 1500},
		{ID: "website-custom", Name: "Website (custom)", Description: "Custom-designed website build", Category: CategoryCore, PricingType: PricingOneTime, UnitPrice: 4500},
		{ID: "chatbot-basic", Name: "Chatbot (basic)", Description: "FAQ chatbot with handoff", Category: CategoryCore, PricingType: PricingOneTime, UnitPrice: 900},
		{ID: "chatbot-advanced", Name: "Chatbot (advanced)", Description: "Chatbot with booking and CRM hooks", Category: CategoryCore, PricingType: PricingOneTime, UnitPrice: 2200},
		{ID: "website-maintenance", Name: "Website maintenance", Description: "Hosting, updates and backups", Category: CategoryMonthly, PricingType: PricingRecurring, UnitPrice: 99},
		{ID: "chatbot-hosting", Name: "Chatbot hosting", Description: "Managed chatbot runtime", Category: CategoryMonthly, PricingType: PricingRecurring, UnitPrice: 49},
		{ID: "analytics-reporting", Name: "Analytics reporting", Description: "Monthly traffic and conversion report", Category: CategoryMonthly, PricingType: PricingRecurring, UnitPrice: 149},
		{ID: "seo-audit", Name: "SEO audit", Description: "One-off technical SEO audit", Category: CategoryAddon, PricingType: PricingOneTime, UnitPrice: 350},
		{ID: "content-pack", Name: "Content pack", Description: "Ten pages of copywriting", Category: CategoryAddon, PricingType: PricingOneTime, UnitPrice: 600},
		{ID: "priority-support", Name: "Priority support", Description: "Same-day response SLA", Category: CategoryAddon, PricingType: PricingRecurring, UnitPrice: 79},
	})
}
