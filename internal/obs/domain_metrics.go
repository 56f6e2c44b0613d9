package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// DocumentTransitionsTotal counts quote and invoice status transitions.
	DocumentTransitionsTotal *prometheus.CounterVec
	// QuoteConversionsTotal counts quotes converted into invoices.
	QuoteConversionsTotal prometheus.Counter
	// UnknownProductTotal counts line items that referenced a product missing
	// from the catalog and were priced at zero.
	UnknownProductTotal *prometheus.CounterVec
	// DocumentSweepTotal counts documents flipped by the background sweeps
	// (quote expiry, invoice overdue).
	DocumentSweepTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		DocumentTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_transitions_total",
			Help:      "Count of document status transitions by kind and target status.",
		}, []string{"kind", "status"})
		QuoteConversionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quote_conversions_total",
			Help:      "Number of quotes converted into invoices.",
		})
		UnknownProductTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unknown_product_total",
			Help:      "Line items priced at zero because the product reference was not in the catalog.",
		}, []string{"product_id"})
		DocumentSweepTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_sweep_total",
			Help:      "Documents transitioned by the background sweeps.",
		}, []string{"kind"})

		mustRegisterCollector(reg, DocumentTransitionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentTransitionsTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteConversionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				QuoteConversionsTotal = v
			}
		})
		mustRegisterCollector(reg, UnknownProductTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				UnknownProductTotal = v
			}
		})
		mustRegisterCollector(reg, DocumentSweepTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DocumentSweepTotal = v
			}
		})
	})
}

// CountDocumentTransition records a status transition. Safe to call before
// metrics registration; it becomes a no-op.
func CountDocumentTransition(kind, status string) {
	if DocumentTransitionsTotal == nil {
		return
	}
	DocumentTransitionsTotal.WithLabelValues(kind, status).Inc()
}

// CountQuoteConversion records a successful quote to invoice conversion.
func CountQuoteConversion() {
	if QuoteConversionsTotal == nil {
		return
	}
	QuoteConversionsTotal.Inc()
}

// CountUnknownProduct records a catalog miss during pricing.
func CountUnknownProduct(productID string) {
	if UnknownProductTotal == nil {
		return
	}
	UnknownProductTotal.WithLabelValues(productID).Inc()
}

// CountDocumentSweep records documents flipped by a background sweep.
func CountDocumentSweep(kind string, n int) {
	if DocumentSweepTotal == nil || n <= 0 {
		return
	}
	DocumentSweepTotal.WithLabelValues(kind).Add(float64(n))
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
