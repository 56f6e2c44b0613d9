package document

import (
	"fmt"
	"time"
)

// InvoiceNumber formats an invoice number as INV-YYYYMM-nnn where nnn is a
// caller-supplied numeric suffix (wrapped to three digits). Numbers are not
// checked for uniqueness here; the store's unique index rejects duplicates.
func InvoiceNumber(now time.Time, suffix int) string {
	if suffix < 0 {
		suffix = -suffix
	}
	return fmt.Sprintf("INV-%s-%03d", now.Format("200601"), suffix%1000)
}

// QuoteNumber formats a quote number as Q-xxxxxx from the trailing six digits
// of the unix timestamp.
func QuoteNumber(now time.Time) string {
	return fmt.Sprintf("Q-%06d", now.Unix()%1_000_000)
}
