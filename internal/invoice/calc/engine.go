// Package calc derives line item and invoice totals from line items.
//
// Everything here is a pure function of its arguments: no I/O, no shared
// state, no rounding. Discount is always applied before tax, and tax is
// computed on the discounted amount. Non-finite inputs propagate to the
// outputs unchanged in kind (NaN in, NaN out); sanitizing input is the
// caller's job.
package calc

import (
	"time"

	"github.com/smallbiznis/invoicekit/internal/invoice/domain"
)

// Breakdown holds the intermediate amounts for one line item.
type Breakdown struct {
	LineSubtotal   float64
	DiscountAmount float64
	AfterDiscount  float64
	TaxAmount      float64
	Amount         float64
}

// Totals holds the invoice-level aggregates.
type Totals struct {
	Subtotal      float64
	TaxTotal      float64
	DiscountTotal float64
	Total         float64
}

// BreakdownFor computes every intermediate amount for item, in order:
// line subtotal, discount, after-discount, tax, amount.
func BreakdownFor(item domain.LineItem) Breakdown {
	lineSubtotal := item.Quantity * item.UnitPrice
	discount := discountAmount(item, lineSubtotal)
	afterDiscount := lineSubtotal - discount
	tax := afterDiscount * (item.TaxRate / 100)

	return Breakdown{
		LineSubtotal:   lineSubtotal,
		DiscountAmount: discount,
		AfterDiscount:  afterDiscount,
		TaxAmount:      tax,
		Amount:         afterDiscount + tax,
	}
}

// ComputeItemAmount returns the after-discount, after-tax amount of item.
// A fixed discount larger than the line subtotal yields a negative amount.
func ComputeItemAmount(item domain.LineItem) float64 {
	return BreakdownFor(item).Amount
}

// discountAmount is shared by the per-item and aggregate paths so the two
// can never disagree. Any type other than percentage is treated as fixed.
func discountAmount(item domain.LineItem, lineSubtotal float64) float64 {
	// NaN discounts count as no discount.
	if !(item.Discount > 0) {
		return 0
	}
	if item.DiscountType == domain.DiscountTypePercentage {
		return lineSubtotal * (item.Discount / 100)
	}
	return item.Discount
}

// TotalsFor aggregates items. An empty or nil slice yields all zeros.
func TotalsFor(items []domain.LineItem) Totals {
	var t Totals
	for _, item := range items {
		t.add(BreakdownFor(item))
	}
	return t
}

// add folds one line into the running totals. Total stays Subtotal + TaxTotal.
func (t *Totals) add(b Breakdown) {
	t.Subtotal += b.AfterDiscount
	t.TaxTotal += b.TaxAmount
	t.DiscountTotal += b.DiscountAmount
	t.Total = t.Subtotal + t.TaxTotal
}

// Recalculate is RecalculateAt stamped with the current UTC time.
func Recalculate(inv domain.Invoice) domain.Invoice {
	return RecalculateAt(inv, time.Now().UTC())
}

// RecalculateAt returns a new invoice whose items carry freshly computed
// totals and whose aggregate fields are derived from those items. All other
// fields are carried through; UpdatedAt is set to now. The input is not
// modified and the returned Items slice is newly allocated.
func RecalculateAt(inv domain.Invoice, now time.Time) domain.Invoice {
	out := inv.Clone()

	items := make([]domain.LineItem, len(inv.Items))
	var totals Totals
	for i, item := range inv.Items {
		b := BreakdownFor(item)
		item.Total = b.Amount
		items[i] = item
		totals.add(b)
	}

	out.Items = items
	out.Subtotal = totals.Subtotal
	out.TaxTotal = totals.TaxTotal
	out.DiscountTotal = totals.DiscountTotal
	out.Total = totals.Total
	out.UpdatedAt = now
	return out
}

// HasNegativeLines reports whether any item's after-discount amount is below
// zero, which happens when a fixed discount exceeds the line subtotal.
func HasNegativeLines(items []domain.LineItem) bool {
	for _, item := range items {
		if BreakdownFor(item).AfterDiscount < 0 {
			return true
		}
	}
	return false
}
