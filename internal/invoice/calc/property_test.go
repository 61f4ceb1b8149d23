package calc

import (
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/smallbiznis/invoicekit/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const propertyRuns = 500

func randomItem(r *rand.Rand, id int) domain.LineItem {
	item := domain.LineItem{
		ID:          fmt.Sprintf("item-%d", id),
		Description: fmt.Sprintf("line %d", id),
		Quantity:    math.Round(r.Float64()*10000) / 100,
		UnitPrice:   math.Round(r.Float64()*500000) / 100,
		TaxRate:     []float64{0, 5, 8.5, 10, 20, 21}[r.Intn(6)],
	}
	if r.Intn(2) == 0 {
		item.DiscountType = domain.DiscountTypePercentage
		item.Discount = float64(r.Intn(101))
	} else {
		item.DiscountType = domain.DiscountTypeFixed
		// up to 120% of the line so negative lines are exercised too
		item.Discount = math.Round(r.Float64()*item.Quantity*item.UnitPrice*120) / 100
	}
	if r.Intn(5) == 0 {
		item.Discount = 0
	}
	return item
}

func randomInvoice(r *rand.Rand) domain.Invoice {
	n := r.Intn(8)
	items := make([]domain.LineItem, n)
	for i := range items {
		items[i] = randomItem(r, i)
	}
	return domain.Invoice{ID: "inv", Currency: "USD", Items: items}
}

func relDelta(expected float64) float64 {
	return math.Max(1e-6, math.Abs(expected)*1e-12)
}

func monetary(inv domain.Invoice) []float64 {
	out := []float64{inv.Subtotal, inv.TaxTotal, inv.DiscountTotal, inv.Total}
	for _, item := range inv.Items {
		out = append(out, item.Total)
	}
	return out
}

func TestProperty_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < propertyRuns; i++ {
		inv := randomInvoice(r)
		once := RecalculateAt(inv, time.Unix(1, 0))
		twice := RecalculateAt(once, time.Unix(2, 0))
		require.Equal(t, monetary(once), monetary(twice), "run %d", i)
	}
}

func TestProperty_TotalIsSubtotalPlusTax(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < propertyRuns; i++ {
		got := Recalculate(randomInvoice(r))
		require.Equal(t, got.Subtotal+got.TaxTotal, got.Total, "run %d", i)
	}
}

func TestProperty_AggregatesMatchItems(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < propertyRuns; i++ {
		got := Recalculate(randomInvoice(r))

		var itemTotals, subtotal, discount float64
		for _, item := range got.Items {
			itemTotals += item.Total
			b := BreakdownFor(item)
			subtotal += b.LineSubtotal - b.DiscountAmount
			discount += b.DiscountAmount
		}

		// discount is netted out of subtotal once, never again out of total
		assert.InDelta(t, itemTotals, got.Total, relDelta(got.Total), "run %d", i)
		assert.InDelta(t, subtotal, got.Subtotal, relDelta(got.Subtotal), "run %d", i)
		assert.InDelta(t, discount, got.DiscountTotal, relDelta(got.DiscountTotal), "run %d", i)

		totals := TotalsFor(got.Items)
		assert.Equal(t, got.Subtotal, totals.Subtotal)
		assert.Equal(t, got.TaxTotal, totals.TaxTotal)
		assert.Equal(t, got.DiscountTotal, totals.DiscountTotal)
		assert.Equal(t, got.Total, totals.Total)
	}
}

func TestProperty_RemovalConsistency(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for i := 0; i < propertyRuns; i++ {
		inv := Recalculate(randomInvoice(r))
		if len(inv.Items) == 0 {
			continue
		}
		victim := r.Intn(len(inv.Items))

		remaining := make([]domain.LineItem, 0, len(inv.Items)-1)
		remaining = append(remaining, inv.Items[:victim]...)
		remaining = append(remaining, inv.Items[victim+1:]...)

		removed := inv
		removed.Items = remaining
		afterRemoval := Recalculate(removed)

		// fresh invoice holding only the survivors, shuffled
		shuffled := make([]domain.LineItem, len(remaining))
		copy(shuffled, remaining)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		alone := Recalculate(domain.Invoice{Items: shuffled})

		assert.InDelta(t, alone.Subtotal, afterRemoval.Subtotal, relDelta(alone.Subtotal), "run %d", i)
		assert.InDelta(t, alone.TaxTotal, afterRemoval.TaxTotal, relDelta(alone.TaxTotal), "run %d", i)
		assert.InDelta(t, alone.DiscountTotal, afterRemoval.DiscountTotal, relDelta(alone.DiscountTotal), "run %d", i)
		assert.InDelta(t, alone.Total, afterRemoval.Total, relDelta(alone.Total), "run %d", i)
	}
}

func TestProperty_OrderIndependent(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	for i := 0; i < propertyRuns; i++ {
		inv := randomInvoice(r)
		reversed := inv.Clone()
		for a, b := 0, len(reversed.Items)-1; a < b; a, b = a+1, b-1 {
			reversed.Items[a], reversed.Items[b] = reversed.Items[b], reversed.Items[a]
		}

		x := Recalculate(inv)
		y := Recalculate(reversed)
		assert.InDelta(t, x.Total, y.Total, relDelta(x.Total), "run %d", i)
		assert.InDelta(t, x.DiscountTotal, y.DiscountTotal, relDelta(x.DiscountTotal), "run %d", i)

		// order is preserved for display
		for j := range x.Items {
			assert.Equal(t, inv.Items[j].ID, x.Items[j].ID)
		}
	}
}

func TestProperty_ZeroQuantityWithoutFixedDiscount(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	for i := 0; i < propertyRuns; i++ {
		item := randomItem(r, i)
		item.Quantity = 0
		if item.DiscountType == domain.DiscountTypeFixed {
			item.Discount = 0
		}
		assert.Zero(t, ComputeItemAmount(item), "run %d", i)
	}
}
