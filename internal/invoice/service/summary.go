package service

import (
	"context"

	"github.com/smallbiznis/invoicekit/internal/currency"
	"github.com/smallbiznis/invoicekit/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
)

func (s *Service) Summary(ctx context.Context) invoicedomain.Summary {
	return buildSummary(s.snapshot())
}

func buildSummary(inv invoicedomain.Invoice) invoicedomain.Summary {
	code := currency.Lookup(inv.Currency).Code
	return invoicedomain.Summary{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Currency:      code,
		ItemCount:     len(inv.Items),
		Subtotal:      inv.Subtotal,
		TaxTotal:      inv.TaxTotal,
		DiscountTotal: inv.DiscountTotal,
		Total:         inv.Total,
		Formatted: invoicedomain.FormattedTotals{
			Subtotal:      currency.Format(inv.Subtotal, code),
			TaxTotal:      currency.Format(inv.TaxTotal, code),
			DiscountTotal: currency.Format(inv.DiscountTotal, code),
			Total:         currency.Format(inv.Total, code),
		},
		HasNegativeLines: calc.HasNegativeLines(inv.Items),
	}
}
