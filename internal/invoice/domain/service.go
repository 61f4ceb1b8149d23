package domain

import (
	"context"
	"errors"
)

// Service is the invoice state container. It holds the current snapshot and
// serializes mutations against it; every item mutation recalculates totals.
type Service interface {
	Current(ctx context.Context) Invoice
	SetInvoice(ctx context.Context, inv Invoice) (Invoice, error)
	UpdateCompany(ctx context.Context, company Company) Invoice
	UpdateClient(ctx context.Context, client Client) Invoice
	AddItem(ctx context.Context, patch ItemPatch) (LineItem, Invoice, error)
	UpdateItem(ctx context.Context, id string, patch ItemPatch) (Invoice, error)
	RemoveItem(ctx context.Context, id string) (Invoice, error)
	UpdateFields(ctx context.Context, fields InvoiceFields) (Invoice, error)
	Reset(ctx context.Context) Invoice
	CreateNew(ctx context.Context) (Invoice, error)
	Summary(ctx context.Context) Summary
	Export(ctx context.Context, format ExportFormat) (Export, error)
}

// Summary is the display view of the current invoice totals.
type Summary struct {
	InvoiceID     string  `json:"invoiceId"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Currency      string  `json:"currency"`
	ItemCount     int     `json:"itemCount"`
	Subtotal      float64 `json:"subtotal"`
	TaxTotal      float64 `json:"taxTotal"`
	DiscountTotal float64 `json:"discountTotal"`
	Total         float64 `json:"total"`

	Formatted FormattedTotals `json:"formatted"`

	// HasNegativeLines is set when a fixed discount drives a line below zero.
	HasNegativeLines bool `json:"hasNegativeLines"`
}

// FormattedTotals holds currency-formatted renditions of the totals.
type FormattedTotals struct {
	Subtotal      string `json:"subtotal"`
	TaxTotal      string `json:"taxTotal"`
	DiscountTotal string `json:"discountTotal"`
	Total         string `json:"total"`
}

var (
	ErrItemNotFound        = errors.New("item_not_found")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrInvalidDate         = errors.New("invalid_date")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
	ErrInvalidDiscountType = errors.New("invalid_discount_type")
	ErrUnsupportedCurrency = errors.New("unsupported_currency")
	ErrNonFiniteAmount     = errors.New("non_finite_amount")
)
