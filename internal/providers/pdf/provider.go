package pdf

import (
	"context"
	"io"
)

// Provider renders invoice documents as PDF.
type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error)
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

// InvoiceData carries display-ready strings; amounts are already formatted.
type InvoiceData struct {
	InvoiceNumber string
	Status        string
	IssueDate     string
	DueDate       string

	CompanyName  string
	CompanyLines []string
	ClientName   string
	ClientLines  []string

	Items []InvoiceItem

	Subtotal      string
	DiscountTotal string
	TaxTotal      string
	Total         string

	PaymentMethod string
	Notes         string
	Terms         string
}

type InvoiceItem struct {
	Description string
	Qty         string
	UnitPrice   string
	TaxRate     string
	Discount    string
	Amount      string
}

// ReceiptData is an invoice that has been settled.
type ReceiptData struct {
	InvoiceData
	DatePaid string
}
