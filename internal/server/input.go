package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/invoicekit/internal/config"
	"github.com/smallbiznis/invoicekit/internal/currency"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
)

// numberField accepts a JSON number or a numeric string. Anything that does
// not parse to a finite float64 decodes to 0.
type numberField struct {
	Value float64
	Set   bool
}

func (n *numberField) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*n = numberField{}
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	n.Set = true
	n.Value = parseNumber(raw)
	return nil
}

func (n numberField) ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

func parseNumber(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

type itemRequest struct {
	Description  *string     `json:"description"`
	Quantity     numberField `json:"quantity"`
	UnitPrice    numberField `json:"unitPrice"`
	TaxRate      numberField `json:"taxRate"`
	Discount     numberField `json:"discount"`
	DiscountType *string     `json:"discountType"`
}

// toPatch validates the request and converts it into an item patch.
func (r itemRequest) toPatch(policy config.TaxRatePolicy) (invoicedomain.ItemPatch, error) {
	patch := invoicedomain.ItemPatch{
		Description: r.Description,
		Quantity:    r.Quantity.ptr(),
		UnitPrice:   r.UnitPrice.ptr(),
		Discount:    r.Discount.ptr(),
	}

	if patch.Quantity != nil && *patch.Quantity < 0 {
		return invoicedomain.ItemPatch{}, invoicedomain.ErrInvalidQuantity
	}

	if r.TaxRate.Set {
		rate, err := applyTaxRatePolicy(policy, r.TaxRate.Value)
		if err != nil {
			return invoicedomain.ItemPatch{}, err
		}
		patch.TaxRate = &rate
	}

	if r.DiscountType != nil {
		dt := invoicedomain.DiscountType(strings.ToLower(strings.TrimSpace(*r.DiscountType)))
		if !dt.Valid() {
			return invoicedomain.ItemPatch{}, invoicedomain.ErrInvalidDiscountType
		}
		patch.DiscountType = &dt
	}

	return patch, nil
}

// applyTaxRatePolicy handles rates outside 0-100. The engine applies
// whatever it is given.
func applyTaxRatePolicy(policy config.TaxRatePolicy, rate float64) (float64, error) {
	if rate >= 0 && rate <= 100 {
		return rate, nil
	}
	switch policy {
	case config.TaxRateClamp:
		return math.Min(math.Max(rate, 0), 100), nil
	case config.TaxRateReject:
		return 0, invoicedomain.ErrInvalidTaxRate
	default:
		return rate, nil
	}
}

type invoiceRequest struct {
	InvoiceNumber string                `json:"invoiceNumber"`
	Date          string                `json:"date"`
	DueDate       string                `json:"dueDate"`
	Company       invoicedomain.Company `json:"company"`
	Client        invoicedomain.Client  `json:"client"`
	Items         []invoiceItemRequest  `json:"items"`
	Notes         string                `json:"notes"`
	Terms         string                `json:"terms"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	PaymentMethod *string               `json:"paymentMethod"`
}

type invoiceItemRequest struct {
	ID string `json:"id"`
	itemRequest
}

func (r invoiceRequest) toInvoice(policy config.TaxRatePolicy) (invoicedomain.Invoice, error) {
	status := invoicedomain.InvoiceStatus(strings.ToLower(strings.TrimSpace(r.Status)))
	if status != "" && !status.Valid() {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidStatus
	}
	code := strings.TrimSpace(r.Currency)
	if code != "" && !currency.Supported(code) {
		return invoicedomain.Invoice{}, invoicedomain.ErrUnsupportedCurrency
	}
	if err := validateDates(&r.Date, &r.DueDate); err != nil {
		return invoicedomain.Invoice{}, err
	}

	items := make([]invoicedomain.LineItem, 0, len(r.Items))
	for _, in := range r.Items {
		patch, err := in.toPatch(policy)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		items = append(items, patch.Apply(invoicedomain.LineItem{
			ID:           strings.TrimSpace(in.ID),
			DiscountType: invoicedomain.DiscountTypePercentage,
		}))
	}

	inv := invoicedomain.Invoice{
		InvoiceNumber: strings.TrimSpace(r.InvoiceNumber),
		Date:          strings.TrimSpace(r.Date),
		DueDate:       strings.TrimSpace(r.DueDate),
		Company:       r.Company,
		Client:        r.Client,
		Items:         items,
		Notes:         r.Notes,
		Terms:         r.Terms,
		Currency:      code,
		Status:        status,
	}
	if r.PaymentMethod != nil {
		if method := strings.TrimSpace(*r.PaymentMethod); method != "" {
			inv.PaymentMethod = &method
		}
	}
	return inv, nil
}

type fieldsRequest struct {
	InvoiceNumber *string `json:"invoiceNumber"`
	Date          *string `json:"date"`
	DueDate       *string `json:"dueDate"`
	Currency      *string `json:"currency"`
	Status        *string `json:"status"`
	Notes         *string `json:"notes"`
	Terms         *string `json:"terms"`
	PaymentMethod *string `json:"paymentMethod"`
}

func (r fieldsRequest) toFields() (invoicedomain.InvoiceFields, error) {
	fields := invoicedomain.InvoiceFields{
		InvoiceNumber: r.InvoiceNumber,
		Date:          r.Date,
		DueDate:       r.DueDate,
		Currency:      r.Currency,
		Notes:         r.Notes,
		Terms:         r.Terms,
		PaymentMethod: r.PaymentMethod,
	}
	if r.Status != nil {
		status := invoicedomain.InvoiceStatus(strings.ToLower(strings.TrimSpace(*r.Status)))
		if !status.Valid() {
			return invoicedomain.InvoiceFields{}, invoicedomain.ErrInvalidStatus
		}
		fields.Status = &status
	}
	if err := validateDates(r.Date, r.DueDate); err != nil {
		return invoicedomain.InvoiceFields{}, err
	}
	return fields, nil
}

func validateDates(values ...*string) error {
	for _, value := range values {
		if value == nil || strings.TrimSpace(*value) == "" {
			continue
		}
		if _, err := time.Parse(invoicedomain.DateLayout, strings.TrimSpace(*value)); err != nil {
			return invoicedomain.ErrInvalidDate
		}
	}
	return nil
}
