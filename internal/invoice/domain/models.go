// Package domain contains the invoice value types shared by the engine,
// the state container and the export adapters.
package domain

import (
	"math"
	"time"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Valid reports whether s is a known status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	default:
		return false
	}
}

// DiscountType selects how LineItem.Discount is interpreted.
type DiscountType string

const (
	// DiscountTypePercentage is relative to the item's line subtotal.
	DiscountTypePercentage DiscountType = "percentage"
	// DiscountTypeFixed is an absolute currency amount.
	DiscountTypeFixed DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixed
}

// DateLayout is the calendar date format used for Date and DueDate.
const DateLayout = "2006-01-02"

// Company is the issuer printed on the invoice.
type Company struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
	TaxID   string `json:"taxId"`
	Logo    string `json:"logo,omitempty"`
}

// Client is the billed party.
type Client struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	TaxID   string `json:"taxId"`
}

// LineItem is one billable row. Values are replaced, never edited in place.
// Total is derived by the engine and overwritten on every recalculation.
type LineItem struct {
	ID           string       `json:"id"`
	Description  string       `json:"description"`
	Quantity     float64      `json:"quantity"`
	UnitPrice    float64      `json:"unitPrice"`
	TaxRate      float64      `json:"taxRate"`
	Discount     float64      `json:"discount"`
	DiscountType DiscountType `json:"discountType"`
	Total        float64      `json:"total"`
}

// Invoice is an immutable snapshot. Subtotal, TaxTotal, DiscountTotal and
// Total are always a function of Items and are only written by the engine.
type Invoice struct {
	ID            string        `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	Date          string        `json:"date"`
	DueDate       string        `json:"dueDate"`
	Company       Company       `json:"company"`
	Client        Client        `json:"client"`
	Items         []LineItem    `json:"items"`
	Notes         string        `json:"notes"`
	Terms         string        `json:"terms"`
	Subtotal      float64       `json:"subtotal"`
	TaxTotal      float64       `json:"taxTotal"`
	DiscountTotal float64       `json:"discountTotal"`
	Total         float64       `json:"total"`
	Currency      string        `json:"currency"`
	Status        InvoiceStatus `json:"status"`
	PaymentMethod *string       `json:"paymentMethod,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Clone returns a copy whose Items slice shares no backing array with inv.
func (inv Invoice) Clone() Invoice {
	out := inv
	if inv.Items != nil {
		out.Items = make([]LineItem, len(inv.Items))
		copy(out.Items, inv.Items)
	}
	if inv.PaymentMethod != nil {
		method := *inv.PaymentMethod
		out.PaymentMethod = &method
	}
	return out
}

// FindItem returns the item with the given id.
func (inv Invoice) FindItem(id string) (LineItem, bool) {
	for _, item := range inv.Items {
		if item.ID == id {
			return item, true
		}
	}
	return LineItem{}, false
}

// Finite reports whether every stored amount, item inputs included, is a
// finite number.
func (inv Invoice) Finite() bool {
	for _, item := range inv.Items {
		if !finite(item.Quantity, item.UnitPrice, item.TaxRate, item.Discount, item.Total) {
			return false
		}
	}
	return finite(inv.Subtotal, inv.TaxTotal, inv.DiscountTotal, inv.Total)
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ItemPatch carries a partial line item update. Nil fields are left as-is.
type ItemPatch struct {
	Description  *string
	Quantity     *float64
	UnitPrice    *float64
	TaxRate      *float64
	Discount     *float64
	DiscountType *DiscountType
}

// Apply returns item with the patch applied. Total is left for the engine.
func (p ItemPatch) Apply(item LineItem) LineItem {
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.UnitPrice != nil {
		item.UnitPrice = *p.UnitPrice
	}
	if p.TaxRate != nil {
		item.TaxRate = *p.TaxRate
	}
	if p.Discount != nil {
		item.Discount = *p.Discount
	}
	if p.DiscountType != nil {
		item.DiscountType = *p.DiscountType
	}
	return item
}

// IsZero reports whether the patch changes nothing.
func (p ItemPatch) IsZero() bool {
	return p.Description == nil && p.Quantity == nil && p.UnitPrice == nil &&
		p.TaxRate == nil && p.Discount == nil && p.DiscountType == nil
}

// InvoiceFields carries updates to invoice fields that do not affect totals.
type InvoiceFields struct {
	InvoiceNumber *string
	Date          *string
	DueDate       *string
	Currency      *string
	Status        *InvoiceStatus
	Notes         *string
	Terms         *string
	PaymentMethod *string
}
