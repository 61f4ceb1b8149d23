package service

import (
	"time"

	"github.com/google/uuid"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
)

var sampleCompany = invoicedomain.Company{
	Name:    "Acme Corporation",
	Address: "123 Business Avenue",
	City:    "San Francisco",
	State:   "CA",
	ZipCode: "94107",
	Country: "United States",
	Phone:   "+1 (555) 123-4567",
	Email:   "billing@acmecorp.com",
	Website: "www.acmecorp.com",
	TaxID:   "US123456789",
}

var sampleClient = invoicedomain.Client{
	Name:    "Globex Industries",
	Address: "456 Client Street",
	City:    "New York",
	State:   "NY",
	ZipCode: "10001",
	Country: "United States",
	Phone:   "+1 (555) 987-6543",
	Email:   "accounts@globex.com",
	TaxID:   "US987654321",
}

// sampleInvoice is the demo invoice. Totals are left for the engine:
// subtotal 1816, tax 136, discount 74, total 1952.
func sampleInvoice(id, number string, now time.Time) invoicedomain.Invoice {
	return invoicedomain.Invoice{
		ID:            id,
		InvoiceNumber: number,
		Date:          now.Format(invoicedomain.DateLayout),
		DueDate:       now.AddDate(0, 0, 30).Format(invoicedomain.DateLayout),
		Company:       sampleCompany,
		Client:        sampleClient,
		Items: []invoicedomain.LineItem{
			{
				ID:           uuid.NewString(),
				Description:  "Web Design Services",
				Quantity:     1,
				UnitPrice:    1200,
				TaxRate:      8.5,
				DiscountType: invoicedomain.DiscountTypePercentage,
			},
			{
				ID:           uuid.NewString(),
				Description:  "Logo Design",
				Quantity:     1,
				UnitPrice:    450,
				TaxRate:      8.5,
				Discount:     50,
				DiscountType: invoicedomain.DiscountTypeFixed,
			},
			{
				ID:           uuid.NewString(),
				Description:  "Hosting (Annual)",
				Quantity:     1,
				UnitPrice:    240,
				Discount:     10,
				DiscountType: invoicedomain.DiscountTypePercentage,
			},
		},
		Notes:     "Thank you for your business!",
		Terms:     "Payment due within 30 days. Late payments subject to a 1.5% monthly fee.",
		Currency:  "USD",
		Status:    invoicedomain.InvoiceStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
