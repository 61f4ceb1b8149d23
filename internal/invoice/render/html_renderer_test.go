package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() RenderInput {
	return RenderInput{
		Invoice: InvoiceView{
			ID:            "1",
			Number:        "INV-00042",
			Status:        "draft",
			Date:          "2026-03-01",
			DueDate:       "2026-03-31",
			Currency:      "USD",
			Notes:         "Thank you for your business!",
			Terms:         "Payment due within 30 days.",
			Subtotal:      1816,
			TaxTotal:      136,
			DiscountTotal: 74,
			Total:         1952,
		},
		Company: PartyView{Name: "Acme Corporation", Address: []string{"123 Business St", "San Francisco, CA 94107"}, TaxID: "12-3456789"},
		Client:  PartyView{Name: "Globex Industries", Email: "accounts@globex.example"},
		Items: []LineItemView{
			{Description: "Web Design Services", Quantity: 1, UnitPrice: 1200, TaxRate: 8.5, DiscountType: "percentage", Amount: 1302},
			{Description: "Logo Design", Quantity: 1, UnitPrice: 450, TaxRate: 8.5, Discount: 50, DiscountType: "fixed", Amount: 434},
			{Description: "Hosting (1 year)", Quantity: 1.5, UnitPrice: 160, Discount: 10, DiscountType: "percentage", Amount: 216},
		},
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := NewRenderer().RenderHTML(sampleInput())
	require.NoError(t, err)

	for _, want := range []string{
		"Invoice INV-00042",
		"Acme Corporation",
		"San Francisco, CA 94107",
		"Tax ID: 12-3456789",
		"Globex Industries",
		"Mar 1, 2026",
		"Mar 31, 2026",
		"$1,200.00",
		"8.5%",
		"$50.00",
		"10%",
		"1.5",
		"$1,816.00",
		"-$74.00",
		"$136.00",
		"$1,952.00",
		"Thank you for your business!",
		"Payment due within 30 days.",
		"--primary: #1d4ed8",
	} {
		assert.Contains(t, html, want)
	}
	assert.NotContains(t, html, "No line items")
}

func TestRenderHTMLEmptyInvoice(t *testing.T) {
	html, err := NewRenderer().RenderHTML(RenderInput{Invoice: InvoiceView{Number: "INV-1"}})
	require.NoError(t, err)

	assert.Contains(t, html, "No line items")
	assert.Contains(t, html, "$0.00")
	assert.NotContains(t, html, ">Discount</span>")
}

func TestRenderHTMLEscapesInput(t *testing.T) {
	input := sampleInput()
	input.Items[0].Description = `<script>alert("x")</script>`
	input.Style.PrimaryColor = "red;}</style><script>"

	html, err := NewRenderer().RenderHTML(input)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "--primary: #1d4ed8")
}

func TestRenderHTMLFlagsNegativeLines(t *testing.T) {
	input := sampleInput()
	input.Items = []LineItemView{{Description: "Credit", Quantity: 1, UnitPrice: 30, TaxRate: 10, Discount: 50, DiscountType: "fixed", Amount: -22}}

	html, err := NewRenderer().RenderHTML(input)
	require.NoError(t, err)

	assert.Contains(t, html, `class="num negative"`)
	assert.Contains(t, html, "-$22.00")
}

func TestRenderHTMLDiscountRowSign(t *testing.T) {
	input := sampleInput()
	input.Invoice.DiscountTotal = -1

	html, err := NewRenderer().RenderHTML(input)
	require.NoError(t, err)

	assert.Contains(t, html, `<span class="total-label">Discount</span><span>$1.00</span>`)
	assert.NotContains(t, html, "--$")
}

func TestRenderHTMLAppliesStyle(t *testing.T) {
	input := sampleInput()
	input.Style = StyleView{PrimaryColor: "#0f766e", FontFamily: "Roboto"}

	html, err := NewRenderer().RenderHTML(input)
	require.NoError(t, err)

	assert.Contains(t, html, "--primary: #0f766e")
	assert.Contains(t, html, `"Roboto"`)
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "-", formatDate(""))
	assert.Equal(t, "soon", formatDate("soon"))
	assert.Equal(t, "2", formatQuantity(2))
	assert.Equal(t, "0.25", formatQuantity(0.25))
	assert.Equal(t, "-", formatDiscount(0, "fixed", "USD"))
	assert.Equal(t, "€5.00", formatDiscount(5, "fixed", "EUR"))
	assert.Equal(t, "Inter", sanitizeFont("Comic;Sans"))
	assert.Equal(t, "Space Grotesk", sanitizeFont("Space Grotesk"))
}
