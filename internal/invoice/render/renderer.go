package render

// RenderInput is the deterministic input used for invoice rendering.
type RenderInput struct {
	Style   StyleView
	Invoice InvoiceView
	Company PartyView
	Client  PartyView
	Items   []LineItemView
}

// StyleView themes the HTML export. Invalid values fall back to the defaults.
type StyleView struct {
	PrimaryColor string
	FontFamily   string
}

type InvoiceView struct {
	ID            string
	Number        string
	Status        string
	Date          string
	DueDate       string
	Currency      string
	PaymentMethod string
	Notes         string
	Terms         string

	Subtotal      float64
	TaxTotal      float64
	DiscountTotal float64
	Total         float64
}

type PartyView struct {
	Name    string
	Address []string
	Email   string
	Phone   string
	Website string
	TaxID   string
	LogoURL string
}

type LineItemView struct {
	Description  string
	Quantity     float64
	UnitPrice    float64
	TaxRate      float64
	Discount     float64
	DiscountType string
	Amount       float64
}

type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}
