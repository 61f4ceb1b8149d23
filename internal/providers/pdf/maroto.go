package pdf

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const lineHeight = 4.5

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := newDocument()
	addTitle(m, "Invoice", data.Status)
	addMeta(m,
		"Invoice number: "+data.InvoiceNumber,
		"Date of issue: "+data.IssueDate,
		"Date due: "+data.DueDate,
	)
	addParties(m, data)
	m.AddRow(14,
		text.NewCol(12, data.Total+" due "+data.DueDate, props.Text{Size: 14, Style: fontstyle.Bold, Top: 4}),
	)
	addItems(m, data.Items)
	addTotals(m, data, "Amount due")
	addFooter(m, data.Notes, data.Terms)

	return generate(m)
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := newDocument()
	addTitle(m, "Receipt", "")
	meta := []string{
		"Invoice number: " + data.InvoiceNumber,
		"Date paid: " + data.DatePaid,
	}
	if data.PaymentMethod != "" {
		meta = append(meta, "Payment method: "+data.PaymentMethod)
	}
	addMeta(m, meta...)
	addParties(m, data.InvoiceData)
	m.AddRow(14,
		text.NewCol(12, data.Total+" paid on "+data.DatePaid, props.Text{Size: 14, Style: fontstyle.Bold, Top: 4}),
	)
	addItems(m, data.Items)
	addTotals(m, data.InvoiceData, "Amount paid")
	addFooter(m, data.Notes, "")

	return generate(m)
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func generate(m core.Maroto) (io.Reader, error) {
	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

func addTitle(m core.Maroto, title, status string) {
	m.AddRow(14,
		text.NewCol(8, title, props.Text{Size: 20, Style: fontstyle.Bold, Align: align.Left}),
		text.NewCol(4, strings.ToUpper(status), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right, Top: 3}),
	)
}

func addMeta(m core.Maroto, lines ...string) {
	m.AddRow(float64(len(lines))*lineHeight+4, col.New(12).Add(stacked(lines, props.Text{Size: 9})...))
}

func addParties(m core.Maroto, data InvoiceData) {
	from := append([]string{data.CompanyName}, data.CompanyLines...)
	to := append([]string{data.ClientName}, data.ClientLines...)
	rows := len(from)
	if len(to) > rows {
		rows = len(to)
	}

	m.AddRow(float64(rows+1)*lineHeight+6,
		col.New(6).Add(append(
			[]core.Component{text.New("From", props.Text{Size: 9, Style: fontstyle.Bold})},
			stackedFrom(from, 1, props.Text{Size: 9})...,
		)...),
		col.New(6).Add(append(
			[]core.Component{text.New("Bill to", props.Text{Size: 9, Style: fontstyle.Bold})},
			stackedFrom(to, 1, props.Text{Size: 9})...,
		)...),
	)
}

func addItems(m core.Maroto, items []InvoiceItem) {
	header := props.Text{Style: fontstyle.Bold, Size: 9}
	headerRight := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(4, "Description", header),
		text.NewCol(1, "Qty", headerRight),
		text.NewCol(2, "Unit price", headerRight),
		text.NewCol(1, "Tax", headerRight),
		text.NewCol(2, "Discount", headerRight),
		text.NewCol(2, "Amount", headerRight),
	)

	cell := props.Text{Size: 9}
	cellRight := props.Text{Size: 9, Align: align.Right}
	if len(items) == 0 {
		m.AddRow(10, text.NewCol(12, "No line items", cell))
		return
	}
	for _, item := range items {
		m.AddRow(10,
			text.NewCol(4, item.Description, cell),
			text.NewCol(1, item.Qty, cellRight),
			text.NewCol(2, item.UnitPrice, cellRight),
			text.NewCol(1, item.TaxRate, cellRight),
			text.NewCol(2, item.Discount, cellRight),
			text.NewCol(2, item.Amount, cellRight),
		)
	}
}

func addTotals(m core.Maroto, data InvoiceData, dueLabel string) {
	row := func(label, value string, style fontstyle.Type) {
		m.AddRow(8,
			col.New(8),
			text.NewCol(2, label, props.Text{Size: 9, Style: style}),
			text.NewCol(2, value, props.Text{Size: 9, Style: style, Align: align.Right}),
		)
	}

	row("Subtotal", data.Subtotal, fontstyle.Normal)
	if data.DiscountTotal != "" {
		row("Discount", "-"+data.DiscountTotal, fontstyle.Normal)
	}
	row("Tax", data.TaxTotal, fontstyle.Normal)
	row("Total", data.Total, fontstyle.Bold)
	row(dueLabel, data.Total, fontstyle.Bold)
}

func addFooter(m core.Maroto, notes, terms string) {
	if notes != "" {
		m.AddRow(6, text.NewCol(12, "Notes", props.Text{Size: 9, Style: fontstyle.Bold, Top: 4}))
		m.AddRow(10, text.NewCol(12, notes, props.Text{Size: 9}))
	}
	if terms != "" {
		m.AddRow(6, text.NewCol(12, "Terms", props.Text{Size: 9, Style: fontstyle.Bold, Top: 4}))
		m.AddRow(10, text.NewCol(12, terms, props.Text{Size: 9}))
	}
}

func stacked(lines []string, base props.Text) []core.Component {
	return stackedFrom(lines, 0, base)
}

// stackedFrom lays lines out vertically inside one column, starting offset lines down.
func stackedFrom(lines []string, offset int, base props.Text) []core.Component {
	out := make([]core.Component, 0, len(lines))
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		p := base
		p.Top = float64(i+offset) * lineHeight
		out = append(out, text.New(line, p))
	}
	return out
}
