package render

import (
	"bytes"
	"html/template"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/invoicekit/internal/currency"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Invoice.Number}}</title>
  <style>
    :root {
      --primary: {{.Style.PrimaryColor}};
      --font: "{{.Style.FontFamily}}", -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif;
    }
    * { box-sizing: border-box; }
    body { margin: 0; padding: 40px; font-family: var(--font); color: #1a1f36; background: #f7f9fc; }
    .invoice-card { background: #fff; max-width: 800px; margin: 0 auto; padding: 56px; border-radius: 4px; border-top: 4px solid var(--primary); }
    .header, .parties { display: flex; justify-content: space-between; margin-bottom: 36px; }
    .header h1 { margin: 0; font-size: 26px; color: var(--primary); }
    .col { flex: 1; }
    .label { font-size: 11px; text-transform: uppercase; color: #8792a2; margin-bottom: 6px; font-weight: 600; letter-spacing: 0.3px; }
    .value { font-size: 14px; line-height: 1.5; }
    .status { display: inline-block; padding: 2px 8px; border-radius: 10px; font-size: 11px; text-transform: uppercase; background: #eef1f6; }
    table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
    th { text-align: left; text-transform: uppercase; font-size: 11px; color: #8792a2; border-bottom: 1px solid #e3e8ee; padding: 10px 0; }
    td { padding: 14px 0; border-bottom: 1px solid #e3e8ee; font-size: 14px; vertical-align: top; }
    .num { text-align: right; }
    .negative { color: #c0392b; }
    .totals { display: flex; flex-direction: column; align-items: flex-end; }
    .total-row { display: flex; justify-content: space-between; width: 280px; padding: 6px 0; font-size: 14px; }
    .total-label { color: #697386; }
    .total-final { border-top: 1px solid #e3e8ee; margin-top: 10px; padding-top: 10px; font-weight: 700; font-size: 16px; }
    .footer { margin-top: 48px; font-size: 12px; color: #697386; border-top: 1px solid #e3e8ee; padding-top: 20px; white-space: pre-line; }
  </style>
</head>
<body>
  <div class="invoice-card">
    <div class="header">
      <div>
        <h1>Invoice</h1>
        <div class="value">{{.Invoice.Number}}</div>
        {{if .Invoice.Status}}<span class="status">{{.Invoice.Status}}</span>{{end}}
      </div>
      <div class="num">
        {{if .Company.LogoURL}}<img src="{{.Company.LogoURL}}" style="max-height: 48px;" alt="{{.Company.Name}}"><br>{{end}}
        <div class="label" style="margin-top: 12px;">Date issued</div>
        <div class="value">{{formatDate .Invoice.Date}}</div>
        <div class="label" style="margin-top: 12px;">Date due</div>
        <div class="value">{{formatDate .Invoice.DueDate}}</div>
      </div>
    </div>

    <div class="parties">
      {{template "party" dict "Label" "From" "Party" .Company}}
      {{template "party" dict "Label" "Bill to" "Party" .Client}}
    </div>

    <table>
      <thead>
        <tr>
          <th style="width: 40%;">Description</th>
          <th class="num">Qty</th>
          <th class="num">Unit price</th>
          <th class="num">Tax</th>
          <th class="num">Discount</th>
          <th class="num">Amount</th>
        </tr>
      </thead>
      <tbody>
        {{range .Items}}
        <tr>
          <td>{{.Description}}</td>
          <td class="num">{{formatQuantity .Quantity}}</td>
          <td class="num">{{formatMoney .UnitPrice $.Invoice.Currency}}</td>
          <td class="num">{{formatPercent .TaxRate}}</td>
          <td class="num">{{formatDiscount .Discount .DiscountType $.Invoice.Currency}}</td>
          <td class="num{{if lt .Amount 0.0}} negative{{end}}">{{formatMoney .Amount $.Invoice.Currency}}</td>
        </tr>
        {{else}}
        <tr><td colspan="6">No line items</td></tr>
        {{end}}
      </tbody>
    </table>

    <div class="totals">
      <div class="total-row"><span class="total-label">Subtotal</span><span>{{formatMoney .Invoice.Subtotal .Invoice.Currency}}</span></div>
      {{if ne .Invoice.DiscountTotal 0.0}}
      <div class="total-row"><span class="total-label">Discount</span><span>{{formatMoney (negate .Invoice.DiscountTotal) .Invoice.Currency}}</span></div>
      {{end}}
      <div class="total-row"><span class="total-label">Tax</span><span>{{formatMoney .Invoice.TaxTotal .Invoice.Currency}}</span></div>
      <div class="total-row total-final"><span>Total</span><span>{{formatMoney .Invoice.Total .Invoice.Currency}}</span></div>
      {{if .Invoice.PaymentMethod}}
      <div class="total-row"><span class="total-label">Payment method</span><span>{{.Invoice.PaymentMethod}}</span></div>
      {{end}}
    </div>

    {{if or .Invoice.Notes .Invoice.Terms}}
    <div class="footer">
      {{if .Invoice.Notes}}<div class="label">Notes</div>{{.Invoice.Notes}}{{end}}
      {{if .Invoice.Terms}}<div class="label" style="margin-top: 12px;">Terms</div>{{.Invoice.Terms}}{{end}}
    </div>
    {{end}}
  </div>
</body>
</html>
{{define "party"}}
      <div class="col">
        <div class="label">{{.Label}}</div>
        <div class="value">
          <strong>{{.Party.Name}}</strong><br>
          {{range .Party.Address}}{{.}}<br>{{end}}
          {{if .Party.Email}}{{.Party.Email}}<br>{{end}}
          {{if .Party.Phone}}{{.Party.Phone}}<br>{{end}}
          {{if .Party.Website}}{{.Party.Website}}<br>{{end}}
          {{if .Party.TaxID}}Tax ID: {{.Party.TaxID}}{{end}}
        </div>
      </div>
{{end}}
`

var (
	hexColorPattern  = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	fontFamilyFilter = regexp.MustCompile(`^[A-Za-z0-9 \-]+$`)
)

const (
	DefaultPrimaryColor = "#1d4ed8"
	DefaultFontFamily   = "Inter"
)

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatMoney":    currency.Format,
		"formatDate":     formatDate,
		"formatQuantity": formatQuantity,
		"formatPercent":  formatPercent,
		"formatDiscount": formatDiscount,
		"negate":         func(v float64) float64 { return -v },
		"dict":           dict,
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	input.Style.PrimaryColor = sanitizeColor(input.Style.PrimaryColor)
	input.Style.FontFamily = sanitizeFont(input.Style.FontFamily)
	if strings.TrimSpace(input.Invoice.Currency) == "" {
		input.Invoice.Currency = currency.DefaultCode
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, input); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// formatDate renders a YYYY-MM-DD date as "Jan 2, 2006"; other strings pass through.
func formatDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return value
	}
	return parsed.Format("Jan 2, 2006")
}

func formatQuantity(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func formatPercent(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64) + "%"
}

func formatDiscount(value float64, discountType, code string) string {
	if !(value > 0) {
		return "-"
	}
	if discountType == "percentage" {
		return formatPercent(value)
	}
	return currency.Format(value, code)
}

func dict(pairs ...any) map[string]any {
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			continue
		}
		out[key] = pairs[i+1]
	}
	return out
}

func sanitizeColor(value string) string {
	trimmed := strings.TrimSpace(value)
	if hexColorPattern.MatchString(trimmed) {
		return trimmed
	}
	return DefaultPrimaryColor
}

func sanitizeFont(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" && fontFamilyFilter.MatchString(trimmed) {
		return trimmed
	}
	return DefaultFontFamily
}
