package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/invoicekit/internal/currency"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
	"github.com/smallbiznis/invoicekit/internal/invoice/render"
	"github.com/smallbiznis/invoicekit/internal/observability/logger"
	"github.com/smallbiznis/invoicekit/internal/providers/pdf"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Export renders the current snapshot. Paid invoices export as a receipt PDF.
func (s *Service) Export(ctx context.Context, format invoicedomain.ExportFormat) (invoicedomain.Export, error) {
	inv := s.snapshot()

	ctx, span := s.tracer.Start(ctx, "invoice.export", trace.WithAttributes(
		attribute.String("invoice.export_format", string(format)),
	))
	defer span.End()

	out, err := s.export(ctx, inv, format)
	if err != nil {
		span.SetStatus(codes.Error, "export failed")
		logger.WithInvoice(logger.WithContext(ctx, s.log), inv.ID, inv.InvoiceNumber).Warn("invoice export failed",
			zap.String("format", string(format)),
			zap.Error(err),
		)
		return invoicedomain.Export{}, err
	}

	s.metrics.RecordExport(ctx, string(format))
	return out, nil
}

func (s *Service) export(ctx context.Context, inv invoicedomain.Invoice, format invoicedomain.ExportFormat) (invoicedomain.Export, error) {
	out := invoicedomain.Export{Filename: exportFilename(inv, format)}

	switch format {
	case invoicedomain.ExportFormatJSON:
		body, err := json.MarshalIndent(inv, "", "  ")
		if err != nil {
			return invoicedomain.Export{}, fmt.Errorf("encode invoice: %w", err)
		}
		out.ContentType = "application/json"
		out.Body = body

	case invoicedomain.ExportFormatHTML:
		if s.renderer == nil {
			return invoicedomain.Export{}, invoicedomain.ErrRendererNotConfigured
		}
		d := s.defaults.Get()
		html, err := s.renderer.RenderHTML(buildRenderInput(inv, render.StyleView{
			PrimaryColor: d.PrimaryColor,
			FontFamily:   d.FontFamily,
		}))
		if err != nil {
			return invoicedomain.Export{}, fmt.Errorf("render invoice html: %w", err)
		}
		out.ContentType = "text/html; charset=utf-8"
		out.Body = []byte(html)

	case invoicedomain.ExportFormatPDF:
		body, err := s.renderPDF(ctx, inv)
		if err != nil {
			return invoicedomain.Export{}, err
		}
		out.ContentType = "application/pdf"
		out.Body = body

	default:
		return invoicedomain.Export{}, invoicedomain.ErrUnsupportedExportFormat
	}

	return out, nil
}

func (s *Service) renderPDF(ctx context.Context, inv invoicedomain.Invoice) ([]byte, error) {
	if s.pdf == nil {
		return nil, invoicedomain.ErrRendererNotConfigured
	}

	data := buildPDFData(inv)

	var (
		r   io.Reader
		err error
	)
	if inv.Status == invoicedomain.InvoiceStatusPaid {
		r, err = s.pdf.GenerateReceipt(ctx, pdf.ReceiptData{
			InvoiceData: data,
			DatePaid:    s.clock.Now().UTC().Format(invoicedomain.DateLayout),
		})
	} else {
		r, err = s.pdf.GenerateInvoice(ctx, data)
	}
	if err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	if r == nil {
		return nil, errors.New("pdf provider returned no document")
	}
	return io.ReadAll(r)
}

// exportFilename slugs the invoice number and client name, e.g.
// "inv-00001-globex-industries.pdf".
func exportFilename(inv invoicedomain.Invoice, format invoicedomain.ExportFormat) string {
	name := slug.Make(strings.TrimSpace(inv.InvoiceNumber + " " + inv.Client.Name))
	if name == "" {
		name = "invoice"
	}
	return name + "." + string(format)
}

func buildRenderInput(inv invoicedomain.Invoice, style render.StyleView) render.RenderInput {
	return render.RenderInput{
		Style:   style,
		Invoice: buildInvoiceView(inv),
		Company: render.PartyView{
			Name:    inv.Company.Name,
			Address: addressLines(inv.Company.Address, inv.Company.City, inv.Company.State, inv.Company.ZipCode, inv.Company.Country),
			Email:   inv.Company.Email,
			Phone:   inv.Company.Phone,
			Website: inv.Company.Website,
			TaxID:   inv.Company.TaxID,
			LogoURL: inv.Company.Logo,
		},
		Client: render.PartyView{
			Name:    inv.Client.Name,
			Address: addressLines(inv.Client.Address, inv.Client.City, inv.Client.State, inv.Client.ZipCode, inv.Client.Country),
			Email:   inv.Client.Email,
			Phone:   inv.Client.Phone,
			TaxID:   inv.Client.TaxID,
		},
		Items: buildLineItemViews(inv.Items),
	}
}

func buildInvoiceView(inv invoicedomain.Invoice) render.InvoiceView {
	paymentMethod := ""
	if inv.PaymentMethod != nil {
		paymentMethod = *inv.PaymentMethod
	}
	return render.InvoiceView{
		ID:            inv.ID,
		Number:        inv.InvoiceNumber,
		Status:        string(inv.Status),
		Date:          inv.Date,
		DueDate:       inv.DueDate,
		Currency:      currency.Lookup(inv.Currency).Code,
		PaymentMethod: paymentMethod,
		Notes:         inv.Notes,
		Terms:         inv.Terms,
		Subtotal:      inv.Subtotal,
		TaxTotal:      inv.TaxTotal,
		DiscountTotal: inv.DiscountTotal,
		Total:         inv.Total,
	}
}

func buildLineItemViews(items []invoicedomain.LineItem) []render.LineItemView {
	views := make([]render.LineItemView, 0, len(items))
	for _, item := range items {
		views = append(views, render.LineItemView{
			Description:  item.Description,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			TaxRate:      item.TaxRate,
			Discount:     item.Discount,
			DiscountType: string(item.DiscountType),
			Amount:       item.Total,
		})
	}
	return views
}

func buildPDFData(inv invoicedomain.Invoice) pdf.InvoiceData {
	code := currency.Lookup(inv.Currency).Code
	money := func(v float64) string { return currency.Format(v, code) }

	items := make([]pdf.InvoiceItem, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, pdf.InvoiceItem{
			Description: item.Description,
			Qty:         strconv.FormatFloat(item.Quantity, 'f', -1, 64),
			UnitPrice:   money(item.UnitPrice),
			TaxRate:     strconv.FormatFloat(item.TaxRate, 'f', -1, 64) + "%",
			Discount:    discountLabel(item, code),
			Amount:      money(item.Total),
		})
	}

	data := pdf.InvoiceData{
		InvoiceNumber: inv.InvoiceNumber,
		Status:        string(inv.Status),
		IssueDate:     inv.Date,
		DueDate:       inv.DueDate,
		CompanyName:   inv.Company.Name,
		CompanyLines:  appendNonBlank(addressLines(inv.Company.Address, inv.Company.City, inv.Company.State, inv.Company.ZipCode, inv.Company.Country), inv.Company.Email),
		ClientName:    inv.Client.Name,
		ClientLines:   appendNonBlank(addressLines(inv.Client.Address, inv.Client.City, inv.Client.State, inv.Client.ZipCode, inv.Client.Country), inv.Client.Email),
		Items:         items,
		Subtotal:      money(inv.Subtotal),
		TaxTotal:      money(inv.TaxTotal),
		Total:         money(inv.Total),
		Notes:         inv.Notes,
		Terms:         inv.Terms,
	}
	if inv.DiscountTotal != 0 {
		data.DiscountTotal = money(inv.DiscountTotal)
	}
	if inv.PaymentMethod != nil {
		data.PaymentMethod = *inv.PaymentMethod
	}
	return data
}

func discountLabel(item invoicedomain.LineItem, code string) string {
	if !(item.Discount > 0) {
		return "-"
	}
	if item.DiscountType == invoicedomain.DiscountTypePercentage {
		return strconv.FormatFloat(item.Discount, 'f', -1, 64) + "%"
	}
	return currency.Format(item.Discount, code)
}

// addressLines renders "street", "city, state zip", "country", skipping blanks.
func addressLines(street, city, state, zip, country string) []string {
	locality := strings.TrimSpace(city)
	region := strings.TrimSpace(strings.TrimSpace(state) + " " + strings.TrimSpace(zip))
	switch {
	case locality != "" && region != "":
		locality += ", " + region
	case locality == "":
		locality = region
	}

	lines := make([]string, 0, 3)
	for _, line := range []string{strings.TrimSpace(street), locality, strings.TrimSpace(country)} {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func appendNonBlank(lines []string, values ...string) []string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			lines = append(lines, v)
		}
	}
	return lines
}
