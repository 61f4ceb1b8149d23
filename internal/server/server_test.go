package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicekit/internal/clock"
	"github.com/smallbiznis/invoicekit/internal/config"
	"github.com/smallbiznis/invoicekit/internal/currency"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
	"github.com/smallbiznis/invoicekit/internal/invoice/render"
	"github.com/smallbiznis/invoicekit/internal/invoice/service"
	"github.com/smallbiznis/invoicekit/internal/observability"
	"github.com/smallbiznis/invoicekit/internal/observability/metrics"
	"github.com/smallbiznis/invoicekit/internal/providers/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const epsilon = 1e-9

func init() {
	gin.SetMode(gin.TestMode)
}

type invoiceEnvelope struct {
	Data invoicedomain.Invoice `json:"data"`
}

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

func newTestServer(t *testing.T, policy config.TaxRatePolicy) *Server {
	t.Helper()
	return newTestServerWithConfig(t, policy, config.Config{Environment: "test"})
}

func newTestServerWithConfig(t *testing.T, policy config.TaxRatePolicy, cfg config.Config) *Server {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	defaults := config.DefaultInvoiceDefaults()
	defaults.TaxRatePolicy = policy
	holder := config.NewStaticDefaultsHolder(defaults)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := service.NewService(service.ServiceParam{
		Log:      zap.NewNop(),
		Clock:    clk,
		GenID:    node,
		Defaults: holder,
		Metrics:  metrics.NewNoop(),
		Renderer: render.NewRenderer(),
		PDF:      pdf.New(),
	})

	return NewServer(ServerParams{
		Gin:        NewEngine(observability.Config{}, nil),
		Cfg:        cfg,
		Log:        zap.NewNop(),
		InvoiceSvc: svc,
		Defaults:   holder,
		Clock:      clk,
	})
}

func doRequest(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decodeInvoice(t *testing.T, w *httptest.ResponseRecorder) invoicedomain.Invoice {
	t.Helper()
	var resp invoiceEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Error
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestGetInvoice(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodGet, "/api/invoice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	inv := decodeInvoice(t, w)
	assert.Equal(t, "INV-00001", inv.InvoiceNumber)
	assert.Len(t, inv.Items, 3)
	assert.InDelta(t, 1952, inv.Total, epsilon)
}

func TestAddItemWithoutBody(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodPost, "/api/invoice/items", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data    invoicedomain.LineItem `json:"data"`
		Invoice invoicedomain.Invoice  `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, float64(1), resp.Data.Quantity)
	assert.Equal(t, invoicedomain.DiscountTypePercentage, resp.Data.DiscountType)
	assert.Len(t, resp.Invoice.Items, 4)
	assert.InDelta(t, 1952, resp.Invoice.Total, epsilon)
}

func TestAddItemCoercesNumericStrings(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodPost, "/api/invoice/items", `{
		"description": "Support",
		"quantity": "2",
		"unitPrice": " 50.5 ",
		"taxRate": "abc",
		"discount": 1,
		"discountType": "FIXED"
	}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data    invoicedomain.LineItem `json:"data"`
		Invoice invoicedomain.Invoice  `json:"invoice"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Support", resp.Data.Description)
	assert.Equal(t, float64(2), resp.Data.Quantity)
	assert.Equal(t, 50.5, resp.Data.UnitPrice)
	assert.Zero(t, resp.Data.TaxRate)
	assert.Equal(t, invoicedomain.DiscountTypeFixed, resp.Data.DiscountType)
	assert.InDelta(t, 100, resp.Data.Total, epsilon)
	assert.InDelta(t, 2052, resp.Invoice.Total, epsilon)
}

func TestUpdateItem(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)
	logo := decodeInvoice(t, doRequest(t, s, http.MethodGet, "/api/invoice", nil)).Items[1]

	w := doRequest(t, s, http.MethodPatch, "/api/invoice/items/"+logo.ID, map[string]any{"discount": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	inv := decodeInvoice(t, w)
	assert.InDelta(t, 488.25, inv.Items[1].Total, epsilon)
	assert.Equal(t, "Logo Design", inv.Items[1].Description)
	assert.InDelta(t, 2006.25, inv.Total, epsilon)
}

func TestUpdateItemRejectsNegativeQuantity(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)
	web := decodeInvoice(t, doRequest(t, s, http.MethodGet, "/api/invoice", nil)).Items[0]

	w := doRequest(t, s, http.MethodPatch, "/api/invoice/items/"+web.ID, map[string]any{"quantity": -1})
	require.Equal(t, http.StatusBadRequest, w.Code)

	payload := decodeError(t, w)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "quantity", payload.Errors[0].Field)
	assert.Equal(t, "invalid_quantity", payload.Errors[0].Code)
}

func TestUpdateItemRejectsUnknownDiscountType(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)
	web := decodeInvoice(t, doRequest(t, s, http.MethodGet, "/api/invoice", nil)).Items[0]

	w := doRequest(t, s, http.MethodPatch, "/api/invoice/items/"+web.ID, map[string]any{"discountType": "bogus"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_discount_type", decodeError(t, w).Errors[0].Code)
}

func TestUpdateItemNotFound(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodPatch, "/api/invoice/items/missing", map[string]any{"quantity": 2})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Type)
}

func TestUpdateItemInvalidJSON(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodPatch, "/api/invoice/items/any", `{"quantity":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeError(t, w).Errors[0].Code)
}

func TestUpdateItemOutOfRangeStringCoercesToZero(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)
	web := decodeInvoice(t, doRequest(t, s, http.MethodGet, "/api/invoice", nil)).Items[0]

	w := doRequest(t, s, http.MethodPatch, "/api/invoice/items/"+web.ID, `{"quantity":"1e400"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	inv := decodeInvoice(t, w)
	assert.Zero(t, inv.Items[0].Quantity)
	assert.Zero(t, inv.Items[0].Total)
	assert.InDelta(t, 650, inv.Total, epsilon)

	w = doRequest(t, s, http.MethodGet, "/api/invoice", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doRequest(t, s, http.MethodGet, "/api/invoice/summary", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestOverflowingAmountsAreRejected(t *testing.T) {
	testCases := []struct {
		name   string
		method string
		path   func(itemID string) string
		body   string
	}{
		{
			name:   "update_item",
			method: http.MethodPatch,
			path:   func(itemID string) string { return "/api/invoice/items/" + itemID },
			body:   `{"quantity":1e300,"unitPrice":1e300}`,
		},
		{
			name:   "add_item",
			method: http.MethodPost,
			path:   func(string) string { return "/api/invoice/items" },
			body:   `{"quantity":"1e300","unitPrice":"1e300"}`,
		},
		{
			name:   "replace_invoice",
			method: http.MethodPut,
			path:   func(string) string { return "/api/invoice" },
			body:   `{"items":[{"quantity":1e308,"unitPrice":10}]}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, config.TaxRatePassthrough)
			before := decodeInvoice(t, doRequest(t, s, http.MethodGet, "/api/invoice", nil))

			w := doRequest(t, s, tc.method, tc.path(before.Items[0].ID), tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			payload := decodeError(t, w)
			assert.Equal(t, "validation_error", payload.Type)
			require.Len(t, payload.Errors, 1)
			assert.Equal(t, "items", payload.Errors[0].Field)
			assert.Equal(t, "non_finite_amount", payload.Errors[0].Code)

			w = doRequest(t, s, http.MethodGet, "/api/invoice", nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			after := decodeInvoice(t, w)
			assert.Len(t, after.Items, 3)
			assert.InDelta(t, 1952, after.Total, epsilon)
			assert.Equal(t, before.UpdatedAt, after.UpdatedAt)

			w = doRequest(t, s, http.MethodGet, "/api/invoice/summary", nil)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		})
	}
}

func TestRemoveItem(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)
	hosting := decodeInvoice(t, doRequest(t, s, http.MethodGet, "/api/invoice", nil)).Items[2]

	w := doRequest(t, s, http.MethodDelete, "/api/invoice/items/"+hosting.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 1736, decodeInvoice(t, w).Total, epsilon)

	w = doRequest(t, s, http.MethodDelete, "/api/invoice/items/"+hosting.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaxRatePolicies(t *testing.T) {
	testCases := []struct {
		name       string
		policy     config.TaxRatePolicy
		taxRate    any
		wantStatus int
		wantRate   float64
	}{
		{name: "passthrough_keeps_rate", policy: config.TaxRatePassthrough, taxRate: 150, wantStatus: http.StatusOK, wantRate: 150},
		{name: "clamp_caps_rate", policy: config.TaxRateClamp, taxRate: "150", wantStatus: http.StatusOK, wantRate: 100},
		{name: "clamp_floors_rate", policy: config.TaxRateClamp, taxRate: -5, wantStatus: http.StatusOK, wantRate: 0},
		{name: "reject_out_of_range", policy: config.TaxRateReject, taxRate: 101, wantStatus: http.StatusBadRequest},
		{name: "reject_allows_in_range", policy: config.TaxRateReject, taxRate: 20, wantStatus: http.StatusOK, wantRate: 20},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, tc.policy)
			web := decodeInvoice(t, doRequest(t, s, http.MethodGet, "/api/invoice", nil)).Items[0]

			w := doRequest(t, s, http.MethodPatch, "/api/invoice/items/"+web.ID, map[string]any{"taxRate": tc.taxRate})
			require.Equal(t, tc.wantStatus, w.Code, w.Body.String())

			if tc.wantStatus != http.StatusOK {
				assert.Equal(t, "invalid_tax_rate", decodeError(t, w).Errors[0].Code)
				return
			}
			assert.Equal(t, tc.wantRate, decodeInvoice(t, w).Items[0].TaxRate)
		})
	}
}

func TestUpdateInvoiceFields(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodPatch, "/api/invoice", map[string]any{
		"status":   "Paid",
		"currency": "eur",
		"notes":    "Danke",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	inv := decodeInvoice(t, w)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, inv.Status)
	assert.Equal(t, "EUR", inv.Currency)
	assert.Equal(t, "Danke", inv.Notes)
	assert.InDelta(t, 1952, inv.Total, epsilon)
}

func TestUpdateInvoiceFieldsValidation(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	testCases := []struct {
		name  string
		body  map[string]any
		field string
		code  string
	}{
		{name: "status", body: map[string]any{"status": "void"}, field: "status", code: "invalid_status"},
		{name: "currency", body: map[string]any{"currency": "BTC"}, field: "currency", code: "unsupported_currency"},
		{name: "date", body: map[string]any{"date": "03/01/2026"}, field: "date", code: "invalid_date"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := doRequest(t, s, http.MethodPatch, "/api/invoice", tc.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			payload := decodeError(t, w)
			require.Len(t, payload.Errors, 1)
			assert.Equal(t, tc.field, payload.Errors[0].Field)
			assert.Equal(t, tc.code, payload.Errors[0].Code)
		})
	}
}

func TestReplaceInvoiceRecalculates(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodPut, "/api/invoice", map[string]any{
		"invoiceNumber": "IMPORT-1",
		"currency":      "gbp",
		"client":        map[string]any{"name": "Initech"},
		"items": []map[string]any{
			{"id": "a", "description": "Work", "quantity": 2, "unitPrice": "50", "taxRate": 10, "discount": 10, "discountType": "percentage"},
			{"description": "Credit", "quantity": 1, "unitPrice": 30, "taxRate": 10, "discount": 50, "discountType": "fixed"},
		},
		"total": 12345,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	inv := decodeInvoice(t, w)
	assert.Equal(t, "IMPORT-1", inv.InvoiceNumber)
	assert.Equal(t, "GBP", inv.Currency)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, "Initech", inv.Client.Name)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "a", inv.Items[0].ID)
	assert.NotEmpty(t, inv.Items[1].ID)
	assert.InDelta(t, 99, inv.Items[0].Total, epsilon)
	assert.InDelta(t, -22, inv.Items[1].Total, epsilon)
	assert.InDelta(t, 77, inv.Total, epsilon)

	w = doRequest(t, s, http.MethodGet, "/api/invoice/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary struct {
		Data invoicedomain.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.True(t, summary.Data.HasNegativeLines)
	assert.Equal(t, "£77.00", summary.Data.Formatted.Total)
}

func TestReplaceInvoiceRejectsBadStatus(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodPut, "/api/invoice", map[string]any{"status": "void"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_status", decodeError(t, w).Errors[0].Code)
}

func TestUpdateParties(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodPut, "/api/invoice/company", map[string]any{"name": "Initech", "email": "ap@initech.test"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Initech", decodeInvoice(t, w).Company.Name)

	w = doRequest(t, s, http.MethodPut, "/api/invoice/client", map[string]any{"name": "Umbrella"})
	require.Equal(t, http.StatusOK, w.Code)
	inv := decodeInvoice(t, w)
	assert.Equal(t, "Umbrella", inv.Client.Name)
	assert.Equal(t, "ap@initech.test", inv.Company.Email)
}

func TestResetAndCreateNew(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodPost, "/api/invoice/new", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	inv := decodeInvoice(t, w)
	assert.Equal(t, "INV-00002", inv.InvoiceNumber)
	assert.Empty(t, inv.Items)
	assert.Zero(t, inv.Total)
	assert.Equal(t, "2026-03-31", inv.DueDate)

	w = doRequest(t, s, http.MethodPost, "/api/invoice/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	inv = decodeInvoice(t, w)
	assert.Equal(t, "INV-00003", inv.InvoiceNumber)
	assert.Len(t, inv.Items, 3)
	assert.InDelta(t, 1952, inv.Total, epsilon)
}

func TestSummary(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodGet, "/api/invoice/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data invoicedomain.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "$1,952.00", resp.Data.Formatted.Total)
	assert.Equal(t, "$74.00", resp.Data.Formatted.DiscountTotal)
	assert.Equal(t, 3, resp.Data.ItemCount)
	assert.False(t, resp.Data.HasNegativeLines)
}

func TestExport(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	testCases := []struct {
		path        string
		contentType string
		filename    string
		prefix      string
	}{
		{path: "/api/invoice/export.json", contentType: "application/json", filename: "inv-00001-globex-industries.json", prefix: "{"},
		{path: "/api/invoice/export.html", contentType: "text/html; charset=utf-8", filename: "inv-00001-globex-industries.html", prefix: "<!doctype html>"},
		{path: "/api/invoice/export.pdf", contentType: "application/pdf", filename: "inv-00001-globex-industries.pdf", prefix: "%PDF-"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			w := doRequest(t, s, http.MethodGet, tc.path, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			assert.Equal(t, tc.contentType, w.Header().Get("Content-Type"))
			assert.Equal(t, "attachment; filename="+tc.filename, w.Header().Get("Content-Disposition"))
			assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte(tc.prefix)))
		})
	}

	w := doRequest(t, s, http.MethodGet, "/api/invoice/export.html?inline=true", nil)
	assert.Equal(t, "inline; filename=inv-00001-globex-industries.html", w.Header().Get("Content-Disposition"))
}

func TestExportRateLimit(t *testing.T) {
	s := newTestServerWithConfig(t, config.TaxRatePassthrough, config.Config{ExportRateLimit: 2})

	for i := 0; i < 2; i++ {
		w := doRequest(t, s, http.MethodGet, "/api/invoice/export.json", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(t, s, http.MethodGet, "/api/invoice/export.json", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limited", decodeError(t, w).Type)

	w = doRequest(t, s, http.MethodGet, "/api/invoice", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListCurrencies(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodGet, "/api/currencies", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []currency.Info `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 8)
	assert.Equal(t, "USD", resp.Data[0].Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, config.TaxRatePassthrough)

	w := doRequest(t, s, http.MethodGet, "/api/nope", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Type)
}
