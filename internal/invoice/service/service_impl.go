package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/invoicekit/internal/clock"
	"github.com/smallbiznis/invoicekit/internal/config"
	"github.com/smallbiznis/invoicekit/internal/currency"
	"github.com/smallbiznis/invoicekit/internal/invoice/calc"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
	invoiceformat "github.com/smallbiznis/invoicekit/internal/invoice/format"
	"github.com/smallbiznis/invoicekit/internal/invoice/render"
	"github.com/smallbiznis/invoicekit/internal/observability/logger"
	"github.com/smallbiznis/invoicekit/internal/observability/metrics"
	"github.com/smallbiznis/invoicekit/internal/providers/pdf"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	GenID    *snowflake.Node
	Defaults *config.DefaultsHolder
	Metrics  *metrics.Metrics `optional:"true"`
	Renderer render.Renderer  `optional:"true"`
	PDF      pdf.Provider     `optional:"true"`
}

// Service holds the current invoice snapshot. Writers are serialized by mu;
// readers load the snapshot pointer without locking. Stored snapshots are
// never modified after Store.
type Service struct {
	log      *zap.Logger
	clock    clock.Clock
	genID    *snowflake.Node
	defaults *config.DefaultsHolder
	metrics  *metrics.Metrics
	renderer render.Renderer
	pdf      pdf.Provider
	tracer   trace.Tracer

	mu      sync.Mutex
	seq     int64 // guarded by mu
	current atomic.Pointer[invoicedomain.Invoice]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return newService(p)
}

func newService(p ServiceParam) *Service {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	defaults := p.Defaults
	if defaults == nil {
		defaults = config.NewStaticDefaultsHolder(config.DefaultInvoiceDefaults())
	}

	s := &Service{
		log:      log.Named("invoice.service"),
		clock:    clk,
		genID:    p.GenID,
		defaults: defaults,
		metrics:  p.Metrics,
		renderer: p.Renderer,
		pdf:      p.PDF,
		tracer:   otel.Tracer("invoicekit/invoice"),
	}

	now := clk.Now()
	initial := s.recalculate(context.Background(), "init", sampleInvoice(s.newInvoiceID(), s.nextNumber(now), now), now)
	s.current.Store(&initial)
	return s
}

func (s *Service) Current(ctx context.Context) invoicedomain.Invoice {
	return s.snapshot().Clone()
}

func (s *Service) snapshot() invoicedomain.Invoice {
	return *s.current.Load()
}

func (s *Service) SetInvoice(ctx context.Context, inv invoicedomain.Invoice) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, "set_invoice", true, func(_ invoicedomain.Invoice, now time.Time) (invoicedomain.Invoice, error) {
		next := inv.Clone()
		if strings.TrimSpace(next.ID) == "" {
			next.ID = s.newInvoiceID()
		}
		if next.Items == nil {
			next.Items = []invoicedomain.LineItem{}
		}
		for i := range next.Items {
			if strings.TrimSpace(next.Items[i].ID) == "" {
				next.Items[i].ID = uuid.NewString()
			}
		}
		if strings.TrimSpace(next.Currency) == "" {
			next.Currency = s.defaults.Get().Currency
		}
		next.Currency = strings.ToUpper(strings.TrimSpace(next.Currency))
		if next.Status == "" {
			next.Status = invoicedomain.InvoiceStatusDraft
		}
		if next.CreatedAt.IsZero() {
			next.CreatedAt = now
		}
		return next, nil
	})
}

func (s *Service) UpdateCompany(ctx context.Context, company invoicedomain.Company) invoicedomain.Invoice {
	out, _ := s.mutate(ctx, "update_company", false, func(cur invoicedomain.Invoice, _ time.Time) (invoicedomain.Invoice, error) {
		next := cur.Clone()
		next.Company = company
		return next, nil
	})
	return out
}

func (s *Service) UpdateClient(ctx context.Context, client invoicedomain.Client) invoicedomain.Invoice {
	out, _ := s.mutate(ctx, "update_client", false, func(cur invoicedomain.Invoice, _ time.Time) (invoicedomain.Invoice, error) {
		next := cur.Clone()
		next.Client = client
		return next, nil
	})
	return out
}

// AddItem appends a new line item (quantity 1, percentage discount) with
// patch applied on top, then recalculates.
func (s *Service) AddItem(ctx context.Context, patch invoicedomain.ItemPatch) (invoicedomain.LineItem, invoicedomain.Invoice, error) {
	item := patch.Apply(invoicedomain.LineItem{
		ID:           uuid.NewString(),
		Quantity:     1,
		DiscountType: invoicedomain.DiscountTypePercentage,
	})

	out, err := s.mutate(ctx, "add_item", true, func(cur invoicedomain.Invoice, _ time.Time) (invoicedomain.Invoice, error) {
		next := cur.Clone()
		next.Items = append(next.Items, item)
		return next, nil
	})
	if err != nil {
		return invoicedomain.LineItem{}, invoicedomain.Invoice{}, err
	}
	s.metrics.RecordItemMutation(ctx, "add")

	added, _ := out.FindItem(item.ID)
	return added, out, nil
}

func (s *Service) UpdateItem(ctx context.Context, id string, patch invoicedomain.ItemPatch) (invoicedomain.Invoice, error) {
	out, err := s.mutate(ctx, "update_item", true, func(cur invoicedomain.Invoice, _ time.Time) (invoicedomain.Invoice, error) {
		idx := indexOfItem(cur.Items, id)
		if idx < 0 {
			return invoicedomain.Invoice{}, invoicedomain.ErrItemNotFound
		}
		next := cur.Clone()
		next.Items[idx] = patch.Apply(next.Items[idx])
		return next, nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	s.metrics.RecordItemMutation(ctx, "update")
	return out, nil
}

func (s *Service) RemoveItem(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	out, err := s.mutate(ctx, "remove_item", true, func(cur invoicedomain.Invoice, _ time.Time) (invoicedomain.Invoice, error) {
		idx := indexOfItem(cur.Items, id)
		if idx < 0 {
			return invoicedomain.Invoice{}, invoicedomain.ErrItemNotFound
		}
		next := cur
		next.Items = make([]invoicedomain.LineItem, 0, len(cur.Items)-1)
		next.Items = append(next.Items, cur.Items[:idx]...)
		next.Items = append(next.Items, cur.Items[idx+1:]...)
		return next, nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	s.metrics.RecordItemMutation(ctx, "remove")
	return out, nil
}

// UpdateFields changes invoice fields that never affect totals, so no
// recalculation happens.
func (s *Service) UpdateFields(ctx context.Context, fields invoicedomain.InvoiceFields) (invoicedomain.Invoice, error) {
	if err := validateFields(fields); err != nil {
		return invoicedomain.Invoice{}, err
	}

	return s.mutate(ctx, "update_fields", false, func(cur invoicedomain.Invoice, _ time.Time) (invoicedomain.Invoice, error) {
		next := cur.Clone()
		if fields.InvoiceNumber != nil {
			next.InvoiceNumber = strings.TrimSpace(*fields.InvoiceNumber)
		}
		if fields.Date != nil {
			next.Date = strings.TrimSpace(*fields.Date)
		}
		if fields.DueDate != nil {
			next.DueDate = strings.TrimSpace(*fields.DueDate)
		}
		if fields.Currency != nil {
			next.Currency = strings.ToUpper(strings.TrimSpace(*fields.Currency))
		}
		if fields.Status != nil {
			next.Status = *fields.Status
		}
		if fields.Notes != nil {
			next.Notes = *fields.Notes
		}
		if fields.Terms != nil {
			next.Terms = *fields.Terms
		}
		if fields.PaymentMethod != nil {
			if method := strings.TrimSpace(*fields.PaymentMethod); method != "" {
				next.PaymentMethod = &method
			} else {
				next.PaymentMethod = nil
			}
		}
		return next, nil
	})
}

// Reset replaces the current invoice with the sample invoice.
func (s *Service) Reset(ctx context.Context) invoicedomain.Invoice {
	out, _ := s.mutate(ctx, "reset", true, func(_ invoicedomain.Invoice, now time.Time) (invoicedomain.Invoice, error) {
		return sampleInvoice(s.newInvoiceID(), s.nextNumber(now), now), nil
	})
	return out
}

// CreateNew starts a blank draft from the configured defaults, keeping the
// current company and client.
func (s *Service) CreateNew(ctx context.Context) (invoicedomain.Invoice, error) {
	return s.mutate(ctx, "create_new", true, func(cur invoicedomain.Invoice, now time.Time) (invoicedomain.Invoice, error) {
		d := s.defaults.Get()
		return invoicedomain.Invoice{
			ID:            s.newInvoiceID(),
			InvoiceNumber: s.nextNumber(now),
			Date:          now.Format(invoicedomain.DateLayout),
			DueDate:       now.AddDate(0, 0, d.PaymentTermsDays).Format(invoicedomain.DateLayout),
			Company:       cur.Company,
			Client:        cur.Client,
			Items:         []invoicedomain.LineItem{},
			Notes:         d.Notes,
			Terms:         d.Terms,
			Currency:      d.Currency,
			Status:        invoicedomain.InvoiceStatusDraft,
			CreatedAt:     now,
		}, nil
	})
}

// mutate runs fn against the current snapshot under the writer lock and
// stores its result. When recalc is set the engine derives every total
// before the snapshot becomes visible. A result holding NaN or ±Inf is
// dropped and the previous snapshot stays current.
func (s *Service) mutate(
	ctx context.Context,
	op string,
	recalc bool,
	fn func(cur invoicedomain.Invoice, now time.Time) (invoicedomain.Invoice, error),
) (invoicedomain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	next, err := fn(s.snapshot(), now)
	if err != nil {
		logger.WithContext(ctx, s.log).Debug("invoice mutation rejected",
			zap.String("operation", op),
			zap.Error(err),
		)
		return invoicedomain.Invoice{}, err
	}

	if recalc {
		next = s.recalculate(ctx, op, next, now)
	} else {
		next.UpdatedAt = now
	}
	if !next.Finite() {
		logger.WithContext(ctx, s.log).Warn("invoice mutation rejected",
			zap.String("operation", op),
			zap.Error(invoicedomain.ErrNonFiniteAmount),
		)
		return invoicedomain.Invoice{}, invoicedomain.ErrNonFiniteAmount
	}
	s.current.Store(&next)

	logger.WithInvoice(logger.WithContext(ctx, s.log), next.ID, next.InvoiceNumber).Debug("invoice updated",
		zap.String("operation", op),
		zap.Int("item_count", len(next.Items)),
	)
	return next.Clone(), nil
}

func (s *Service) recalculate(ctx context.Context, trigger string, inv invoicedomain.Invoice, now time.Time) invoicedomain.Invoice {
	_, span := s.tracer.Start(ctx, "invoice.recalculate", trace.WithAttributes(
		attribute.String("invoice.trigger", trigger),
		attribute.Int("invoice.item_count", len(inv.Items)),
	))
	defer span.End()

	out := calc.RecalculateAt(inv, now)
	s.metrics.RecordRecalculation(ctx, trigger)

	if calc.HasNegativeLines(out.Items) {
		span.SetAttributes(attribute.Bool("invoice.negative_lines", true))
		logger.WithInvoice(logger.WithContext(ctx, s.log), out.ID, out.InvoiceNumber).Warn("fixed discount exceeds line subtotal",
			zap.String("trigger", trigger),
		)
	}
	return out
}

func (s *Service) newInvoiceID() string {
	if s.genID == nil {
		return uuid.NewString()
	}
	return s.genID.Generate().String()
}

// nextNumber must be called with mu held, or before the service is shared.
func (s *Service) nextNumber(now time.Time) string {
	s.seq++
	number, err := invoiceformat.InvoiceNumber(s.defaults.Get().NumberTemplate, now, s.seq)
	if err != nil {
		s.log.Warn("invoice number template rejected, using default", zap.Error(err))
		number, _ = invoiceformat.InvoiceNumber(invoiceformat.DefaultNumberTemplate, now, s.seq)
	}
	return number
}

func indexOfItem(items []invoicedomain.LineItem, id string) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func validateFields(fields invoicedomain.InvoiceFields) error {
	if fields.Status != nil && !fields.Status.Valid() {
		return invoicedomain.ErrInvalidStatus
	}
	if fields.Currency != nil && !currency.Supported(*fields.Currency) {
		return invoicedomain.ErrUnsupportedCurrency
	}
	for _, value := range []*string{fields.Date, fields.DueDate} {
		if value == nil || strings.TrimSpace(*value) == "" {
			continue
		}
		if _, err := time.Parse(invoicedomain.DateLayout, strings.TrimSpace(*value)); err != nil {
			return invoicedomain.ErrInvalidDate
		}
	}
	return nil
}
