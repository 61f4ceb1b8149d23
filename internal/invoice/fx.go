package invoice

import (
	"github.com/smallbiznis/invoicekit/internal/invoice/render"
	"github.com/smallbiznis/invoicekit/internal/invoice/service"
	"github.com/smallbiznis/invoicekit/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	pdf.Module,
	fx.Provide(render.NewRenderer),
	fx.Provide(service.NewService),
)
