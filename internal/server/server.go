package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/invoicekit/internal/clock"
	"github.com/smallbiznis/invoicekit/internal/config"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
	"github.com/smallbiznis/invoicekit/internal/observability"
	obsmiddleware "github.com/smallbiznis/invoicekit/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicekit/internal/observability/metrics"
	obstracing "github.com/smallbiznis/invoicekit/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	invoiceSvc    invoicedomain.Service
	defaults      *config.DefaultsHolder
	exportLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	InvoiceSvc invoicedomain.Service
	Defaults   *config.DefaultsHolder
	Clock      clock.Clock `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           log.Named("http"),
		invoiceSvc:    p.InvoiceSvc,
		defaults:      p.Defaults,
		exportLimiter: newRateLimiter(int(p.Cfg.ExportRateLimit), time.Minute, p.Clock),
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/currencies", s.ListCurrencies)

	invoice := api.Group("/invoice")
	{
		invoice.GET("", s.GetInvoice)
		invoice.PUT("", s.ReplaceInvoice)
		invoice.PATCH("", s.UpdateInvoiceFields)
		invoice.PUT("/company", s.UpdateCompany)
		invoice.PUT("/client", s.UpdateClient)
		invoice.POST("/reset", s.ResetInvoice)
		invoice.POST("/new", s.CreateInvoice)
		invoice.GET("/summary", s.GetSummary)

		// -------- Items --------
		invoice.POST("/items", s.AddItem)
		invoice.PATCH("/items/:id", s.UpdateItem)
		invoice.DELETE("/items/:id", s.RemoveItem)

		// -------- Export --------
		invoice.GET("/export.html", s.ExportRateLimit(), s.ExportInvoice(invoicedomain.ExportFormatHTML))
		invoice.GET("/export.pdf", s.ExportRateLimit(), s.ExportInvoice(invoicedomain.ExportFormatPDF))
		invoice.GET("/export.json", s.ExportRateLimit(), s.ExportInvoice(invoicedomain.ExportFormatJSON))
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
