package server

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
)

// ExportInvoice serves the current invoice as a download in format.
func (s *Server) ExportInvoice(format invoicedomain.ExportFormat) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := s.invoiceSvc.Export(c.Request.Context(), format)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename})
		if c.Query("inline") == "true" {
			disposition = mime.FormatMediaType("inline", map[string]string{"filename": out.Filename})
		}
		c.Header("Content-Disposition", disposition)
		c.Data(http.StatusOK, out.ContentType, out.Body)
	}
}

func (s *Server) ExportRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.exportLimiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
