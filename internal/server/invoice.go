package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/invoicekit/internal/config"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
)

func (s *Server) GetInvoice(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.invoiceSvc.Current(c.Request.Context())})
}

func (s *Server) ReplaceInvoice(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	inv, err := req.toInvoice(s.taxRatePolicy())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out, err := s.invoiceSvc.SetInvoice(c.Request.Context(), inv)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) UpdateInvoiceFields(c *gin.Context) {
	var req fieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	fields, err := req.toFields()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.UpdateFields(c.Request.Context(), fields)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateCompany(c *gin.Context) {
	var req invoicedomain.Company
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.invoiceSvc.UpdateCompany(c.Request.Context(), req)})
}

func (s *Server) UpdateClient(c *gin.Context) {
	var req invoicedomain.Client
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.invoiceSvc.UpdateClient(c.Request.Context(), req)})
}

func (s *Server) ResetInvoice(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.invoiceSvc.Reset(c.Request.Context())})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	resp, err := s.invoiceSvc.CreateNew(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetSummary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.invoiceSvc.Summary(c.Request.Context())})
}

func (s *Server) taxRatePolicy() config.TaxRatePolicy {
	if s.defaults == nil {
		return config.TaxRatePassthrough
	}
	return s.defaults.Get().TaxRatePolicy
}
