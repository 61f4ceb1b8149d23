package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AddItem appends a line item. The body is optional; when present it seeds
// the new item's fields.
func (s *Server) AddItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	patch, err := req.toPatch(s.taxRatePolicy())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, inv, err := s.invoiceSvc.AddItem(c.Request.Context(), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": item, "invoice": inv})
}

func (s *Server) UpdateItem(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	patch, err := req.toPatch(s.taxRatePolicy())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoiceSvc.UpdateItem(c.Request.Context(), id, patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveItem(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.RemoveItem(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
