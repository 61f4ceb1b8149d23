package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/invoicekit/internal/invoice/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrRateLimited        = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if field, ok := validationErrorField(err); ok {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   field,
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrItemNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, invoicedomain.ErrRendererNotConfigured):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code written to the
// request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := ""
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

// validationErrorField reports the request field a domain validation error
// belongs to.
func validationErrorField(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "request", true
	case errors.Is(err, invoicedomain.ErrInvalidStatus):
		return "status", true
	case errors.Is(err, invoicedomain.ErrInvalidDate):
		return "date", true
	case errors.Is(err, invoicedomain.ErrInvalidQuantity):
		return "quantity", true
	case errors.Is(err, invoicedomain.ErrInvalidTaxRate):
		return "taxRate", true
	case errors.Is(err, invoicedomain.ErrInvalidDiscountType):
		return "discountType", true
	case errors.Is(err, invoicedomain.ErrUnsupportedCurrency):
		return "currency", true
	case errors.Is(err, invoicedomain.ErrUnsupportedExportFormat):
		return "format", true
	case errors.Is(err, invoicedomain.ErrNonFiniteAmount):
		return "items", true
	default:
		return "", false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, invoicedomain.ErrInvalidStatus):
		return invoicedomain.ErrInvalidStatus.Error()
	case errors.Is(err, invoicedomain.ErrInvalidDate):
		return invoicedomain.ErrInvalidDate.Error()
	case errors.Is(err, invoicedomain.ErrInvalidQuantity):
		return invoicedomain.ErrInvalidQuantity.Error()
	case errors.Is(err, invoicedomain.ErrInvalidTaxRate):
		return invoicedomain.ErrInvalidTaxRate.Error()
	case errors.Is(err, invoicedomain.ErrInvalidDiscountType):
		return invoicedomain.ErrInvalidDiscountType.Error()
	case errors.Is(err, invoicedomain.ErrUnsupportedCurrency):
		return invoicedomain.ErrUnsupportedCurrency.Error()
	case errors.Is(err, invoicedomain.ErrUnsupportedExportFormat):
		return invoicedomain.ErrUnsupportedExportFormat.Error()
	case errors.Is(err, invoicedomain.ErrNonFiniteAmount):
		return invoicedomain.ErrNonFiniteAmount.Error()
	default:
		return err.Error()
	}
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_quantity":
		return "quantity must not be negative"
	case "invalid_tax_rate":
		return "tax rate must be between 0 and 100"
	case "unsupported_currency":
		return "unsupported currency"
	case "non_finite_amount":
		return "amounts must stay within the representable range"
	default:
		return "invalid value"
	}
}
