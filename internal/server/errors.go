package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	customerdomain "github.com/smartinvoice/smartinvoice/internal/customer/domain"
	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
	obscontext "github.com/smartinvoice/smartinvoice/internal/observability/context"
	"github.com/smartinvoice/smartinvoice/internal/observability/logger"
	"github.com/smartinvoice/smartinvoice/internal/render"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not_found")
	ErrTooManyRequests    = errors.New("too_many_requests")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

// ValidationError is a request-level input error with a field reference.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Code
}

func newValidationError(field, code, message string) error {
	return &ValidationError{Field: field, Code: code, Message: message}
}

func invalidRequestError() error {
	return newValidationError("", "invalid_request", "invalid request body")
}

// AbortWithError maps domain errors to HTTP responses with a stable shape.
func AbortWithError(c *gin.Context, err error) {
	status, code, message, field := classify(err)

	body := gin.H{
		"code":    code,
		"message": message,
	}
	if field != "" {
		body["field"] = field
	}
	payload := gin.H{"error": body}
	if requestID := obscontext.RequestIDFromGin(c); requestID != "" {
		payload["request_id"] = requestID
	}

	log := logger.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.Int("status", status), zap.String("code", code))
	}

	c.AbortWithStatusJSON(status, payload)
}

func classify(err error) (status int, code, message, field string) {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, validation.Code, validation.Message, validation.Field
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "authentication required", ""
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found", "resource not found", ""
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, "too_many_requests", "rate limit exceeded", ""
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable", "service unavailable", ""

	case errors.Is(err, customerdomain.ErrCustomerNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound):
		return http.StatusNotFound, err.Error(), err.Error(), ""

	case errors.Is(err, customerdomain.ErrEmailTaken),
		errors.Is(err, invoicedomain.ErrNumberTaken),
		errors.Is(err, invoicedomain.ErrInvalidTransition),
		errors.Is(err, invoicedomain.ErrInvoiceNotEditable):
		return http.StatusConflict, err.Error(), err.Error(), ""

	case errors.Is(err, customerdomain.ErrInvalidName),
		errors.Is(err, customerdomain.ErrInvalidEmail),
		errors.Is(err, customerdomain.ErrInvalidCurrency),
		errors.Is(err, customerdomain.ErrInvalidID),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceID),
		errors.Is(err, invoicedomain.ErrInvalidNumber),
		errors.Is(err, invoicedomain.ErrInvalidItems),
		errors.Is(err, invoicedomain.ErrInvalidStatus),
		errors.Is(err, invoicedomain.ErrInvalidRate),
		errors.Is(err, invoicedomain.ErrInvalidDate),
		errors.Is(err, invoicedomain.ErrMissingRecipient):
		return http.StatusBadRequest, err.Error(), err.Error(), ""

	case errors.Is(err, render.ErrRenderFailed):
		return http.StatusInternalServerError, "render_failed", "invoice could not be rendered", ""
	}

	return http.StatusInternalServerError, "internal_error", "internal server error", ""
}

// parseOptionalTime parses a date or timestamp filter. Bare dates are read
// as UTC midnight; endOfDay pushes them to the last instant of that day.
func parseOptionalTime(value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		utc := t.UTC()
		return &utc, nil
	}

	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
