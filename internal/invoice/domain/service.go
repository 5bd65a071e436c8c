package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smartinvoice/smartinvoice/internal/render"
	"github.com/smartinvoice/smartinvoice/pkg/db/pagination"
)

type LineItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

type CreateInvoiceRequest struct {
	CustomerID   string                `json:"customer_id"`
	Number       string                `json:"number"`
	IssueDate    string                `json:"issue_date"`
	DueDate      string                `json:"due_date"`
	Items        []LineItemInput       `json:"items"`
	DiscountRate float64               `json:"discount_rate"`
	TaxRate      float64               `json:"tax_rate"`
	Theme        string                `json:"theme"`
	CustomColors *render.ColorOverride `json:"custom_colors"`
	Notes        string                `json:"notes"`
	Terms        string                `json:"terms"`
	PaymentLink  string                `json:"payment_link"`
}

type UpdateInvoiceRequest struct {
	ID           string                `json:"-"`
	IssueDate    *string               `json:"issue_date"`
	DueDate      *string               `json:"due_date"`
	Items        []LineItemInput       `json:"items"`
	DiscountRate *float64              `json:"discount_rate"`
	TaxRate      *float64              `json:"tax_rate"`
	Theme        *string               `json:"theme"`
	CustomColors *render.ColorOverride `json:"custom_colors"`
	Notes        *string               `json:"notes"`
	Terms        *string               `json:"terms"`
	PaymentLink  *string               `json:"payment_link"`
}

type ListInvoiceRequest struct {
	PageToken  string
	PageSize   int32
	CustomerID string
	Status     string
	IssuedFrom *time.Time
	IssuedTo   *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// RenderedPDF is a rendered document plus the filename it should ship as.
type RenderedPDF struct {
	Filename string
	Content  []byte
}

type Service interface {
	Create(ctx context.Context, req CreateInvoiceRequest) (Invoice, error)
	Update(ctx context.Context, req UpdateInvoiceRequest) (Invoice, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id, status string) (Invoice, error)
	BuildDocument(ctx context.Context, id string) (render.InvoiceDocument, error)
	RenderPDF(ctx context.Context, id string) (RenderedPDF, error)
	RenderHTML(ctx context.Context, id string) (string, error)
	Send(ctx context.Context, id string, recipient string) (Invoice, error)
}

var (
	ErrInvalidInvoiceID   = errors.New("invalid_invoice_id")
	ErrInvalidNumber      = errors.New("invalid_invoice_number")
	ErrInvalidItems       = errors.New("invalid_invoice_items")
	ErrInvalidStatus      = errors.New("invalid_invoice_status")
	ErrInvalidTransition  = errors.New("invalid_status_transition")
	ErrInvalidRate        = errors.New("invalid_rate")
	ErrInvalidDate        = errors.New("invalid_date")
	ErrInvoiceNotFound    = errors.New("invoice_not_found")
	ErrNumberTaken        = errors.New("invoice_number_taken")
	ErrInvoiceNotEditable = errors.New("invoice_not_editable")
	ErrMissingRecipient   = errors.New("missing_recipient")
)
