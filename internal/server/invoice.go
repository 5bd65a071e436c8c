package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
	"github.com/smartinvoice/smartinvoice/internal/render"
	"github.com/smartinvoice/smartinvoice/pkg/db/pagination"
)

// @Summary      Create Invoice
// @Description  Create a new invoice for a customer
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        request body invoicedomain.CreateInvoiceRequest true "Create Invoice Request"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices [post]
func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Invoices
// @Description  List invoices with optional filters
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        customer_id  query     string  false  "Customer ID"
// @Param        status       query     string  false  "Status"
// @Param        issued_from  query     string  false  "Issued From"
// @Param        issued_to    query     string  false  "Issued To"
// @Param        page_token   query     string  false  "Page Token"
// @Param        page_size    query     int     false  "Page Size"
// @Success      200  {object}  invoicedomain.ListInvoiceResponse
// @Router       /invoices [get]
func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		CustomerID string `form:"customer_id"`
		Status     string `form:"status"`
		IssuedFrom string `form:"issued_from"`
		IssuedTo   string `form:"issued_to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	issuedFrom, err := parseOptionalTime(query.IssuedFrom, false)
	if err != nil {
		AbortWithError(c, newValidationError("issued_from", "invalid_issued_from", "invalid issued_from"))
		return
	}

	issuedTo, err := parseOptionalTime(query.IssuedTo, true)
	if err != nil {
		AbortWithError(c, newValidationError("issued_to", "invalid_issued_to", "invalid issued_to"))
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken:  query.PageToken,
		PageSize:   int32(query.PageSize),
		CustomerID: strings.TrimSpace(query.CustomerID),
		Status:     strings.ToUpper(strings.TrimSpace(query.Status)),
		IssuedFrom: issuedFrom,
		IssuedTo:   issuedTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Invoice
// @Description  Get invoice by ID
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices/{id} [get]
func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update Invoice
// @Description  Update a draft invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                                true  "Invoice ID"
// @Param        request  body  invoicedomain.UpdateInvoiceRequest    true  "Update Invoice Request"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices/{id} [patch]
func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	resp, err := s.invoiceSvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Invoice
// @Description  Delete a draft or void invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  map[string]string
// @Router       /invoices/{id} [delete]
func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type updateInvoiceStatusRequest struct {
	Status string `json:"status"`
}

// @Summary      Update Invoice Status
// @Description  Move an invoice through its status lifecycle
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string                      true  "Invoice ID"
// @Param        request  body  updateInvoiceStatusRequest  true  "Status Request"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices/{id}/status [patch]
func (s *Server) UpdateInvoiceStatus(c *gin.Context) {
	var req updateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.UpdateStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Download Invoice PDF
// @Description  Render the invoice as a themed PDF document
// @Tags         invoices
// @Produce      application/pdf
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {file}    binary
// @Router       /invoices/{id}/pdf [get]
func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	rendered, err := s.invoiceSvc.RenderPDF(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", rendered.Filename))
	c.Data(http.StatusOK, "application/pdf", rendered.Content)
}

// @Summary      Preview Invoice HTML
// @Description  Render the invoice as a themed HTML preview
// @Tags         invoices
// @Produce      html
// @Security     ApiKeyAuth
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {string}  string
// @Router       /invoices/{id}/html [get]
func (s *Server) PreviewInvoiceHTML(c *gin.Context) {
	html, err := s.invoiceSvc.RenderHTML(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

type sendInvoiceRequest struct {
	Recipient string `json:"recipient"`
}

// @Summary      Send Invoice
// @Description  Email the rendered invoice to the customer
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id       path  string              true   "Invoice ID"
// @Param        request  body  sendInvoiceRequest  false  "Send Request"
// @Success      200  {object}  invoicedomain.Invoice
// @Router       /invoices/{id}/send [post]
func (s *Server) SendInvoice(c *gin.Context) {
	var req sendInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	resp, err := s.invoiceSvc.Send(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.Recipient))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type themeView struct {
	ID     render.Theme      `json:"id"`
	Colors map[string]string `json:"colors"`
}

// @Summary      List Themes
// @Description  List available invoice themes with resolved palettes
// @Tags         themes
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200  {object}  []themeView
// @Router       /themes [get]
func (s *Server) ListThemes(c *gin.Context) {
	themes := render.Themes()
	views := make([]themeView, 0, len(themes))
	for _, theme := range themes {
		scheme := render.ResolveScheme(theme, nil)
		views = append(views, themeView{
			ID: theme,
			Colors: map[string]string{
				"primary":    scheme.Primary.Hex(),
				"secondary":  scheme.Secondary.Hex(),
				"accent":     scheme.Accent.Hex(),
				"background": scheme.Background.Hex(),
			},
		})
	}

	c.JSON(http.StatusOK, gin.H{"data": views})
}
