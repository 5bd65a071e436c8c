package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smartinvoice/smartinvoice/internal/cache"
	"github.com/smartinvoice/smartinvoice/internal/clock"
	"github.com/smartinvoice/smartinvoice/internal/config"
	customerdomain "github.com/smartinvoice/smartinvoice/internal/customer/domain"
	"github.com/smartinvoice/smartinvoice/internal/events"
	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
	"github.com/smartinvoice/smartinvoice/internal/mailer"
	"github.com/smartinvoice/smartinvoice/internal/observability/metrics"
	"github.com/smartinvoice/smartinvoice/internal/render"
	"github.com/smartinvoice/smartinvoice/pkg/db/option"
	"github.com/smartinvoice/smartinvoice/pkg/db/pagination"
	"github.com/smartinvoice/smartinvoice/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Cfg         *config.Config
	GenID       *snowflake.Node
	Clock       clock.Clock
	CustomerSvc customerdomain.Service
	PDF         render.Renderer
	HTML        *render.HTMLRenderer
	RenderCache *cache.RenderCache
	Activity    *events.ActivityLog
	Mailer      mailer.Mailer
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	cfg *config.Config

	genID       *snowflake.Node
	clock       clock.Clock
	customerSvc customerdomain.Service
	pdf         render.Renderer
	html        *render.HTMLRenderer
	renderCache *cache.RenderCache
	activity    *events.ActivityLog
	mailer      mailer.Mailer
	repo        repository.Repository[invoicedomain.Invoice]
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),
		cfg: p.Cfg,

		genID:       p.GenID,
		clock:       p.Clock,
		customerSvc: p.CustomerSvc,
		pdf:         p.PDF,
		html:        p.HTML,
		renderCache: p.RenderCache,
		activity:    p.Activity,
		mailer:      p.Mailer,
		repo:        repository.ProvideStore[invoicedomain.Invoice](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	customer, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{ID: req.CustomerID})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	rows, totals, err := computeTotals(req.Items, req.DiscountRate, req.TaxRate)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now().UTC()

	issueDate := now.Truncate(24 * time.Hour)
	if strings.TrimSpace(req.IssueDate) != "" {
		issueDate, err = parseDate(req.IssueDate)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
	}

	var dueDate *time.Time
	if strings.TrimSpace(req.DueDate) != "" {
		parsed, err := parseDate(req.DueDate)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		dueDate = &parsed
	}

	number := strings.TrimSpace(req.Number)
	if number == "" {
		number, err = s.nextNumber(ctx)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
	}
	if taken, err := s.numberTaken(ctx, number, 0); err != nil {
		return invoicedomain.Invoice{}, err
	} else if taken {
		return invoicedomain.Invoice{}, invoicedomain.ErrNumberTaken
	}

	itemsJSON, err := marshalItems(rows)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	colorsJSON, err := marshalColors(req.CustomColors)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	record := invoicedomain.Invoice{
		ID:             s.genID.Generate(),
		Number:         number,
		CustomerID:     customer.ID,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Status:         invoicedomain.StatusDraft,
		Items:          itemsJSON,
		Subtotal:       totals.subtotal,
		DiscountRate:   req.DiscountRate,
		DiscountAmount: totals.discount,
		TaxRate:        req.TaxRate,
		TaxAmount:      totals.tax,
		Total:          totals.total,
		Theme:          strings.TrimSpace(req.Theme),
		CustomColors:   colorsJSON,
		Notes:          strings.TrimSpace(req.Notes),
		Terms:          strings.TrimSpace(req.Terms),
		PaymentLink:    strings.TrimSpace(req.PaymentLink),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.publish(ctx, events.EventInvoiceCreated, events.InvoicePayload{
		InvoiceID:     record.ID.String(),
		InvoiceNumber: record.Number,
		CustomerID:    record.CustomerID.String(),
		Status:        record.Status,
	})

	return record, nil
}

func (s *Service) Update(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (invoicedomain.Invoice, error) {
	record, err := s.load(ctx, req.ID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if record.Status != invoicedomain.StatusDraft {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotEditable
	}

	if req.IssueDate != nil {
		issueDate, err := parseDate(*req.IssueDate)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		record.IssueDate = issueDate
	}
	if req.DueDate != nil {
		if strings.TrimSpace(*req.DueDate) == "" {
			record.DueDate = nil
		} else {
			dueDate, err := parseDate(*req.DueDate)
			if err != nil {
				return invoicedomain.Invoice{}, err
			}
			record.DueDate = &dueDate
		}
	}
	if req.DiscountRate != nil {
		record.DiscountRate = *req.DiscountRate
	}
	if req.TaxRate != nil {
		record.TaxRate = *req.TaxRate
	}
	if req.Theme != nil {
		record.Theme = strings.TrimSpace(*req.Theme)
	}
	if req.CustomColors != nil {
		colorsJSON, err := marshalColors(req.CustomColors)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		record.CustomColors = colorsJSON
	}
	if req.Notes != nil {
		record.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Terms != nil {
		record.Terms = strings.TrimSpace(*req.Terms)
	}
	if req.PaymentLink != nil {
		record.PaymentLink = strings.TrimSpace(*req.PaymentLink)
	}

	items := req.Items
	if items == nil {
		items, err = unmarshalItemsInput(record.Items)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
	}
	rows, totals, err := computeTotals(items, record.DiscountRate, record.TaxRate)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	itemsJSON, err := marshalItems(rows)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	staleKey := renderCacheKey(*record)
	record.Items = itemsJSON
	record.Subtotal = totals.subtotal
	record.DiscountAmount = totals.discount
	record.TaxAmount = totals.tax
	record.Total = totals.total
	record.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, record); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.renderCache.Invalidate(staleKey)
	s.publish(ctx, events.EventInvoiceUpdated, events.InvoicePayload{
		InvoiceID:     record.ID.String(),
		InvoiceNumber: record.Number,
		Status:        record.Status,
	})

	return *record, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := &invoicedomain.Invoice{}
	if strings.TrimSpace(req.CustomerID) != "" {
		customerID, err := parseID(req.CustomerID, customerdomain.ErrInvalidID)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		filter.CustomerID = customerID
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		if !invoicedomain.KnownStatus(status) {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidStatus
		}
		filter.Status = status
	}

	opts := []option.Option{
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
	}
	if req.IssuedFrom != nil {
		from := *req.IssuedFrom
		opts = append(opts, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("issue_date >= ?", from)
		})
	}
	if req.IssuedTo != nil {
		to := *req.IssuedTo
		opts = append(opts, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("issue_date <= ?", to)
		})
	}

	items, err := s.repo.Find(ctx, filter, opts...)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	return buildListResponse(items, pageSize), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return *record, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != invoicedomain.StatusDraft && record.Status != invoicedomain.StatusVoid {
		return invoicedomain.ErrInvoiceNotEditable
	}

	if err := s.repo.Delete(ctx, &invoicedomain.Invoice{ID: record.ID}); err != nil {
		return err
	}

	s.renderCache.Invalidate(renderCacheKey(*record))
	s.publish(ctx, events.EventInvoiceDeleted, events.InvoicePayload{
		InvoiceID:     record.ID.String(),
		InvoiceNumber: record.Number,
	})
	return nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string) (invoicedomain.Invoice, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !invoicedomain.KnownStatus(status) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidStatus
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	from := record.Status
	if from == status {
		return *record, nil
	}
	if !invoicedomain.ValidTransition(from, status) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTransition
	}

	staleKey := renderCacheKey(*record)
	record.Status = status
	record.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, record); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.renderCache.Invalidate(staleKey)
	s.publish(ctx, events.EventInvoiceStatusChanged, events.InvoicePayload{
		InvoiceID:     record.ID.String(),
		InvoiceNumber: record.Number,
		Status:        status,
		FromStatus:    from,
	})

	return *record, nil
}

// BuildDocument resolves the stored invoice into the immutable render input.
func (s *Service) BuildDocument(ctx context.Context, id string) (render.InvoiceDocument, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return render.InvoiceDocument{}, err
	}

	customer, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{ID: record.CustomerID.String()})
	if err != nil {
		return render.InvoiceDocument{}, err
	}

	var overrides *render.ColorOverride
	if len(record.CustomColors) > 0 {
		overrides = &render.ColorOverride{}
		if err := json.Unmarshal(record.CustomColors, overrides); err != nil {
			s.log.Warn("invalid stored custom colors, ignoring",
				zap.String("invoice_id", record.ID.String()), zap.Error(err))
			overrides = nil
		}
	}

	dueDate := ""
	if record.DueDate != nil {
		dueDate = record.DueDate.UTC().Format("2006-01-02")
	}

	status := record.Status
	if status == invoicedomain.StatusDraft {
		status = ""
	}

	doc := render.InvoiceDocument{
		InvoiceNumber: record.Number,
		IssueDate:     record.IssueDate.UTC().Format("2006-01-02"),
		DueDate:       dueDate,
		Client: render.ClientInfo{
			Name:      customer.Name,
			Email:     customer.Email,
			Company:   customer.Company,
			Address:   customer.Address,
			GSTNumber: customer.GSTNumber,
			Currency:  customer.Currency,
		},
		Company: render.CompanyInfo{
			Name:    s.cfg.Company.Name,
			Address: s.cfg.Company.Address,
			GST:     s.cfg.Company.GST,
			Email:   s.cfg.Company.Email,
			Phone:   s.cfg.Company.Phone,
			Website: s.cfg.Company.Website,
		},
		Items:          json.RawMessage(record.Items),
		Subtotal:       record.Subtotal,
		TaxRate:        record.TaxRate,
		TaxAmount:      record.TaxAmount,
		DiscountRate:   record.DiscountRate,
		DiscountAmount: record.DiscountAmount,
		Total:          record.Total,
		Status:         status,
		Theme:          render.Theme(record.Theme),
		CustomColors:   overrides,
		Notes:          record.Notes,
		Terms:          record.Terms,
		PaymentLink:    record.PaymentLink,
	}
	return doc, nil
}

// RenderPDF renders the invoice, consulting the render cache first.
func (s *Service) RenderPDF(ctx context.Context, id string) (invoicedomain.RenderedPDF, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.RenderedPDF{}, err
	}

	filename := fmt.Sprintf("invoice-%s.pdf", record.Number)
	key := renderCacheKey(*record)

	if content, ok := s.renderCache.Get(key); ok {
		metrics.Render().ObserveCacheLookup(true)
		return invoicedomain.RenderedPDF{Filename: filename, Content: content}, nil
	}
	metrics.Render().ObserveCacheLookup(false)

	doc, err := s.BuildDocument(ctx, id)
	if err != nil {
		return invoicedomain.RenderedPDF{}, err
	}

	start := time.Now()
	content, err := s.pdf.Render(doc)
	metrics.Render().ObserveRender(time.Since(start), len(content), err)
	if err != nil {
		s.log.Error("pdf render failed",
			zap.String("invoice_id", record.ID.String()),
			zap.String("invoice_number", record.Number),
			zap.Error(err))
		return invoicedomain.RenderedPDF{}, err
	}

	s.renderCache.Set(key, content)
	return invoicedomain.RenderedPDF{Filename: filename, Content: content}, nil
}

// RenderHTML renders the themed HTML preview of the invoice.
func (s *Service) RenderHTML(ctx context.Context, id string) (string, error) {
	doc, err := s.BuildDocument(ctx, id)
	if err != nil {
		return "", err
	}
	return s.html.RenderHTML(doc)
}

// Send emails the rendered invoice. A draft moves to PENDING on first send.
func (s *Service) Send(ctx context.Context, id string, recipient string) (invoicedomain.Invoice, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		customer, err := s.customerSvc.GetByID(ctx, customerdomain.GetCustomerRequest{ID: record.CustomerID.String()})
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
		recipient = customer.Email
	}
	if recipient == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrMissingRecipient
	}

	rendered, err := s.RenderPDF(ctx, id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	companyName := s.cfg.Company.Name
	if companyName == "" {
		companyName = "SmartInvoice"
	}
	err = s.mailer.Send(ctx, mailer.Message{
		To:             recipient,
		Subject:        fmt.Sprintf("Invoice %s from %s", record.Number, companyName),
		Body:           fmt.Sprintf("Hello,\r\n\r\nPlease find invoice %s attached.\r\n\r\n%s", record.Number, companyName),
		AttachmentName: rendered.Filename,
		Attachment:     rendered.Content,
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	record.SentAt = &now
	if record.Status == invoicedomain.StatusDraft {
		record.Status = invoicedomain.StatusPending
	}
	record.UpdatedAt = now
	if err := s.repo.Update(ctx, record); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.publish(ctx, events.EventInvoiceSent, events.InvoicePayload{
		InvoiceID:     record.ID.String(),
		InvoiceNumber: record.Number,
		Status:        record.Status,
		Recipient:     recipient,
	})

	return *record, nil
}

func (s *Service) load(ctx context.Context, rawID string) (*invoicedomain.Invoice, error) {
	id, err := parseID(rawID, invoicedomain.ErrInvalidInvoiceID)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.FindOne(ctx, &invoicedomain.Invoice{ID: id})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *Service) nextNumber(ctx context.Context) (string, error) {
	count, err := s.repo.Count(ctx, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%04d", count+1), nil
}

func (s *Service) numberTaken(ctx context.Context, number string, selfID snowflake.ID) (bool, error) {
	existing, err := s.repo.FindOne(ctx, &invoicedomain.Invoice{Number: number})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return existing.ID != selfID, nil
}

func (s *Service) publish(ctx context.Context, eventType string, payload events.InvoicePayload) {
	if s.activity == nil {
		return
	}
	err := s.activity.Publish(ctx, events.Event{
		Type:    eventType,
		Payload: payload.ToMap(),
	})
	if err != nil {
		s.log.Warn("activity log publish failed",
			zap.String("event_type", eventType), zap.Error(err))
	}
}

func renderCacheKey(record invoicedomain.Invoice) string {
	return fmt.Sprintf("%s:%d", record.ID.String(), record.UpdatedAt.UnixNano())
}

func parseID(value string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}

func parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invoicedomain.ErrInvalidDate
}

type totals struct {
	subtotal float64
	discount float64
	tax      float64
	total    float64
}

// computeTotals derives line amounts and the invoice summary. Amounts are
// fixed here at write time; the renderer only formats them.
func computeTotals(items []invoicedomain.LineItemInput, discountRate, taxRate float64) ([]render.ItemRow, totals, error) {
	if len(items) == 0 {
		return nil, totals{}, invoicedomain.ErrInvalidItems
	}
	if !validRate(discountRate) || !validRate(taxRate) {
		return nil, totals{}, invoicedomain.ErrInvalidRate
	}

	rows := make([]render.ItemRow, 0, len(items))
	var subtotal float64
	for _, item := range items {
		description := strings.TrimSpace(item.Description)
		if description == "" {
			return nil, totals{}, invoicedomain.ErrInvalidItems
		}
		if item.Quantity < 0 || math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) {
			return nil, totals{}, invoicedomain.ErrInvalidItems
		}
		if math.IsNaN(item.Rate) || math.IsInf(item.Rate, 0) {
			return nil, totals{}, invoicedomain.ErrInvalidItems
		}

		amount := item.Quantity * item.Rate
		rows = append(rows, render.ItemRow{
			Description: description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			Amount:      amount,
		})
		subtotal += amount
	}

	discount := subtotal * discountRate / 100
	tax := (subtotal - discount) * taxRate / 100

	return rows, totals{
		subtotal: subtotal,
		discount: discount,
		tax:      tax,
		total:    subtotal - discount + tax,
	}, nil
}

func validRate(rate float64) bool {
	return rate >= 0 && rate <= 100 && !math.IsNaN(rate) && !math.IsInf(rate, 0)
}

func marshalItems(rows []render.ItemRow) (datatypes.JSON, error) {
	raw, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func marshalColors(overrides *render.ColorOverride) (datatypes.JSON, error) {
	if overrides == nil {
		return nil, nil
	}
	raw, err := json.Marshal(overrides)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func unmarshalItemsInput(raw datatypes.JSON) ([]invoicedomain.LineItemInput, error) {
	if len(raw) == 0 {
		return nil, invoicedomain.ErrInvalidItems
	}
	var items []invoicedomain.LineItemInput
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invoicedomain.ErrInvalidItems
	}
	return items, nil
}

func buildListResponse(items []*invoicedomain.Invoice, pageSize int32) invoicedomain.ListInvoiceResponse {
	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(record *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	records := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := invoicedomain.ListInvoiceResponse{Invoices: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp
}
