package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smartinvoice/smartinvoice/internal/cache"
	"github.com/smartinvoice/smartinvoice/internal/config"
	customerdomain "github.com/smartinvoice/smartinvoice/internal/customer/domain"
	customerservice "github.com/smartinvoice/smartinvoice/internal/customer/service"
	"github.com/smartinvoice/smartinvoice/internal/events"
	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
	"github.com/smartinvoice/smartinvoice/internal/mailer"
	"github.com/smartinvoice/smartinvoice/internal/render"
)

var testDBSeq atomic.Int64

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func (c *stepClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type captureMailer struct {
	sent []mailer.Message
	err  error
}

func (m *captureMailer) Send(ctx context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	svc      invoicedomain.Service
	clock    *stepClock
	mail     *captureMailer
	customer customerdomain.Customer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:invoice_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(&customerdomain.Customer{}, &invoicedomain.Invoice{}, &events.ActivityEntry{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	cfg := &config.Config{
		Company:        config.CompanyConfig{Name: "Test Co", Email: "billing@test.co"},
		RenderCacheTTL: time.Minute,
	}
	clk := &stepClock{now: time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)}
	log := zap.NewNop()

	customerSvc := customerservice.NewService(customerservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
	})
	customer, err := customerSvc.Create(context.Background(), customerdomain.CreateCustomerRequest{
		Name:     "Acme Corp",
		Email:    "billing@acme.com",
		Currency: "$",
	})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	mail := &captureMailer{}
	svc := NewService(ServiceParam{
		DB:          db,
		Log:         log,
		Cfg:         cfg,
		GenID:       node,
		Clock:       clk,
		CustomerSvc: customerSvc,
		PDF:         render.NewPDFRenderer(render.RendererParam{Log: log, Clock: clk}),
		HTML:        render.NewHTMLRenderer(log),
		RenderCache: cache.NewRenderCache(cfg),
		Activity:    events.NewActivityLog(db, node),
		Mailer:      mail,
	})

	return &testEnv{svc: svc, clock: clk, mail: mail, customer: customer}
}

func (e *testEnv) createInvoice(t *testing.T, req invoicedomain.CreateInvoiceRequest) invoicedomain.Invoice {
	t.Helper()
	if req.CustomerID == "" {
		req.CustomerID = e.customer.ID.String()
	}
	if req.Items == nil {
		req.Items = []invoicedomain.LineItemInput{
			{Description: "Consulting", Quantity: 2, Rate: 100},
			{Description: "Hosting", Quantity: 1, Rate: 50},
		}
	}
	created, err := e.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return created
}

func TestCreateInvoiceComputesTotals(t *testing.T) {
	env := newTestEnv(t)

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{
		DiscountRate: 10,
		TaxRate:      10,
		DueDate:      "2026-04-15",
	})

	if created.Number != "INV-0001" {
		t.Fatalf("expected auto number INV-0001, got %q", created.Number)
	}
	if created.Status != invoicedomain.StatusDraft {
		t.Fatalf("new invoice should be a draft, got %q", created.Status)
	}
	if created.Subtotal != 250 {
		t.Fatalf("subtotal = %v, want 250", created.Subtotal)
	}
	if created.DiscountAmount != 25 {
		t.Fatalf("discount = %v, want 25", created.DiscountAmount)
	}
	if created.TaxAmount != 22.5 {
		t.Fatalf("tax = %v, want 22.5 (applied after discount)", created.TaxAmount)
	}
	if created.Total != 247.5 {
		t.Fatalf("total = %v, want 247.5", created.Total)
	}
	if created.DueDate == nil || !created.DueDate.Equal(time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date %v", created.DueDate)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: env.customer.ID.String(),
	})
	if !errors.Is(err, invoicedomain.ErrInvalidItems) {
		t.Fatalf("empty items: expected ErrInvalidItems, got %v", err)
	}

	_, err = env.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: env.customer.ID.String(),
		Items:      []invoicedomain.LineItemInput{{Description: "X", Quantity: 1, Rate: 10}},
		TaxRate:    150,
	})
	if !errors.Is(err, invoicedomain.ErrInvalidRate) {
		t.Fatalf("rate > 100: expected ErrInvalidRate, got %v", err)
	}

	_, err = env.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: env.customer.ID.String(),
		Items:      []invoicedomain.LineItemInput{{Description: "X", Quantity: math.NaN(), Rate: 10}},
	})
	if !errors.Is(err, invoicedomain.ErrInvalidItems) {
		t.Fatalf("NaN quantity: expected ErrInvalidItems, got %v", err)
	}

	_, err = env.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: env.customer.ID.String(),
		Items:      []invoicedomain.LineItemInput{{Description: "X", Quantity: 1, Rate: 10}},
		IssueDate:  "15/03/2026",
	})
	if !errors.Is(err, invoicedomain.ErrInvalidDate) {
		t.Fatalf("bad date: expected ErrInvalidDate, got %v", err)
	}

	_, err = env.svc.Create(ctx, invoicedomain.CreateInvoiceRequest{
		CustomerID: "1841552093845127168",
		Items:      []invoicedomain.LineItemInput{{Description: "X", Quantity: 1, Rate: 10}},
	})
	if !errors.Is(err, customerdomain.ErrCustomerNotFound) {
		t.Fatalf("unknown customer: expected ErrCustomerNotFound, got %v", err)
	}
}

func TestCreateInvoiceRejectsDuplicateNumber(t *testing.T) {
	env := newTestEnv(t)

	env.createInvoice(t, invoicedomain.CreateInvoiceRequest{Number: "INV-9000"})
	_, err := env.svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{
		CustomerID: env.customer.ID.String(),
		Number:     "INV-9000",
		Items:      []invoicedomain.LineItemInput{{Description: "X", Quantity: 1, Rate: 10}},
	})
	if !errors.Is(err, invoicedomain.ErrNumberTaken) {
		t.Fatalf("expected ErrNumberTaken, got %v", err)
	}
}

func TestUpdateInvoiceRecomputesTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{})

	env.clock.Advance(time.Minute)
	discount := 20.0
	updated, err := env.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{
		ID:           created.ID.String(),
		DiscountRate: &discount,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Subtotal != 250 || updated.DiscountAmount != 50 || updated.Total != 200 {
		t.Fatalf("totals not recomputed: %+v", updated)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatal("UpdatedAt should move forward")
	}
}

func TestUpdateInvoiceDraftOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{})
	if _, err := env.svc.UpdateStatus(ctx, created.ID.String(), invoicedomain.StatusPending); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	notes := "late edit"
	_, err := env.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{
		ID:    created.ID.String(),
		Notes: &notes,
	})
	if !errors.Is(err, invoicedomain.ErrInvoiceNotEditable) {
		t.Fatalf("expected ErrInvoiceNotEditable, got %v", err)
	}
}

func TestUpdateStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{})
	id := created.ID.String()

	updated, err := env.svc.UpdateStatus(ctx, id, "pending")
	if err != nil {
		t.Fatalf("DRAFT -> PENDING: %v", err)
	}
	if updated.Status != invoicedomain.StatusPending {
		t.Fatalf("status = %q, want PENDING", updated.Status)
	}

	// Same status is a no-op, not a transition error.
	if _, err := env.svc.UpdateStatus(ctx, id, invoicedomain.StatusPending); err != nil {
		t.Fatalf("PENDING -> PENDING: %v", err)
	}

	if _, err := env.svc.UpdateStatus(ctx, id, invoicedomain.StatusDraft); !errors.Is(err, invoicedomain.ErrInvalidTransition) {
		t.Fatalf("PENDING -> DRAFT: expected ErrInvalidTransition, got %v", err)
	}
	if _, err := env.svc.UpdateStatus(ctx, id, "SHIPPED"); !errors.Is(err, invoicedomain.ErrInvalidStatus) {
		t.Fatalf("unknown status: expected ErrInvalidStatus, got %v", err)
	}

	if _, err := env.svc.UpdateStatus(ctx, id, invoicedomain.StatusPaid); err != nil {
		t.Fatalf("PENDING -> PAID: %v", err)
	}
	if _, err := env.svc.UpdateStatus(ctx, id, invoicedomain.StatusVoid); !errors.Is(err, invoicedomain.ErrInvalidTransition) {
		t.Fatalf("PAID is terminal: expected ErrInvalidTransition, got %v", err)
	}
}

func TestDeleteInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{})
	if err := env.svc.Delete(ctx, draft.ID.String()); err != nil {
		t.Fatalf("delete draft: %v", err)
	}
	if _, err := env.svc.GetByID(ctx, draft.ID.String()); !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound after delete, got %v", err)
	}

	sent := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{})
	if _, err := env.svc.UpdateStatus(ctx, sent.ID.String(), invoicedomain.StatusPending); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := env.svc.Delete(ctx, sent.ID.String()); !errors.Is(err, invoicedomain.ErrInvoiceNotEditable) {
		t.Fatalf("expected ErrInvoiceNotEditable for pending invoice, got %v", err)
	}

	if _, err := env.svc.UpdateStatus(ctx, sent.ID.String(), invoicedomain.StatusVoid); err != nil {
		t.Fatalf("UpdateStatus VOID: %v", err)
	}
	if err := env.svc.Delete(ctx, sent.ID.String()); err != nil {
		t.Fatalf("delete void: %v", err)
	}
}

func TestBuildDocument(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{
		DueDate: "2026-04-01",
		Notes:   "Thanks for your business",
	})

	doc, err := env.svc.BuildDocument(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if doc.Status != "" {
		t.Fatalf("draft status should not surface on the document, got %q", doc.Status)
	}
	if doc.DueDate != "2026-04-01" {
		t.Fatalf("due date = %q", doc.DueDate)
	}
	if doc.Client.Name != "Acme Corp" || doc.Client.Currency != "$" {
		t.Fatalf("client not resolved: %+v", doc.Client)
	}
	if doc.Company.Name != "Test Co" {
		t.Fatalf("company not resolved: %+v", doc.Company)
	}

	if _, err := env.svc.UpdateStatus(ctx, created.ID.String(), invoicedomain.StatusPending); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	doc, err = env.svc.BuildDocument(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if doc.Status != invoicedomain.StatusPending {
		t.Fatalf("status = %q, want PENDING", doc.Status)
	}
}

func TestRenderPDFDeterministicAndCached(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{})

	first, err := env.svc.RenderPDF(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(first.Content, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
	if first.Filename != "invoice-INV-0001.pdf" {
		t.Fatalf("filename = %q", first.Filename)
	}

	second, err := env.svc.RenderPDF(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("RenderPDF again: %v", err)
	}
	if !bytes.Equal(first.Content, second.Content) {
		t.Fatal("repeated renders of an unchanged invoice must be byte-identical")
	}
}

func TestRenderPDFRefreshesAfterUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{})
	before, err := env.svc.RenderPDF(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}

	env.clock.Advance(time.Minute)
	items := []invoicedomain.LineItemInput{{Description: "Retainer", Quantity: 1, Rate: 999}}
	if _, err := env.svc.Update(ctx, invoicedomain.UpdateInvoiceRequest{ID: created.ID.String(), Items: items}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	after, err := env.svc.RenderPDF(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("RenderPDF after update: %v", err)
	}
	if bytes.Equal(before.Content, after.Content) {
		t.Fatal("edited invoice must not be served from the stale cache entry")
	}
}

func TestRenderHTML(t *testing.T) {
	env := newTestEnv(t)

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{Theme: "modern"})
	html, err := env.svc.RenderHTML(context.Background(), created.ID.String())
	if err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	for _, want := range []string{"INV-0001", "Acme Corp", "Consulting"} {
		if !bytes.Contains([]byte(html), []byte(want)) {
			t.Fatalf("html missing %q", want)
		}
	}
}

func TestSendInvoice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{})

	env.clock.Advance(time.Minute)
	sent, err := env.svc.Send(ctx, created.ID.String(), "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != invoicedomain.StatusPending {
		t.Fatalf("sending a draft should move it to PENDING, got %q", sent.Status)
	}
	if sent.SentAt == nil {
		t.Fatal("SentAt not recorded")
	}

	if len(env.mail.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(env.mail.sent))
	}
	msg := env.mail.sent[0]
	if msg.To != "billing@acme.com" {
		t.Fatalf("recipient should default to the customer email, got %q", msg.To)
	}
	if msg.Subject != "Invoice INV-0001 from Test Co" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if msg.AttachmentName != "invoice-INV-0001.pdf" || !bytes.HasPrefix(msg.Attachment, []byte("%PDF")) {
		t.Fatalf("attachment missing or malformed: %q", msg.AttachmentName)
	}
}

func TestSendInvoiceMailerFailureKeepsState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{})
	env.mail.err = errors.New("smtp unreachable")

	if _, err := env.svc.Send(ctx, created.ID.String(), ""); err == nil {
		t.Fatal("expected send failure")
	}

	record, err := env.svc.GetByID(ctx, created.ID.String())
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if record.Status != invoicedomain.StatusDraft || record.SentAt != nil {
		t.Fatalf("failed send must not mutate the invoice: %+v", record)
	}
}

func TestListInvoicesFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.createInvoice(t, invoicedomain.CreateInvoiceRequest{IssueDate: "2026-03-01"})
	env.createInvoice(t, invoicedomain.CreateInvoiceRequest{IssueDate: "2026-03-20"})
	if _, err := env.svc.UpdateStatus(ctx, first.ID.String(), invoicedomain.StatusPending); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	resp, err := env.svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: invoicedomain.StatusPending})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(resp.Invoices) != 1 || resp.Invoices[0].ID != first.ID {
		t.Fatalf("status filter returned %d invoices", len(resp.Invoices))
	}

	from := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	resp, err = env.svc.List(ctx, invoicedomain.ListInvoiceRequest{IssuedFrom: &from})
	if err != nil {
		t.Fatalf("List issued_from: %v", err)
	}
	if len(resp.Invoices) != 1 {
		t.Fatalf("issued_from filter returned %d invoices", len(resp.Invoices))
	}

	_, err = env.svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: "BOGUS"})
	if !errors.Is(err, invoicedomain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
