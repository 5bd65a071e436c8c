package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smartinvoice/smartinvoice/internal/cache"
	"github.com/smartinvoice/smartinvoice/internal/clock"
	"github.com/smartinvoice/smartinvoice/internal/config"
	customerdomain "github.com/smartinvoice/smartinvoice/internal/customer/domain"
	customerservice "github.com/smartinvoice/smartinvoice/internal/customer/service"
	dashboardservice "github.com/smartinvoice/smartinvoice/internal/dashboard/service"
	"github.com/smartinvoice/smartinvoice/internal/events"
	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
	invoiceservice "github.com/smartinvoice/smartinvoice/internal/invoice/service"
	"github.com/smartinvoice/smartinvoice/internal/mailer"
	"github.com/smartinvoice/smartinvoice/internal/render"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

var testDBSeq atomic.Int64

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()

	if cfg == nil {
		cfg = &config.Config{
			Environment:    "test",
			Company:        config.CompanyConfig{Name: "Test Co"},
			RenderCacheTTL: time.Minute,
		}
	}

	dsn := fmt.Sprintf("file:server_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&customerdomain.Customer{},
		&invoicedomain.Invoice{},
		&events.ActivityEntry{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	log := zap.NewNop()
	clk := clock.Fixed(time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC))

	customerSvc := customerservice.NewService(customerservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
	})
	activity := events.NewActivityLog(db, node)
	invoiceSvc := invoiceservice.NewService(invoiceservice.ServiceParam{
		DB:          db,
		Log:         log,
		Cfg:         cfg,
		GenID:       node,
		Clock:       clk,
		CustomerSvc: customerSvc,
		PDF:         render.NewPDFRenderer(render.RendererParam{Log: log, Clock: clk}),
		HTML:        render.NewHTMLRenderer(log),
		RenderCache: cache.NewRenderCache(cfg),
		Activity:    activity,
		Mailer:      mailer.NewNoopMailer(log),
	})
	dashboardSvc := dashboardservice.NewService(dashboardservice.ServiceParam{
		DB:       db,
		Log:      log,
		Activity: activity,
	})

	srv := NewServer(ServerParam{
		Cfg:          cfg,
		DB:           db,
		Log:          log,
		CustomerSvc:  customerSvc,
		InvoiceSvc:   invoiceSvc,
		DashboardSvc: dashboardSvc,
	})

	engine := gin.New()
	srv.RegisterRoutes(engine)
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return envelope.Data
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error response %q: %v", rec.Body.String(), err)
	}
	return envelope.Error.Code
}

func createCustomer(t *testing.T, engine *gin.Engine) string {
	t.Helper()

	rec := doJSON(t, engine, http.MethodPost, "/api/customers", map[string]any{
		"name":  "Acme Corp",
		"email": "billing@acme.com",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create customer: status %d body %s", rec.Code, rec.Body.String())
	}
	id, _ := decodeData(t, rec)["id"].(string)
	if id == "" {
		t.Fatalf("customer id missing in %s", rec.Body.String())
	}
	return id
}

func createInvoice(t *testing.T, engine *gin.Engine, customerID string) string {
	t.Helper()

	rec := doJSON(t, engine, http.MethodPost, "/api/invoices", map[string]any{
		"customer_id": customerID,
		"items": []map[string]any{
			{"description": "Consulting", "quantity": 2, "rate": 100},
		},
		"tax_rate": 10,
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create invoice: status %d body %s", rec.Code, rec.Body.String())
	}
	id, _ := decodeData(t, rec)["id"].(string)
	if id == "" {
		t.Fatalf("invoice id missing in %s", rec.Body.String())
	}
	return id
}

func TestHealth(t *testing.T) {
	engine := newTestRouter(t, nil)

	rec := doJSON(t, engine, http.MethodGet, "/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestTokenRequired(t *testing.T) {
	engine := newTestRouter(t, &config.Config{
		Environment:    "test",
		APIToken:       "s3cret",
		Company:        config.CompanyConfig{Name: "Test Co"},
		RenderCacheTTL: time.Minute,
	})

	rec := doJSON(t, engine, http.MethodGet, "/api/themes", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/themes", nil, map[string]string{
		"Authorization": "Bearer wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/themes", nil, map[string]string{
		"Authorization": "Bearer s3cret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d body %s", rec.Code, rec.Body.String())
	}
}

func TestListThemes(t *testing.T) {
	engine := newTestRouter(t, nil)

	rec := doJSON(t, engine, http.MethodGet, "/api/themes", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, theme := range render.Themes() {
		if !strings.Contains(body, string(theme)) {
			t.Fatalf("themes response missing %q: %s", theme, body)
		}
	}
	if !strings.Contains(body, "#") {
		t.Fatal("expected hex colors in themes response")
	}
}

func TestInvoicePDFFlow(t *testing.T) {
	engine := newTestRouter(t, nil)

	customerID := createCustomer(t, engine)
	invoiceID := createInvoice(t, engine, customerID)

	rec := doJSON(t, engine, http.MethodGet, "/api/invoices/"+invoiceID+"/pdf", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("pdf status = %d body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != "attachment; filename=invoice-INV-0001.pdf" {
		t.Fatalf("content disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("response body is not a PDF")
	}
}

func TestInvoiceHTMLPreview(t *testing.T) {
	engine := newTestRouter(t, nil)

	customerID := createCustomer(t, engine)
	invoiceID := createInvoice(t, engine, customerID)

	rec := doJSON(t, engine, http.MethodGet, "/api/invoices/"+invoiceID+"/html", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("html status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Acme Corp") {
		t.Fatal("html preview missing client name")
	}
}

func TestInvoiceStatusEndpoint(t *testing.T) {
	engine := newTestRouter(t, nil)

	customerID := createCustomer(t, engine)
	invoiceID := createInvoice(t, engine, customerID)

	rec := doJSON(t, engine, http.MethodPatch, "/api/invoices/"+invoiceID+"/status", map[string]any{
		"status": "pending",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if got, _ := decodeData(t, rec)["status"].(string); got != "PENDING" {
		t.Fatalf("status = %q, want PENDING", got)
	}

	rec = doJSON(t, engine, http.MethodPatch, "/api/invoices/"+invoiceID+"/status", map[string]any{
		"status": "DRAFT",
	}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("invalid transition: status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_status_transition" {
		t.Fatalf("error code = %q", code)
	}
}

func TestInvoiceNotFound(t *testing.T) {
	engine := newTestRouter(t, nil)

	rec := doJSON(t, engine, http.MethodGet, "/api/invoices/1841552093845127168", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invoice_not_found" {
		t.Fatalf("error code = %q", code)
	}
}

func TestCreateInvoiceRejectsBadBody(t *testing.T) {
	engine := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "invalid_request" {
		t.Fatalf("error code = %q", code)
	}
}

func TestDashboardEndpoints(t *testing.T) {
	engine := newTestRouter(t, nil)

	customerID := createCustomer(t, engine)
	createInvoice(t, engine, customerID)

	for _, path := range []string{
		"/api/dashboard/summary",
		"/api/dashboard/statuses",
		"/api/dashboard/customers",
		"/api/dashboard/activity",
	} {
		rec := doJSON(t, engine, http.MethodGet, path, nil, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status = %d body %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestTestCleanup(t *testing.T) {
	engine := newTestRouter(t, nil)

	customerID := createCustomer(t, engine)
	invoiceID := createInvoice(t, engine, customerID)

	rec := doJSON(t, engine, http.MethodPost, "/api/test/cleanup", map[string]any{
		"prefix": "INV-",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cleanup status = %d body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/invoices/"+invoiceID, nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("invoice should be gone, status = %d", rec.Code)
	}
}

func TestCleanupHiddenInProduction(t *testing.T) {
	engine := newTestRouter(t, &config.Config{
		Environment:    "production",
		Company:        config.CompanyConfig{Name: "Test Co"},
		RenderCacheTTL: time.Minute,
	})

	rec := doJSON(t, engine, http.MethodPost, "/api/test/cleanup", map[string]any{"prefix": "INV-"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("cleanup must not exist in production, status = %d", rec.Code)
	}
}
