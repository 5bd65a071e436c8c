package render

import (
	"bytes"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/smartinvoice/smartinvoice/internal/clock"
)

func testRenderer(t *testing.T) *PDFRenderer {
	t.Helper()
	return &PDFRenderer{
		log:   zap.NewNop(),
		clock: clock.Fixed(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		geo:   DefaultGeometry(),
		brand: defaultBrand,
	}
}

func sampleDocument() InvoiceDocument {
	return InvoiceDocument{
		InvoiceNumber: "INV-0042",
		IssueDate:     "2025-05-20",
		DueDate:       "2025-06-20",
		Client: ClientInfo{
			Name:     "Acme Pty Ltd",
			Email:    "billing@acme.test",
			Company:  "Acme Holdings",
			Address:  "1 Industrial Way, Springfield",
			Currency: "$",
		},
		Company: CompanyInfo{
			Name:    "Studio Nine",
			Address: "9 Harbour St",
			Email:   "hello@studionine.test",
			Phone:   "+61 2 5550 0199",
			Website: "studionine.test",
		},
		Items: []ItemRow{
			{Description: "Consulting Services", Quantity: 10, Rate: 150, Amount: 1500},
		},
		Subtotal:  1500,
		TaxRate:   10,
		TaxAmount: 150,
		Total:     1650,
		Status:    StatusDue,
		Theme:     ThemeProfessional,
		Notes:     "Thank you for your business.",
		Terms:     "Payment due within 30 days.",
	}
}

func TestRenderProducesPDF(t *testing.T) {
	out, err := testRenderer(t).Render(sampleDocument())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) < 4 || string(out[:4]) != "%PDF" {
		t.Fatalf("expected PDF magic, got %q", out[:min(len(out), 8)])
	}
}

func TestRenderIdempotentForFixedClock(t *testing.T) {
	r := testRenderer(t)
	doc := sampleDocument()
	first, err := r.Render(doc)
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := r.Render(doc)
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected identical output for identical document and clock")
	}
}

func TestRenderItemsStringAndSliceEquivalent(t *testing.T) {
	r := testRenderer(t)

	asSlice := sampleDocument()
	asSlice.Items = []ItemRow{}
	asString := sampleDocument()
	asString.Items = "[]"

	fromSlice, err := r.Render(asSlice)
	if err != nil {
		t.Fatalf("render slice: %v", err)
	}
	fromString, err := r.Render(asString)
	if err != nil {
		t.Fatalf("render string: %v", err)
	}
	if !bytes.Equal(fromSlice, fromString) {
		t.Fatal("expected identical output for native empty slice and JSON \"[]\"")
	}
}

func TestRenderMalformedItemsDegrades(t *testing.T) {
	doc := sampleDocument()
	doc.Items = "{definitely not json"
	out, err := testRenderer(t).Render(doc)
	if err != nil {
		t.Fatalf("expected render to survive malformed items, got %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected output bytes")
	}
}

func TestRenderEmptyItemsStillPlacesSummary(t *testing.T) {
	doc := sampleDocument()
	doc.Items = []ItemRow{}
	doc.Subtotal = 0
	doc.TaxAmount = 0
	doc.Total = 0
	out, err := testRenderer(t).Render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected output bytes")
	}
}

func TestRenderOmitsOptionalSections(t *testing.T) {
	doc := InvoiceDocument{
		InvoiceNumber: "INV-0001",
		Client:        ClientInfo{Name: "Bare Client", Currency: "$"},
		Items:         nil,
	}
	withBadge := doc
	withBadge.Status = "unknown_value"

	bare, err := testRenderer(t).Render(doc)
	if err != nil {
		t.Fatalf("render bare: %v", err)
	}
	badged, err := testRenderer(t).Render(withBadge)
	if err != nil {
		t.Fatalf("render badged: %v", err)
	}
	if bytes.Equal(bare, badged) {
		t.Fatal("expected the literal unknown status badge to change the output")
	}
}

func TestRenderStatusOmittedMatchesItself(t *testing.T) {
	doc := sampleDocument()
	doc.Status = ""
	first, err := testRenderer(t).Render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := testRenderer(t).Render(doc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("expected deterministic output without a status badge")
	}
}

func TestRenderCustomColorsOverrideTheme(t *testing.T) {
	r := testRenderer(t)
	themed := sampleDocument()
	overridden := sampleDocument()
	overridden.CustomColors = &ColorOverride{
		Primary:    "#ff0000",
		Secondary:  "#222222",
		Accent:     "#333333",
		Background: "#ffffff",
	}
	a, err := r.Render(themed)
	if err != nil {
		t.Fatalf("render themed: %v", err)
	}
	b, err := r.Render(overridden)
	if err != nil {
		t.Fatalf("render overridden: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatal("expected custom colors to change the output")
	}
}

func TestMonogram(t *testing.T) {
	cases := map[string]string{
		"":            "SI",
		"  ":          "SI",
		"acme":        "AC",
		"Studio Nine": "ST",
		"x":           "X",
	}
	for input, want := range cases {
		if got := monogram(input); got != want {
			t.Fatalf("monogram(%q) = %q, want %q", input, got, want)
		}
	}
}
