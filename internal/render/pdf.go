package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smartinvoice/smartinvoice/internal/clock"
)

// ErrRenderFailed wraps any drawing-backend failure. A failed render never
// returns partial output.
var ErrRenderFailed = errors.New("invoice_render_failed")

// Renderer produces a single-page PDF for a fully-resolved invoice
// document. Implementations must be safe for concurrent use: every call
// owns its drawing surface and resolved palette.
type Renderer interface {
	Render(doc InvoiceDocument) ([]byte, error)
}

// Geometry fixes the page box for a render pass. All values are mm.
// Section offsets are derived values threaded stage to stage, never
// stored as mutable state.
type Geometry struct {
	PageWidth  float64
	PageHeight float64
	Margin     float64
}

// DefaultGeometry is an A4 portrait page.
func DefaultGeometry() Geometry {
	return Geometry{PageWidth: 210, PageHeight: 297, Margin: 15}
}

// ContentWidth is the drawable width between the side margins.
func (g Geometry) ContentWidth() float64 { return g.PageWidth - 2*g.Margin }

// rightColumnX is the left edge of the right-hand card column.
func (g Geometry) rightColumnX() float64 { return g.PageWidth - g.Margin - cardWidth }

// Brand is the product identity printed in the header fallback and footer.
type Brand struct {
	Name    string
	Tagline string
}

var defaultBrand = Brand{
	Name:    "SmartInvoice",
	Tagline: "Professional invoicing made simple",
}

// Section layout constants, in mm from the page top.
const (
	headerHeight     = 80.0
	identityTop      = 16.0
	monogramSize     = 14.0
	companyNameWidth = 60.0
	badgeTop         = 14.0
	badgeHeight      = 8.0
	badgePadX        = 4.0

	infoCardGap = 20.0
	cardWidth   = 85.0
	cardHeight  = 50.0
	cardPad     = 6.0

	sectionGap        = 10.0
	tableHeaderHeight = 10.0

	summaryRowHeight = 6.5
	summaryPad       = 5.0
	totalRowHeight   = 9.0

	noteLineHeight = 4.0
	maxNoteLines   = 3
	payCardHeight  = 12.0

	footerRise = 20.0
)

// PDFRenderer renders invoices through gofpdf. Stateless apart from its
// collaborators; Render is safe to call concurrently.
type PDFRenderer struct {
	log   *zap.Logger
	clock clock.Clock
	geo   Geometry
	brand Brand
}

type RendererParam struct {
	fx.In

	Log   *zap.Logger
	Clock clock.Clock
}

func NewPDFRenderer(p RendererParam) Renderer {
	return &PDFRenderer{
		log:   p.Log.Named("invoice.render"),
		clock: p.Clock,
		geo:   DefaultGeometry(),
		brand: defaultBrand,
	}
}

// Render runs one draw pass over doc and returns the PDF bytes. The only
// recoverable input defect is an unparseable item list, which degrades to
// an empty table and is logged; every drawing error aborts the render.
func (r *PDFRenderer) Render(doc InvoiceDocument) ([]byte, error) {
	items, ok := NormalizeItems(doc.Items)
	if !ok {
		r.log.Warn("unparseable invoice items, rendering empty table",
			zap.String("invoice_number", doc.InvoiceNumber),
		)
	}
	scheme := ResolveScheme(doc.Theme, doc.CustomColors)
	now := r.clock.Now().UTC()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(now)
	pdf.SetTitle("Invoice "+doc.InvoiceNumber, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pass := &renderPass{
		pdf:    pdf,
		geo:    r.geo,
		scheme: scheme,
		doc:    doc,
		items:  items,
		now:    now,
		brand:  r.brand,
	}
	pass.run()

	if pdf.Err() {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

// renderPass holds per-call draw state. Stages run in a fixed order and
// each stage's start offset comes from the previous stage's measured end.
type renderPass struct {
	pdf    *gofpdf.Fpdf
	geo    Geometry
	scheme ColorScheme
	doc    InvoiceDocument
	items  []ItemRow
	now    time.Time
	brand  Brand
}

func (p *renderPass) run() {
	p.paintPage()
	headerEnd := p.drawHeader()
	p.drawIdentity()
	cardsEnd := p.drawInfoCards(headerEnd + infoCardGap)
	tableEnd := p.drawItemsTable(cardsEnd + sectionGap)
	p.drawSummary(tableEnd + sectionGap)
	p.drawPaymentNotes(tableEnd + sectionGap)
	p.drawFooter()
}

func (p *renderPass) setFill(c RGB) { p.pdf.SetFillColor(c.R, c.G, c.B) }
func (p *renderPass) setText(c RGB) { p.pdf.SetTextColor(c.R, c.G, c.B) }
func (p *renderPass) setDraw(c RGB) { p.pdf.SetDrawColor(c.R, c.G, c.B) }

// measure reports string width under the current font, the backend's
// text-measurement primitive wrapping and table math are built on.
func (p *renderPass) measure(s string) float64 { return p.pdf.GetStringWidth(s) }

func (p *renderPass) paintPage() {
	p.setFill(p.scheme.White)
	p.pdf.Rect(0, 0, p.geo.PageWidth, p.geo.PageHeight, "F")
}

// drawHeader paints the theme-primary band with its decorative overlay
// and, when a status is present, the status badge. Returns the band end.
func (p *renderPass) drawHeader() float64 {
	p.setFill(p.scheme.Primary)
	p.pdf.Rect(0, 0, p.geo.PageWidth, headerHeight, "F")

	// Low-opacity geometric overlay in the band's right half.
	p.pdf.SetAlpha(0.08, "Normal")
	p.setFill(p.scheme.White)
	p.pdf.Circle(p.geo.PageWidth-32, 8, 30, "F")
	p.pdf.Circle(p.geo.PageWidth-70, 58, 17, "F")
	p.pdf.SetAlpha(1.0, "Normal")

	if status := strings.TrimSpace(p.doc.Status); status != "" {
		p.drawStatusBadge(status)
	}
	return headerHeight
}

// drawStatusBadge renders a rounded pill in the band's top-right corner.
// The status string itself is the label; unknown statuses keep their
// literal text over a neutral fill.
func (p *renderPass) drawStatusBadge(status string) {
	p.pdf.SetFont("Helvetica", "B", 9)
	width := p.measure(status) + 2*badgePadX
	x := p.geo.PageWidth - p.geo.Margin - width

	p.setFill(StatusColor(status))
	p.pdf.RoundedRect(x, badgeTop, width, badgeHeight, 2, "1234", "F")
	p.setText(p.scheme.White)
	p.pdf.SetXY(x, badgeTop)
	p.pdf.CellFormat(width, badgeHeight, status, "", 0, "C", false, 0, "")
}

// drawIdentity places the company block inside the header band: monogram
// tile, wrapped company name, tagline, then address and contact lines.
// Each wrapped line's height accumulates before the next line is placed.
func (p *renderPass) drawIdentity() {
	company := p.doc.Company
	x := p.geo.Margin

	p.setFill(p.scheme.White)
	p.pdf.RoundedRect(x, identityTop, monogramSize, monogramSize, 2.5, "1234", "F")
	p.setText(p.scheme.Primary)
	p.pdf.SetFont("Helvetica", "B", 14)
	p.pdf.SetXY(x, identityTop)
	p.pdf.CellFormat(monogramSize, monogramSize, monogram(company.Name), "", 0, "C", false, 0, "")

	textX := x + monogramSize + 5
	name := strings.TrimSpace(company.Name)
	if name == "" {
		name = p.brand.Name
	}

	p.setText(p.scheme.White)
	p.pdf.SetFont("Helvetica", "B", 15)
	lineY := identityTop + 5.5
	for _, line := range WrapText(name, companyNameWidth, p.measure) {
		p.pdf.Text(textX, lineY, line)
		lineY += 7
	}

	p.pdf.SetFont("Helvetica", "", 8.5)
	p.setText(p.scheme.Light)
	p.pdf.Text(textX, lineY, p.brand.Tagline)
	lineY += 5

	p.pdf.SetFont("Helvetica", "", 8)
	if address := strings.TrimSpace(company.Address); address != "" {
		for _, line := range WrapText(address, companyNameWidth, p.measure) {
			p.pdf.Text(textX, lineY, line)
			lineY += 4
		}
	}
	for _, contact := range []string{company.Email, company.Phone, company.Website} {
		contact = strings.TrimSpace(contact)
		if contact == "" {
			continue
		}
		for _, line := range WrapText(contact, companyNameWidth, p.measure) {
			p.pdf.Text(textX, lineY, line)
			lineY += 4
		}
	}
}

type labelValue struct {
	label string
	value string
}

// drawInfoCards draws the invoice-metadata card and the client card side
// by side and returns their shared bottom edge.
func (p *renderPass) drawInfoCards(top float64) float64 {
	leftX := p.geo.Margin
	rightX := p.geo.rightColumnX()

	p.drawCard(leftX, top, cardWidth, cardHeight)
	p.drawCard(rightX, top, cardWidth, cardHeight)

	p.drawMetadataCard(leftX, top)
	p.drawClientCard(rightX, top)

	return top + cardHeight
}

func (p *renderPass) drawCard(x, y, w, h float64) {
	p.setFill(p.scheme.Background)
	p.setDraw(p.scheme.Light)
	p.pdf.SetLineWidth(0.3)
	p.pdf.RoundedRect(x, y, w, h, 3, "1234", "FD")
}

func (p *renderPass) drawCardTitle(x, y float64, title string) {
	p.pdf.SetFont("Helvetica", "B", 7.5)
	p.setText(p.scheme.Medium)
	p.pdf.Text(x+cardPad, y+8, title)
}

func (p *renderPass) drawMetadataCard(x, top float64) {
	p.drawCardTitle(x, top, "INVOICE DETAILS")

	pairs := []labelValue{
		{"Invoice No.", p.doc.InvoiceNumber},
		{"Issue Date", formatDate(p.doc.IssueDate)},
		{"Due Date", formatDate(p.doc.DueDate)},
		{"Currency", p.doc.Client.Currency},
	}

	y := top + 15.0
	for _, pair := range pairs {
		p.pdf.SetFont("Helvetica", "", 8.5)
		p.setText(p.scheme.Medium)
		p.pdf.Text(x+cardPad, y, pair.label)

		p.pdf.SetFont("Helvetica", "B", 8.5)
		p.setText(p.scheme.Dark)
		valueX := x + cardWidth - cardPad - p.measure(pair.value)
		p.pdf.Text(valueX, y, pair.value)
		y += 8
	}
}

func (p *renderPass) drawClientCard(x, top float64) {
	p.drawCardTitle(x, top, "BILLED TO")
	client := p.doc.Client
	textWidth := cardWidth - 2*cardPad

	p.pdf.SetFont("Helvetica", "B", 9.5)
	p.setText(p.scheme.Dark)
	y := top + 15.0
	for _, line := range WrapText(client.Name, textWidth, p.measure) {
		p.pdf.Text(x+cardPad, y, line)
		y += 5
	}

	details := make([]string, 0, 4)
	for _, detail := range []string{
		client.Company,
		client.Email,
		client.Address,
	} {
		if strings.TrimSpace(detail) != "" {
			details = append(details, strings.TrimSpace(detail))
		}
	}
	if gst := strings.TrimSpace(client.GSTNumber); gst != "" {
		details = append(details, "GST: "+gst)
	}
	if len(details) == 0 {
		return
	}

	p.pdf.SetFont("Helvetica", "", 8)
	p.setText(p.scheme.Medium)
	block := strings.Join(details, " · ")
	for _, line := range WrapText(block, textWidth, p.measure) {
		p.pdf.Text(x+cardPad, y, line)
		y += 4
	}
}

// drawItemsTable renders the header row and one row per item, separated
// by rules between all but the last row. Returns the table end offset;
// with no items only the header band renders and the body adds nothing.
func (p *renderPass) drawItemsTable(top float64) float64 {
	g := p.geo
	x := g.Margin
	tableWidth := g.ContentWidth()
	colW := columnWidths(tableWidth)

	p.setFill(p.scheme.Secondary)
	p.pdf.Rect(x, top, tableWidth, tableHeaderHeight, "F")
	p.setText(p.scheme.White)
	p.pdf.SetFont("Helvetica", "B", 9)
	headers := []string{"Description", "Qty", "Rate", "Amount"}
	aligns := []string{"L", "C", "R", "R"}
	p.pdf.SetXY(x+2, top)
	for i, header := range headers {
		p.pdf.CellFormat(colW[i], tableHeaderHeight, header, "", 0, aligns[i], false, 0, "")
	}

	p.pdf.SetFont("Helvetica", "", 9)
	metrics := MeasureItemTable(p.items, tableWidth, p.measure)
	descWidth := tableWidth*descColumnFraction - descColumnPad
	symbol := p.doc.Client.Currency

	rowY := top + tableHeaderHeight
	for i, item := range p.items {
		rowHeight := metrics.RowHeights[i]

		p.setText(p.scheme.Dark)
		lineY := rowY + rowVerticalPad/2 + 3.2
		for _, line := range WrapText(item.Description, descWidth, p.measure) {
			p.pdf.Text(x+2, lineY, line)
			lineY += rowLineHeight
		}

		p.setText(p.scheme.Medium)
		p.pdf.SetXY(x+colW[0], rowY)
		p.pdf.CellFormat(colW[1], rowHeight, formatQuantity(item.Quantity), "", 0, "C", false, 0, "")
		p.pdf.CellFormat(colW[2], rowHeight, formatMoney(symbol, item.Rate), "", 0, "R", false, 0, "")
		p.setText(p.scheme.Dark)
		p.pdf.CellFormat(colW[3], rowHeight, formatMoney(symbol, item.Amount), "", 0, "R", false, 0, "")

		if i < len(p.items)-1 {
			p.setDraw(p.scheme.Light)
			p.pdf.SetLineWidth(0.2)
			p.pdf.Line(x, rowY+rowHeight, x+tableWidth, rowY+rowHeight)
		}
		rowY += rowHeight
	}

	return rowY
}

// drawSummary renders the financial summary card in the right column,
// directly below the measured table end. Returns the card's bottom edge.
func (p *renderPass) drawSummary(top float64) float64 {
	x := p.geo.rightColumnX()
	symbol := p.doc.Client.Currency

	rows := []labelValue{
		{"Subtotal", formatMoney(symbol, p.doc.Subtotal)},
		{fmt.Sprintf("Discount (%s%%)", formatRate(p.doc.DiscountRate)), "-" + formatMoney(symbol, p.doc.DiscountAmount)},
		{fmt.Sprintf("Tax (%s%%)", formatRate(p.doc.TaxRate)), "+" + formatMoney(symbol, p.doc.TaxAmount)},
	}

	height := 2*summaryPad + float64(len(rows))*summaryRowHeight + totalRowHeight
	p.drawCard(x, top, cardWidth, height)

	y := top + summaryPad + 4
	for _, row := range rows {
		p.pdf.SetFont("Helvetica", "", 8.5)
		p.setText(p.scheme.Medium)
		p.pdf.Text(x+cardPad, y, row.label)
		p.setText(p.scheme.Dark)
		p.pdf.Text(x+cardWidth-cardPad-p.measure(row.value), y, row.value)
		y += summaryRowHeight
	}

	ruleY := y - summaryRowHeight + 2.5
	p.setDraw(p.scheme.Medium)
	p.pdf.SetLineWidth(0.3)
	p.pdf.Line(x+cardPad, ruleY, x+cardWidth-cardPad, ruleY)

	p.pdf.SetFont("Helvetica", "B", 12)
	p.setText(p.scheme.Primary)
	totalY := ruleY + 6
	p.pdf.Text(x+cardPad, totalY, "Total")
	total := formatMoney(symbol, p.doc.Total)
	p.pdf.Text(x+cardWidth-cardPad-p.measure(total), totalY, total)

	return top + height
}

// drawPaymentNotes renders the left-column block sharing the summary's
// baseline: truncated notes and terms previews, then the payment card.
// The payment card follows the measured end of whatever precedes it;
// there is no hardcoded minimum offset.
func (p *renderPass) drawPaymentNotes(top float64) float64 {
	x := p.geo.Margin
	y := top

	if strings.TrimSpace(p.doc.Notes) != "" {
		y = p.drawNoteBlock(x, y, "Notes", p.doc.Notes)
	}
	if strings.TrimSpace(p.doc.Terms) != "" {
		y = p.drawNoteBlock(x, y, "Payment Terms", p.doc.Terms)
	}
	if link := strings.TrimSpace(p.doc.PaymentLink); link != "" {
		y = p.drawPaymentCard(x, y, link)
	}
	return y
}

func (p *renderPass) drawNoteBlock(x, top float64, title, body string) float64 {
	p.pdf.SetFont("Helvetica", "B", 8)
	p.setText(p.scheme.Dark)
	y := top + 4
	p.pdf.Text(x, y, title)
	y += noteLineHeight + 0.5

	p.pdf.SetFont("Helvetica", "", 8)
	p.setText(p.scheme.Medium)
	lines := WrapText(body, cardWidth, p.measure)
	if len(lines) > maxNoteLines {
		lines = lines[:maxNoteLines]
		lines[maxNoteLines-1] += "..."
	}
	for _, line := range lines {
		p.pdf.Text(x, y, line)
		y += noteLineHeight
	}
	return y
}

func (p *renderPass) drawPaymentCard(x, top float64, link string) float64 {
	y := top + 2
	p.setFill(p.scheme.Accent)
	p.pdf.RoundedRect(x, y, cardWidth, payCardHeight, 2.5, "1234", "F")
	p.setText(p.scheme.White)
	p.pdf.SetFont("Helvetica", "B", 9.5)
	p.pdf.SetXY(x, y)
	p.pdf.CellFormat(cardWidth, payCardHeight, "Pay securely online", "", 0, "C", false, 0, "")
	p.pdf.LinkString(x, y, cardWidth, payCardHeight, link)
	return y + payCardHeight
}

// drawFooter anchors to the page bottom: two rules, the brand line, the
// tagline and the render timestamp. The timestamp is the one part of the
// page that varies between otherwise identical renders.
func (p *renderPass) drawFooter() {
	g := p.geo
	y := g.PageHeight - footerRise

	p.setDraw(p.scheme.Light)
	p.pdf.SetLineWidth(0.4)
	p.pdf.Line(g.Margin, y, g.PageWidth-g.Margin, y)
	p.pdf.SetLineWidth(0.2)
	p.pdf.Line(g.Margin, y+0.9, g.PageWidth-g.Margin, y+0.9)

	p.pdf.SetFont("Helvetica", "B", 9)
	p.setText(p.scheme.Dark)
	p.pdf.SetXY(g.Margin, y+2.5)
	p.pdf.CellFormat(g.ContentWidth(), 5, "Generated by "+p.brand.Name, "", 2, "C", false, 0, "")

	p.pdf.SetFont("Helvetica", "", 7.5)
	p.setText(p.scheme.Medium)
	p.pdf.CellFormat(g.ContentWidth(), 4, p.brand.Tagline, "", 2, "C", false, 0, "")
	p.pdf.CellFormat(g.ContentWidth(), 4, p.now.Format("Jan 02, 2006 15:04"), "", 0, "C", false, 0, "")
}

// monogram takes the first two characters of the company name, uppercased.
func monogram(name string) string {
	runes := []rune(strings.TrimSpace(name))
	if len(runes) == 0 {
		return "SI"
	}
	if len(runes) == 1 {
		return strings.ToUpper(string(runes))
	}
	return strings.ToUpper(string(runes[:2]))
}
