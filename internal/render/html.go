package render

import (
	"bytes"
	"html/template"

	"go.uber.org/zap"
)

const invoiceHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.Doc.InvoiceNumber}}</title>
  <style>
    :root {
      --primary: {{.Primary}};
      --secondary: {{.Secondary}};
      --accent: {{.Accent}};
      --background: {{.Background}};
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 32px;
      font-family: "Helvetica Neue", Arial, sans-serif;
      color: #212529;
      background: var(--background);
    }
    .invoice {
      max-width: 820px;
      margin: 0 auto;
      background: #ffffff;
    }
    .header {
      display: flex;
      justify-content: space-between;
      align-items: flex-start;
      background: var(--primary);
      color: #ffffff;
      padding: 24px;
    }
    .badge {
      display: inline-block;
      padding: 4px 10px;
      border-radius: 12px;
      font-size: 11px;
      letter-spacing: 0.04em;
      background: {{.StatusColor}};
      color: #ffffff;
    }
    .meta {
      text-align: right;
      font-size: 14px;
    }
    .label {
      color: #6c757d;
      text-transform: uppercase;
      letter-spacing: 0.04em;
      font-size: 11px;
    }
    .section {
      margin: 24px;
    }
    .parties {
      display: flex;
      gap: 24px;
    }
    .card {
      flex: 1;
      border: 1px solid #dee2e6;
      border-radius: 6px;
      padding: 16px;
      font-size: 14px;
    }
    table {
      width: 100%;
      border-collapse: collapse;
      font-size: 14px;
    }
    th, td {
      padding: 10px;
      border-bottom: 1px solid #dee2e6;
      text-align: left;
    }
    th {
      text-transform: uppercase;
      font-size: 11px;
      letter-spacing: 0.04em;
      color: #ffffff;
      background: var(--secondary);
    }
    .totals {
      margin-top: 12px;
      margin-left: auto;
      width: 280px;
      font-size: 14px;
    }
    .totals .row {
      display: flex;
      justify-content: space-between;
      padding: 4px 0;
    }
    .totals .grand {
      border-top: 2px solid var(--primary);
      font-size: 16px;
      font-weight: bold;
      color: var(--primary);
    }
    .footer {
      border-top: 1px solid #dee2e6;
      margin: 24px;
      padding-top: 16px;
      font-size: 12px;
      color: #6c757d;
    }
    a { color: var(--accent); }
  </style>
</head>
<body>
  <div class="invoice">
    <div class="header">
      <div>
        <div><strong>{{.CompanyName}}</strong></div>
        <div>{{.Brand.Tagline}}</div>
      </div>
      <div class="meta">
        <div class="label">Invoice</div>
        <div><strong>{{.Doc.InvoiceNumber}}</strong></div>
        {{if .Doc.Status}}<div class="badge">{{.Doc.Status}}</div>{{end}}
      </div>
    </div>

    <div class="section parties">
      <div class="card">
        <div class="label">Billed To</div>
        <div><strong>{{.Doc.Client.Name}}</strong></div>
        {{if .Doc.Client.Company}}<div>{{.Doc.Client.Company}}</div>{{end}}
        {{if .Doc.Client.Email}}<div>{{.Doc.Client.Email}}</div>{{end}}
        {{if .Doc.Client.Address}}<div>{{.Doc.Client.Address}}</div>{{end}}
        {{if .Doc.Client.GSTNumber}}<div>GST: {{.Doc.Client.GSTNumber}}</div>{{end}}
      </div>
      <div class="card">
        <div class="label">Invoice Details</div>
        <div>Date: {{formatDate .Doc.IssueDate}}</div>
        <div>Due: {{formatDate .Doc.DueDate}}</div>
        <div>Amount Due: <strong>{{formatMoney .Currency .Doc.Total}}</strong></div>
      </div>
    </div>

    <div class="section">
      <table>
        <thead>
          <tr>
            <th>Description</th>
            <th>Qty</th>
            <th>Rate</th>
            <th>Amount</th>
          </tr>
        </thead>
        <tbody>
          {{range .Items}}
          <tr>
            <td>{{.Description}}</td>
            <td>{{formatQuantity .Quantity}}</td>
            <td>{{formatMoney $.Currency .Rate}}</td>
            <td>{{formatMoney $.Currency .Amount}}</td>
          </tr>
          {{end}}
        </tbody>
      </table>
      <div class="totals">
        <div class="row"><span>Subtotal</span><span>{{formatMoney .Currency .Doc.Subtotal}}</span></div>
        {{if gt .Doc.DiscountRate 0.0}}<div class="row"><span>Discount ({{formatQuantity .Doc.DiscountRate}}%)</span><span>-{{formatMoney .Currency .Doc.DiscountAmount}}</span></div>{{end}}
        {{if gt .Doc.TaxRate 0.0}}<div class="row"><span>Tax ({{formatQuantity .Doc.TaxRate}}%)</span><span>{{formatMoney .Currency .Doc.TaxAmount}}</span></div>{{end}}
        <div class="row grand"><span>Total</span><span>{{formatMoney .Currency .Doc.Total}}</span></div>
      </div>
    </div>

    <div class="footer">
      {{if .Doc.Notes}}<div>{{.Doc.Notes}}</div>{{end}}
      {{if .Doc.Terms}}<div>{{.Doc.Terms}}</div>{{end}}
      {{if .Doc.PaymentLink}}<div><a href="{{.Doc.PaymentLink}}">Pay online</a></div>{{end}}
      <div>Generated by {{.Brand.Name}}</div>
    </div>
  </div>
</body>
</html>
`

// HTMLRenderer produces a themed HTML preview of an invoice document.
type HTMLRenderer struct {
	log *zap.Logger
	tpl *template.Template
}

type htmlView struct {
	Doc         InvoiceDocument
	Brand       Brand
	Items       []ItemRow
	Currency    string
	CompanyName string
	Primary     template.CSS
	Secondary   template.CSS
	Accent      template.CSS
	Background  template.CSS
	StatusColor template.CSS
}

func NewHTMLRenderer(log *zap.Logger) *HTMLRenderer {
	funcs := template.FuncMap{
		"formatMoney":    formatMoney,
		"formatDate":     formatDate,
		"formatQuantity": formatQuantity,
	}
	return &HTMLRenderer{
		log: log.Named("invoice.render.html"),
		tpl: template.Must(template.New("invoice").Funcs(funcs).Parse(invoiceHTMLTemplate)),
	}
}

// RenderHTML renders the document with the same theme resolution as the PDF path.
func (r *HTMLRenderer) RenderHTML(doc InvoiceDocument) (string, error) {
	items, ok := NormalizeItems(doc.Items)
	if !ok {
		r.log.Warn("invalid items payload, rendering without line items",
			zap.String("invoice_number", doc.InvoiceNumber))
	}

	scheme := ResolveScheme(doc.Theme, doc.CustomColors)
	status := StatusColor(doc.Status)

	companyName := doc.Company.Name
	if companyName == "" {
		companyName = defaultBrand.Name
	}

	view := htmlView{
		Doc:         doc,
		Brand:       defaultBrand,
		Items:       items,
		Currency:    doc.Client.Currency,
		CompanyName: companyName,
		Primary:     template.CSS(scheme.Primary.Hex()),
		Secondary:   template.CSS(scheme.Secondary.Hex()),
		Accent:      template.CSS(scheme.Accent.Hex()),
		Background:  template.CSS(scheme.Background.Hex()),
		StatusColor: template.CSS(status.Hex()),
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}
