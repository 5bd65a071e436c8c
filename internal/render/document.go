package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ItemRow is one billable line of an invoice. Amount is computed upstream
// at write time; the renderer only formats it and never recomputes.
type ItemRow struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// ClientInfo identifies the party being billed. Currency holds the symbol
// used verbatim as the money prefix; no currency translation happens here.
type ClientInfo struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company,omitempty"`
	Address   string `json:"address,omitempty"`
	GSTNumber string `json:"gstNumber,omitempty"`
	Currency  string `json:"currency"`
}

// CompanyInfo identifies the issuing business.
type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	GST     string `json:"gst,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
}

// InvoiceDocument is the fully-resolved input for one render pass. It is
// assembled by the invoice service after all financial math is done; the
// renderer treats it as immutable.
//
// Items may arrive as a native []ItemRow or as a JSON-encoded string
// (legacy clients store the array double-encoded). NormalizeItems coerces
// both shapes at the render boundary; nothing past that boundary ever
// sees the ambiguity.
type InvoiceDocument struct {
	InvoiceNumber string         `json:"invoiceNumber"`
	IssueDate     string         `json:"date"`
	DueDate       string         `json:"dueDate"`
	Client        ClientInfo     `json:"client"`
	Company       CompanyInfo    `json:"company"`
	Items         any            `json:"items"`
	Subtotal      float64        `json:"subtotal"`
	TaxRate       float64        `json:"taxRate"`
	TaxAmount     float64        `json:"taxAmount"`
	DiscountRate  float64        `json:"discountRate"`
	DiscountAmount float64       `json:"discountAmount"`
	Total         float64        `json:"amount"`
	Status        string         `json:"status,omitempty"`
	Theme         Theme          `json:"theme,omitempty"`
	CustomColors  *ColorOverride `json:"customColors,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Terms         string         `json:"terms,omitempty"`
	PaymentLink   string         `json:"paymentLink,omitempty"`
}

// Invoice status identifiers with a dedicated badge color. Any other
// status string is accepted and displayed literally with a neutral badge.
const (
	StatusPaid    = "PAID"
	StatusDue     = "DUE"
	StatusOverdue = "OVERDUE"
	StatusPending = "PENDING"
)

// StatusColor maps an invoice status to its badge color.
func StatusColor(status string) RGB {
	switch status {
	case StatusPaid:
		return RGB{16, 185, 129}
	case StatusDue:
		return RGB{245, 158, 11}
	case StatusOverdue:
		return RGB{239, 68, 68}
	case StatusPending:
		return RGB{99, 102, 241}
	default:
		return RGB{107, 114, 128}
	}
}

// NormalizeItems coerces the boundary items value into concrete rows.
// Accepted shapes: nil, []ItemRow, raw JSON bytes, a JSON-encoded string
// (including the double-encoded form), or any value that re-marshals to a
// JSON array. The second return value is false when the input existed but
// could not be parsed; callers log that case and proceed with zero rows,
// so a malformed item list degrades the table rather than the render.
func NormalizeItems(value any) ([]ItemRow, bool) {
	switch v := value.(type) {
	case nil:
		return nil, true
	case []ItemRow:
		return v, true
	case string:
		return decodeItems([]byte(v))
	case []byte:
		return decodeItems(v)
	case json.RawMessage:
		return decodeItems(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, false
		}
		return decodeItems(raw)
	}
}

func decodeItems(raw []byte) ([]ItemRow, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, true
	}

	var rows []ItemRow
	if err := json.Unmarshal(trimmed, &rows); err == nil {
		return rows, true
	}

	// Double-encoded: a JSON string whose content is the array.
	var nested string
	if err := json.Unmarshal(trimmed, &nested); err == nil {
		nested = strings.TrimSpace(nested)
		if nested == "" {
			return nil, true
		}
		if err := json.Unmarshal([]byte(nested), &rows); err == nil {
			return rows, true
		}
	}
	return nil, false
}

// formatDate renders an ISO date as "Jan 02, 2006". Absent dates render
// the literal N/A; a value that parses as neither a date nor a timestamp
// passes through verbatim rather than failing the render.
func formatDate(iso string) string {
	value := strings.TrimSpace(iso)
	if value == "" {
		return "N/A"
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("Jan 02, 2006")
		}
	}
	return value
}

// formatMoney prefixes the amount with the client's currency symbol
// verbatim: {symbol}{value.toFixed(2)}.
func formatMoney(symbol string, amount float64) string {
	return fmt.Sprintf("%s%.2f", symbol, amount)
}

// formatQuantity trims trailing zeros so whole quantities print bare.
func formatQuantity(quantity float64) string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", quantity), "0"), ".")
	if s == "" {
		return "0"
	}
	return s
}

// formatRate renders a percentage rate without trailing zeros.
func formatRate(rate float64) string {
	return formatQuantity(rate)
}
