package events

// Invoice lifecycle event types recorded in the activity log.
const (
	EventInvoiceCreated       = "invoice_created"
	EventInvoiceUpdated       = "invoice_updated"
	EventInvoiceStatusChanged = "invoice_status_changed"
	EventInvoiceSent          = "invoice_sent"
	EventInvoiceDeleted       = "invoice_deleted"
)

// InvoicePayload captures the minimal data recorded with an invoice event.
type InvoicePayload struct {
	InvoiceID     string `json:"invoice_id"`
	InvoiceNumber string `json:"invoice_number"`
	CustomerID    string `json:"customer_id,omitempty"`
	Status        string `json:"status,omitempty"`
	FromStatus    string `json:"from_status,omitempty"`
	Recipient     string `json:"recipient,omitempty"`
}

// ToMap converts a payload into a log-friendly map.
func (p InvoicePayload) ToMap() map[string]any {
	payload := map[string]any{
		"invoice_id":     p.InvoiceID,
		"invoice_number": p.InvoiceNumber,
	}
	if p.CustomerID != "" {
		payload["customer_id"] = p.CustomerID
	}
	if p.Status != "" {
		payload["status"] = p.Status
	}
	if p.FromStatus != "" {
		payload["from_status"] = p.FromStatus
	}
	if p.Recipient != "" {
		payload["recipient"] = p.Recipient
	}
	return payload
}
