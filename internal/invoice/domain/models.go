package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Invoice statuses. DRAFT invoices are editable; every other status is a
// billing state shown on the rendered document.
const (
	StatusDraft   = "DRAFT"
	StatusPending = "PENDING"
	StatusDue     = "DUE"
	StatusPaid    = "PAID"
	StatusOverdue = "OVERDUE"
	StatusVoid    = "VOID"
)

// Invoice is the persisted invoice record. Items are stored as a JSON
// array; financial amounts are computed once at write time and stored.
type Invoice struct {
	ID             snowflake.ID   `json:"id" gorm:"primaryKey"`
	Number         string         `json:"number" gorm:"uniqueIndex"`
	CustomerID     snowflake.ID   `json:"customer_id" gorm:"index"`
	IssueDate      time.Time      `json:"issue_date"`
	DueDate        *time.Time     `json:"due_date,omitempty"`
	Status         string         `json:"status"`
	Items          datatypes.JSON `json:"items"`
	Subtotal       float64        `json:"subtotal"`
	DiscountRate   float64        `json:"discount_rate"`
	DiscountAmount float64        `json:"discount_amount"`
	TaxRate        float64        `json:"tax_rate"`
	TaxAmount      float64        `json:"tax_amount"`
	Total          float64        `json:"total"`
	Theme          string         `json:"theme,omitempty"`
	CustomColors   datatypes.JSON `json:"custom_colors,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Terms          string         `json:"terms,omitempty"`
	PaymentLink    string         `json:"payment_link,omitempty"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// ValidTransition reports whether a status change is allowed.
func ValidTransition(from, to string) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusDraft:
		return to == StatusPending || to == StatusDue || to == StatusVoid
	case StatusPending:
		return to == StatusDue || to == StatusPaid || to == StatusOverdue || to == StatusVoid
	case StatusDue:
		return to == StatusPaid || to == StatusOverdue || to == StatusVoid
	case StatusOverdue:
		return to == StatusPaid || to == StatusVoid
	case StatusPaid, StatusVoid:
		return false
	default:
		return false
	}
}

// KnownStatus reports whether the status is one this service manages.
func KnownStatus(status string) bool {
	switch status {
	case StatusDraft, StatusPending, StatusDue, StatusPaid, StatusOverdue, StatusVoid:
		return true
	default:
		return false
	}
}
