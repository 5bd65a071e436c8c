package domain

import (
	"context"
	"time"
)

// RevenueSummary aggregates invoice totals across the ledger.
type RevenueSummary struct {
	TotalRevenue   float64 `json:"total_revenue"`
	Outstanding    float64 `json:"outstanding"`
	Overdue        float64 `json:"overdue"`
	InvoiceCount   int64   `json:"invoice_count"`
	CustomerCount  int64   `json:"customer_count"`
	AverageInvoice float64 `json:"average_invoice"`
}

// StatusCount is the number of invoices in one status.
type StatusCount struct {
	Status string  `json:"status"`
	Count  int64   `json:"count"`
	Total  float64 `json:"total"`
}

// StatusBreakdownResponse is the API response for invoice status counts.
type StatusBreakdownResponse struct {
	Statuses []StatusCount `json:"statuses"`
}

// CustomerRevenue is one customer's billed and collected totals.
type CustomerRevenue struct {
	CustomerID string  `json:"customer_id"`
	Name       string  `json:"name"`
	Currency   string  `json:"currency"`
	Billed     float64 `json:"billed"`
	Collected  float64 `json:"collected"`
}

// TopCustomersResponse is the API response for customer revenue ranking.
type TopCustomersResponse struct {
	Customers []CustomerRevenue `json:"customers"`
}

// Activity is a human-readable invoice event.
type Activity struct {
	Message    string    `json:"message"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ActivityResponse is the API response for recent invoice activity.
type ActivityResponse struct {
	Activity []Activity `json:"activity"`
}

// Service exposes admin dashboard data.
type Service interface {
	RevenueSummary(ctx context.Context) (RevenueSummary, error)
	StatusBreakdown(ctx context.Context) (StatusBreakdownResponse, error)
	TopCustomers(ctx context.Context, limit int) (TopCustomersResponse, error)
	RecentActivity(ctx context.Context, limit int) (ActivityResponse, error)
}
