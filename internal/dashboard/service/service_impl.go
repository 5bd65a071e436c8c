package service

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	dashboarddomain "github.com/smartinvoice/smartinvoice/internal/dashboard/domain"
	"github.com/smartinvoice/smartinvoice/internal/events"
	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Activity *events.ActivityLog
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	activity *events.ActivityLog
}

func NewService(p ServiceParam) dashboarddomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("dashboard.service"),
		activity: p.Activity,
	}
}

func (s *Service) RevenueSummary(ctx context.Context) (dashboarddomain.RevenueSummary, error) {
	var row struct {
		TotalRevenue  float64
		Outstanding   float64
		Overdue       float64
		InvoiceCount  int64
		CustomerCount int64
	}

	err := s.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN total ELSE 0 END), 0) AS total_revenue,
			COALESCE(SUM(CASE WHEN status IN (?, ?, ?) THEN total ELSE 0 END), 0) AS outstanding,
			COALESCE(SUM(CASE WHEN status = ? THEN total ELSE 0 END), 0) AS overdue,
			COUNT(*) AS invoice_count,
			COUNT(DISTINCT customer_id) AS customer_count
		FROM invoices
		WHERE status != ?`,
		invoicedomain.StatusPaid,
		invoicedomain.StatusPending, invoicedomain.StatusDue, invoicedomain.StatusOverdue,
		invoicedomain.StatusOverdue,
		invoicedomain.StatusVoid,
	).Scan(&row).Error
	if err != nil {
		return dashboarddomain.RevenueSummary{}, err
	}

	summary := dashboarddomain.RevenueSummary{
		TotalRevenue:  row.TotalRevenue,
		Outstanding:   row.Outstanding,
		Overdue:       row.Overdue,
		InvoiceCount:  row.InvoiceCount,
		CustomerCount: row.CustomerCount,
	}
	if row.InvoiceCount > 0 {
		summary.AverageInvoice = (row.TotalRevenue + row.Outstanding) / float64(row.InvoiceCount)
	}
	return summary, nil
}

func (s *Service) StatusBreakdown(ctx context.Context) (dashboarddomain.StatusBreakdownResponse, error) {
	var rows []dashboarddomain.StatusCount

	err := s.db.WithContext(ctx).Raw(`
		SELECT status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total
		FROM invoices
		GROUP BY status
		ORDER BY count DESC, status ASC`,
	).Scan(&rows).Error
	if err != nil {
		return dashboarddomain.StatusBreakdownResponse{}, err
	}

	return dashboarddomain.StatusBreakdownResponse{Statuses: rows}, nil
}

func (s *Service) TopCustomers(ctx context.Context, limit int) (dashboarddomain.TopCustomersResponse, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var rows []dashboarddomain.CustomerRevenue
	err := s.db.WithContext(ctx).Raw(`
		SELECT
			c.id AS customer_id,
			c.name AS name,
			c.currency AS currency,
			COALESCE(SUM(CASE WHEN i.status != ? THEN i.total ELSE 0 END), 0) AS billed,
			COALESCE(SUM(CASE WHEN i.status = ? THEN i.total ELSE 0 END), 0) AS collected
		FROM customers c
		LEFT JOIN invoices i ON i.customer_id = c.id
		GROUP BY c.id, c.name, c.currency
		ORDER BY billed DESC
		LIMIT ?`,
		invoicedomain.StatusVoid,
		invoicedomain.StatusPaid,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return dashboarddomain.TopCustomersResponse{}, err
	}

	return dashboarddomain.TopCustomersResponse{Customers: rows}, nil
}

func (s *Service) RecentActivity(ctx context.Context, limit int) (dashboarddomain.ActivityResponse, error) {
	entries, err := s.activity.ListRecent(ctx, limit)
	if err != nil {
		return dashboarddomain.ActivityResponse{}, err
	}

	activity := make([]dashboarddomain.Activity, 0, len(entries))
	for _, entry := range entries {
		activity = append(activity, dashboarddomain.Activity{
			Message:    describeEvent(entry),
			EventType:  entry.EventType,
			OccurredAt: entry.CreatedAt,
		})
	}

	return dashboarddomain.ActivityResponse{Activity: activity}, nil
}

func describeEvent(entry events.ActivityEntry) string {
	number, _ := entry.Payload["invoice_number"].(string)
	if number == "" {
		number = "unknown"
	}

	switch entry.EventType {
	case events.EventInvoiceCreated:
		return fmt.Sprintf("Invoice %s created", number)
	case events.EventInvoiceUpdated:
		return fmt.Sprintf("Invoice %s updated", number)
	case events.EventInvoiceStatusChanged:
		status, _ := entry.Payload["status"].(string)
		return fmt.Sprintf("Invoice %s marked %s", number, status)
	case events.EventInvoiceSent:
		recipient, _ := entry.Payload["recipient"].(string)
		return fmt.Sprintf("Invoice %s sent to %s", number, recipient)
	case events.EventInvoiceDeleted:
		return fmt.Sprintf("Invoice %s deleted", number)
	default:
		return fmt.Sprintf("Invoice %s: %s", number, entry.EventType)
	}
}
