package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartinvoice/smartinvoice/internal/clock"
	"github.com/smartinvoice/smartinvoice/internal/events"
	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
)

const sweepInterval = time.Hour

// Scheduler runs periodic invoice maintenance. Its single job today is
// flipping past-due invoices to OVERDUE.
type Scheduler struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	activity *events.ActivityLog

	stop chan struct{}
	done chan struct{}
}

type Param struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Activity *events.ActivityLog
}

func New(p Param) *Scheduler {
	return &Scheduler{
		db:       p.DB,
		log:      p.Log.Named("scheduler"),
		clock:    p.Clock,
		activity: p.Activity,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(s.stop)
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func (s *Scheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	if err := s.MarkOverdue(context.Background()); err != nil {
		s.log.Warn("overdue sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.MarkOverdue(context.Background()); err != nil {
				s.log.Warn("overdue sweep failed", zap.Error(err))
			}
		}
	}
}

// MarkOverdue flips PENDING and DUE invoices whose due date has passed.
func (s *Scheduler) MarkOverdue(ctx context.Context) error {
	now := s.clock.Now().UTC()

	var expired []invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{invoicedomain.StatusPending, invoicedomain.StatusDue}).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Find(&expired).Error
	if err != nil {
		return err
	}
	if len(expired) == 0 {
		return nil
	}

	for _, record := range expired {
		from := record.Status
		err := s.db.WithContext(ctx).
			Model(&invoicedomain.Invoice{}).
			Where("id = ? AND status = ?", record.ID, from).
			Updates(map[string]any{
				"status":     invoicedomain.StatusOverdue,
				"updated_at": now,
			}).Error
		if err != nil {
			return err
		}

		if s.activity != nil {
			_ = s.activity.Publish(ctx, events.Event{
				Type: events.EventInvoiceStatusChanged,
				Payload: events.InvoicePayload{
					InvoiceID:     record.ID.String(),
					InvoiceNumber: record.Number,
					Status:        invoicedomain.StatusOverdue,
					FromStatus:    from,
				}.ToMap(),
				DedupeKey: "overdue:" + record.ID.String(),
			})
		}
	}

	s.log.Info("overdue sweep complete", zap.Int("flipped", len(expired)))
	return nil
}
