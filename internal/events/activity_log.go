package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event describes an invoice lifecycle event to record.
type Event struct {
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// ActivityEntry is one stored row of the activity log.
type ActivityEntry struct {
	ID        snowflake.ID      `json:"id" gorm:"primaryKey"`
	EventType string            `json:"event_type"`
	Payload   datatypes.JSONMap `json:"payload"`
	DedupeKey *string           `json:"-" gorm:"uniqueIndex"`
	CreatedAt time.Time         `json:"created_at"`
}

func (ActivityEntry) TableName() string {
	return "invoice_events"
}

// ActivityLog appends invoice events to the invoice_events table.
type ActivityLog struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewActivityLog(db *gorm.DB, genID *snowflake.Node) *ActivityLog {
	return &ActivityLog{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (l *ActivityLog) Publish(ctx context.Context, event Event) error {
	return l.publish(ctx, l.db, event)
}

// PublishTx stores an event using an existing transaction.
func (l *ActivityLog) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return l.publish(ctx, tx, event)
}

func (l *ActivityLog) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if l == nil || db == nil || l.genID == nil {
		return errors.New("activity_log_unavailable")
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	entry := ActivityEntry{
		ID:        l.genID.Generate(),
		EventType: name,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}
	if dedupe := strings.TrimSpace(event.DedupeKey); dedupe != "" {
		entry.DedupeKey = &dedupe
	}

	tx := db.WithContext(ctx)
	if entry.DedupeKey != nil {
		tx = tx.Where("dedupe_key = ?", *entry.DedupeKey)
		var existing ActivityEntry
		if err := tx.First(&existing).Error; err == nil {
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	return db.WithContext(ctx).Create(&entry).Error
}

// ListRecent returns the newest activity entries, up to limit.
func (l *ActivityLog) ListRecent(ctx context.Context, limit int) ([]ActivityEntry, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("activity_log_unavailable")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var entries []ActivityEntry
	err := l.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
