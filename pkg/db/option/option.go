package option

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/smartinvoice/smartinvoice/pkg/db/pagination"
)

// Option mutates a gorm query before it runs.
type Option func(*gorm.DB) *gorm.DB

// QuerySortBy restricts sortable columns to an allow-list.
type QuerySortBy struct {
	Field string
	Desc  bool
	Allow map[string]bool
}

// ApplyPagination applies cursor paging. One extra row is fetched so the
// caller can detect whether another page exists.
func ApplyPagination(p pagination.Pagination) Option {
	return func(tx *gorm.DB) *gorm.DB {
		pageSize := p.PageSize
		if pageSize <= 0 {
			pageSize = 50
		}

		if token := strings.TrimSpace(p.PageToken); token != "" {
			if createdAt, id, ok := decodeCursorValues(token); ok {
				tx = tx.Where("created_at < ? OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
			}
		}

		return tx.Limit(pageSize + 1)
	}
}

func decodeCursorValues(token string) (time.Time, int64, bool) {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return time.Time{}, 0, false
	}
	createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return time.Time{}, 0, false
	}
	id, err := strconv.ParseInt(cursor.ID, 10, 64)
	if err != nil {
		return time.Time{}, 0, false
	}
	return createdAt, id, true
}

// WithSortBy orders results by an allow-listed column, newest first by default.
func WithSortBy(sort QuerySortBy) Option {
	return func(tx *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(sort.Field)
		if field == "" || (sort.Allow != nil && !sort.Allow[field]) {
			field = "created_at"
		}
		direction := "DESC"
		if sort.Field != "" && !sort.Desc {
			direction = "ASC"
		}
		return tx.Order(field + " " + direction).Order("id DESC")
	}
}

// WithLimit caps the number of returned rows.
func WithLimit(limit int) Option {
	return func(tx *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return tx
		}
		return tx.Limit(limit)
	}
}
