package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/smartinvoice/smartinvoice/pkg/db/option"
)

// Repository is a thin generic data-access layer over gorm.
type Repository[T any] interface {
	Create(ctx context.Context, record *T) error
	Find(ctx context.Context, filter *T, opts ...option.Option) ([]*T, error)
	FindOne(ctx context.Context, filter *T) (*T, error)
	Update(ctx context.Context, record *T) error
	Delete(ctx context.Context, filter *T) error
	Count(ctx context.Context, filter *T) (int64, error)
}

type store[T any] struct {
	db *gorm.DB
}

// ProvideStore builds a Repository backed by the given gorm handle.
func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) Create(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Create(record).Error
}

func (s *store[T]) Find(ctx context.Context, filter *T, opts ...option.Option) ([]*T, error) {
	tx := s.db.WithContext(ctx)
	if filter != nil {
		tx = tx.Where(filter)
	}
	for _, opt := range opts {
		if opt != nil {
			tx = opt(tx)
		}
	}

	var records []*T
	if err := tx.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (s *store[T]) FindOne(ctx context.Context, filter *T) (*T, error) {
	var record T
	tx := s.db.WithContext(ctx)
	if filter != nil {
		tx = tx.Where(filter)
	}
	if err := tx.First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *store[T]) Update(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Save(record).Error
}

func (s *store[T]) Delete(ctx context.Context, filter *T) error {
	return s.db.WithContext(ctx).Delete(filter).Error
}

func (s *store[T]) Count(ctx context.Context, filter *T) (int64, error) {
	var count int64
	tx := s.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		tx = tx.Where(filter)
	}
	if err := tx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
