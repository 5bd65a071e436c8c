package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	customerdomain "github.com/smartinvoice/smartinvoice/internal/customer/domain"
	"github.com/smartinvoice/smartinvoice/pkg/db/option"
	"github.com/smartinvoice/smartinvoice/pkg/db/pagination"
	"github.com/smartinvoice/smartinvoice/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID *snowflake.Node
	repo  repository.Repository[customerdomain.Customer]
}

func NewService(p ServiceParam) customerdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("customer.service"),

		genID: p.GenID,
		repo:  repository.ProvideStore[customerdomain.Customer](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req customerdomain.CreateCustomerRequest) (customerdomain.Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return customerdomain.Customer{}, customerdomain.ErrInvalidName
	}

	email := normalizeEmail(req.Email)
	if email == "" {
		return customerdomain.Customer{}, customerdomain.ErrInvalidEmail
	}

	currency := strings.TrimSpace(req.Currency)
	if currency == "" {
		currency = "$"
	}

	if _, err := s.repo.FindOne(ctx, &customerdomain.Customer{Email: email}); err == nil {
		return customerdomain.Customer{}, customerdomain.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return customerdomain.Customer{}, err
	}

	now := time.Now().UTC()
	record := customerdomain.Customer{
		ID:        s.genID.Generate(),
		Name:      name,
		Email:     email,
		Company:   strings.TrimSpace(req.Company),
		Address:   strings.TrimSpace(req.Address),
		GSTNumber: strings.TrimSpace(req.GSTNumber),
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		return customerdomain.Customer{}, err
	}

	return record, nil
}

func (s *Service) Update(ctx context.Context, req customerdomain.UpdateCustomerRequest) (customerdomain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return customerdomain.Customer{}, err
	}

	record, err := s.repo.FindOne(ctx, &customerdomain.Customer{ID: id})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return customerdomain.Customer{}, customerdomain.ErrCustomerNotFound
		}
		return customerdomain.Customer{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return customerdomain.Customer{}, customerdomain.ErrInvalidName
		}
		record.Name = name
	}
	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		if email == "" {
			return customerdomain.Customer{}, customerdomain.ErrInvalidEmail
		}
		record.Email = email
	}
	if req.Company != nil {
		record.Company = strings.TrimSpace(*req.Company)
	}
	if req.Address != nil {
		record.Address = strings.TrimSpace(*req.Address)
	}
	if req.GSTNumber != nil {
		record.GSTNumber = strings.TrimSpace(*req.GSTNumber)
	}
	if req.Currency != nil {
		currency := strings.TrimSpace(*req.Currency)
		if currency == "" {
			return customerdomain.Customer{}, customerdomain.ErrInvalidCurrency
		}
		record.Currency = currency
	}

	record.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, record); err != nil {
		return customerdomain.Customer{}, err
	}

	return *record, nil
}

func (s *Service) List(ctx context.Context, req customerdomain.ListCustomerRequest) (customerdomain.ListCustomerResponse, error) {
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	filter := &customerdomain.Customer{
		Email:    normalizeEmail(req.Email),
		Currency: strings.TrimSpace(req.Currency),
	}

	opts := []option.Option{
		option.ApplyPagination(pagination.Pagination{
			PageToken: req.PageToken,
			PageSize:  int(pageSize),
		}),
		option.WithSortBy(option.QuerySortBy{Allow: map[string]bool{"created_at": true}}),
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		opts = append(opts, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("name LIKE ?", "%"+name+"%")
		})
	}
	if req.CreatedFrom != nil {
		from := *req.CreatedFrom
		opts = append(opts, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("created_at >= ?", from)
		})
	}
	if req.CreatedTo != nil {
		to := *req.CreatedTo
		opts = append(opts, func(tx *gorm.DB) *gorm.DB {
			return tx.Where("created_at <= ?", to)
		})
	}

	items, err := s.repo.Find(ctx, filter, opts...)
	if err != nil {
		return customerdomain.ListCustomerResponse{}, err
	}

	return buildListResponse(items, pageSize), nil
}

func (s *Service) GetByID(ctx context.Context, req customerdomain.GetCustomerRequest) (customerdomain.Customer, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return customerdomain.Customer{}, err
	}

	record, err := s.repo.FindOne(ctx, &customerdomain.Customer{ID: id})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return customerdomain.Customer{}, customerdomain.ErrCustomerNotFound
		}
		return customerdomain.Customer{}, err
	}

	return *record, nil
}

func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	if _, err := s.repo.FindOne(ctx, &customerdomain.Customer{ID: id}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return customerdomain.ErrCustomerNotFound
		}
		return err
	}

	return s.repo.Delete(ctx, &customerdomain.Customer{ID: id})
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, customerdomain.ErrInvalidID
	}
	return id, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func buildListResponse(items []*customerdomain.Customer, pageSize int32) customerdomain.ListCustomerResponse {
	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(record *customerdomain.Customer) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        record.ID.String(),
			CreatedAt: record.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	records := make([]customerdomain.Customer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		records = append(records, *item)
	}

	resp := customerdomain.ListCustomerResponse{Customers: records}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp
}
