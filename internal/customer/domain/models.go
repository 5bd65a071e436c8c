package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/smartinvoice/smartinvoice/pkg/db/pagination"
)

// Customer is a billable client of the business.
type Customer struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Company   string       `json:"company,omitempty"`
	Address   string       `json:"address,omitempty"`
	GSTNumber string       `json:"gst_number,omitempty"`
	Currency  string       `json:"currency"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

type CreateCustomerRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Address   string `json:"address"`
	GSTNumber string `json:"gst_number"`
	Currency  string `json:"currency"`
}

type UpdateCustomerRequest struct {
	ID        string  `json:"-"`
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Company   *string `json:"company"`
	Address   *string `json:"address"`
	GSTNumber *string `json:"gst_number"`
	Currency  *string `json:"currency"`
}

type GetCustomerRequest struct {
	ID string `json:"id"`
}

type ListCustomerRequest struct {
	PageToken   string
	PageSize    int32
	Name        string
	Email       string
	Currency    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type Service interface {
	Create(ctx context.Context, req CreateCustomerRequest) (Customer, error)
	Update(ctx context.Context, req UpdateCustomerRequest) (Customer, error)
	List(ctx context.Context, req ListCustomerRequest) (ListCustomerResponse, error)
	GetByID(ctx context.Context, req GetCustomerRequest) (Customer, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrInvalidID        = errors.New("invalid_customer_id")
	ErrCustomerNotFound = errors.New("customer_not_found")
	ErrEmailTaken       = errors.New("email_already_registered")
)
