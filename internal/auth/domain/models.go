package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// User is an operator account for the invoicing API.
type User struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	Email        string       `json:"email" gorm:"uniqueIndex"`
	DisplayName  string       `json:"display_name"`
	PasswordHash *string      `json:"-"`
	IsDefault    bool         `json:"is_default"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user_not_found")
)
