package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	authdomain "github.com/smartinvoice/smartinvoice/internal/auth/domain"
	"github.com/smartinvoice/smartinvoice/internal/auth/password"
	"github.com/smartinvoice/smartinvoice/internal/config"
	customerdomain "github.com/smartinvoice/smartinvoice/internal/customer/domain"
	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
)

const (
	defaultAdminEmail    = "admin@smartinvoice.local"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "SmartInvoice Admin"
)

var Module = fx.Module("seed",
	fx.Invoke(Run),
)

// Run bootstraps the admin account and, when enabled, demo data.
func Run(db *gorm.DB, cfg *config.Config, log *zap.Logger) error {
	if err := EnsureAdmin(db, cfg); err != nil {
		return err
	}
	if cfg.Bootstrap.SeedDemoData && !cfg.IsProduction() {
		if err := EnsureDemoData(db); err != nil {
			return err
		}
		log.Info("demo data seeded")
	}
	return nil
}

// EnsureAdmin creates the default admin user if it does not exist.
func EnsureAdmin(db *gorm.DB, cfg *config.Config) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(cfg.Bootstrap.AdminEmail))
	if email == "" {
		email = defaultAdminEmail
	}
	pass := cfg.Bootstrap.AdminPassword
	if pass == "" {
		pass = defaultAdminPassword
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(pass)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		user = authdomain.User{
			ID:           node.Generate(),
			Email:        email,
			DisplayName:  defaultAdminDisplay,
			PasswordHash: &hashed,
			IsDefault:    true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}

// EnsureDemoData seeds a sample customer and invoice for local development.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(2)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer customerdomain.Customer
		err := tx.WithContext(ctx).Where("email = ?", "demo@client.example").First(&customer).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			now := time.Now().UTC()
			customer = customerdomain.Customer{
				ID:        node.Generate(),
				Name:      "Demo Client",
				Email:     "demo@client.example",
				Company:   "Demo Client LLC",
				Address:   "42 Demo Street, Springfield",
				Currency:  "$",
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&customer).Error; err != nil {
				return err
			}
		}

		var invoice invoicedomain.Invoice
		err = tx.WithContext(ctx).Where("number = ?", "INV-0001").First(&invoice).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		issue := now.Truncate(24 * time.Hour)
		due := issue.Add(14 * 24 * time.Hour)
		invoice = invoicedomain.Invoice{
			ID:         node.Generate(),
			Number:     "INV-0001",
			CustomerID: customer.ID,
			IssueDate:  issue,
			DueDate:    &due,
			Status:     invoicedomain.StatusDraft,
			Items: datatypes.JSON(
				`[{"description":"Consulting Services","quantity":10,"rate":150,"amount":1500}]`,
			),
			Subtotal:  1500,
			Total:     1500,
			Theme:     "professional",
			Notes:     "Thank you for your business.",
			Terms:     "Payment due within 14 days.",
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&invoice).Error
	})
}
