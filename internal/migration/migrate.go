package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	authdomain "github.com/smartinvoice/smartinvoice/internal/auth/domain"
	customerdomain "github.com/smartinvoice/smartinvoice/internal/customer/domain"
	"github.com/smartinvoice/smartinvoice/internal/events"
	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
)

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

// Run applies the schema for every persisted model.
func Run(db *gorm.DB, log *zap.Logger) error {
	err := db.AutoMigrate(
		&authdomain.User{},
		&customerdomain.Customer{},
		&invoicedomain.Invoice{},
		&events.ActivityEntry{},
	)
	if err != nil {
		return err
	}
	log.Info("database schema up to date")
	return nil
}
