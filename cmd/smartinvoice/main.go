// @title           SmartInvoice API
// @version         1.0
// @description     SmartInvoice invoicing & PDF rendering API
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.email  support@smartinvoice.local

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api
// @Schemes 	http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/smartinvoice/smartinvoice/internal/clock"
	"github.com/smartinvoice/smartinvoice/internal/config"
	"github.com/smartinvoice/smartinvoice/internal/customer"
	"github.com/smartinvoice/smartinvoice/internal/dashboard"
	"github.com/smartinvoice/smartinvoice/internal/events"
	"github.com/smartinvoice/smartinvoice/internal/invoice"
	"github.com/smartinvoice/smartinvoice/internal/mailer"
	"github.com/smartinvoice/smartinvoice/internal/migration"
	"github.com/smartinvoice/smartinvoice/internal/observability"
	"github.com/smartinvoice/smartinvoice/internal/scheduler"
	"github.com/smartinvoice/smartinvoice/internal/seed"
	"github.com/smartinvoice/smartinvoice/internal/server"
	"github.com/smartinvoice/smartinvoice/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		events.Module,
		mailer.Module,
		customer.Module,
		invoice.Module,
		dashboard.Module,
		scheduler.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server, engine *gin.Engine) {
			s.RegisterRoutes(engine)
		}),
		fx.Invoke(server.RunHTTP),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
