package dashboard

import (
	"go.uber.org/fx"

	"github.com/smartinvoice/smartinvoice/internal/dashboard/service"
)

var Module = fx.Module("dashboard.service",
	fx.Provide(service.NewService),
)
