package invoice

import (
	"go.uber.org/fx"

	"github.com/smartinvoice/smartinvoice/internal/cache"
	"github.com/smartinvoice/smartinvoice/internal/invoice/service"
	"github.com/smartinvoice/smartinvoice/internal/render"
)

var Module = fx.Module("invoice.service",
	fx.Provide(render.NewPDFRenderer),
	fx.Provide(render.NewHTMLRenderer),
	fx.Provide(cache.NewRenderCache),
	fx.Provide(service.NewService),
)
