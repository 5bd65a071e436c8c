package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smartinvoice/smartinvoice/internal/config"
	customerdomain "github.com/smartinvoice/smartinvoice/internal/customer/domain"
	dashboarddomain "github.com/smartinvoice/smartinvoice/internal/dashboard/domain"
	invoicedomain "github.com/smartinvoice/smartinvoice/internal/invoice/domain"
	"github.com/smartinvoice/smartinvoice/internal/observability/logger"
	"github.com/smartinvoice/smartinvoice/internal/observability/metrics"
	"github.com/smartinvoice/smartinvoice/internal/observability/tracing"
)

// Server owns the HTTP handlers and their dependencies.
type Server struct {
	cfg *config.Config
	db  *gorm.DB
	log *zap.Logger

	customerSvc  customerdomain.Service
	invoiceSvc   invoicedomain.Service
	dashboardSvc dashboarddomain.Service

	limiter *rateLimiter
}

type ServerParam struct {
	fx.In

	Cfg *config.Config
	DB  *gorm.DB
	Log *zap.Logger

	CustomerSvc  customerdomain.Service
	InvoiceSvc   invoicedomain.Service
	DashboardSvc dashboarddomain.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg: p.Cfg,
		db:  p.DB,
		log: p.Log.Named("server"),

		customerSvc:  p.CustomerSvc,
		invoiceSvc:   p.InvoiceSvc,
		dashboardSvc: p.DashboardSvc,

		limiter: newRateLimiter(120, time.Minute),
	}
}

type EngineParam struct {
	fx.In

	Cfg         *config.Config
	Log         *zap.Logger
	HTTPMetrics *metrics.HTTPMetrics
}

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine(p EngineParam) *gin.Engine {
	if p.Cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(tracing.GinMiddleware())
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(metrics.GinMiddleware(p.HTTPMetrics))
	return engine
}

// RegisterRoutes mounts all API routes on the engine.
func (s *Server) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", s.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.Use(s.RateLimit())
	api.Use(s.TokenRequired())

	api.GET("/themes", s.ListThemes)

	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers", s.ListCustomers)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PATCH("/customers/:id", s.UpdateCustomer)
	api.DELETE("/customers/:id", s.DeleteCustomer)

	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.PATCH("/invoices/:id", s.UpdateInvoice)
	api.DELETE("/invoices/:id", s.DeleteInvoice)
	api.PATCH("/invoices/:id/status", s.UpdateInvoiceStatus)
	api.GET("/invoices/:id/pdf", s.DownloadInvoicePDF)
	api.GET("/invoices/:id/html", s.PreviewInvoiceHTML)
	api.POST("/invoices/:id/send", s.SendInvoice)

	api.GET("/dashboard/summary", s.DashboardSummary)
	api.GET("/dashboard/statuses", s.DashboardStatuses)
	api.GET("/dashboard/customers", s.DashboardTopCustomers)
	api.GET("/dashboard/activity", s.DashboardActivity)

	if !s.cfg.IsProduction() {
		api.POST("/test/cleanup", s.TestCleanup)
	}
}

// Health reports process liveness and database reachability.
func (s *Server) Health(c *gin.Context) {
	sqlDB, err := s.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("http server shutting down")
			return srv.Shutdown(ctx)
		},
	})
}
