package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process configuration, loaded once from the environment.
type Config struct {
	Environment string
	Addr        string

	// APIToken authenticates API requests when set. Empty disables the
	// API-key middleware (development mode).
	APIToken string

	Database  DatabaseConfig
	Company   CompanyConfig
	SMTP      SMTPConfig
	Tracing   TracingConfig
	Bootstrap BootstrapConfig

	RenderCacheTTL time.Duration
}

type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	DSN    string
}

// CompanyConfig is the issuing business identity printed on every invoice.
type CompanyConfig struct {
	Name    string
	Address string
	GST     string
	Email   string
	Phone   string
	Website string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
	SeedDemoData  bool
}

// Load reads configuration from the environment and applies defaults.
func Load() *Config {
	cfg := Config{
		Environment: getenv("APP_ENV", "development"),
		Addr:        getenv("HTTP_ADDR", ":8080"),
		APIToken:    os.Getenv("API_TOKEN"),
		Database: DatabaseConfig{
			Driver: getenv("DB_DRIVER", "sqlite"),
			DSN:    getenv("DB_DSN", "file:smartinvoice.db?cache=shared"),
		},
		Company: CompanyConfig{
			Name:    getenv("COMPANY_NAME", "SmartInvoice"),
			Address: os.Getenv("COMPANY_ADDRESS"),
			GST:     os.Getenv("COMPANY_GST"),
			Email:   os.Getenv("COMPANY_EMAIL"),
			Phone:   os.Getenv("COMPANY_PHONE"),
			Website: os.Getenv("COMPANY_WEBSITE"),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getint("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     os.Getenv("SMTP_FROM"),
		},
		Tracing: TracingConfig{
			Enabled:          getbool("TRACING_ENABLED", false),
			ExporterEndpoint: os.Getenv("OTLP_ENDPOINT"),
			ExporterProtocol: getenv("OTLP_PROTOCOL", "grpc"),
			SamplingRatio:    getfloat("TRACING_SAMPLING_RATIO", 0.1),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    getenv("BOOTSTRAP_ADMIN_EMAIL", "admin@smartinvoice.local"),
			AdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", "admin"),
			SeedDemoData:  getbool("BOOTSTRAP_SEED_DEMO", false),
		},
		RenderCacheTTL: getduration("RENDER_CACHE_TTL", 10*time.Minute),
	}
	cfg = cfg.withDefaults()
	return &cfg
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Addr) == "" {
		c.Addr = ":8080"
	}
	if c.Database.Driver != "postgres" {
		c.Database.Driver = "sqlite"
	}
	if c.RenderCacheTTL <= 0 {
		c.RenderCacheTTL = 10 * time.Minute
	}
	return c
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getint(key string, fallback int) int {
	if value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return value
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key))); err == nil {
		return value
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64); err == nil {
		return value
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key))); err == nil {
		return value
	}
	return fallback
}
