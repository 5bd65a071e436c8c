package mailer

import (
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smartinvoice/smartinvoice/internal/config"
)

var Module = fx.Module("mailer",
	fx.Provide(New),
)

// New picks the SMTP mailer when a relay is configured, otherwise a noop.
func New(cfg *config.Config, log *zap.Logger) Mailer {
	if strings.TrimSpace(cfg.SMTP.Host) == "" {
		return NewNoopMailer(log)
	}
	return NewSMTPMailer(cfg.SMTP, log)
}
