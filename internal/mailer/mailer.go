package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/smartinvoice/smartinvoice/internal/config"
)

// Message is an outbound email with an optional PDF attachment.
type Message struct {
	To             string
	Subject        string
	Body           string
	AttachmentName string
	Attachment     []byte
}

// Mailer delivers invoice emails.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

var ErrMissingRecipient = errors.New("missing_recipient")

// SMTPMailer sends mail through a configured SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
	log *zap.Logger
}

func NewSMTPMailer(cfg config.SMTPConfig, log *zap.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: log.Named("mailer.smtp")}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return ErrMissingRecipient
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	payload := buildMIME(m.cfg.From, to, msg)
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, payload); err != nil {
		return err
	}

	m.log.Info("invoice email sent", zap.String("to", to), zap.String("subject", msg.Subject))
	return nil
}

func buildMIME(from, to string, msg Message) []byte {
	const boundary = "smartinvoice-mime-boundary"

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n", boundary)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(msg.Body)
	buf.WriteString("\r\n")

	if len(msg.Attachment) > 0 {
		name := msg.AttachmentName
		if name == "" {
			name = "invoice.pdf"
		}
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		buf.WriteString("Content-Type: application/pdf\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n", name)
		buf.WriteString("\r\n")

		encoded := base64.StdEncoding.EncodeToString(msg.Attachment)
		for len(encoded) > 76 {
			buf.WriteString(encoded[:76])
			buf.WriteString("\r\n")
			encoded = encoded[76:]
		}
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}

// NoopMailer logs instead of sending. Used when SMTP is not configured.
type NoopMailer struct {
	log *zap.Logger
}

func NewNoopMailer(log *zap.Logger) *NoopMailer {
	return &NoopMailer{log: log.Named("mailer.noop")}
}

func (m *NoopMailer) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return ErrMissingRecipient
	}
	m.log.Info("mail delivery skipped, smtp not configured",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
	)
	return nil
}
