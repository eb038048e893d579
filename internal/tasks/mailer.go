package tasks

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"marketplace/internal/config"
	"marketplace/internal/utils/logger"
)

// Mailer delivers one plain text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewMailer picks the driver configured by MAIL_DRIVER.
func NewMailer(cfg config.MailConfig) Mailer {
	if strings.EqualFold(cfg.Driver, "smtp") {
		return &SMTPMailer{cfg: cfg}
	}
	return &LogMailer{logger: logger.New("MAIL")}
}

// LogMailer writes mails to the log instead of sending them.
type LogMailer struct {
	logger *logger.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	m.logger.Info("mail to=%s subject=%q\n%s", to, subject, body)
	return nil
}

type SMTPMailer struct {
	cfg config.MailConfig
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
