package infra

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"

	"github.com/bharathmeg/InsightHub/internal/config"
	"github.com/bharathmeg/InsightHub/internal/model"

	"github.com/jordan-wright/email"
)

// MailSender is the outbound mail collaborator used by services and workers.
type MailSender interface {
	SendOTP(ctx context.Context, to, code, purpose string) error
	SendAttachment(ctx context.Context, to, subject, body, filename string, data []byte) error
}

// Mailer sends mail over SMTP through a circuit breaker.
type Mailer struct {
	from    string
	addr    string
	auth    smtp.Auth
	breaker *CircuitBreaker
	send    func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		from:    cfg.MailFrom(),
		addr:    fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		auth:    smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost),
		breaker: NewCircuitBreaker(DefaultCBConfig("smtp")),
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// SendOTP mails a one-time passcode.
func (m *Mailer) SendOTP(ctx context.Context, to, code, purpose string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = "OTP Verification"
	if purpose == model.OTPPurposeReset {
		e.Subject = "Password reset code"
	}
	e.Text = []byte(fmt.Sprintf("Your OTP is: %s\n", code))
	return m.deliver(ctx, e)
}

// SendAttachment mails data as a single attachment.
func (m *Mailer) SendAttachment(ctx context.Context, to, subject, body, filename string, data []byte) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)
	if _, err := e.Attach(bytes.NewReader(data), filename, ""); err != nil {
		return fmt.Errorf("mailer: attach %s: %w", filename, err)
	}
	return m.deliver(ctx, e)
}

func (m *Mailer) deliver(ctx context.Context, e *email.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := m.breaker.Execute(func() error {
		return m.send(e, m.addr, m.auth)
	})
	if err != nil {
		return fmt.Errorf("mailer: send to %v: %w", e.To, err)
	}
	return nil
}
