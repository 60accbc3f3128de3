package notification

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"shape/internal/config"
)

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is not configured")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid SMTP port: %d", cfg.Port)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("email from address is not configured")
	}

	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

func (s *SMTPSender) buildMessage(msg WelcomeEmail) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.Email)
	m.SetHeader("Subject", msg.Subject())
	m.SetBody("text/html", msg.Body())
	return m
}

// Send dials per message. gomail has no context support, so a cancelled ctx
// abandons the wait but not the dial itself.
func (s *SMTPSender) Send(ctx context.Context, msg WelcomeEmail) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := s.buildMessage(msg)
	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
