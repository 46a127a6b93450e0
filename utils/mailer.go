package utils

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

// Message is a plain text email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// SMTPConfig holds the outgoing server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPMailer delivers messages through a single SMTP server.
type SMTPMailer struct {
	cfg  SMTPConfig
	send func(m *gomail.Message) error
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return &SMTPMailer{
		cfg:  cfg,
		send: func(m *gomail.Message) error { return dialer.DialAndSend(m) },
	}
}

// Send dials the server for every message. Delivery is attempted once.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if m.cfg.Host == "" {
		return errors.New("email configuration not initialized")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	gm, err := buildMessage(msg)
	if err != nil {
		return err
	}
	if err := m.send(gm); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}

	LogEvent("email_sent", map[string]interface{}{
		"subject":    msg.Subject,
		"recipients": len(msg.To),
	})
	return nil
}

func buildMessage(msg Message) (*gomail.Message, error) {
	if msg.From == "" {
		return nil, errors.New("sender address is required")
	}
	if len(msg.To) == 0 {
		return nil, errors.New("at least one recipient is required")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	return m, nil
}
