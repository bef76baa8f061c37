package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// SMTPSettings capture the runtime configuration required by the SMTP mailer.
type SMTPSettings struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// UseTLS dials with implicit TLS; otherwise STARTTLS is negotiated when offered.
	UseTLS bool
}

type smtpDialFunc func() (gomail.SendCloser, error)

type smtpMailer struct {
	cfg  SMTPSettings
	dial smtpDialFunc
}

// NewSMTPMailer builds a Mailer delivering through an SMTP relay.
func NewSMTPMailer(cfg SMTPSettings) (Mailer, error) {
	if err := validateSMTPConfig(cfg); err != nil {
		return nil, err
	}

	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.UseTLS
	dialer.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}

	return &smtpMailer{cfg: cfg, dial: dialer.Dial}, nil
}

func (m *smtpMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	env, err := prepare(msg, m.cfg.From)
	if err != nil {
		return err
	}

	if err := ensureContext(ctx).Err(); err != nil {
		return err
	}

	sender, err := m.dial()
	if err != nil {
		return fmt.Errorf("smtp: dial %s:%d: %w", m.cfg.Host, m.cfg.Port, err)
	}
	defer sender.Close()

	if err := gomail.Send(sender, buildGomailMessage(env, msg)); err != nil {
		return fmt.Errorf("smtp: send: %w", err)
	}
	return nil
}

func buildGomailMessage(env envelope, msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", env.from)
	m.SetHeader("To", env.recipients...)
	m.SetHeader("Subject", escapeHeader(msg.Subject))

	contentType := "text/plain"
	if msg.HTML {
		contentType = "text/html"
	}
	m.SetBody(contentType, msg.Body)
	return m
}

func validateSMTPConfig(cfg SMTPSettings) error {
	if !cfg.Enabled {
		return nil
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return errors.New("smtp: host is required when enabled")
	}
	if cfg.Port == 0 {
		return errors.New("smtp: port is required when enabled")
	}
	return nil
}
