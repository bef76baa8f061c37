package mail

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"go.uber.org/zap"
)

// Supported delivery drivers.
const (
	DriverSMTP     = "smtp"
	DriverSendGrid = "sendgrid"
	DriverLog      = "log"
)

// ErrDisabled signals that outbound delivery is switched off via configuration.
var ErrDisabled = errors.New("mail: delivery disabled")

// Message represents an outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
	HTML    bool
}

// Mailer sends email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Settings selects and configures a delivery driver.
type Settings struct {
	Driver   string
	From     string
	SMTP     SMTPSettings
	SendGrid SendGridSettings
}

// New returns the Mailer selected by settings.Driver.
func New(settings Settings, log *zap.Logger) (Mailer, error) {
	driver := strings.ToLower(strings.TrimSpace(settings.Driver))
	switch driver {
	case "", DriverLog:
		return NewLogMailer(settings.From, log), nil
	case DriverSMTP:
		smtp := settings.SMTP
		if smtp.From == "" {
			smtp.From = settings.From
		}
		return NewSMTPMailer(smtp)
	case DriverSendGrid:
		sg := settings.SendGrid
		if sg.From == "" {
			sg.From = settings.From
		}
		return NewSendGridMailer(sg)
	default:
		return nil, fmt.Errorf("mail: unsupported driver %q", settings.Driver)
	}
}

// envelope holds a validated sender and recipient list.
type envelope struct {
	from       string
	recipients []string
}

func prepare(msg Message, defaultFrom string) (envelope, error) {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return envelope{}, errors.New("mail: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = strings.TrimSpace(defaultFrom)
	}
	if from == "" {
		return envelope{}, errors.New("mail: sender address is required")
	}
	if _, err := netmail.ParseAddress(from); err != nil {
		return envelope{}, fmt.Errorf("mail: invalid from address: %w", err)
	}

	for _, rcpt := range recipients {
		if _, err := netmail.ParseAddress(rcpt); err != nil {
			return envelope{}, fmt.Errorf("mail: invalid recipient address %q: %w", rcpt, err)
		}
	}

	return envelope{from: from, recipients: recipients}, nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
