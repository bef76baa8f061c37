package mail

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const defaultSendGridHost = "https://api.sendgrid.com"

// SendGridSettings configure the HTTP API mailer.
type SendGridSettings struct {
	APIKey  string
	From    string
	Host    string
	Sandbox bool
}

type sendGridMailer struct {
	cfg SendGridSettings
}

// NewSendGridMailer builds a Mailer delivering through the SendGrid v3 API.
func NewSendGridMailer(cfg SendGridSettings) (Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid: api key is required")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = defaultSendGridHost
	}
	return &sendGridMailer{cfg: cfg}, nil
}

func (m *sendGridMailer) Send(ctx context.Context, msg Message) error {
	env, err := prepare(msg, m.cfg.From)
	if err != nil {
		return err
	}

	request := sendgrid.GetRequest(m.cfg.APIKey, "/v3/mail/send", m.cfg.Host)
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(m.buildPayload(env, msg))

	resp, err := sendgrid.MakeRequestWithContext(ensureContext(ctx), request)
	if err != nil {
		return fmt.Errorf("sendgrid: request: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: send failed: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

func (m *sendGridMailer) buildPayload(env envelope, msg Message) *sgmail.SGMailV3 {
	payload := sgmail.NewV3Mail()
	payload.SetFrom(toSendGridEmail(env.from))
	payload.Subject = escapeHeader(msg.Subject)

	personalization := sgmail.NewPersonalization()
	for _, rcpt := range env.recipients {
		personalization.AddTos(toSendGridEmail(rcpt))
	}
	payload.AddPersonalizations(personalization)

	if msg.HTML {
		payload.AddContent(sgmail.NewContent("text/html", msg.Body))
	} else {
		payload.AddContent(sgmail.NewContent("text/plain", msg.Body))
	}

	if m.cfg.Sandbox {
		settings := sgmail.NewMailSettings()
		settings.SetSandboxMode(sgmail.NewSetting(true))
		payload.MailSettings = settings
	}
	return payload
}

func toSendGridEmail(address string) *sgmail.Email {
	parsed, err := netmail.ParseAddress(address)
	if err != nil {
		return sgmail.NewEmail("", address)
	}
	return sgmail.NewEmail(parsed.Name, parsed.Address)
}
