package app

import (
	"fmt"
	"strings"

	"github.com/goout-id/goout/pkg/mail"
)

// Sender formats the configured From header, e.g. "Go Out <notifications@goout.my.id>".
func (c EmailConfig) Sender() string {
	address := strings.TrimSpace(c.FromAddress)
	name := strings.TrimSpace(c.FromName)
	if name == "" || address == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

// MailSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) MailSettings() mail.Settings {
	from := c.Sender()
	return mail.Settings{
		Driver: strings.ToLower(strings.TrimSpace(c.Driver)),
		From:   from,
		SMTP: mail.SMTPSettings{
			Enabled:  strings.EqualFold(strings.TrimSpace(c.Driver), mail.DriverSMTP),
			Host:     strings.TrimSpace(c.SMTP.Host),
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     from,
			UseTLS:   c.SMTP.UseTLS,
		},
		SendGrid: mail.SendGridSettings{
			APIKey:  c.SendGrid.APIKey,
			From:    from,
			Host:    strings.TrimSpace(c.SendGrid.Host),
			Sandbox: c.SendGrid.Sandbox,
		},
	}
}
