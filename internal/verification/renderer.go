package verification

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Rendered is a ready-to-send confirmation message.
type Rendered struct {
	Subject string
	Body    string
}

// Renderer turns a recipient name and verify link into an email. It must not
// have side effects.
type Renderer interface {
	Render(fullName, verifyURL string) (Rendered, error)
}

const confirmationSubject = "Email Confirmation"

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
  <body style="background-color:#f6f9fc;font-family:-apple-system,'Segoe UI',Roboto,sans-serif;">
    <table align="center" width="100%" style="max-width:560px;margin:0 auto;padding:24px;background:#ffffff;">
      <tr><td>
        <h1 style="font-size:22px;color:#1d1c1d;">Confirm your email address</h1>
        <p style="font-size:15px;color:#3c4149;">Hi {{ .FullName }},</p>
        <p style="font-size:15px;color:#3c4149;">Thanks for joining Go Out. Click the button below to verify your email address and start booking.</p>
        <p style="text-align:center;margin:32px 0;">
          <a href="{{ .VerifyURL }}" style="background-color:#0f766e;color:#ffffff;padding:12px 24px;border-radius:6px;text-decoration:none;">Verify email</a>
        </p>
        <p style="font-size:13px;color:#6b7280;">This link expires in {{ .ExpiresIn }}. If you did not create an account you can ignore this email.</p>
        <p style="font-size:13px;color:#6b7280;word-break:break-all;">{{ .VerifyURL }}</p>
      </td></tr>
    </table>
  </body>
</html>
`))

// HTMLRenderer renders the confirmation email with html/template.
type HTMLRenderer struct {
	expiresIn time.Duration
}

// NewHTMLRenderer returns a renderer announcing the given link lifetime.
func NewHTMLRenderer(expiresIn time.Duration) *HTMLRenderer {
	return &HTMLRenderer{expiresIn: expiresIn}
}

func (r *HTMLRenderer) Render(fullName, verifyURL string) (Rendered, error) {
	var buf bytes.Buffer
	err := confirmationTemplate.Execute(&buf, struct {
		FullName  string
		VerifyURL string
		ExpiresIn string
	}{
		FullName:  fullName,
		VerifyURL: verifyURL,
		ExpiresIn: humanDuration(r.expiresIn),
	})
	if err != nil {
		return Rendered{}, fmt.Errorf("render confirmation: %w", err)
	}
	return Rendered{Subject: confirmationSubject, Body: buf.String()}, nil
}

func humanDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "a short while"
	case d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d >= time.Minute:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
