package mail

import (
	"context"

	"go.uber.org/zap"
)

type logMailer struct {
	from string
	log  *zap.Logger
}

// NewLogMailer returns a Mailer that writes messages to the log instead of
// delivering them. Used in development.
func NewLogMailer(from string, log *zap.Logger) Mailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &logMailer{from: from, log: log}
}

func (m *logMailer) Send(_ context.Context, msg Message) error {
	env, err := prepare(msg, m.from)
	if err != nil {
		return err
	}
	m.log.Info("mail delivery skipped (log driver)",
		zap.String("from", env.from),
		zap.Strings("to", env.recipients),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
