package mail

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/bongocat/webapp/internal/core/domain"
	"github.com/bongocat/webapp/pkg/logger"
)

// LogMailer writes mails to the log instead of sending them. It is the
// development sink used when no SMTP relay is configured.
type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: logger.Component(log, "log_mailer")}
}

func (m *LogMailer) Send(_ context.Context, msg domain.Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("mail not sent, no smtp relay configured")
	return nil
}
