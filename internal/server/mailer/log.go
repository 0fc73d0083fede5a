package mailer

import (
	"context"

	"github.com/dmitrijs2005/credkeeper/internal/logging"
)

// LogTransport writes messages to the log instead of sending them. It is
// the development default.
type LogTransport struct {
	logger logging.Logger
}

func NewLogTransport(logger logging.Logger) *LogTransport {
	return &LogTransport{logger: logger.With("module", "mail_log")}
}

func (t *LogTransport) Deliver(ctx context.Context, msg Message) error {
	t.logger.Info(ctx, "mail", "kind", msg.Kind, "to", msg.To, "subject", msg.Subject, "link", msg.Link)
	return nil
}
