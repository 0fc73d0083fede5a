package mailer

import (
	"context"
	"time"

	"github.com/dmitrijs2005/credkeeper/internal/logging"
)

// Dispatcher sends account e-mails through a Transport with a bounded
// timeout per message.
type Dispatcher struct {
	transport Transport
	logger    logging.Logger
	timeout   time.Duration
	onFailure func(kind string)
}

// NewDispatcher wraps transport. onFailure, if set, is called with the
// message kind each time delivery fails.
func NewDispatcher(transport Transport, logger logging.Logger, timeout time.Duration, onFailure func(kind string)) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		logger:    logger.With("module", "mailer"),
		timeout:   timeout,
		onFailure: onFailure,
	}
}

func (d *Dispatcher) SendActivation(ctx context.Context, email, link string) {
	d.dispatch(ctx, activationMessage(email, link))
}

func (d *Dispatcher) SendResetLink(ctx context.Context, email, link string) {
	d.dispatch(ctx, resetLinkMessage(email, link))
}

func (d *Dispatcher) SendResetConfirmation(ctx context.Context, email string) {
	d.dispatch(ctx, resetConfirmationMessage(email))
}

func (d *Dispatcher) dispatch(ctx context.Context, msg Message) {
	// the request may already be finishing; delivery gets its own deadline
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	if err := d.transport.Deliver(ctx, msg); err != nil {
		logging.LogWarn(ctx, d.logger.With("kind", msg.Kind, "to", msg.To), "mail delivery failed", err)
		if d.onFailure != nil {
			d.onFailure(msg.Kind)
		}
		return
	}
	d.logger.Debug(ctx, "mail delivered", "kind", msg.Kind, "to", msg.To)
}
