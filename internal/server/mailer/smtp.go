package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// SMTPConfig describes the relay used by SMTPTransport.
type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	From     string

	// Attempts bounds delivery tries per message; 0 means 3.
	Attempts uint64
}

// SMTPTransport delivers messages over SMTP, upgrading to TLS when the relay
// offers STARTTLS and authenticating when credentials are set. Temporary
// failures are retried with backoff until the context expires.
type SMTPTransport struct {
	cfg  SMTPConfig
	host string
	send func(ctx context.Context, msg Message) error
}

func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	host, _, err := net.SplitHostPort(cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp address %q: %w", cfg.Addr, err)
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	t := &SMTPTransport{cfg: cfg, host: host}
	t.send = t.sendOnce
	return t, nil
}

func (t *SMTPTransport) Deliver(ctx context.Context, msg Message) error {
	backoff := retry.WithMaxRetries(t.cfg.Attempts-1, retry.NewExponential(200*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := t.send(ctx, msg)
		if err != nil && isTemporary(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// isTemporary treats network errors and 4xx SMTP replies as transient.
func isTemporary(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		return protoErr.Code >= 400 && protoErr.Code < 500
	}
	return false
}

func (t *SMTPTransport) sendOnce(ctx context.Context, msg Message) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.cfg.Addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, t.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: t.host, MinVersion: tls.VersionTLS12}); err != nil {
			return err
		}
	}
	if t.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.host)); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(t.cfg.From); err != nil {
		return err
	}
	if err := c.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(t.render(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (t *SMTPTransport) render(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", t.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
