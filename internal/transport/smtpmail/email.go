// Package smtpmail delivers email notifications over plain SMTP.
package smtpmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/bloomhaus/orderflow/internal/domain/notify"
)

var _ notify.EmailTransport = (*Transport)(nil)

// Config holds SMTP connection settings.
type Config struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

// Transport sends mail through a single SMTP endpoint. Each Send dials a
// fresh connection; the dispatcher's per-delivery timeout bounds the whole
// exchange via the context deadline.
type Transport struct {
	cfg Config
}

// New creates a Transport.
func New(cfg Config) *Transport {
	return &Transport{cfg: cfg}
}

// Send delivers one message to one address.
func (t *Transport) Send(ctx context.Context, address, subject, body string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, "dial smtp")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	host := t.cfg.Addr
	if h, _, splitErr := net.SplitHostPort(t.cfg.Addr); splitErr == nil {
		host = h
	}

	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(err, "smtp handshake")
	}
	defer c.Close()

	if t.cfg.Username != "" {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
				return errors.Wrap(err, "starttls")
			}
		}
		auth := smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, host)
		if err := c.Auth(auth); err != nil {
			return errors.Wrap(err, "smtp auth")
		}
	}

	if err := c.Mail(t.cfg.From); err != nil {
		return errors.Wrap(err, "mail from")
	}
	if err := c.Rcpt(address); err != nil {
		return errors.Wrap(err, "rcpt to")
	}

	w, err := c.Data()
	if err != nil {
		return errors.Wrap(err, "data")
	}
	if _, err := w.Write([]byte(formatMessage(t.cfg.From, address, subject, body))); err != nil {
		return errors.Wrap(err, "write message")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "close message")
	}

	return c.Quit()
}

func formatMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.String()
}
