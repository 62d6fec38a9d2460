package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
)

// SMTPNotifier sends verification emails through an SMTP relay. STARTTLS is
// used when the server offers it.
type SMTPNotifier struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (n *SMTPNotifier) SendVerification(ctx context.Context, msg domain.VerificationEmail) error {
	if n.Host == "" || n.From == "" {
		return ErrNotConfigured
	}

	m, err := RenderVerification(msg)
	if err != nil {
		return err
	}
	return n.send(ctx, m)
}

func (n *SMTPNotifier) send(ctx context.Context, m Message) error {
	addr := net.JoinHostPort(n.Host, strconv.Itoa(n.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("notify: smtp dial: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("notify: smtp handshake: %w", err)
	}
	defer func() { _ = c.Close() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.Host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("notify: smtp starttls: %w", err)
		}
	}
	if n.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", n.Username, n.Password, n.Host)); err != nil {
			return fmt.Errorf("notify: smtp auth: %w", err)
		}
	}

	if err := c.Mail(n.From); err != nil {
		return fmt.Errorf("notify: smtp mail from: %w", err)
	}
	if err := c.Rcpt(m.To); err != nil {
		return fmt.Errorf("notify: smtp rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("notify: smtp data: %w", err)
	}
	if _, err := w.Write(formatMessage(n.From, m, time.Now())); err != nil {
		_ = w.Close()
		return fmt.Errorf("notify: smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("notify: smtp data close: %w", err)
	}
	return c.Quit()
}

func formatMessage(from string, m Message, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(b.String())
}
