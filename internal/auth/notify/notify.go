// Package notify delivers verification emails. Transports are selected at
// startup: log (development), smtp, or amqp (queued, delivered by Worker).
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"text/template"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
)

const verificationSubject = "Verify your email"

var verificationBody = template.Must(template.New("verification").Parse(
	"Hi {{.Name}},\n\nYour verification token is: {{.Token}}\n",
))

var ErrNotConfigured = errors.New("notify: transport not configured")

// Sender delivers one verification email.
type Sender interface {
	SendVerification(ctx context.Context, msg domain.VerificationEmail) error
}

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// RenderVerification renders the verification email for msg.
func RenderVerification(msg domain.VerificationEmail) (Message, error) {
	var buf bytes.Buffer
	if err := verificationBody.Execute(&buf, msg); err != nil {
		return Message{}, fmt.Errorf("notify: render verification: %w", err)
	}
	return Message{
		To:      msg.Email,
		Subject: verificationSubject,
		Body:    buf.String(),
	}, nil
}
