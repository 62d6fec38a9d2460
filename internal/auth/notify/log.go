package notify

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
)

// LogNotifier writes verification emails to the logger instead of sending
// them. Development only: the token appears in the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) SendVerification(ctx context.Context, msg domain.VerificationEmail) error {
	m, err := RenderVerification(msg)
	if err != nil {
		return err
	}

	n.Logger.InfoContext(ctx, "verification email",
		slog.String("to", m.To),
		slog.String("subject", m.Subject),
		slog.String("token", msg.Token),
	)
	return nil
}
