package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
	"github.com/aussiebroadwan/usermgmt/pkg/slogx"
)

// ActivityLog appends audit records. Writes are best-effort: a failure is
// logged and never returned to the operation that triggered it.
type ActivityLog struct {
	Store store.Store
	Now   func() time.Time
}

// Append records label for accountID.
func (l *ActivityLog) Append(ctx context.Context, accountID, label string) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}

	err := l.Store.Activities().AppendActivity(ctx, domain.ActivityRecord{
		AccountID: accountID,
		Activity:  label,
		CreatedAt: now().UTC(),
	})
	if err != nil {
		slogx.FromContext(ctx).Warn("failed to append activity",
			slog.String("account_id", accountID),
			slog.String("activity", label),
			slog.Any("error", err),
		)
	}
}

// List returns the trail for accountID, oldest first.
func (l *ActivityLog) List(ctx context.Context, accountID string) ([]domain.ActivityRecord, error) {
	return l.Store.Activities().ListActivitiesByAccount(ctx, accountID)
}
