package sqlite

import (
	"context"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/pkg/idx"
)

type activitiesRepo struct {
	db dbtx
}

func (r *activitiesRepo) AppendActivity(ctx context.Context, rec domain.ActivityRecord) error {
	if rec.ID == "" {
		rec.ID = idx.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, account_id, activity, created_at) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.AccountID, rec.Activity, rec.CreatedAt.UTC(),
	)
	return mapWriteErr(err)
}

func (r *activitiesRepo) ListActivitiesByAccount(ctx context.Context, accountID string) ([]domain.ActivityRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, activity, created_at
		FROM activity_log
		WHERE account_id = ?
		ORDER BY created_at, id`,
		accountID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.ActivityRecord
	for rows.Next() {
		var rec domain.ActivityRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.Activity, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, rec)
	}
	return records, rows.Err()
}
