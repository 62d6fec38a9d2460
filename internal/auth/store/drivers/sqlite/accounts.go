package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
)

type accountsRepo struct {
	db dbtx
}

const accountColumns = `id, email, name, password_hash, email_verified,
	verification_token_hash, verification_expires_at, role_id, version,
	created_at, updated_at`

func scanAccount(row rowScanner) (domain.Account, error) {
	var (
		a         domain.Account
		tokenHash sql.NullString
		expiresAt sql.NullTime
		roleID    sql.NullString
	)
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.PasswordHash,
		&a.EmailVerified,
		&tokenHash,
		&expiresAt,
		&roleID,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return domain.Account{}, err
	}

	a.VerificationTokenHash = mapNullStringPtr(tokenHash)
	a.VerificationExpiresAt = mapNullTimePtr(expiresAt)
	a.RoleID = mapNullString(roleID)
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)

	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, strings.TrimSpace(email))

	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *accountsRepo) CreateAccount(ctx context.Context, a domain.Account) error {
	ts := now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = ts
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (
			id, email, name, password_hash, email_verified,
			verification_token_hash, verification_expires_at, role_id,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		a.ID,
		a.Email,
		a.Name,
		a.PasswordHash,
		boolToInt(a.EmailVerified),
		mapOptionalString(a.VerificationTokenHash),
		mapOptionalTime(a.VerificationExpiresAt),
		mapStringNull(a.RoleID),
		a.CreatedAt.UTC(),
		ts,
	)
	return mapWriteErr(err)
}

func (r *accountsRepo) UpdateAccount(ctx context.Context, a domain.Account) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET
			email = ?,
			name = ?,
			password_hash = ?,
			email_verified = ?,
			verification_token_hash = ?,
			verification_expires_at = ?,
			role_id = ?,
			version = version + 1,
			updated_at = ?
		WHERE id = ? AND version = ?`,
		a.Email,
		a.Name,
		a.PasswordHash,
		boolToInt(a.EmailVerified),
		mapOptionalString(a.VerificationTokenHash),
		mapOptionalTime(a.VerificationExpiresAt),
		mapStringNull(a.RoleID),
		now(),
		a.ID,
		a.Version,
	)
	if err != nil {
		return 0, mapWriteErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: account %s at version %d", store.ErrConflict, a.ID, a.Version)
	}
	return a.Version + 1, nil
}

func (r *accountsRepo) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *accountsRepo) CountAccounts(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n)
	return n, err
}
