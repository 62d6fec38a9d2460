package sqlite

import (
	"context"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/pkg/idx"
)

type rolesRepo struct {
	db dbtx
}

func scanRole(row rowScanner) (domain.Role, error) {
	var (
		role domain.Role
		name string
	)
	if err := row.Scan(&role.ID, &name, &role.CreatedAt); err != nil {
		return domain.Role{}, err
	}
	role.Name = domain.RoleName(name)
	role.CreatedAt = role.CreatedAt.UTC()
	return role, nil
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM roles WHERE id = ?`, id))
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) GetRoleByName(ctx context.Context, name domain.RoleName) (domain.Role, error) {
	role, err := scanRole(r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM roles WHERE name = ?`, string(name)))
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	return role, nil
}

func (r *rolesRepo) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) EnsureRole(ctx context.Context, name domain.RoleName) (domain.Role, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		idx.New().String(), string(name), now(),
	)
	if err != nil {
		return domain.Role{}, mapWriteErr(err)
	}
	return r.GetRoleByName(ctx, name)
}
