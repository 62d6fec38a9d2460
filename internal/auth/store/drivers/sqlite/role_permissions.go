package sqlite

import (
	"context"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/pkg/idx"
)

type rolePermissionsRepo struct {
	db dbtx
}

func scanRolePermission(row rowScanner) (domain.RolePermission, error) {
	var p domain.RolePermission
	err := row.Scan(
		&p.ID,
		&p.RoleID,
		&p.ModuleID,
		&p.Create,
		&p.Read,
		&p.Update,
		&p.Delete,
		&p.UpdatedAt,
	)
	if err != nil {
		return domain.RolePermission{}, err
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func (r *rolePermissionsRepo) GetRolePermission(ctx context.Context, roleID, moduleID string) (domain.RolePermission, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, role_id, module_id, can_create, can_read, can_update, can_delete, updated_at
		FROM role_permissions
		WHERE role_id = ? AND module_id = ?`,
		roleID, moduleID,
	)

	p, err := scanRolePermission(row)
	if err != nil {
		return domain.RolePermission{}, mapNotFound(err)
	}
	return p, nil
}

func (r *rolePermissionsRepo) UpsertRolePermission(ctx context.Context, p domain.RolePermission) (domain.RolePermission, error) {
	if p.ID == "" {
		p.ID = idx.New().String()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO role_permissions (
			id, role_id, module_id, can_create, can_read, can_update, can_delete, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (role_id, module_id) DO UPDATE SET
			can_create = excluded.can_create,
			can_read   = excluded.can_read,
			can_update = excluded.can_update,
			can_delete = excluded.can_delete,
			updated_at = excluded.updated_at`,
		p.ID,
		p.RoleID,
		p.ModuleID,
		boolToInt(p.Create),
		boolToInt(p.Read),
		boolToInt(p.Update),
		boolToInt(p.Delete),
		now(),
	)
	if err != nil {
		return domain.RolePermission{}, mapWriteErr(err)
	}
	return r.GetRolePermission(ctx, p.RoleID, p.ModuleID)
}

func (r *rolePermissionsRepo) CreateRolePermissionIfAbsent(ctx context.Context, p domain.RolePermission) (bool, error) {
	if p.ID == "" {
		p.ID = idx.New().String()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO role_permissions (
			id, role_id, module_id, can_create, can_read, can_update, can_delete, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (role_id, module_id) DO NOTHING`,
		p.ID,
		p.RoleID,
		p.ModuleID,
		boolToInt(p.Create),
		boolToInt(p.Read),
		boolToInt(p.Update),
		boolToInt(p.Delete),
		now(),
	)
	if err != nil {
		return false, mapWriteErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *rolePermissionsRepo) ListPermissionEntries(ctx context.Context) ([]domain.PermissionEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.name, m.name, rp.can_create, rp.can_read, rp.can_update, rp.can_delete
		FROM role_permissions rp
		JOIN roles r ON r.id = rp.role_id
		JOIN modules m ON m.id = rp.module_id
		ORDER BY r.name, m.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.PermissionEntry
	for rows.Next() {
		var (
			e    domain.PermissionEntry
			role string
		)
		if err := rows.Scan(&role, &e.Module, &e.Create, &e.Read, &e.Update, &e.Delete); err != nil {
			return nil, err
		}
		e.Role = domain.RoleName(role)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *rolePermissionsRepo) CountRolePermissions(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM role_permissions`).Scan(&n)
	return n, err
}
