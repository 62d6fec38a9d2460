package sqlite

import (
	"context"
	"strings"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/pkg/idx"
)

type modulesRepo struct {
	db dbtx
}

func scanModule(row rowScanner) (domain.Module, error) {
	var m domain.Module
	if err := row.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
		return domain.Module{}, err
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

func (r *modulesRepo) GetModuleByID(ctx context.Context, id string) (domain.Module, error) {
	m, err := scanModule(r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM modules WHERE id = ?`, id))
	if err != nil {
		return domain.Module{}, mapNotFound(err)
	}
	return m, nil
}

func (r *modulesRepo) GetModuleByName(ctx context.Context, name string) (domain.Module, error) {
	m, err := scanModule(r.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM modules WHERE name = ?`, strings.TrimSpace(name)))
	if err != nil {
		return domain.Module{}, mapNotFound(err)
	}
	return m, nil
}

func (r *modulesRepo) ListModules(ctx context.Context) ([]domain.Module, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM modules ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []domain.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (r *modulesRepo) EnsureModule(ctx context.Context, name string) (domain.Module, error) {
	name = strings.TrimSpace(name)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO modules (id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (name) DO NOTHING`,
		idx.New().String(), name, now(),
	)
	if err != nil {
		return domain.Module{}, mapWriteErr(err)
	}
	return r.GetModuleByName(ctx, name)
}
