package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
	"github.com/aussiebroadwan/usermgmt/pkg/slogx"
)

// PermissionService evaluates and administers the role x module matrix.
type PermissionService struct {
	Store store.Store
}

// HasPermission reports whether the account's role grants action on the
// named module. Anything unknown or missing denies; only persistence
// failures are returned as errors.
func (s *PermissionService) HasPermission(ctx context.Context, accountID, moduleName, action string) (bool, error) {
	act, ok := domain.ParseAction(action)
	if !ok {
		return false, nil
	}

	acct, err := s.Store.Accounts().GetAccountByID(ctx, accountID)
	if err != nil {
		return denyNotFound(err)
	}
	if acct.RoleID == "" {
		return false, nil
	}

	mod, err := s.Store.Modules().GetModuleByName(ctx, moduleName)
	if err != nil {
		return denyNotFound(err)
	}

	cell, err := s.Store.RolePermissions().GetRolePermission(ctx, acct.RoleID, mod.ID)
	if err != nil {
		return denyNotFound(err)
	}

	return cell.Allows(act), nil
}

func denyNotFound(err error) (bool, error) {
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// ListAllPermissions flattens the matrix ordered by role then module.
func (s *PermissionService) ListAllPermissions(ctx context.Context) ([]domain.PermissionEntry, error) {
	return s.Store.RolePermissions().ListPermissionEntries(ctx)
}

// SetPermission creates the (role, module) cell or replaces all four of its
// flags. Applying the same grants twice leaves the matrix unchanged.
func (s *PermissionService) SetPermission(
	ctx context.Context,
	roleName, moduleName string,
	grants domain.Grants,
) (domain.PermissionEntry, error) {
	rn, ok := domain.ParseRoleName(roleName)
	if !ok {
		return domain.PermissionEntry{}, ErrUnknownRole
	}

	var entry domain.PermissionEntry
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		role, err := tx.Roles().GetRoleByName(ctx, rn)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownRole
			}
			return err
		}

		mod, err := tx.Modules().GetModuleByName(ctx, moduleName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnknownModule
			}
			return err
		}

		stored, err := tx.RolePermissions().UpsertRolePermission(ctx, domain.RolePermission{
			RoleID:   role.ID,
			ModuleID: mod.ID,
			Grants:   grants,
		})
		if err != nil {
			return err
		}

		entry = domain.PermissionEntry{Role: role.Name, Module: mod.Name, Grants: stored.Grants}
		return nil
	})
	if err != nil {
		return domain.PermissionEntry{}, err
	}

	slogx.FromContext(ctx).Info("permission set",
		slog.String("role", string(entry.Role)),
		slog.String("module", entry.Module),
		slog.Bool("create", entry.Create),
		slog.Bool("read", entry.Read),
		slog.Bool("update", entry.Update),
		slog.Bool("delete", entry.Delete),
	)
	return entry, nil
}
