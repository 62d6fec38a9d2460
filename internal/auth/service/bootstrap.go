package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
	"github.com/aussiebroadwan/usermgmt/pkg/cryptox"
	"github.com/aussiebroadwan/usermgmt/pkg/idx"
	"github.com/aussiebroadwan/usermgmt/pkg/slogx"
)

var ErrBootstrapFailedToCreateAdmin = errors.New("failed to create admin account")

// BootstrapService makes sure the module catalog, the grantable roles, the
// default permission matrix and the admin account exist. Safe to run on
// every start: existing rows are never modified.
type BootstrapService struct {
	Store   store.Store
	Hasher  *cryptox.PasswordHasher
	Catalog domain.SeedCatalog
}

// SeedResult counts what a Seed run created.
type SeedResult struct {
	Cells        int
	AdminCreated bool
	AdminID      string
}

func (s *BootstrapService) Seed(ctx context.Context) (SeedResult, error) {
	l := slogx.FromContext(ctx)
	var res SeedResult

	// Hash outside the transaction; it is slow and only needed once.
	var adminHash, generated string
	_, err := s.Store.Accounts().GetAccountByEmail(ctx, s.Catalog.Admin.Email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		password := s.Catalog.Admin.Password
		if password == "" {
			if password, err = cryptox.GeneratePassword(); err != nil {
				return res, err
			}
			generated = password
		}
		if adminHash, err = s.Hasher.Hash(password); err != nil {
			l.Error("failed to hash admin password", slog.Any("error", err))
			return res, ErrBootstrapFailedToCreateAdmin
		}
	case err != nil:
		return res, err
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		res = SeedResult{}

		modules := make([]domain.Module, 0, len(s.Catalog.Modules))
		for _, name := range s.Catalog.Modules {
			m, err := tx.Modules().EnsureModule(ctx, name)
			if err != nil {
				l.Error("failed to ensure module", slog.String("module", name), slog.Any("error", err))
				return err
			}
			modules = append(modules, m)
		}

		roles := make(map[domain.RoleName]domain.Role, len(domain.RoleNames))
		for _, name := range domain.RoleNames {
			r, err := tx.Roles().EnsureRole(ctx, name)
			if err != nil {
				l.Error("failed to ensure role", slog.String("role", string(name)), slog.Any("error", err))
				return err
			}
			roles[name] = r
		}

		for _, def := range s.Catalog.Defaults {
			role, ok := roles[def.Role]
			if !ok {
				continue
			}
			for _, m := range modules {
				created, err := tx.RolePermissions().CreateRolePermissionIfAbsent(ctx, domain.RolePermission{
					RoleID:   role.ID,
					ModuleID: m.ID,
					Grants:   def.Grants,
				})
				if err != nil {
					return err
				}
				if created {
					res.Cells++
				}
			}
		}

		if adminHash == "" {
			return nil
		}

		admin := domain.Account{
			ID:            idx.New().String(),
			Email:         s.Catalog.Admin.Email,
			Name:          s.Catalog.Admin.Name,
			PasswordHash:  adminHash,
			EmailVerified: true,
			RoleID:        roles[domain.RoleAdmin].ID,
		}
		if err := tx.Accounts().CreateAccount(ctx, admin); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				// Created concurrently by another instance.
				return nil
			}
			l.Error("failed to create admin account", slog.Any("error", err))
			return ErrBootstrapFailedToCreateAdmin
		}
		res.AdminCreated = true
		res.AdminID = admin.ID
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	if res.AdminCreated {
		l.Info("admin account created",
			slog.String("account_id", res.AdminID),
			slog.String("email", s.Catalog.Admin.Email),
		)
		if generated != "" {
			l.Warn("generated admin password, change it after first login",
				slog.String("email", s.Catalog.Admin.Email),
				slog.String("password", generated),
			)
		}
	}
	l.Info("bootstrap seeding complete",
		slog.Int("modules", len(s.Catalog.Modules)),
		slog.Int("cells_created", res.Cells),
	)
	return res, nil
}
