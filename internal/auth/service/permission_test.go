package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestHasPermissionDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ids := map[string]string{
		"Manager": f.registerVerified(t, "mgr@x.com", "Manager"),
		"User":    f.registerVerified(t, "usr@x.com", "User"),
	}
	admin, err := f.store.Accounts().GetAccountByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	ids["Admin"] = admin.ID

	want := map[string]map[domain.Action]bool{
		"Admin":   {domain.ActionCreate: true, domain.ActionRead: true, domain.ActionUpdate: true, domain.ActionDelete: true},
		"Manager": {domain.ActionCreate: true, domain.ActionRead: true, domain.ActionUpdate: true, domain.ActionDelete: false},
		"User":    {domain.ActionCreate: false, domain.ActionRead: true, domain.ActionUpdate: false, domain.ActionDelete: false},
	}

	modules := []string{domain.ModuleUserManagement, domain.ModuleAssetManagement, domain.ModuleReports}
	for role, actions := range want {
		for _, mod := range modules {
			for act, allowed := range actions {
				got, err := f.permissions.HasPermission(ctx, ids[role], mod, string(act))
				require.NoError(t, err)
				require.Equal(t, allowed, got, "%s %s %s", role, mod, act)
			}
		}
	}
}

func TestHasPermissionDenies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.registerVerified(t, "deny@x.com", "User")

	// A module nobody has been granted anything on yet.
	_, err := f.store.Modules().EnsureModule(ctx, "Payroll")
	require.NoError(t, err)

	// An account whose role was taken away.
	roleless := f.registerVerified(t, "roleless@x.com", "Admin")
	acct, err := f.store.Accounts().GetAccountByID(ctx, roleless)
	require.NoError(t, err)
	acct.RoleID = ""
	_, err = f.store.Accounts().UpdateAccount(ctx, acct)
	require.NoError(t, err)

	tests := []struct {
		name      string
		accountID string
		module    string
		action    string
	}{
		{"unknown action", id, domain.ModuleReports, "approve"},
		{"empty action", id, domain.ModuleReports, ""},
		{"unknown module", id, "Inventory", "read"},
		{"module without a cell", id, "Payroll", "read"},
		{"unknown account", "missing", domain.ModuleReports, "read"},
		{"account without a role", roleless, domain.ModuleUserManagement, "read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.permissions.HasPermission(ctx, tt.accountID, tt.module, tt.action)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestHasPermissionCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.registerVerified(t, "case@x.com", "User")

	for _, action := range []string{"read", "READ", "Read", " rEaD "} {
		ok, err := f.permissions.HasPermission(ctx, id, domain.ModuleReports, action)
		require.NoError(t, err)
		require.True(t, ok, action)
	}

	ok, err := f.permissions.HasPermission(ctx, id, "reports", "read")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSetPermission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.registerVerified(t, "m2@x.com", "Manager")

	ok, err := f.permissions.HasPermission(ctx, mgr, domain.ModuleReports, "delete")
	require.NoError(t, err)
	require.False(t, ok)

	before, err := f.permissions.ListAllPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, before, 9)

	grants := domain.Grants{Create: false, Read: true, Update: false, Delete: true}
	entry, err := f.permissions.SetPermission(ctx, "Manager", domain.ModuleReports, grants)
	require.NoError(t, err)
	require.Equal(t, domain.RoleManager, entry.Role)
	require.Equal(t, domain.ModuleReports, entry.Module)
	require.Equal(t, grants, entry.Grants)

	ok, err = f.permissions.HasPermission(ctx, mgr, domain.ModuleReports, "delete")
	require.NoError(t, err)
	require.True(t, ok)

	// Full replace: flags not supplied as true are cleared.
	ok, err = f.permissions.HasPermission(ctx, mgr, domain.ModuleReports, "create")
	require.NoError(t, err)
	require.False(t, ok)

	// Other modules keep their defaults.
	ok, err = f.permissions.HasPermission(ctx, mgr, domain.ModuleAssetManagement, "delete")
	require.NoError(t, err)
	require.False(t, ok)

	// Applying the same grants again changes nothing.
	_, err = f.permissions.SetPermission(ctx, "manager", "reports", grants)
	require.NoError(t, err)

	after, err := f.permissions.ListAllPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, after, 9)

	n, err := f.store.RolePermissions().CountRolePermissions(ctx)
	require.NoError(t, err)
	require.Equal(t, 9, n)

	for _, e := range after {
		if e.Role == domain.RoleManager && e.Module == domain.ModuleReports {
			require.Equal(t, grants, e.Grants)
		}
	}
}

func TestSetPermissionUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.permissions.SetPermission(ctx, "Owner", domain.ModuleReports, domain.Grants{Read: true})
	require.ErrorIs(t, err, ErrUnknownRole)

	_, err = f.permissions.SetPermission(ctx, "Admin", "Payroll", domain.Grants{Read: true})
	require.ErrorIs(t, err, ErrUnknownModule)

	n, err := f.store.RolePermissions().CountRolePermissions(ctx)
	require.NoError(t, err)
	require.Equal(t, 9, n)
}

func TestListAllPermissionsOrder(t *testing.T) {
	f := newFixture(t)

	entries, err := f.permissions.ListAllPermissions(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 9)

	require.Equal(t, domain.RoleAdmin, entries[0].Role)
	require.Equal(t, domain.ModuleAssetManagement, entries[0].Module)
	require.Equal(t, domain.RoleUser, entries[8].Role)
	require.Equal(t, domain.ModuleUserManagement, entries[8].Module)
}
