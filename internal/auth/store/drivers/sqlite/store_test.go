package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/usermgmt/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func newAccount(email string) domain.Account {
	return domain.Account{
		ID:           idx.New().String(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "argon2id$dummy",
	}
}

func TestApplyMigrationsIsRepeatable(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		s := newTestStore(t)

		role, err := s.Roles().EnsureRole(ctx, domain.RoleUser)
		require.NoError(t, err)

		hash := "fingerprint"
		exp := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
		a := newAccount("alice@example.com")
		a.RoleID = role.ID
		a.SetVerification(hash, exp)
		require.NoError(t, s.Accounts().CreateAccount(ctx, a))

		got, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", got.Email)
		require.Equal(t, role.ID, got.RoleID)
		require.Equal(t, int64(1), got.Version)
		require.False(t, got.EmailVerified)
		require.NotNil(t, got.VerificationTokenHash)
		require.Equal(t, hash, *got.VerificationTokenHash)
		require.NotNil(t, got.VerificationExpiresAt)
		require.True(t, exp.Equal(*got.VerificationExpiresAt))
	})

	t.Run("email is unique case-insensitively", func(t *testing.T) {
		s := newTestStore(t)

		require.NoError(t, s.Accounts().CreateAccount(ctx, newAccount("bob@example.com")))
		err := s.Accounts().CreateAccount(ctx, newAccount("BOB@Example.com"))
		require.ErrorIs(t, err, store.ErrAlreadyExists)

		got, err := s.Accounts().GetAccountByEmail(ctx, "Bob@EXAMPLE.com")
		require.NoError(t, err)
		require.Equal(t, "bob@example.com", got.Email)
	})

	t.Run("missing account is not found", func(t *testing.T) {
		s := newTestStore(t)

		_, err := s.Accounts().GetAccountByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Accounts().GetAccountByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("verified accounts cannot hold a token", func(t *testing.T) {
		s := newTestStore(t)

		a := newAccount("carol@example.com")
		a.SetVerification("fingerprint", time.Now().Add(time.Hour))
		a.EmailVerified = true
		require.Error(t, s.Accounts().CreateAccount(ctx, a))
	})

	t.Run("token and expiry are set together", func(t *testing.T) {
		s := newTestStore(t)

		hash := "fingerprint"
		a := newAccount("dave@example.com")
		a.VerificationTokenHash = &hash
		require.Error(t, s.Accounts().CreateAccount(ctx, a))
	})

	t.Run("update bumps version", func(t *testing.T) {
		s := newTestStore(t)

		a := newAccount("erin@example.com")
		require.NoError(t, s.Accounts().CreateAccount(ctx, a))

		a, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)

		a.Name = "Erin"
		version, err := s.Accounts().UpdateAccount(ctx, a)
		require.NoError(t, err)
		require.Equal(t, int64(2), version)

		got, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		require.Equal(t, "Erin", got.Name)
		require.Equal(t, int64(2), got.Version)
	})

	t.Run("stale update conflicts", func(t *testing.T) {
		s := newTestStore(t)

		a := newAccount("frank@example.com")
		require.NoError(t, s.Accounts().CreateAccount(ctx, a))
		a, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)

		first := a
		first.Name = "First"
		_, err = s.Accounts().UpdateAccount(ctx, first)
		require.NoError(t, err)

		second := a
		second.Name = "Second"
		_, err = s.Accounts().UpdateAccount(ctx, second)
		require.ErrorIs(t, err, store.ErrConflict)
	})

	t.Run("update to a taken email", func(t *testing.T) {
		s := newTestStore(t)

		require.NoError(t, s.Accounts().CreateAccount(ctx, newAccount("gina@example.com")))
		a := newAccount("hank@example.com")
		require.NoError(t, s.Accounts().CreateAccount(ctx, a))
		a, err := s.Accounts().GetAccountByID(ctx, a.ID)
		require.NoError(t, err)

		a.Email = "GINA@example.com"
		_, err = s.Accounts().UpdateAccount(ctx, a)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("delete", func(t *testing.T) {
		s := newTestStore(t)

		a := newAccount("ivy@example.com")
		require.NoError(t, s.Accounts().CreateAccount(ctx, a))

		require.NoError(t, s.Accounts().DeleteAccount(ctx, a.ID))
		require.ErrorIs(t, s.Accounts().DeleteAccount(ctx, a.ID), store.ErrNotFound)

		n, err := s.Accounts().CountAccounts(ctx)
		require.NoError(t, err)
		require.Zero(t, n)
	})
}

func TestRolesAndModules(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.Roles().EnsureRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	again, err := s.Roles().EnsureRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	roles, err := s.Roles().ListRoles(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)

	m, err := s.Modules().EnsureModule(ctx, domain.ModuleReports)
	require.NoError(t, err)

	byName, err := s.Modules().GetModuleByName(ctx, "reports")
	require.NoError(t, err)
	require.Equal(t, m.ID, byName.ID)

	_, err = s.Modules().GetModuleByName(ctx, "Billing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRolePermissions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	role, err := s.Roles().EnsureRole(ctx, domain.RoleManager)
	require.NoError(t, err)
	mod, err := s.Modules().EnsureModule(ctx, domain.ModuleAssetManagement)
	require.NoError(t, err)

	cell := domain.RolePermission{
		RoleID:   role.ID,
		ModuleID: mod.ID,
		Grants:   domain.Grants{Create: true, Read: true, Update: true},
	}

	t.Run("create if absent only inserts once", func(t *testing.T) {
		inserted, err := s.RolePermissions().CreateRolePermissionIfAbsent(ctx, cell)
		require.NoError(t, err)
		require.True(t, inserted)

		other := cell
		other.Grants = domain.Grants{}
		inserted, err = s.RolePermissions().CreateRolePermissionIfAbsent(ctx, other)
		require.NoError(t, err)
		require.False(t, inserted)

		got, err := s.RolePermissions().GetRolePermission(ctx, role.ID, mod.ID)
		require.NoError(t, err)
		require.Equal(t, cell.Grants, got.Grants)
	})

	t.Run("upsert replaces all flags without duplicating", func(t *testing.T) {
		replaced := cell
		replaced.Grants = domain.Grants{Delete: true}

		for range 2 {
			got, err := s.RolePermissions().UpsertRolePermission(ctx, replaced)
			require.NoError(t, err)
			require.Equal(t, domain.Grants{Delete: true}, got.Grants)
		}

		n, err := s.RolePermissions().CountRolePermissions(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("entries are flattened with names", func(t *testing.T) {
		entries, err := s.RolePermissions().ListPermissionEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, domain.RoleManager, entries[0].Role)
		require.Equal(t, domain.ModuleAssetManagement, entries[0].Module)
		require.True(t, entries[0].Delete)
	})

	t.Run("missing cell is not found", func(t *testing.T) {
		_, err := s.RolePermissions().GetRolePermission(ctx, role.ID, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestActivitiesOutliveAccount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := newAccount("jack@example.com")
	require.NoError(t, s.Accounts().CreateAccount(ctx, a))

	base := time.Now().UTC()
	require.NoError(t, s.Activities().AppendActivity(ctx, domain.ActivityRecord{
		AccountID: a.ID, Activity: domain.ActivityRegistered, CreatedAt: base,
	}))
	require.NoError(t, s.Activities().AppendActivity(ctx, domain.ActivityRecord{
		AccountID: a.ID, Activity: domain.ActivityDeleted, CreatedAt: base.Add(time.Second),
	}))
	require.NoError(t, s.Accounts().DeleteAccount(ctx, a.ID))

	records, err := s.Activities().ListActivitiesByAccount(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, domain.ActivityRegistered, records[0].Activity)
	require.Equal(t, domain.ActivityDeleted, records[1].Activity)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := newAccount("kate@example.com")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		require.NoError(t, tx.Accounts().CreateAccount(ctx, a))
		return store.ErrConflict
	})
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = s.Accounts().GetAccountByID(ctx, a.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
