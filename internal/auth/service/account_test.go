package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

// requireInvariant checks that verified accounts hold no token and that
// token and expiry are set together.
func requireInvariant(t *testing.T, f *fixture) {
	t.Helper()
	accounts, err := f.store.Accounts().ListAccounts(context.Background())
	require.NoError(t, err)
	for _, a := range accounts {
		require.Equal(t, a.VerificationTokenHash == nil, a.VerificationExpiresAt == nil, a.Email)
		if a.EmailVerified {
			require.Nil(t, a.VerificationTokenHash, a.Email)
			require.Nil(t, a.VerificationExpiresAt, a.Email)
		}
	}
}

func TestRegisterLoginVerify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.accounts.Register(ctx, RegisterInput{
		Email:    "a@x.com",
		Password: "Secret1",
		Name:     "Ann",
		Role:     "User",
	})
	require.NoError(t, err)
	require.False(t, view.EmailVerified)
	require.Equal(t, domain.RoleUser, view.Role)
	require.Equal(t, 1, f.mail.count())
	requireInvariant(t, f)

	_, err = f.accounts.Login(ctx, "a@x.com", "Secret1")
	require.ErrorIs(t, err, ErrEmailNotVerified)

	sess, err := f.accounts.VerifyEmail(ctx, "a@x.com", f.mail.lastToken(t, "a@x.com"))
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	require.True(t, sess.Account.EmailVerified)
	requireInvariant(t, f)

	claims, err := f.codec.Verify(sess.Token)
	require.NoError(t, err)
	require.Equal(t, view.ID, claims.Subject)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "Ann", claims.Name)
	require.Equal(t, "User", claims.Role)

	sess, err = f.accounts.Login(ctx, "A@X.com", "Secret1")
	require.NoError(t, err)
	require.Equal(t, view.ID, sess.Account.ID)

	records, err := f.accounts.ListActivity(ctx, view.ID)
	require.NoError(t, err)
	labels := make([]string, 0, len(records))
	for _, r := range records {
		labels = append(labels, r.Activity)
	}
	require.Equal(t, []string{
		domain.ActivityRegistered,
		domain.ActivityEmailVerified,
		domain.ActivityLoggedIn,
	}, labels)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.accounts.Register(ctx, RegisterInput{Email: "b@x.com", Password: "Secret1", Name: "Bea", Role: "User"})
	require.NoError(t, err)

	for _, in := range []RegisterInput{
		{Email: "b@x.com", Password: "Secret1", Name: "Bea", Role: "User"},
		{Email: "B@X.COM", Password: "Other22a", Name: "Bob", Role: "Manager"},
		{Email: "b@x.com", Password: "weak", Name: "", Role: "Owner"},
	} {
		_, err = f.accounts.Register(ctx, in)
		require.ErrorIs(t, err, ErrDuplicateEmail)
	}

	n, err := f.store.Accounts().CountAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n) // seeded admin + b@x.com
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"bad email", RegisterInput{Email: "not-an-email", Password: "Secret1", Name: "N"}, "email"},
		{"short password", RegisterInput{Email: "c1@x.com", Password: "Se1", Name: "N"}, "password"},
		{"no digit", RegisterInput{Email: "c2@x.com", Password: "Secrets", Name: "N"}, "password"},
		{"no upper", RegisterInput{Email: "c3@x.com", Password: "secret1", Name: "N"}, "password"},
		{"no lower", RegisterInput{Email: "c4@x.com", Password: "SECRET1", Name: "N"}, "password"},
		{"missing name", RegisterInput{Email: "c5@x.com", Password: "Secret1"}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.accounts.Register(ctx, tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, tt.field)
		})
	}

	t.Run("unknown role", func(t *testing.T) {
		_, err := f.accounts.Register(ctx, RegisterInput{Email: "c6@x.com", Password: "Secret1", Name: "N", Role: "Owner"})
		require.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("role is case-insensitive and defaults to User", func(t *testing.T) {
		v, err := f.accounts.Register(ctx, RegisterInput{Email: "c7@x.com", Password: "Secret1", Name: "N", Role: "manager"})
		require.NoError(t, err)
		require.Equal(t, domain.RoleManager, v.Role)

		v, err = f.accounts.Register(ctx, RegisterInput{Email: "c8@x.com", Password: "Secret1", Name: "N"})
		require.NoError(t, err)
		require.Equal(t, domain.RoleUser, v.Role)
	})
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newFixture(t)
	f.mail.err = errors.New("smtp down")

	view, err := f.accounts.Register(context.Background(), RegisterInput{
		Email: "d@x.com", Password: "Secret1", Name: "Dee",
	})
	require.NoError(t, err)

	_, err = f.accounts.GetAccount(context.Background(), view.ID)
	require.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerVerified(t, "e@x.com", "User")

	_, err := f.accounts.Login(ctx, "e@x.com", "Wrong12")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.accounts.Login(ctx, "nobody@x.com", "Secret1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// The verification state is not disclosed without the right password.
	_, err = f.accounts.Register(ctx, RegisterInput{Email: "e2@x.com", Password: "Secret1", Name: "E"})
	require.NoError(t, err)
	_, err = f.accounts.Login(ctx, "e2@x.com", "Wrong12")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSeededAdminCanLogIn(t *testing.T) {
	f := newFixture(t)

	sess, err := f.accounts.Login(context.Background(), "admin@example.com", "Admin123!")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, sess.Account.Role)
	require.Equal(t, "Admin User", sess.Account.Name)
}

func TestVerifyEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds exactly once", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.accounts.Register(ctx, RegisterInput{Email: "f@x.com", Password: "Secret1", Name: "F"})
		require.NoError(t, err)
		token := f.mail.lastToken(t, "f@x.com")

		_, err = f.accounts.VerifyEmail(ctx, "f@x.com", token)
		require.NoError(t, err)

		_, err = f.accounts.VerifyEmail(ctx, "f@x.com", token)
		require.ErrorIs(t, err, ErrAlreadyVerified)
		requireInvariant(t, f)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.accounts.Register(ctx, RegisterInput{Email: "g@x.com", Password: "Secret1", Name: "G"})
		require.NoError(t, err)
		token := f.mail.lastToken(t, "g@x.com")

		f.clock.Advance(24*time.Hour + time.Second)

		_, err = f.accounts.VerifyEmail(ctx, "g@x.com", token)
		require.ErrorIs(t, err, ErrInvalidOrExpiredToken)

		a, err := f.store.Accounts().GetAccountByEmail(ctx, "g@x.com")
		require.NoError(t, err)
		require.False(t, a.EmailVerified)
	})

	t.Run("token valid up to expiry", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.accounts.Register(ctx, RegisterInput{Email: "h@x.com", Password: "Secret1", Name: "H"})
		require.NoError(t, err)

		f.clock.Advance(24 * time.Hour)

		_, err = f.accounts.VerifyEmail(ctx, "h@x.com", f.mail.lastToken(t, "h@x.com"))
		require.NoError(t, err)
	})

	t.Run("wrong token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.accounts.Register(ctx, RegisterInput{Email: "i@x.com", Password: "Secret1", Name: "I"})
		require.NoError(t, err)

		_, err = f.accounts.VerifyEmail(ctx, "i@x.com", "not-the-token")
		require.ErrorIs(t, err, ErrInvalidOrExpiredToken)

		_, err = f.accounts.VerifyEmail(ctx, "i@x.com", "")
		require.ErrorIs(t, err, ErrInvalidOrExpiredToken)
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.accounts.VerifyEmail(ctx, "nobody@x.com", "token")
		require.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("name only keeps verification", func(t *testing.T) {
		f := newFixture(t)
		id := f.registerVerified(t, "j@x.com", "User")
		sent := f.mail.count()

		view, err := f.accounts.UpdateProfile(ctx, id, ProfileUpdate{Name: ptr("Jay")})
		require.NoError(t, err)
		require.Equal(t, "Jay", view.Name)
		require.True(t, view.EmailVerified)
		require.Equal(t, sent, f.mail.count())
	})

	t.Run("email change requires verification again", func(t *testing.T) {
		f := newFixture(t)
		id := f.registerVerified(t, "k@x.com", "User")

		view, err := f.accounts.UpdateProfile(ctx, id, ProfileUpdate{Email: ptr(" K2@X.com ")})
		require.NoError(t, err)
		require.Equal(t, "k2@x.com", view.Email)
		require.False(t, view.EmailVerified)
		requireInvariant(t, f)

		_, err = f.accounts.Login(ctx, "k2@x.com", "Secret1")
		require.ErrorIs(t, err, ErrEmailNotVerified)

		_, err = f.accounts.VerifyEmail(ctx, "k2@x.com", f.mail.lastToken(t, "k2@x.com"))
		require.NoError(t, err)
	})

	t.Run("blank fields are ignored", func(t *testing.T) {
		f := newFixture(t)
		id := f.registerVerified(t, "l@x.com", "User")

		view, err := f.accounts.UpdateProfile(ctx, id, ProfileUpdate{Name: ptr("  "), Email: ptr("")})
		require.NoError(t, err)
		require.Equal(t, "l@x.com", view.Email)
		require.Equal(t, "Test", view.Name)
	})

	t.Run("taken email", func(t *testing.T) {
		f := newFixture(t)
		id := f.registerVerified(t, "m@x.com", "User")
		f.registerVerified(t, "n@x.com", "User")

		_, err := f.accounts.UpdateProfile(ctx, id, ProfileUpdate{Email: ptr("N@x.com")})
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("invalid email", func(t *testing.T) {
		f := newFixture(t)
		id := f.registerVerified(t, "o@x.com", "User")

		_, err := f.accounts.UpdateProfile(ctx, id, ProfileUpdate{Email: ptr("nope")})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Contains(t, verr.Fields, "email")
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.accounts.UpdateProfile(ctx, "missing", ProfileUpdate{Name: ptr("X")})
		require.ErrorIs(t, err, ErrAccountNotFound)
	})
}

// conflictStore makes the next n account updates fail with store.ErrConflict
// and can pretend the account vanished once a conflict happened.
type conflictStore struct {
	store.Store
	conflicts  int
	vanish     bool
	conflicted bool
}

func (s *conflictStore) Accounts() store.Accounts {
	return &conflictAccounts{Accounts: s.Store.Accounts(), parent: s}
}

func (s *conflictStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&conflictTx{baseTx: tx, parent: s})
	})
}

// baseTx renames the embedded field so it does not shadow store.Tx's Tx method.
type baseTx interface{ store.Tx }

type conflictTx struct {
	baseTx
	parent *conflictStore
}

func (t *conflictTx) Accounts() store.Accounts {
	return &conflictAccounts{Accounts: t.baseTx.Accounts(), parent: t.parent}
}

type conflictAccounts struct {
	store.Accounts
	parent *conflictStore
}

func (a *conflictAccounts) UpdateAccount(ctx context.Context, acct domain.Account) (int64, error) {
	if a.parent.conflicts > 0 {
		a.parent.conflicts--
		a.parent.conflicted = true
		return 0, store.ErrConflict
	}
	return a.Accounts.UpdateAccount(ctx, acct)
}

func (a *conflictAccounts) GetAccountByID(ctx context.Context, id string) (domain.Account, error) {
	if a.parent.vanish && a.parent.conflicted {
		return domain.Account{}, store.ErrNotFound
	}
	return a.Accounts.GetAccountByID(ctx, id)
}

func TestUpdateProfileConflict(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, conflicts int, vanish bool) (*fixture, string) {
		cs := &conflictStore{}
		f := newFixtureWithStore(t, func(st store.Store) store.Store {
			cs.Store = st
			return cs
		})
		id := f.registerVerified(t, "p@x.com", "User")
		cs.conflicts = conflicts
		cs.vanish = vanish
		return f, id
	}

	t.Run("retried once", func(t *testing.T) {
		f, id := setup(t, 1, false)

		view, err := f.accounts.UpdateProfile(ctx, id, ProfileUpdate{Name: ptr("Pat")})
		require.NoError(t, err)
		require.Equal(t, "Pat", view.Name)
	})

	t.Run("vanished account is not found", func(t *testing.T) {
		f, id := setup(t, 1, true)

		_, err := f.accounts.UpdateProfile(ctx, id, ProfileUpdate{Name: ptr("Pat")})
		require.ErrorIs(t, err, ErrAccountNotFound)
	})

	t.Run("second conflict propagates", func(t *testing.T) {
		f, id := setup(t, 2, false)

		_, err := f.accounts.UpdateProfile(ctx, id, ProfileUpdate{Name: ptr("Pat")})
		require.ErrorIs(t, err, store.ErrConflict)
		require.NotErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestAssignRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.registerVerified(t, "q@x.com", "User")

	view, err := f.accounts.AssignRole(ctx, id, "manager")
	require.NoError(t, err)
	require.Equal(t, domain.RoleManager, view.Role)

	sess, err := f.accounts.Login(ctx, "q@x.com", "Secret1")
	require.NoError(t, err)
	require.Equal(t, domain.RoleManager, sess.Account.Role)

	_, err = f.accounts.AssignRole(ctx, id, "Owner")
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = f.accounts.AssignRole(ctx, "missing", "Admin")
	require.ErrorIs(t, err, ErrAccountNotFound)
}

func TestDeleteAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.registerVerified(t, "r@x.com", "User")

	before, err := f.store.Accounts().CountAccounts(ctx)
	require.NoError(t, err)

	require.ErrorIs(t, f.accounts.DeleteAccount(ctx, "does-not-exist"), ErrAccountNotFound)
	after, err := f.store.Accounts().CountAccounts(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)

	require.NoError(t, f.accounts.DeleteAccount(ctx, id))
	_, err = f.accounts.GetAccount(ctx, id)
	require.ErrorIs(t, err, ErrAccountNotFound)
	require.ErrorIs(t, f.accounts.DeleteAccount(ctx, id), ErrAccountNotFound)

	// The audit trail outlives the account.
	records, err := f.accounts.ListActivity(ctx, id)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	require.Equal(t, domain.ActivityDeleted, records[len(records)-1].Activity)
}

func TestListAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.registerVerified(t, "s@x.com", "Manager")

	views, err := f.accounts.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)

	roles := map[string]domain.RoleName{}
	for _, v := range views {
		roles[v.Email] = v.Role
	}
	require.Equal(t, domain.RoleAdmin, roles["admin@example.com"])
	require.Equal(t, domain.RoleManager, roles["s@x.com"])
}
