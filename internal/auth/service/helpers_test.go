package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/seed"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/usermgmt/pkg/cryptox"
	"github.com/aussiebroadwan/usermgmt/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://auth.test"
	testAudience = "usermgmt"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// outbox records verification emails instead of sending them.
type outbox struct {
	mu   sync.Mutex
	sent []domain.VerificationEmail
	err  error
}

func (o *outbox) SendVerification(_ context.Context, msg domain.VerificationEmail) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return o.err
}

// lastToken returns the most recent token sent to email.
func (o *outbox) lastToken(t *testing.T, email string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].Email == email {
			return o.sent[i].Token
		}
	}
	t.Fatalf("no verification email sent to %s", email)
	return ""
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sent)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store       *sqlite.Store
	accounts    *AccountService
	permissions *PermissionService
	bootstrap   *BootstrapService
	codec       *jwtx.SessionCodec
	mail        *outbox
	clock       *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

// newFixtureWithStore seeds a fresh in-memory database. wrap, if set,
// decorates the store handed to the account service.
func newFixtureWithStore(t *testing.T, wrap func(store.Store) store.Store) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	cat, err := seed.Default()
	require.NoError(t, err)

	hasher := cryptox.NewPasswordHasher("test-pepper")
	codec, err := jwtx.NewSessionCodec(jwtx.CodecConfig{
		Key:      testKey,
		Issuer:   testIssuer,
		Audience: testAudience,
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	clk := &clock{now: time.Now().UTC().Truncate(time.Second)}
	mail := &outbox{}

	var accountStore store.Store = st
	if wrap != nil {
		accountStore = wrap(st)
	}

	f := &fixture{
		store: st,
		accounts: &AccountService{
			Store:    accountStore,
			Hasher:   hasher,
			Tokens:   codec,
			Notifier: mail,
			Activity: &ActivityLog{Store: st, Now: clk.Now},
			Now:      clk.Now,
		},
		permissions: &PermissionService{Store: st},
		bootstrap:   &BootstrapService{Store: st, Hasher: hasher, Catalog: cat},
		codec:       codec,
		mail:        mail,
		clock:       clk,
	}

	_, err = f.bootstrap.Seed(context.Background())
	require.NoError(t, err)
	return f
}

// registerVerified registers an account and verifies it, returning its id.
func (f *fixture) registerVerified(t *testing.T, email, role string) string {
	t.Helper()
	ctx := context.Background()

	view, err := f.accounts.Register(ctx, RegisterInput{
		Email:    email,
		Password: "Secret1",
		Name:     "Test",
		Role:     role,
	})
	require.NoError(t, err)

	_, err = f.accounts.VerifyEmail(ctx, email, f.mail.lastToken(t, email))
	require.NoError(t, err)
	return view.ID
}
