package http_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	authhttp "github.com/aussiebroadwan/usermgmt/internal/auth/http"

	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/internal/auth/seed"
	"github.com/aussiebroadwan/usermgmt/internal/auth/service"
	"github.com/aussiebroadwan/usermgmt/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
	"github.com/aussiebroadwan/usermgmt/pkg/cryptox"
	"github.com/aussiebroadwan/usermgmt/pkg/httpx"
	"github.com/aussiebroadwan/usermgmt/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "Admin123!"
)

// mailbox keeps the last verification token per address.
type mailbox struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *mailbox) SendVerification(_ context.Context, msg domain.VerificationEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[msg.Email] = msg.Token
	return nil
}

func (m *mailbox) token(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[email]
	require.True(t, ok, "no verification email for %s", email)
	return tok
}

// allowAll never limits.
type allowAll struct{}

func (allowAll) Allow(context.Context, string, httpx.RateLimitConfig) (httpx.Decision, error) {
	return httpx.Decision{Allowed: true, Remaining: 1}, nil
}

type testServer struct {
	URL    string
	mail   *mailbox
	client *authsdk.SDKClient
}

// newTestServer serves the real router over a seeded in-memory database.
// A nil limiter disables rate limiting.
func newTestServer(t *testing.T, limiter *httpx.RateLimiter) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	cat, err := seed.Default()
	require.NoError(t, err)

	hasher := cryptox.NewPasswordHasher("test-pepper")
	codec, err := jwtx.NewSessionCodec(jwtx.CodecConfig{
		Key:      []byte("0123456789abcdef0123456789abcdef"),
		Issuer:   "https://auth.test",
		Audience: "usermgmt",
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	boot := &service.BootstrapService{Store: st, Hasher: hasher, Catalog: cat}
	_, err = boot.Seed(context.Background())
	require.NoError(t, err)

	mail := &mailbox{tokens: map[string]string{}}
	if limiter == nil {
		limiter = httpx.NewRateLimiter(allowAll{})
	}

	logger := slog.New(slog.DiscardHandler)
	router := authhttp.NewRouter(codec, limiter, "test", st, logger)
	router.AccountService = &service.AccountService{
		Store:    st,
		Hasher:   hasher,
		Tokens:   codec,
		Notifier: mail,
		Activity: &service.ActivityLog{Store: st},
	}
	router.PermissionService = &service.PermissionService{Store: st}
	router.RequestTimeout = 5 * time.Second
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	client := authsdk.NewSDKClient(srv.URL)
	client.ValidateRequests = false

	return &testServer{URL: srv.URL, mail: mail, client: client}
}

func (s *testServer) adminSession(t *testing.T) *authsdk.Session {
	t.Helper()
	sess, err := s.client.Login(t.Context(), authsdk.LoginRequest{Email: adminEmail, Password: adminPassword})
	require.NoError(t, err)
	return sess
}

// registerVerified registers an account, verifies it and returns its session.
func (s *testServer) registerVerified(t *testing.T, email, role string) *authsdk.Session {
	t.Helper()
	_, err := s.client.Register(t.Context(), authsdk.RegisterRequest{
		Email:    email,
		Password: "Secret1",
		Name:     "Test",
		Role:     role,
	})
	require.NoError(t, err)

	sess, err := s.client.VerifyEmail(t.Context(), authsdk.VerifyEmailRequest{
		Email: email,
		Token: s.mail.token(t, email),
	})
	require.NoError(t, err)
	return sess
}
