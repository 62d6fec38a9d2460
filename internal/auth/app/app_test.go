package app

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		Env:                 "test",
		LogLevel:            "error",
		LogFormat:           "text",
		Port:                8080,
		DatabaseFile:        filepath.Join(dir, "auth.db"),
		PepperFile:          filepath.Join(dir, "pepper"),
		Issuer:              "https://auth.test",
		Audience:            "usermgmt",
		SigningKeyFile:      filepath.Join(dir, "signing.key"),
		SessionTTL:          time.Hour,
		VerificationTTL:     24 * time.Hour,
		RequestTimeout:      5 * time.Second,
		ShutdownGracePeriod: time.Second,
		AdminEmail:          " Root@Example.com ",
		AdminPassword:       "Root1234!",
		MailTransport:       MailTransportLog,
		MailTimeout:         time.Second,
		RateLimitBackend:    RateLimitMemory,
	}
}

func TestApplicationWiring(t *testing.T) {
	cfg := testConfig(t)

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(app.router)
	defer srv.Close()

	client := authsdk.NewSDKClient(srv.URL)

	ready, err := client.GetReadiness(t.Context())
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks["database"])

	sess, err := client.Login(t.Context(), authsdk.LoginRequest{Email: "root@example.com", Password: "Root1234!"})
	require.NoError(t, err)
	require.Equal(t, "Admin", sess.User().Role)

	require.NoError(t, app.Shutdown())

	// Secrets were persisted for the next start.
	for _, p := range []string{cfg.PepperFile, cfg.SigningKeyFile} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestApplicationRestartKeepsSessions(t *testing.T) {
	cfg := testConfig(t)

	first, err := New(context.Background(), cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(first.router)
	sess, err := authsdk.NewSDKClient(srv.URL).Login(t.Context(), authsdk.LoginRequest{
		Email:    "root@example.com",
		Password: "Root1234!",
	})
	require.NoError(t, err)
	srv.Close()
	require.NoError(t, first.Shutdown())

	second, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { require.NoError(t, second.Shutdown()) }()

	srv = httptest.NewServer(second.router)
	defer srv.Close()

	// Same signing key and pepper: the old token and password still work.
	restored := authsdk.NewSDKClient(srv.URL).NewSessionFromToken(sess.Token(), sess.ExpiresAt())
	users, err := restored.ListUsers(t.Context())
	require.NoError(t, err)
	require.Len(t, users, 1)
}
