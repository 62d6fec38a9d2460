package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// isolateEnv points AUTH_ENV_FILE at a missing file so a developer's .env
// does not leak into the test.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "auth.db", cfg.DatabaseFile)
	require.Equal(t, 24*time.Hour, cfg.VerificationTTL)
	require.Equal(t, time.Hour, cfg.SessionTTL)
	require.Equal(t, MailTransportLog, cfg.MailTransport)
	require.Equal(t, RateLimitMemory, cfg.RateLimitBackend)
	require.Equal(t, "auth.verification_email", cfg.MailQueue)
}

func TestLoadConfigFromEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_VERIFICATION_TTL", "2h")
	t.Setenv("AUTH_SESSION_TTL", "15") // minutes
	t.Setenv("AUTH_MAIL_TRANSPORT", "SMTP")
	t.Setenv("SMTP_HOST", "mail.local")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 2*time.Hour, cfg.VerificationTTL)
	require.Equal(t, 15*time.Minute, cfg.SessionTTL)
	require.Equal(t, MailTransportSMTP, cfg.MailTransport)
	require.Equal(t, 587, cfg.SMTPPort)
}

func TestLoadConfigEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AUTH_ISSUER=https://issuer.test\nAUTH_ADMIN_EMAIL=root@example.com\n"), 0o600))
	t.Setenv("AUTH_ENV_FILE", path)

	// godotenv sets these on the process; register them so they are restored.
	t.Setenv("AUTH_ISSUER", "")
	t.Setenv("AUTH_ADMIN_EMAIL", "")
	require.NoError(t, os.Unsetenv("AUTH_ISSUER"))
	require.NoError(t, os.Unsetenv("AUTH_ADMIN_EMAIL"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https://issuer.test", cfg.Issuer)
	require.Equal(t, "root@example.com", cfg.AdminEmail)
}

func TestLoadConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown mail transport", map[string]string{"AUTH_MAIL_TRANSPORT": "pigeon"}},
		{"smtp without host", map[string]string{"AUTH_MAIL_TRANSPORT": "smtp"}},
		{"amqp without url", map[string]string{"AUTH_MAIL_TRANSPORT": "amqp"}},
		{"unknown rate limit backend", map[string]string{"AUTH_RATE_LIMIT_BACKEND": "memcached"}},
		{"short signing key", map[string]string{"AUTH_SIGNING_KEY": "short"}},
		{"port out of range", map[string]string{"PORT": "70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}
