package auth_test

import (
	"testing"

	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint.
func TestLivezEndpoint(t *testing.T) {
	c, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(c.URL)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)

	t.Logf("Livez endpoint is healthy")
}

// TestReadyzEndpoint verifies the readiness check reports the database.
func TestReadyzEndpoint(t *testing.T) {
	c, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(c.URL)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.Equal(t, "ok", health.Checks["database"])

	t.Logf("Readyz endpoint is healthy")
}
