package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.toml")
	contents := `
port = 9090
admin = "` + testAdmin + `"
read_timeout = "5s"

[rate_limit]
ip_requests_per_second = 5.0
ip_burst = 10

[websocket]
max_clients_per_ip = 2

[auth]
hmac_secret = "s3cret"
clock_skew = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, "0.0.0.0", cfg.Host)
	require.Equal(t, 5*time.Second, cfg.ReadTimeout)
	require.Equal(t, 30*time.Second, cfg.WriteTimeout)
	require.Equal(t, 5.0, cfg.RateLimit.IPRequestsPerSecond)
	require.Equal(t, 10, cfg.RateLimit.IPBurst)
	require.Equal(t, 2, cfg.WebSocket.MaxClientsPerIP)
	require.Equal(t, testAdmin, cfg.Admin)
	require.Equal(t, "s3cret", cfg.Auth.HMACSecret)
	require.Equal(t, 30*time.Second, cfg.Auth.ClockSkew)
	require.Equal(t, "cdp-api", cfg.Auth.Issuer)
	require.Equal(t, "0.0.0.0:9090", cfg.Addr())
}

func TestLoadConfigRequiresAdmin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = 8080\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "admin")
}

func TestLoadConfigRequiresAuthSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.toml")
	require.NoError(t, os.WriteFile(path, []byte("admin = \""+testAdmin+"\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.ErrorContains(t, cfg.Validate(), "hmac_secret")
}

func TestLoadConfigEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
}
