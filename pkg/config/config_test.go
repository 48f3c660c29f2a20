package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadParsesFullSchema(t *testing.T) {
	path := writeConfig(t, `
api_server:
  host: 0.0.0.0
  port: 8080
  secret: deadbeef
users:
  - name: alice
    access_token: tok-alice
contexts:
  - name: default
    namespace: default
    user: alice
    cluster: k1
current_context: default
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())

	u, ok := cfg.User("alice")
	require.True(t, ok)
	require.Equal(t, "tok-alice", u.AccessToken)

	ctx, ok := cfg.Context("")
	require.True(t, ok)
	require.Equal(t, "k1", ctx.Cluster)
}

func TestLoadRejectsContextWithUnknownUser(t *testing.T) {
	path := writeConfig(t, `
api_server: { host: localhost, port: 8080 }
contexts:
  - name: default
    namespace: default
    user: bob
    cluster: k1
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsUnknownCurrentContext(t *testing.T) {
	path := writeConfig(t, `
api_server: { host: localhost, port: 8080 }
users:
  - name: alice
    access_token: tok
contexts:
  - name: default
    namespace: default
    user: alice
    cluster: k1
current_context: missing
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRequiresAPIServerAddress(t *testing.T) {
	path := writeConfig(t, `users: []`)

	_, err := Load(path)
	require.Error(t, err)
}
