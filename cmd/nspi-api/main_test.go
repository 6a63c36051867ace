// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/z5labs/restrouter/auth/jwtauth"
	"github.com/z5labs/restrouter/example/nspi"
	"github.com/z5labs/restrouter/request"
)

const secret = "0123456789abcdef0123456789abcdef"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRoutesCommand(t *testing.T) {
	t.Run("will print the routes of every version", func(t *testing.T) {
		out, err := execute(t, "routes", "--jwt-secret", secret)
		require.Nil(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 10)
		assert.Equal(t, []string{"ENDPOINT", "VERSION", "METHOD", "PATH", "PAGE", "CALLBACK", "ACCESS", "CALLBACK"}, strings.Fields(lines[0]))
		assert.Equal(t, []string{"nspi_api", "1.0", "GET", "api/subscriptions", "api::list_subscriptions", "-"}, strings.Fields(lines[1]))
		assert.Equal(t, []string{"nspi_api", "2.0", "DELETE", "api/subscriptions/%api::load_subscription", "api::delete_subscription", "api::owns_subscription"}, strings.Fields(lines[9]))
	})

	t.Run("will include endpoints from definition files", func(t *testing.T) {
		dir := t.TempDir()

		defs := filepath.Join(dir, "endpoints.yaml")
		err := os.WriteFile(defs, []byte(`endpoints:
  legacy_api:
    path: legacy
    versions:
      "1.0": {router: nspi_router_v1, class: nspi_api}
    default_version: "1.0"
`), 0o600)
		require.Nil(t, err)

		cfgFile := filepath.Join(dir, "config.yaml")
		err = os.WriteFile(cfgFile, []byte("endpoints:\n  files:\n    - "+defs+"\n"), 0o600)
		require.Nil(t, err)

		out, err := execute(t, "routes", "--jwt-secret", secret, "--config", cfgFile)
		require.Nil(t, err)

		assert.Contains(t, out, "legacy_api")
		assert.Contains(t, out, "legacy/subscriptions")
	})

	t.Run("will require a jwt secret", func(t *testing.T) {
		t.Setenv(secretEnv, "")

		_, err := execute(t, "routes")

		assert.ErrorIs(t, err, errMissingSecret)
	})
}

func TestTokenCommand(t *testing.T) {
	t.Run("will sign a token accepted by the nspi_api endpoint", func(t *testing.T) {
		out, err := execute(t, "token", "--jwt-secret", secret, "--subject", "alice")
		require.Nil(t, err)

		req := request.New("GET", "api/1.0/subscriptions")
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(out))

		a := jwtauth.NewAuthenticator(jwtauth.Config{Secret: secret, Context: nspi.Name})
		err = a.Authenticate(context.Background(), req)
		require.Nil(t, err)

		claims, ok := jwtauth.ClaimsFrom(req)
		require.True(t, ok)
		assert.Equal(t, "alice", claims.Subject)
	})

	t.Run("will require a subject", func(t *testing.T) {
		_, err := execute(t, "token", "--jwt-secret", secret)

		assert.NotNil(t, err)
	})
}

func TestServeCommand(t *testing.T) {
	t.Run("will fail fast with an invalid config", func(t *testing.T) {
		t.Setenv("RESTROUTER_SERVER__ADDR", "")
		cfgFile := filepath.Join(t.TempDir(), "config.yaml")
		require.Nil(t, os.WriteFile(cfgFile, []byte("server:\n  addr: \"\"\n"), 0o600))

		_, err := execute(t, "serve", "--jwt-secret", secret, "--config", cfgFile)

		assert.NotNil(t, err)
	})
}
