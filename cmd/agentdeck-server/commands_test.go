package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserAdd(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENTDECK_DATABASE_DSN", filepath.Join(dir, "agentdeck.db"))
	t.Setenv("AGENTDECK_LOG_DIR", dir)
	t.Setenv("AGENTDECK_SESSION_STORE", "memory")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "user", "add", "ada@example.com", "--name", "Ada", "--password", "correct horse"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "created user 1 (ada@example.com, user)")

	cmd = newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", filepath.Join(dir, "missing.yaml"), "user", "add", "ada@example.com", "--password", "correct horse"})
	assert.Error(t, cmd.Execute())
}

func TestUserRevoke(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AGENTDECK_DATABASE_DSN", filepath.Join(dir, "agentdeck.db"))
	t.Setenv("AGENTDECK_LOG_DIR", dir)
	t.Setenv("AGENTDECK_SESSION_STORE", "sqlite")
	config := filepath.Join(dir, "missing.yaml")

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(append([]string{"--config", config}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	_, err := run("user", "add", "ada@example.com", "--password", "correct horse")
	require.NoError(t, err)

	out, err := run("user", "revoke", "ADA@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "revoked user 1 (ada@example.com)")

	_, err = run("user", "revoke", "nobody@example.com")
	assert.Error(t, err)
}

func TestUserAdd_RequiresPassword(t *testing.T) {
	t.Setenv("AGENTDECK_USER_PASSWORD", "")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"user", "add", "ada@example.com"})
	assert.Error(t, cmd.Execute())
}
