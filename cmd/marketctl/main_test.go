package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/gigmarket_server/internal/webhook"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestSign_File(t *testing.T) {
	payload := []byte(`{"event":"subscription.charged"}`)
	path := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	out, err := execute(t, "", "sign", "--secret", "whsec_test", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, webhook.Sign(payload, "whsec_test")+"\n", out)
}

func TestSign_Stdin(t *testing.T) {
	out, err := execute(t, "hello", "sign", "--secret", "s")
	require.NoError(t, err)
	assert.Equal(t, webhook.Sign([]byte("hello"), "s"), strings.TrimSpace(out))
}

func TestSign_MissingSecret(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "")

	_, err := execute(t, "hello", "sign")
	assert.Error(t, err)
}

func TestReplay_Args(t *testing.T) {
	_, err := execute(t, "", "replay")
	assert.EqualError(t, err, "requires a delivery id or --failed")

	_, err = execute(t, "", "replay", "--failed", "abc")
	assert.EqualError(t, err, "--failed does not take a delivery id")
}
