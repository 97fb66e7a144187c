package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	configPath, logLevel = "", ""

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "cortexmascot dev\n", out)
}

func TestAnalyze(t *testing.T) {
	out, err := run(t, "analyze", "--force", "wow that's amazing, I can't believe it, this is incredible!")
	require.NoError(t, err)

	var res struct {
		Outcome  string `json:"outcome"`
		Dominant string `json:"dominant"`
		Schedule []struct {
			Emotion    string `json:"emotion"`
			DelayMs    int64  `json:"delayMs"`
			DurationMs int64  `json:"durationMs"`
		} `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "scheduled", res.Outcome)
	assert.Equal(t, "surprised", res.Dominant)
	require.NotEmpty(t, res.Schedule)
	assert.Zero(t, res.Schedule[0].DelayMs)

	out, err = run(t, "analyze", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, `"outcome": "short"`)
}

func TestColor(t *testing.T) {
	// 2026-01-01T12:00:00Z sits on a cycle boundary: hold on entry 0
	out, err := run(t, "color", "--at", "2026-01-01T12:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "#6c5ce7")
	assert.Contains(t, out, "holding entry 0")

	_, err = run(t, "color", "--at", "yesterday")
	assert.Error(t, err)
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	_, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err := run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "addr: 127.0.0.1:8787")
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/avatar/health":
			w.Write([]byte(`{"status":"ok"}`))
		case "/api/v1/avatar/current":
			w.Write([]byte(`{"state":"talking","talking":true,"dragging":false}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := run(t, "status", "--url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "healthy")
	assert.True(t, strings.Contains(out, "State:    talking"))

	srv.Close()
	_, err = run(t, "status", "--url", srv.URL)
	assert.Error(t, err)
}
