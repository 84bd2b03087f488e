package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hughe/shiori-share/internal/shiori"
	"github.com/hughe/shiori-share/internal/shiori/shioritest"
)

type cliResult struct {
	code   int
	stdout string
	stderr string
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return cliResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

// isolate points every default path at a temp home and returns the flags
// selecting a temp config and prefs file.
func isolate(t *testing.T) []string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return []string{
		"-config", filepath.Join(home, "config.toml"),
		"-prefs", filepath.Join(home, "prefs.toml"),
	}
}

func configure(t *testing.T, global []string, srv *shioritest.Server) {
	t.Helper()
	args := append(append([]string{}, global...), "configure", "-server", srv.URL, "-username", shioritest.DefaultUsername, "-password-stdin")
	res := runCLI(t, shioritest.DefaultPassword+"\n", args...)
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Connected to "+srv.URL)
}

func TestVersion(t *testing.T) {
	res := runCLI(t, "", "version")
	require.Equal(t, 0, res.code)
	require.Equal(t, "shiori-share dev\n", res.stdout)
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	global := isolate(t)
	res := runCLI(t, "", append(global, "save", "-bogus")...)
	require.Equal(t, 2, res.code)
}

func TestSaveBatchAfterConfigure(t *testing.T) {
	global := isolate(t)
	srv := shioritest.NewServer(t)
	configure(t, global, srv)

	res := runCLI(t, "", append(global, "save", "-batch", "-tags", "Go, CLI", "-title", "Go", "https://go.dev")...)
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "Saved bookmark 1: https://go.dev\n", res.stdout)

	// The login made while configuring is reused.
	require.Len(t, srv.RequestsTo("/api/v1/auth/login"), 1)
	saves := srv.RequestsTo("/api/bookmarks")
	require.Len(t, saves, 1)
	require.Equal(t, "session-1", saves[0].SessionID)
	require.JSONEq(t, `"Go"`, string(saves[0].Body["title"]))
	require.JSONEq(t, `[{"name":"go"},{"name":"cli"}]`, string(saves[0].Body["tags"]))
}

func TestSaveFromStdinText(t *testing.T) {
	global := isolate(t)
	srv := shioritest.NewServer(t)
	configure(t, global, srv)

	res := runCLI(t, "Worth reading\nhttps://example.com/post\n", append(global, "save", "-batch", "-")...)
	require.Equal(t, 0, res.code, res.stderr)

	saves := srv.RequestsTo("/api/bookmarks")
	require.Len(t, saves, 1)
	require.JSONEq(t, `"https://example.com/post"`, string(saves[0].Body["url"]))
	require.JSONEq(t, `"Worth reading"`, string(saves[0].Body["title"]))
}

func TestSaveWithoutURL(t *testing.T) {
	global := isolate(t)
	res := runCLI(t, "", append(global, "save", "-batch", "nothing to share here")...)
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "no URL found")
}

func TestSaveNotConfigured(t *testing.T) {
	global := isolate(t)
	res := runCLI(t, "", append(global, "save", "-batch", "https://go.dev")...)
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "shiori-share configure")
}

func TestSaveServerErrorSuggestsRetry(t *testing.T) {
	global := isolate(t)
	srv := shioritest.NewServer(t)
	configure(t, global, srv)
	srv.SetBookmarkStatus(503)

	res := runCLI(t, "", append(global, "save", "-batch", "https://go.dev")...)
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "server error (503)")
	require.Contains(t, res.stderr, "retry")
}

func TestConfigureRejectsWrongPassword(t *testing.T) {
	global := isolate(t)
	srv := shioritest.NewServer(t)

	args := append(append([]string{}, global...), "configure", "-server", srv.URL, "-username", "shiori", "-password-stdin")
	res := runCLI(t, "wrong\n", args...)
	require.Equal(t, 1, res.code)
	require.Contains(t, res.stderr, "invalid username or password")
	require.NotContains(t, res.stderr, "retry")

	status := runCLI(t, "", append(global, "status")...)
	require.Equal(t, 0, status.code, status.stderr)
	require.Contains(t, status.stdout, "server:    "+srv.URL)
	require.Contains(t, status.stdout, "password:  missing")
}

func TestConfigureRejectsBadServerURL(t *testing.T) {
	global := isolate(t)
	res := runCLI(t, "", append(global, "configure", "-server", "ftp://example.com", "-username", "shiori")...)
	require.Equal(t, 1, res.code)
	require.NotEmpty(t, res.stderr)
}

func TestLoginLogoutStatus(t *testing.T) {
	global := isolate(t)
	srv := shioritest.NewServer(t)
	configure(t, global, srv)

	res := runCLI(t, "", append(global, "login")...)
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Logged in to "+srv.URL+" as shiori")

	status := runCLI(t, "", append(global, "status")...)
	require.Contains(t, status.stdout, "password:  stored")
	require.Contains(t, status.stdout, "session:   valid until")

	res = runCLI(t, "", append(global, "logout", "-forget")...)
	require.Equal(t, 0, res.code, res.stderr)
	require.Len(t, srv.RequestsTo("/api/logout"), 1)

	status = runCLI(t, "", append(global, "status")...)
	require.Contains(t, status.stdout, "password:  missing")
	require.Contains(t, status.stdout, "session:   none")
}

func TestTagsRefresh(t *testing.T) {
	global := isolate(t)
	srv := shioritest.NewServer(t)
	configure(t, global, srv)
	srv.SetTags([]shiori.Tag{
		{ID: 1, Name: "Linux", NBookmarks: 2},
		{ID: 2, Name: "go", NBookmarks: 9},
		{ID: 3, Name: "Rust Lang", NBookmarks: 5},
	})

	res := runCLI(t, "", append(global, "tags", "-refresh")...)
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "go\nrust lang\nlinux\n", res.stdout)

	res = runCLI(t, "", append(global, "tags", "-n", "1")...)
	require.Equal(t, "go\n", res.stdout)
}

func TestLogsExportAndClear(t *testing.T) {
	global := isolate(t)
	srv := shioritest.NewServer(t)
	configure(t, global, srv)

	res := runCLI(t, "", append(global, "logs", "-export", "-")...)
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, "Shiori Share Debug Log Export")
	require.Contains(t, res.stdout, "settings saved")

	res = runCLI(t, "", append(global, "logs", "-raw")...)
	require.Equal(t, 0, res.code, res.stderr)
	require.Contains(t, res.stdout, `"msg":"settings saved"`)

	res = runCLI(t, "", append(global, "logs", "-clear")...)
	require.Equal(t, 0, res.code, res.stderr)
	require.Equal(t, "Logs cleared\n", res.stdout)
}
