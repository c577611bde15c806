package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GriffinCanCode/docfs/internal/client"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/server"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Root = root
	cfg.Logging.Development = true
	cfg.RateLimit.Enabled = false
	cfg.Metrics.Enabled = false

	srv, err := server.NewServer(cfg, logging.NewNop())
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})
	return ts, root
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(strings.NewReader(stdin), &out)
	err := app.Run(append([]string{"docfsctl"}, args...))
	return out.String(), err
}

func TestCommands(t *testing.T) {
	ts, root := startServer(t)

	_, err := run(t, "", "--server", ts.URL, "mkdir", "notes")
	require.NoError(t, err)

	_, err = run(t, "from stdin", "--server", ts.URL, "write", "notes/a.txt")
	require.NoError(t, err)

	out, err := run(t, "", "--server", ts.URL, "read", "notes/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", out)

	src := filepath.Join(t.TempDir(), "body.txt")
	require.NoError(t, os.WriteFile(src, []byte("from file"), 0o644))
	_, err = run(t, "", "--server", ts.URL, "write", "--file", src, "notes/b.txt")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(root, "notes", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from file", string(got))

	_, err = run(t, "", "--server", ts.URL, "mkdocx", "notes")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "notes.docx"))
	require.NoError(t, err)

	out, err = run(t, "", "--server", ts.URL, "read", "notes.docx/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", out)

	_, err = run(t, "", "--server", ts.URL, "remove", "notes/a.txt")
	require.NoError(t, err)

	_, err = run(t, "", "--server", ts.URL, "read", "notes/a.txt")
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestCommandNeedsOnePath(t *testing.T) {
	_, err := run(t, "", "read")
	assert.Error(t, err)

	_, err = run(t, "", "read", "a", "b")
	assert.Error(t, err)
}
