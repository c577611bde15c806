package packager

import (
	"context"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/docfs/internal/vfs"
	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not available on windows")
	}
	path := filepath.Join(dir, "mkdocx.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestNewSelectsImplementation(t *testing.T) {
	p, err := New(Options{Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "zip", p.Name())

	p, err = New(Options{Root: t.TempDir(), Command: "  ./mkdocx --quiet "})
	require.NoError(t, err)
	assert.Equal(t, "exec", p.Name())

	_, err = New(Options{Exclude: []string{"[unterminated"}})
	assert.Error(t, err)
}

func TestNewCommandRejectsEmpty(t *testing.T) {
	_, err := NewCommand("   ", ".", nil, nil)
	assert.Error(t, err)
}

func TestCommandPassesPathAndWaits(t *testing.T) {
	root := t.TempDir()
	script := writeScript(t, root, `echo "$1" > "$2.done"`+"\n")
	require.NoError(t, os.Mkdir(filepath.Join(root, "docs"), 0o755))

	metrics := monitoring.NewMetrics()
	cmd, err := NewCommand(script+" extra", root, nil, metrics)
	require.NoError(t, err)

	require.NoError(t, cmd.Package(context.Background(), "docs/bundle"))

	// The command ran in the storage root with the path appended last.
	got, err := os.ReadFile(filepath.Join(root, "docs", "bundle.done"))
	require.NoError(t, err)
	assert.Equal(t, "extra\n", string(got))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PackagerRuns.WithLabelValues("exec", "success")))
}

func TestCommandIgnoresExitStatus(t *testing.T) {
	root := t.TempDir()
	script := writeScript(t, root, "echo failing >&2\nexit 3\n")

	metrics := monitoring.NewMetrics()
	cmd, err := NewCommand(script, root, nil, metrics)
	require.NoError(t, err)

	assert.NoError(t, cmd.Package(context.Background(), "anything"))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PackagerRuns.WithLabelValues("exec", "nonzero_exit")))
}

func TestCommandStartFailure(t *testing.T) {
	cmd, err := NewCommand(filepath.Join(t.TempDir(), "does-not-exist"), t.TempDir(), nil, nil)
	require.NoError(t, err)

	err = cmd.Package(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not run packager")
}

func TestZipPackagesDirectory(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"docs/bundle/word/document.xml":   "<w:document/>",
		"docs/bundle/_rels/.rels":         "<Relationships/>",
		"docs/bundle/[Content_Types].xml": "<Types/>",
		"docs/bundle/.DS_Store":           "junk",
		"docs/bundle/word/.DS_Store":      "junk",
	})

	z, err := NewZip(root, []string{"**/.DS_Store"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "docs/bundle.docx", z.Target("docs/bundle"))

	require.NoError(t, z.Package(context.Background(), "docs/bundle"))

	r, err := zip.OpenReader(filepath.Join(root, "docs", "bundle.docx"))
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"}, names)

	rc, err := r.File[2].Open()
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "<w:document/>", string(body))
}

func TestZipOutputReadableThroughResolver(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"report/[Content_Types].xml": "<Types/>",
		"report/word/document.xml":   "<w:body>hi</w:body>",
	})

	z, err := NewZip(root, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, z.Package(context.Background(), "report"))

	store := vfs.NewStore(root, nil)
	got, err := store.Read(vfs.Resolve("report.docx/word/document.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<w:body>hi</w:body>", string(got))
}

func TestZipOverwritesPreviousArchive(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"d/a.txt": "one"})

	z, err := NewZip(root, nil, nil, nil)
	require.NoError(t, err)
	require.NoError(t, z.Package(context.Background(), "d"))

	writeTree(t, root, map[string]string{"d/a.txt": "two"})
	require.NoError(t, z.Package(context.Background(), "d"))

	got, err := vfs.NewStore(root, nil).Read(vfs.Resolve("d.docx/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	// No temporary files left behind.
	leftovers, err := filepath.Glob(filepath.Join(root, ".mkdocx-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestZipFailuresAreLogged(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"file.txt": "x"})

	core, logs := observer.New(zapcore.DebugLevel)
	metrics := monitoring.NewMetrics()
	z, err := NewZip(root, nil, &logging.Logger{Logger: zap.New(core)}, metrics)
	require.NoError(t, err)

	assert.NoError(t, z.Package(context.Background(), "missing"))
	assert.NoError(t, z.Package(context.Background(), "file.txt"))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.PackagerRuns.WithLabelValues("zip", "error")))

	warnings := logs.FilterMessage("Packaging failed").All()
	require.Len(t, warnings, 2)
	assert.Equal(t, zapcore.WarnLevel, warnings[0].Level)
	assert.Contains(t, warnings[1].ContextMap()["error"], "not a directory")

	for _, name := range []string{"missing.docx", "file.txt.docx"} {
		_, err := os.Stat(filepath.Join(root, name))
		assert.True(t, os.IsNotExist(err), name)
	}
}

func TestZipRefusesStorageRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "store")
	writeTree(t, root, map[string]string{"a.txt": "x"})

	z, err := NewZip(root, nil, nil, nil)
	require.NoError(t, err)

	for _, p := range []string{"", ".", "/", "a/.."} {
		assert.ErrorContains(t, z.Package(context.Background(), p), "storage root", p)
	}
	_, err = os.Stat(filepath.Join(parent, "store.docx"))
	assert.True(t, os.IsNotExist(err))
}

func TestZipIgnoresCancellation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"d/a.txt": "x", "d/b/c.txt": "y"})

	z, err := NewZip(root, nil, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, z.Package(ctx, "d"))
	got, err := vfs.NewStore(root, nil).Read(vfs.Resolve("d.docx/b/c.txt"))
	require.NoError(t, err)
	assert.Equal(t, "y", string(got))
}

func TestSortEntries(t *testing.T) {
	entries := []string{"word/document.xml", "[Content_Types].xml", "_rels/.rels", "docProps/app.xml"}
	sortEntries(entries)
	assert.Equal(t, []string{"[Content_Types].xml", "_rels/.rels", "docProps/app.xml", "word/document.xml"}, entries)
}

func TestWriteArchiveReportsSizeAndDigest(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "doc")
	writeTree(t, src, map[string]string{
		"[Content_Types].xml": "<Types/>",
		"word/document.xml":   "<w:document/>",
	})
	dst := src + DocxExt

	sum, err := writeArchive(dst, src, []string{"[Content_Types].xml", "word/document.xml"})
	require.NoError(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	digest := blake3.Sum256(data)
	assert.Equal(t, int64(len(data)), sum.Size)
	assert.Equal(t, hex.EncodeToString(digest[:]), sum.Digest)

	matches, err := filepath.Glob(filepath.Join(root, ".mkdocx-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}
