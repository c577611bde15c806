package packager

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/tracing"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// DocxExt is appended to the source directory to name the archive.
const DocxExt = ".docx"

// contentTypesEntry must be the first entry of an OOXML package.
const contentTypesEntry = "[Content_Types].xml"

// Zip packages <dir> into <dir>.docx without leaving the process.
type Zip struct {
	root    string
	exclude []string
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewZip validates the exclude globs and returns a built-in packager.
func NewZip(root string, exclude []string, logger *logging.Logger, metrics *monitoring.Metrics) (*Zip, error) {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if root == "" {
		root = "."
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Zip{
		root:    root,
		exclude: exclude,
		logger:  logger.Named("packager"),
		metrics: metrics,
	}, nil
}

func (z *Zip) Name() string { return "zip" }

// Target returns the archive path Package writes for path.
func (z *Zip) Target(path string) string {
	return path + DocxExt
}

// Package writes <path>.docx. Like an external packager exiting non-zero, a
// run that cannot produce the archive is logged and not returned: the only
// error is a request that names the storage root itself, whose archive
// would land outside it.
func (z *Zip) Package(ctx context.Context, path string) error {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || clean == string(filepath.Separator) {
		return fmt.Errorf("could not package %q: refusing to package the storage root", path)
	}

	timer := monitoring.NewTimer(z.metrics, z.Name())
	span := tracing.SpanFromContext(ctx)

	sum, entries, err := z.build(path)
	if err != nil {
		duration := timer.Stop("error")
		z.logger.Warn("Packaging failed",
			zap.String("path", path),
			zap.Duration("duration", duration),
			zap.Error(err))
		if span != nil {
			span.SetTag("packager.outcome", "error")
		}
		return nil
	}

	duration := timer.Stop("success")
	z.logger.Info("Packaged directory",
		zap.String("path", path),
		zap.String("target", z.Target(path)),
		zap.Int("entries", entries),
		zap.String("size", humanize.Bytes(uint64(sum.Size))),
		zap.String("blake3", sum.Digest),
		zap.Duration("duration", duration))
	if span != nil {
		span.SetTag("packager.outcome", "success")
	}
	return nil
}

func (z *Zip) build(path string) (archiveSum, int, error) {
	src := filepath.Join(z.root, filepath.FromSlash(path))

	info, err := os.Stat(src)
	if err != nil {
		return archiveSum{}, 0, err
	}
	if !info.IsDir() {
		return archiveSum{}, 0, fmt.Errorf("%s is not a directory", path)
	}

	entries, err := z.collect(src)
	if err != nil {
		return archiveSum{}, 0, err
	}

	sum, err := writeArchive(src+DocxExt, src, entries)
	if err != nil {
		return archiveSum{}, 0, err
	}
	return sum, len(entries), nil
}

// collect lists regular files below src as slash-separated relative names in
// archive order.
//
// The walk runs to completion once started; a disconnected client does not
// stop it.
func (z *Zip) collect(src string) ([]string, error) {
	var (
		mu      sync.Mutex
		entries []string
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == src {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if z.excluded(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		mu.Lock()
		entries = append(entries, name)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortEntries(entries)
	return entries, nil
}

func (z *Zip) excluded(name string) bool {
	for _, pattern := range z.exclude {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

// sortEntries orders names lexically with the content types part first.
func sortEntries(entries []string) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a == contentTypesEntry || b == contentTypesEntry {
			return a == contentTypesEntry && b != contentTypesEntry
		}
		return a < b
	})
}

// archiveSum describes a written archive.
type archiveSum struct {
	Size   int64
	Digest string
}

// countingWriter counts the bytes written to the archive file.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// writeArchive writes to a temporary file next to dst and renames it into
// place, so readers never see a half-written archive.
func writeArchive(dst, src string, entries []string) (sum archiveSum, err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".mkdocx-*")
	if err != nil {
		return sum, err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	hasher := blake3.New()
	out := &countingWriter{w: io.MultiWriter(tmp, hasher)}

	zw := zip.NewWriter(out)
	for _, name := range entries {
		if err = addFile(zw, filepath.Join(src, filepath.FromSlash(name)), name); err != nil {
			return sum, err
		}
	}
	if err = zw.Close(); err != nil {
		return sum, err
	}
	if err = tmp.Close(); err != nil {
		return sum, err
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return sum, err
	}
	if err = os.Rename(tmp.Name(), dst); err != nil {
		return sum, err
	}
	return archiveSum{Size: out.n, Digest: hex.EncodeToString(hasher.Sum(nil))}, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}
