package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// Store reads and mutates files below a root directory.
//
// Request paths are joined onto the root. A leading separator stays under
// the root, but ".." segments are resolved lexically and can climb out of
// it: Store does not confine paths. It holds no per-request state and is
// safe for concurrent use; concurrent mutations of the same path race on
// the filesystem.
type Store struct {
	root   string
	logger *logging.Logger
}

// NewStore creates a store rooted at root. A nil logger discards output.
func NewStore(root string, logger *logging.Logger) *Store {
	if root == "" {
		root = "."
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		root:   root,
		logger: logger.Named("vfs"),
	}
}

// Root returns the directory request paths are resolved against.
func (s *Store) Root() string {
	return s.root
}

// HostPath maps a request path onto the host filesystem.
func (s *Store) HostPath(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// Read returns the full contents of the resolved location.
//
// When an archive-looking segment turns out to be a real directory, the
// location is read as a plain file so that files written under such a
// directory can be read back.
func (s *Store) Read(loc Location) ([]byte, error) {
	if !loc.IsArchiveEntry() {
		return s.readFile(loc.Path)
	}

	if info, err := os.Stat(s.HostPath(loc.Container)); err == nil && info.IsDir() {
		s.logger.Debug("Container segment is a directory, reading plain file",
			zap.String("container", loc.Container),
			zap.String("path", loc.Path))
		return s.readFile(loc.Path)
	}
	return s.readEntry(loc.Container, loc.Entry)
}

func (s *Store) readFile(p string) ([]byte, error) {
	host := s.HostPath(p)

	info, err := os.Stat(host)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, p)
	}

	data, err := os.ReadFile(host)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
		}
		return nil, fmt.Errorf("read %s: %w", p, err)
	}

	s.logger.Debug("Read file", zap.String("path", p), zap.Int("bytes", len(data)))
	return data, nil
}

// Mkdir creates p and any missing parents. Existing directories are fine.
func (s *Store) Mkdir(p string) error {
	if err := os.MkdirAll(s.HostPath(p), 0o755); err != nil {
		return &OpError{Op: OpMkdir, Path: p, Err: err}
	}
	s.logger.Debug("Created directory", zap.String("path", p))
	return nil
}

// Write truncates or creates the plain file at p with data.
func (s *Store) Write(p string, data []byte) error {
	if err := os.WriteFile(s.HostPath(p), data, 0o644); err != nil {
		return &OpError{Op: OpWrite, Path: p, Err: err}
	}
	s.logger.Debug("Wrote file", zap.String("path", p), zap.Int("bytes", len(data)))
	return nil
}

// Remove deletes the file or empty directory at p. A missing target is not
// an error.
func (s *Store) Remove(p string) error {
	err := os.Remove(s.HostPath(p))
	switch {
	case err == nil:
		s.logger.Debug("Removed", zap.String("path", p))
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return &OpError{Op: OpRemove, Path: p, Err: err}
	}
}
