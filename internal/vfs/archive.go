package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

const zipMIME = "application/zip"

// readEntry opens container, copies out entry, and closes the container.
func (s *Store) readEntry(container, entry string) ([]byte, error) {
	host := s.HostPath(container)

	if _, err := os.Stat(host); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrContainerNotFound, container)
		}
		return nil, fmt.Errorf("open container %s: %w", container, err)
	}

	if err := checkZip(host); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotArchive, container, err)
	}

	r, err := zip.OpenReader(host)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotArchive, container, err)
		}
		return nil, fmt.Errorf("open container %s: %w", container, err)
	}
	defer r.Close()

	f := findEntry(r.File, entry)
	if f == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrEntryNotFound, entry, container)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s in %s: %w", entry, container, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s in %s: %w", entry, container, err)
	}

	s.logger.Debug("Read archive entry",
		zap.String("container", container),
		zap.String("entry", entry),
		zap.Int("bytes", len(data)))
	return data, nil
}

// findEntry matches names exactly, as stored in the central directory.
func findEntry(files []*zip.File, name string) *zip.File {
	for _, f := range files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// checkZip sniffs the file header. Office documents detect as their own
// types with application/zip as an ancestor.
func checkZip(host string) error {
	mtype, err := mimetype.DetectFile(host)
	if err != nil {
		return err
	}
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is(zipMIME) {
			return nil
		}
	}
	return fmt.Errorf("detected %s", mtype.String())
}
