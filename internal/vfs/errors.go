package vfs

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is returned when a plain file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrContainerNotFound is returned when the archive named by a path does not exist.
	ErrContainerNotFound = errors.New("container not found")
	// ErrEntryNotFound is returned when the archive exists but has no such entry.
	ErrEntryNotFound = errors.New("entry not found in container")
	// ErrNotArchive is returned when the container exists but is not a zip file.
	ErrNotArchive = errors.New("container is not a zip archive")
)

// IsNotFound reports whether err means the requested target is missing,
// whether as a plain file, a container, or an entry inside a container.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrContainerNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

// Op names a mutating filesystem operation.
type Op string

const (
	OpMkdir  Op = "mkdir"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
)

// OpError records a failed mutating operation and the path it targeted.
type OpError struct {
	Op   Op
	Path string
	Err  error
}

func (e *OpError) Error() string {
	switch e.Op {
	case OpMkdir:
		return fmt.Sprintf("could not create directory %q: %v", e.Path, e.Err)
	case OpWrite:
		return fmt.Sprintf("could not write %q: %v", e.Path, e.Err)
	case OpRemove:
		return fmt.Sprintf("could not delete %q: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
	}
}

func (e *OpError) Unwrap() error {
	return e.Err
}
