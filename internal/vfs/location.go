package vfs

import (
	"strings"
)

// Separator splits request paths into segments.
const Separator = "/"

// containerSuffixes lists the names that switch resolution into an archive.
// A .docx file is a zip archive with a fixed layout.
var containerSuffixes = []string{".zip", ".docx"}

// Kind tags a Location.
type Kind int

const (
	// KindPlain is a path on the real filesystem.
	KindPlain Kind = iota
	// KindArchiveEntry is an entry inside a zip container.
	KindArchiveEntry
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindArchiveEntry:
		return "archive_entry"
	default:
		return "unknown"
	}
}

// Location is the outcome of resolving a request path.
//
// For KindPlain only Path is set. For KindArchiveEntry Container and Entry
// are set, and Path holds the original request path.
type Location struct {
	Kind      Kind
	Path      string
	Container string
	Entry     string
}

// Plain returns a plain-file location.
func Plain(path string) Location {
	return Location{Kind: KindPlain, Path: path}
}

// ArchiveEntry returns a location naming an entry inside a container.
func ArchiveEntry(container, entry string) Location {
	return Location{
		Kind:      KindArchiveEntry,
		Path:      container + Separator + entry,
		Container: container,
		Entry:     entry,
	}
}

// IsArchiveEntry reports whether the location points inside a container.
func (l Location) IsArchiveEntry() bool {
	return l.Kind == KindArchiveEntry
}

func (l Location) String() string {
	if l.IsArchiveEntry() {
		return l.Container + "!" + l.Entry
	}
	return l.Path
}

// IsContainerName reports whether a single path segment names a container.
func IsContainerName(segment string) bool {
	lower := strings.ToLower(segment)
	for _, suffix := range containerSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Resolve maps a raw request path to a Location without touching the
// filesystem.
//
// Only segments before the last one are considered; the terminal segment is
// always something contained in whatever precedes it. The first matching
// segment wins, so "a.zip/b.zip/c" names entry "b.zip/c" of "a.zip".
func Resolve(raw string) Location {
	segments := strings.Split(raw, Separator)
	for i := 0; i < len(segments)-1; i++ {
		if !IsContainerName(segments[i]) {
			continue
		}
		loc := ArchiveEntry(
			strings.Join(segments[:i+1], Separator),
			strings.Join(segments[i+1:], Separator),
		)
		loc.Path = raw
		return loc
	}
	return Plain(raw)
}
