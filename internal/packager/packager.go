// Package packager turns a directory of loose document parts into a
// packaged .docx archive for the mkdocx command.
//
// Two implementations exist. Command runs an external program with the path
// as its last argument and waits for it. Zip builds the archive in-process.
package packager

import (
	"context"
	"strings"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/monitoring"
)

// Packager packages the directory at a request path.
type Packager interface {
	// Package blocks until packaging has finished. A run that finishes
	// without an archive is logged, not returned; errors mean packaging
	// could not be attempted.
	Package(ctx context.Context, path string) error
	// Name labels the packager in logs and metrics.
	Name() string
}

// Options configure New.
type Options struct {
	// Command selects the external packager when non-empty. It is split on
	// whitespace; no shell quoting is applied.
	Command string
	// Root is the storage root. The external command runs there and the
	// built-in packager resolves paths against it.
	Root    string
	Exclude []string
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// New returns the external packager when a command is configured and the
// built-in zip packager otherwise.
func New(opts Options) (Packager, error) {
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if strings.TrimSpace(opts.Command) != "" {
		return NewCommand(opts.Command, opts.Root, opts.Logger, opts.Metrics)
	}
	return NewZip(opts.Root, opts.Exclude, opts.Logger, opts.Metrics)
}
