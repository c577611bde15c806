package packager

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/tracing"
	"go.uber.org/zap"
)

// maxLoggedOutput bounds how much packager output ends up in a log line.
const maxLoggedOutput = 4096

// Command runs an external packaging program.
//
// The exit status is logged but never reported to the caller: a program
// that starts is a successful run. The process is not tied to the request
// context and keeps running if the client disconnects.
type Command struct {
	argv    []string
	dir     string
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewCommand parses command into argv. dir is the working directory the
// program is started in.
func NewCommand(command, dir string, logger *logging.Logger, metrics *monitoring.Metrics) (*Command, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, errors.New("packager command is empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Command{
		argv:    argv,
		dir:     dir,
		logger:  logger.Named("packager"),
		metrics: metrics,
	}, nil
}

func (c *Command) Name() string { return "exec" }

func (c *Command) Package(ctx context.Context, path string) error {
	timer := monitoring.NewTimer(c.metrics, c.Name())

	args := append(append([]string{}, c.argv[1:]...), path)
	cmd := exec.Command(c.argv[0], args...)
	cmd.Dir = c.dir

	out, err := cmd.CombinedOutput()

	span := tracing.SpanFromContext(ctx)
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		duration := timer.Stop("success")
		c.logger.Info("Packager finished",
			zap.String("path", path),
			zap.Duration("duration", duration))
		if span != nil {
			span.SetTag("packager.exit_code", "0")
		}
		return nil

	case errors.As(err, &exitErr):
		duration := timer.Stop("nonzero_exit")
		c.logger.Warn("Packager exited with non-zero status",
			zap.String("path", path),
			zap.Int("exit_code", exitErr.ExitCode()),
			zap.Duration("duration", duration),
			zap.String("output", truncate(string(out), maxLoggedOutput)))
		if span != nil {
			span.SetTag("packager.exit_code", strconv.Itoa(exitErr.ExitCode()))
		}
		return nil

	default:
		timer.Stop("error")
		return fmt.Errorf("could not run packager %q: %w", c.argv[0], err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
