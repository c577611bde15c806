package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/docfs/internal/vfs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var okBody = []byte("OK")

// Filesystem is the storage the commands act on.
type Filesystem interface {
	Read(loc vfs.Location) ([]byte, error)
	Mkdir(path string) error
	Write(path string, data []byte) error
	Remove(path string) error
}

// Packager runs the mkdocx command.
type Packager interface {
	Package(ctx context.Context, path string) error
}

// Options holds handler dependencies
type Options struct {
	FS       Filesystem
	Packager Packager
	Logger   *logging.Logger
	// Metrics may be nil.
	Metrics *monitoring.Metrics
	// FrontPage is read from disk on every request to "/". Empty serves the
	// embedded page.
	FrontPage string
	// MaxBodyBytes caps write bodies when positive.
	MaxBodyBytes int64
}

// Handlers contains all HTTP handlers
type Handlers struct {
	fs           Filesystem
	packager     Packager
	logger       *logging.Logger
	metrics      *monitoring.Metrics
	frontPage    string
	maxBodyBytes int64
}

// NewHandlers creates a new handler set
func NewHandlers(opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		fs:           opts.FS,
		packager:     opts.Packager,
		logger:       logger.Named("http"),
		metrics:      opts.Metrics,
		frontPage:    opts.FrontPage,
		maxBodyBytes: opts.MaxBodyBytes,
	}
}

// Root serves the front page
func (h *Handlers) Root(c *gin.Context) {
	c.Set(monitoring.CommandKey, "root")

	page, err := h.loadFrontPage()
	if err != nil {
		h.fail(c, "root", "", err)
		return
	}
	emit(c, http.StatusOK, contentTypeHTML, page)
}

// Dispatch decodes the command from the first path segment and runs it
func (h *Handlers) Dispatch(c *gin.Context) {
	word, path := splitRequestPath(c.Request.URL.Path)

	cmd, err := ParseCommand(word)
	if err != nil {
		c.Set(monitoring.CommandKey, "unknown")
		h.fail(c, "unknown", path, err)
		return
	}
	c.Set(monitoring.CommandKey, string(cmd))

	switch cmd {
	case CommandMkdir:
		h.mkdir(c, path)
	case CommandRead:
		h.read(c, path)
	case CommandWrite:
		h.write(c, path)
	case CommandRemove:
		h.remove(c, path)
	case CommandMkdocx:
		h.mkdocx(c, path)
	}
}

func (h *Handlers) mkdir(c *gin.Context, path string) {
	if err := h.fs.Mkdir(path); err != nil {
		h.fail(c, CommandMkdir, path, err)
		return
	}
	h.record(CommandMkdir, nil)
	emit(c, http.StatusOK, contentTypePlain, nil)
}

func (h *Handlers) read(c *gin.Context, path string) {
	loc := vfs.Resolve(path)

	span := tracing.SpanFromContext(c.Request.Context())
	if span != nil {
		span.SetTag("vfs.kind", loc.Kind.String())
		if loc.IsArchiveEntry() {
			span.SetTag("vfs.container", loc.Container)
			span.SetTag("vfs.entry", loc.Entry)
		}
	}

	data, err := h.fs.Read(loc)
	if err != nil {
		h.fail(c, CommandRead, path, err)
		return
	}
	if span != nil {
		span.Log("content read", map[string]interface{}{"bytes": len(data)})
	}

	h.record(CommandRead, nil)
	if h.metrics != nil {
		h.metrics.RecordRead(loc.Kind.String(), len(data))
	}
	// The type follows the request path even inside an archive.
	emit(c, http.StatusOK, contentTypeFor(path), data)
}

func (h *Handlers) write(c *gin.Context, path string) {
	body := c.Request.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBodyBytes)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		} else {
			err = fmt.Errorf("could not read request body: %w", err)
		}
		h.fail(c, CommandWrite, path, err)
		return
	}

	if err := h.fs.Write(path, data); err != nil {
		h.fail(c, CommandWrite, path, err)
		return
	}

	h.record(CommandWrite, nil)
	if h.metrics != nil {
		h.metrics.RecordWrite(len(data))
	}
	emit(c, http.StatusOK, contentTypePlain, okBody)
}

func (h *Handlers) remove(c *gin.Context, path string) {
	if err := h.fs.Remove(path); err != nil {
		h.fail(c, CommandRemove, path, err)
		return
	}
	h.record(CommandRemove, nil)
	emit(c, http.StatusOK, contentTypePlain, okBody)
}

func (h *Handlers) mkdocx(c *gin.Context, path string) {
	// Packaging outlives a disconnected client.
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.packager.Package(ctx, path); err != nil {
		h.fail(c, CommandMkdocx, path, err)
		return
	}
	h.record(CommandMkdocx, nil)
	emit(c, http.StatusOK, contentTypePlain, okBody)
}

// fail logs err once and writes it as the response
func (h *Handlers) fail(c *gin.Context, cmd Command, path string, err error) {
	h.record(cmd, err)
	_ = c.Error(err)

	logger := h.logger.With(
		zap.String("trace_id", string(tracing.GetTraceID(c.Request.Context()))),
		zap.String("command", string(cmd)),
		zap.String("path", path))
	if statusFor(err) == http.StatusNotFound {
		logger.Warn("Target not found", zap.Error(err))
	} else {
		logger.Error("Command failed", zap.Error(err))
	}

	emitError(c, err)
}

func (h *Handlers) record(cmd Command, err error) {
	if h.metrics != nil {
		h.metrics.RecordCommand(string(cmd), outcomeFor(err))
	}
}
