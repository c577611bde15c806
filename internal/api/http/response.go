package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/docfs/internal/vfs"
	"github.com/gin-gonic/gin"
)

const (
	contentTypeHTML  = "text/html"
	contentTypePlain = "text/plain"
)

// contentTypes is checked in order against the end of the request path.
var contentTypes = []struct {
	suffix      string
	contentType string
}{
	{".html", contentTypeHTML},
	{".xml", "text/xml"},
	{".svg", "image/svg+xml"},
	{".js", "text/javascript"},
	{".css", "text/css"},
}

// contentTypeFor infers a content type from the suffix of the request path.
// The match is exact and case-sensitive; anything unlisted is plain text.
func contentTypeFor(path string) string {
	for _, ct := range contentTypes {
		if strings.HasSuffix(path, ct.suffix) {
			return ct.contentType
		}
	}
	return contentTypePlain
}

// emit writes a complete response with a known length.
func emit(c *gin.Context, status int, contentType string, body []byte) {
	c.Header("Content-Length", strconv.Itoa(len(body)))
	c.Data(status, contentType, body)
}

// emitError writes err's description as plain text.
func emitError(c *gin.Context, err error) {
	emit(c, statusFor(err), contentTypePlain, []byte(err.Error()))
}

// statusFor collapses every missing-target error to 404 and everything else
// to 500.
func statusFor(err error) int {
	if vfs.IsNotFound(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// outcomeFor labels an error for metrics.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return "ok"
	case vfs.IsNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}
