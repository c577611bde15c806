/*
Package tracing provides lightweight request tracing for docfs.

Each HTTP request gets a span. Trace context arrives and leaves through the
X-Trace-ID and X-Span-ID headers, so a client that forwards them can tie
its own logs to the server's. Finished spans are buffered (1000) and written
to the structured log by a single collector goroutine; Close drains it.

# Usage

	tracer := tracing.New("docfs", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// inside a handler
	if span := tracing.SpanFromContext(c.Request.Context()); span != nil {
		span.SetTag("vfs.kind", loc.Kind.String())
	}
*/
package tracing
