// Package logging provides structured logging using uber/zap.
//
// Two modes are offered:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components receive a *Logger by injection and scope it with Named or
// With; nothing in the server logs through a package-level logger.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Server starting", zap.String("port", "8080"))
//	logger.Error("Failed to write file", zap.String("path", p), zap.Error(err))
package logging
