// Package config provides 12-factor configuration management for docfs.
//
// Configuration is loaded from environment variables with sensible defaults.
// ENV_FILE may name a dotenv file whose variables fill in anything the
// environment leaves unset.
// CLI flags in cmd/docfs can override environment variables.
//
// Configuration Sections:
//   - Server: listen address, shutdown timeout, body limit, front page
//   - Storage: root directory request paths are resolved against
//   - Packager: external mkdocx command and built-in packager excludes
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Metrics: operational listener for /metrics and /health
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT, MAX_BODY_BYTES, FRONT_PAGE
//   - STORAGE_ROOT, PACKAGER_COMMAND, PACKAGER_EXCLUDE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED, RATE_LIMIT_SCOPE
//   - METRICS_ENABLED, METRICS_ADDR
//   - ENV_FILE
package config
