// Package middleware holds the gin middleware docfs installs in front of the
// command handlers: CORS for browser clients and per-IP rate limiting.
package middleware
