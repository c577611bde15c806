// Package main is the entry point for the docfs server.
//
// docfs exposes a directory over HTTP. The first URL segment names a
// command (mkdir, read, write, remove, mkdocx) and the rest is a path below
// the storage root. Reads reach inside .zip and .docx files transparently.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Serve ./docs on port 8080
//	./docfs -root ./docs
//
//	# Use an external packager and colored debug logs
//	./docfs -root ./docs -packager ./mkdocx -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
