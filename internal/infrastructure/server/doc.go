// Package server assembles docfs: storage, packager, handlers, middleware and
// the two listeners.
//
// The command listener (Server.Addr) carries "/" and "/{command}/{path}".
// The operational listener (Metrics.Address) carries /metrics and /health
// and is skipped when metrics are disabled.
package server
