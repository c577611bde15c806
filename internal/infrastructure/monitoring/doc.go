/*
Package monitoring provides Prometheus metrics for docfs.

# Overview

Every Metrics value owns a private registry, so it can be created more than
once per process. The registry also carries the Go runtime and process
collectors.

# Metrics

- HTTP requests by method, command and status (count, latency, sizes)
- Dispatched commands by outcome (ok, not_found, error)
- Reads by location kind (plain, archive_entry) and bytes read
- Bytes written
- Packager runs by packager and status, with duration
- Uptime

Handlers label requests by setting CommandKey on the gin context; requests
that never reach a command handler are labelled "none".

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "exec")
	// ... run packager ...
	timer.Stop("success")

	opsMux.Handle("/metrics", metrics.Handler())
*/
package monitoring
