// Package timeouts defines shared timeout constants used across the process.
package timeouts

import "time"

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long an HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second

// SessionIdle closes streamable HTTP sessions that saw no requests.
const SessionIdle = 30 * time.Minute
