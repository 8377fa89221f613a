package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, the profile file, and environment variables.

const (
	// DefaultHost and DefaultPort address a telemetry server running on
	// the local machine.
	DefaultHost = "localhost"
	DefaultPort = 8080

	// DefaultConnTimeout bounds the TCP connect and each receive-loop read.
	DefaultConnTimeout = 10 * time.Second

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultKeepAliveInterval is the SSH keepalive interval in seconds.
	DefaultKeepAliveInterval = 30

	// MinPollInterval is the shortest accepted --poll interval.
	MinPollInterval = 100 * time.Millisecond

	// DefaultRetryBase and DefaultRetryMax shape the backoff between
	// connect attempts.
	DefaultRetryBase = 500 * time.Millisecond
	DefaultRetryMax  = 10 * time.Second

	// DefaultMQTTTopic prefixes every republished topic.
	DefaultMQTTTopic = "telectl"
)
