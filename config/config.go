// Package config defines the runtime configuration for telectl and
// provides helpers for parsing tunnel specifications.
package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	tcerr "telectl/internal/errors"
)

// Config holds every tuneable for a single telectl run.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host    string
	Port    int
	Timeout time.Duration // connect and per-read timeout

	// ── Session ──────────────────────────────────────────────────────
	Username string        // authenticate as this user right after connecting
	Retry    int           // extra connect attempts after the first failure
	Poll     time.Duration // request telemetry at this interval; 0 disables

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec        string // raw user@host[:port] from -T
	TunnelEnabled     bool
	TunnelUser        string
	TunnelHost        string
	TunnelPort        int
	SSHKeyPath        string
	SSHPassword       bool // true → prompt interactively
	UseSSHAgent       bool
	StrictHostKey     bool
	KnownHostsPath    string
	KeepAliveInterval int // seconds; 0 disables

	// ── MQTT republish ───────────────────────────────────────────────
	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string

	// ── Output ───────────────────────────────────────────────────────
	Verbose    int
	Timestamps bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Host:              DefaultHost,
		Port:              DefaultPort,
		Timeout:           DefaultConnTimeout,
		TunnelPort:        DefaultSSHPort,
		KeepAliveInterval: DefaultKeepAliveInterval,
		MQTTTopic:         DefaultMQTTTopic,
	}
}

// Addr returns host:port of the telemetry server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ApplyTunnelSpec parses TunnelSpec into the Tunnel* fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &tcerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@bastion.example.com[:22]",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q, expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Host == "" {
		return &tcerr.ConfigError{
			Field:   "host",
			Message: "required",
			Hint:    "pass the server as the first argument: telectl <host> [port]",
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		return &tcerr.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    "the telemetry server listens on 8080 by default",
		}
	}
	if c.Timeout <= 0 {
		return &tcerr.ConfigError{
			Field:   "timeout",
			Value:   c.Timeout,
			Message: "must be positive",
		}
	}
	if c.Retry < 0 {
		return &tcerr.ConfigError{
			Field:   "retry",
			Value:   c.Retry,
			Message: "must not be negative",
		}
	}
	if c.Poll < 0 || (c.Poll > 0 && c.Poll < MinPollInterval) {
		return &tcerr.ConfigError{
			Field:   "poll",
			Value:   c.Poll,
			Message: fmt.Sprintf("must be 0 or at least %s", MinPollInterval),
			Hint:    "use --poll 1s to refresh telemetry every second",
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &tcerr.ConfigError{
			Field:   "tunnel",
			Message: "tunnel host is required",
			Hint:    "use -T user@bastion.example.com",
		}
	}
	if c.StrictHostKey && !c.TunnelEnabled {
		return &tcerr.ConfigError{
			Field:   "strict-hostkey",
			Message: "only applies to SSH tunnels",
			Hint:    "add -T user@host to route through a gateway",
		}
	}
	if c.MQTTUsername != "" && c.MQTTBroker == "" {
		return &tcerr.ConfigError{
			Field:   "mqtt-user",
			Value:   c.MQTTUsername,
			Message: "set without --mqtt-broker",
		}
	}
	return nil
}
