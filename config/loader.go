package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Profile file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the TELECTL_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// syntax ("1500ms") or a bare number of seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("TELECTL_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("TELECTL_PORT"); v > 0 {
		cfg.Port = v
	}
	if v := envDuration("TELECTL_TIMEOUT"); v > 0 {
		cfg.Timeout = v
	}
	if v := os.Getenv("TELECTL_USER"); v != "" {
		cfg.Username = v
	}
	if v := envInt("TELECTL_RETRY"); v > 0 {
		cfg.Retry = v
	}
	if v := envDuration("TELECTL_POLL"); v > 0 {
		cfg.Poll = v
	}

	// SSH tunnel
	if v := os.Getenv("TELECTL_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("TELECTL_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("TELECTL_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("TELECTL_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("TELECTL_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("TELECTL_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}
	if v := envInt("TELECTL_KEEP_ALIVE"); v > 0 {
		cfg.KeepAliveInterval = v
	}

	// MQTT
	if v := os.Getenv("TELECTL_MQTT_BROKER"); v != "" {
		cfg.MQTTBroker = v
	}
	if v := os.Getenv("TELECTL_MQTT_TOPIC"); v != "" {
		cfg.MQTTTopic = v
	}
	if v := os.Getenv("TELECTL_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTTClientID = v
	}
	if v := os.Getenv("TELECTL_MQTT_USER"); v != "" {
		cfg.MQTTUsername = v
	}

	// Output
	if v := envInt("TELECTL_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if envBool("TELECTL_TIMESTAMPS") {
		cfg.Timestamps = true
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) time.Duration {
	d, _ := parseDuration(os.Getenv(key))
	return d
}

// parseDuration accepts "250ms", "2s" or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
