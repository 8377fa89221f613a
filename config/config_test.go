package config

import (
	"strings"
	"testing"
	"time"

	tcerr "telectl/internal/errors"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestApplyTunnelSpec(t *testing.T) {
	cfg := Default()
	cfg.TunnelSpec = "ops@bastion:2200"
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if !cfg.TunnelEnabled || cfg.TunnelUser != "ops" || cfg.TunnelHost != "bastion" || cfg.TunnelPort != 2200 {
		t.Errorf("got %+v", cfg)
	}

	cfg = Default()
	cfg.TunnelSpec = "x@y:0"
	err := cfg.ApplyTunnelSpec()
	var ce *tcerr.ConfigError
	if !tcerr.As(err, &ce) || ce.Field != "tunnel" {
		t.Fatalf("err = %v, want ConfigError on tunnel", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Addr() != "localhost:8080" {
		t.Errorf("Addr = %q", cfg.Addr())
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// ── Validate ─────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string // empty means valid
	}{
		{"defaults", func(*Config) {}, ""},
		{"no host", func(c *Config) { c.Host = "" }, "host"},
		{"port zero", func(c *Config) { c.Port = 0 }, "port"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "port"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout"},
		{"negative retry", func(c *Config) { c.Retry = -1 }, "retry"},
		{"poll too fast", func(c *Config) { c.Poll = time.Millisecond }, "poll"},
		{"poll ok", func(c *Config) { c.Poll = time.Second }, ""},
		{"tunnel without host", func(c *Config) { c.TunnelEnabled = true }, "tunnel"},
		{"strict without tunnel", func(c *Config) { c.StrictHostKey = true }, "strict-hostkey"},
		{"mqtt user without broker", func(c *Config) { c.MQTTUsername = "bob" }, "mqtt-user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *tcerr.ConfigError
			if !tcerr.As(err, &ce) {
				t.Fatalf("err = %v, want *ConfigError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

// TestValidate_Hints verifies that common mistakes come with a hint.
func TestValidate_Hints(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.Host = "" },
		func(c *Config) { c.Port = 99999 },
		func(c *Config) { c.Poll = time.Millisecond },
	} {
		cfg := Default()
		mutate(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "hint:") {
			t.Errorf("error %v should carry a hint", err)
		}
	}
}
