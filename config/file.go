package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile is the YAML profile read with --config.  It never carries
// credentials other than user names.
//
//	host: vehicle.example.com
//	port: 8080
//	timeout: 5s
//	user: alice
//	poll: 1s
//	tunnel:
//	  spec: ops@bastion.example.com
//	  agent: true
//	mqtt:
//	  broker: tcp://localhost:1883
//	  topic: fleet/car1
type Profile struct {
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Timeout string `yaml:"timeout,omitempty"`
	User    string `yaml:"user,omitempty"`
	Retry   int    `yaml:"retry,omitempty"`
	Poll    string `yaml:"poll,omitempty"`
	Verbose int    `yaml:"verbose,omitempty"`

	Timestamps bool `yaml:"timestamps,omitempty"`

	Tunnel *TunnelProfile `yaml:"tunnel,omitempty"`
	MQTT   *MQTTProfile   `yaml:"mqtt,omitempty"`
}

// TunnelProfile configures the SSH gateway.
type TunnelProfile struct {
	Spec          string `yaml:"spec"`
	Key           string `yaml:"key,omitempty"`
	Agent         bool   `yaml:"agent,omitempty"`
	Password      bool   `yaml:"password,omitempty"` // prompt for it
	StrictHostKey bool   `yaml:"strict_hostkey,omitempty"`
	KnownHosts    string `yaml:"known_hosts,omitempty"`
	KeepAlive     int    `yaml:"keep_alive,omitempty"`
}

// MQTTProfile configures event republishing.
type MQTTProfile struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic,omitempty"`
	ClientID string `yaml:"client_id,omitempty"`
	User     string `yaml:"user,omitempty"`
}

// LoadFile reads a YAML profile and overlays it onto cfg.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI flag
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data, cfg)
}

// ParseProfile decodes YAML data and overlays the fields it sets onto
// cfg.  Unknown keys are rejected.
func ParseProfile(data []byte, cfg *Config) error {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse profile: %w", err)
	}
	return p.apply(cfg)
}

func (p *Profile) apply(cfg *Config) error {
	if p.Host != "" {
		cfg.Host = p.Host
	}
	if p.Port != 0 {
		cfg.Port = p.Port
	}
	if p.Timeout != "" {
		d, err := parseDuration(p.Timeout)
		if err != nil {
			return fmt.Errorf("parse profile: timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if p.User != "" {
		cfg.Username = p.User
	}
	if p.Retry != 0 {
		cfg.Retry = p.Retry
	}
	if p.Poll != "" {
		d, err := parseDuration(p.Poll)
		if err != nil {
			return fmt.Errorf("parse profile: poll: %w", err)
		}
		cfg.Poll = d
	}
	if p.Verbose != 0 {
		cfg.Verbose = p.Verbose
	}
	if p.Timestamps {
		cfg.Timestamps = true
	}

	if t := p.Tunnel; t != nil {
		cfg.TunnelSpec = t.Spec
		cfg.SSHKeyPath = t.Key
		cfg.UseSSHAgent = t.Agent
		cfg.SSHPassword = t.Password
		cfg.StrictHostKey = t.StrictHostKey
		cfg.KnownHostsPath = t.KnownHosts
		if t.KeepAlive != 0 {
			cfg.KeepAliveInterval = t.KeepAlive
		}
	}
	if m := p.MQTT; m != nil {
		cfg.MQTTBroker = m.Broker
		if m.Topic != "" {
			cfg.MQTTTopic = m.Topic
		}
		cfg.MQTTClientID = m.ClientID
		cfg.MQTTUsername = m.User
	}
	return nil
}
