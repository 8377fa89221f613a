// Package cmd wires up the CLI flags and runs the interactive console.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"telectl/config"
	"telectl/internal/metrics"
	"telectl/internal/publish"
	"telectl/internal/session"
	"telectl/internal/transport"
	"telectl/tunnel"
	"telectl/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X telectl/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the console against the configured
// server.
func Execute(ctx context.Context, args []string) error {
	return execute(ctx, args, os.Stdin, os.Stdout)
}

func execute(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	cfg := config.Default()

	// The profile is applied before env and flags so both override it.
	if path := profilePath(args); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("telectl", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var profile string
	fs.StringVar(&profile, "config", "", "YAML profile file")

	// ── connection / session ─────────────────────────────────────
	fs.DurationVarP(&cfg.Timeout, "timeout", "w", cfg.Timeout, "Connect and read timeout")
	fs.StringVarP(&cfg.Username, "user", "u", cfg.Username, "Authenticate as this user after connecting")
	fs.IntVar(&cfg.Retry, "retry", cfg.Retry, "Extra connect attempts with backoff")
	fs.DurationVar(&cfg.Poll, "poll", cfg.Poll, "Request telemetry at this interval (0 disables)")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")
	fs.IntVar(&cfg.KeepAliveInterval, "keep-alive", cfg.KeepAliveInterval, "SSH keepalive interval in seconds (0 disables)")

	// ── MQTT republish ───────────────────────────────────────────
	fs.StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "Republish events to this broker (tcp://host:1883)")
	fs.StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic prefix")
	fs.StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client id (defaults to the topic prefix)")
	fs.StringVar(&cfg.MQTTUsername, "mqtt-user", cfg.MQTTUsername, "MQTT user name (password is prompted)")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.BoolVar(&cfg.Timestamps, "timestamps", cfg.Timestamps, "Prefix log lines with timestamps")

	var showVersion, showHelp, dryRun bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")
	fs.BoolVar(&dryRun, "dry-run", false, "Validate the configuration, print it and exit")

	fs.Usage = func() { printUsage(stdout, fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showHelp {
		printUsage(stdout, fs)
		return nil
	}
	if showVersion {
		fmt.Fprintf(stdout, "telectl %s\n", version)
		return nil
	}

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if dryRun {
		printConfig(stdout, cfg)
		return nil
	}

	return run(ctx, cfg, stdin, stdout)
}

// run builds the components and drives the console until quit, EOF or
// ctx cancellation.
func run(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer) error {
	logger := util.NewLogger(cfg.Verbose)
	if cfg.Timestamps {
		logger.SetTimestamps(true)
	}
	m := metrics.New()

	con := newConsole(stdin, stdout, cfg, logger, m)

	var dialer transport.Dialer = &transport.TCPDialer{Timeout: cfg.Timeout}
	if cfg.TunnelEnabled {
		dialer = transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
			KeepAlive:     time.Duration(cfg.KeepAliveInterval) * time.Second,
			Prompt:        con.secret,
		}, logger)
	}

	handlers := session.Handlers{con}
	if cfg.MQTTBroker != "" {
		pub, err := newPublisher(cfg, con, logger)
		if err != nil {
			return err
		}
		if err := pub.Connect(); err != nil {
			logger.Warn("%v", err)
		}
		defer pub.Close()
		handlers = append(handlers, pub)
	}

	s := session.New(session.Options{
		Dialer:  dialer,
		Timeout: cfg.Timeout,
		Logger:  logger,
		Metrics: m,
		Handler: handlers,
	})
	defer s.Close()

	con.session = s
	return con.Run(ctx)
}

func newPublisher(cfg *config.Config, con *console, logger *util.Logger) (*publish.Publisher, error) {
	opts := publish.Options{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		Username:    cfg.MQTTUsername,
		TopicPrefix: cfg.MQTTTopic,
		QoS:         1,
		Logger:      logger,
	}
	if cfg.MQTTUsername != "" {
		pass, err := con.secret(fmt.Sprintf("MQTT password for %s", cfg.MQTTUsername))
		if err != nil {
			return nil, fmt.Errorf("mqtt password: %w", err)
		}
		opts.Password = pass
	}
	return publish.New(opts), nil
}

// ── helpers ──────────────────────────────────────────────────────────

// profilePath finds --config before the flag set exists, so the file
// can supply defaults for the remaining flags.
func profilePath(args []string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--config="); ok {
			return v
		}
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// parsePositional accepts [host [port]].
func parsePositional(cfg *config.Config, remaining []string) error {
	switch len(remaining) {
	case 0:
	case 1:
		cfg.Host = remaining[0]
	case 2:
		cfg.Host = remaining[0]
		port, err := util.ParsePort(remaining[1])
		if err != nil {
			return fmt.Errorf("port %q: %w", remaining[1], err)
		}
		cfg.Port = port
	default:
		return fmt.Errorf("too many arguments (use --help for usage)")
	}
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "server:   %s (timeout %s)\n", cfg.Addr(), cfg.Timeout)
	if cfg.Username != "" {
		fmt.Fprintf(w, "user:     %s\n", cfg.Username)
	}
	if cfg.Retry > 0 {
		fmt.Fprintf(w, "retry:    %d\n", cfg.Retry)
	}
	if cfg.Poll > 0 {
		fmt.Fprintf(w, "poll:     %s\n", cfg.Poll)
	}
	if cfg.TunnelEnabled {
		fmt.Fprintf(w, "tunnel:   %s@%s:%d\n", cfg.TunnelUser, cfg.TunnelHost, cfg.TunnelPort)
	}
	if cfg.MQTTBroker != "" {
		fmt.Fprintf(w, "mqtt:     %s (topic %s)\n", cfg.MQTTBroker, cfg.MQTTTopic)
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `telectl - vehicle telemetry remote control v%s

Usage:
  telectl [options] [host [port]]             Connect (default localhost 8080)
  telectl -T user@gateway <host> <port>       Connect through an SSH tunnel

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Console commands:
%s
Examples:
  telectl vehicle.local 8080                  Connect and observe
  telectl -u alice --poll 1s vehicle.local    Log in and follow telemetry
  telectl --config car1.yaml --mqtt-broker tcp://localhost:1883
`, commandHelp())
}
