package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"telectl/config"
	tcerr "telectl/internal/errors"
	"telectl/internal/metrics"
	"telectl/internal/retry"
	"telectl/internal/session"
	"telectl/util"
)

var errQuit = errors.New("quit")

type command struct {
	name  string
	args  string
	help  string
	admin bool
	run   func(c *console, ctx context.Context, args []string) error
}

// commands is initialised in init to break the reference cycle with
// the help command.
var commands []command //nolint:gochecknoglobals

func init() {
	commands = []command{
		{"connect", "[host [port]]", "connect to the server", false, (*console).cmdConnect},
		{"auth", "<user> [password]", "log in (password is prompted when omitted)", false, (*console).cmdAuth},
		{"data", "", "request telemetry", false, (*console).cmdData},
		{"cmd", "<command>", "send SPEED_UP, SLOW_DOWN, TURN_LEFT or TURN_RIGHT", true, (*console).cmdVehicle},
		{"users", "", "list connected users", true, (*console).cmdUsers},
		{"recharge", "", "recharge the battery", true, (*console).cmdRecharge},
		{"state", "", "show the session state", false, (*console).cmdState},
		{"stats", "", "show connection statistics as JSON", false, (*console).cmdStats},
		{"wait", "<duration>", "pause, e.g. for scripted input", false, (*console).cmdWait},
		{"disconnect", "", "close the connection", false, (*console).cmdDisconnect},
		{"help", "", "show this list", false, (*console).cmdHelp},
		{"quit", "", "disconnect and exit", false, (*console).cmdQuit},
	}
}

func commandHelp() string {
	var b strings.Builder
	for _, c := range commands {
		usage := strings.TrimSpace(c.name + " " + c.args)
		note := c.help
		if c.admin {
			note += " (administrator)"
		}
		fmt.Fprintf(&b, "  %-30s %s\n", usage, note)
	}
	return b.String()
}

type line struct {
	text string
	err  error
}

// console reads commands line by line and prints session events.  The
// input goroutine only reads when asked, so a password prompt can take
// over the terminal between commands.
type console struct {
	session *session.Session
	cfg     *config.Config
	logger  *util.Logger
	metrics *metrics.Collector
	stdin   io.Reader

	outMu sync.Mutex
	out   io.Writer

	want  chan struct{}
	lines chan line
	eof   chan struct{}
	once  sync.Once
}

func newConsole(in io.Reader, out io.Writer, cfg *config.Config, logger *util.Logger, m *metrics.Collector) *console {
	return &console{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		stdin:   in,
		out:     out,
		want:    make(chan struct{}),
		lines:   make(chan line, 1),
		eof:     make(chan struct{}),
	}
}

// Run connects to the configured server and executes commands until
// quit, end of input or ctx cancellation.
func (c *console) Run(ctx context.Context) error {
	c.once.Do(func() { go c.scan() })

	if err := c.connect(ctx, c.cfg.Host, c.cfg.Port); err != nil {
		c.printf("error: %v\n", err)
	} else if c.cfg.Username != "" {
		if err := c.cmdAuth(ctx, []string{c.cfg.Username}); err != nil {
			c.printf("error: %v\n", err)
		}
	}
	if c.cfg.Poll > 0 {
		go c.poll(ctx, c.cfg.Poll)
	}

	for {
		text, err := c.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		err = c.exec(ctx, text)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			c.printf("error: %v\n", err)
		}
	}
}

// HandleEvent implements session.Handler.  Error events are only
// logged: the failing command reports them, and a lost connection is
// announced by the Disconnected event that follows.
func (c *console) HandleEvent(ev session.Event) {
	switch ev.(type) {
	case session.RawMessageReceived:
		c.logger.Debug("%s", ev)
		return
	case session.Error:
		c.logger.Verbose("%s", ev)
		return
	}
	c.printf("< %s\n", ev)
}

func (c *console) exec(ctx context.Context, text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	name := strings.ToLower(fields[0])
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd.run(c, ctx, fields[1:])
		}
	}
	switch name {
	case "exit":
		return errQuit
	case "telemetry":
		return c.cmdData(ctx, fields[1:])
	}
	return fmt.Errorf("unknown command %q (try help)", fields[0])
}

// ── commands ─────────────────────────────────────────────────────────

func (c *console) cmdConnect(ctx context.Context, args []string) error {
	host, port := c.cfg.Host, c.cfg.Port
	if len(args) > 0 {
		host = args[0]
	}
	if len(args) > 1 {
		p, err := util.ParsePort(args[1])
		if err != nil {
			return err
		}
		port = p
	}
	return c.connect(ctx, host, port)
}

func (c *console) cmdAuth(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("usage: auth <user> [password]")
	}
	user := args[0]
	var pass string
	if len(args) == 2 {
		pass = args[1]
	} else {
		p, err := c.secretCtx(ctx, fmt.Sprintf("Password for %s", user))
		if err != nil {
			return err
		}
		pass = p
	}
	return c.session.Authenticate(user, pass)
}

func (c *console) cmdData(context.Context, []string) error {
	return c.session.RequestTelemetry()
}

func (c *console) cmdVehicle(_ context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cmd <command>")
	}
	return c.session.SendVehicleCommand(strings.ToUpper(args[0]))
}

func (c *console) cmdUsers(context.Context, []string) error {
	return c.session.RequestUserList()
}

func (c *console) cmdRecharge(context.Context, []string) error {
	return c.session.RequestRecharge()
}

func (c *console) cmdState(context.Context, []string) error {
	snap := c.session.Snapshot()
	c.printf("state:    %s\n", snap.State)
	if snap.Addr != "" {
		c.printf("server:   %s\n", snap.Addr)
	}
	c.printf("role:     %s\n", c.session.EffectiveRole())
	if snap.Username != "" {
		c.printf("user:     %s\n", snap.Username)
	}
	c.printf("vehicle:  %s\n", snap.Vehicle)
	if len(snap.Users) > 0 {
		c.printf("users:    %s\n", strings.Join(snap.Users, " "))
	}
	return nil
}

func (c *console) cmdStats(context.Context, []string) error {
	c.printf("%s\n", c.metrics.JSON())
	return nil
}

func (c *console) cmdWait(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: wait <duration>")
	}
	d, err := time.ParseDuration(args[0])
	if err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *console) cmdDisconnect(context.Context, []string) error {
	return c.session.Disconnect()
}

func (c *console) cmdHelp(context.Context, []string) error {
	c.printf("%s", commandHelp())
	return nil
}

func (c *console) cmdQuit(context.Context, []string) error {
	return errQuit
}

// ── plumbing ─────────────────────────────────────────────────────────

// connect dials with backoff.  Only connect failures are retried.
func (c *console) connect(ctx context.Context, host string, port int) error {
	b := &retry.Backoff{
		Base:     config.DefaultRetryBase,
		Max:      config.DefaultRetryMax,
		Attempts: c.cfg.Retry + 1,
		Jitter:   true,
		Retryable: func(err error) bool {
			return tcerr.KindOf(err) == tcerr.KindConnectFailure
		},
		OnRetry: func(attempt int, err error, wait time.Duration) {
			c.logger.Info("attempt %d failed, retrying in %s", attempt, wait.Round(time.Millisecond))
		},
	}
	return b.Do(ctx, func(int) error {
		return c.session.Connect(ctx, host, port)
	})
}

// poll requests telemetry on every tick while connected.
func (c *console) poll(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !c.session.IsConnected() {
				continue
			}
			if err := c.session.RequestTelemetry(); err != nil {
				c.logger.Debug("poll: %v", err)
			}
		}
	}
}

func (c *console) scan() {
	sc := bufio.NewScanner(c.stdin)
	for range c.want {
		if sc.Scan() {
			c.lines <- line{text: sc.Text()}
			continue
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		c.lines <- line{err: err}
		close(c.eof)
		return
	}
}

func (c *console) readLine(ctx context.Context) (string, error) {
	select {
	case c.want <- struct{}{}:
	case <-c.eof:
		return "", io.EOF
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case l := <-c.lines:
		return l.text, l.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// secret reads a password.  On a terminal input is not echoed; piped
// input supplies it as the next line.
func (c *console) secret(label string) (string, error) {
	return c.secretCtx(context.Background(), label)
}

func (c *console) secretCtx(ctx context.Context, label string) (string, error) {
	if f, ok := c.stdin.(*os.File); ok && util.IsTerminal(f) {
		return util.ReadSecret(label)
	}
	c.once.Do(func() { go c.scan() })
	text, err := c.readLine(ctx)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (c *console) printf(format string, args ...interface{}) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
