// Package publish republishes session events to an MQTT broker so that
// dashboards can follow a vehicle without holding a server connection
// of their own.
//
// Topics, relative to the configured prefix:
//
//	<prefix>/status     "online" / "offline" (retained, also the will)
//	<prefix>/session    connection and authentication changes (retained)
//	<prefix>/telemetry  latest vehicle state (retained)
//	<prefix>/users      latest user list (retained)
//	<prefix>/ack        OK / ERROR replies to commands
package publish

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"

	"telectl/internal/retry"
	"telectl/internal/session"
	"telectl/util"
)

const (
	DefaultTopicPrefix = "telectl"
	DefaultTimeout     = 5 * time.Second
)

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Options configure a [Publisher].
type Options struct {
	Broker      string // e.g. tcp://localhost:1883
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Timeout     time.Duration
	Logger      *util.Logger
}

// Publisher is a [session.Handler] that forwards events to MQTT.
type Publisher struct {
	client  Client
	prefix  string
	qos     byte
	timeout time.Duration
	logger  *util.Logger
	breaker *retry.Breaker
	now     func() time.Time
}

// New builds a publisher with a paho client for opts.Broker.  The
// broker is not contacted until [Publisher.Connect].
func New(opts Options) *Publisher {
	opts = withDefaults(opts)
	mopt := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetClientID(opts.ClientID).
		SetConnectTimeout(opts.Timeout).
		SetKeepAlive(opts.Timeout*6).
		SetPingTimeout(opts.Timeout).
		SetWill(opts.TopicPrefix+"/status", "offline", opts.QoS, true).
		SetWriteTimeout(opts.Timeout)
	if opts.Username != "" {
		mopt.SetUsername(opts.Username).SetPassword(opts.Password)
	}
	return NewWithClient(mqtt.NewClient(mopt), opts)
}

// NewWithClient wraps an existing client.
func NewWithClient(c Client, opts Options) *Publisher {
	opts = withDefaults(opts)
	p := &Publisher{
		client:  c,
		prefix:  opts.TopicPrefix,
		qos:     opts.QoS,
		timeout: opts.Timeout,
		logger:  opts.Logger.Named("mqtt"),
		now:     time.Now,
	}
	p.breaker = &retry.Breaker{
		Threshold: 3,
		Cooldown:  30 * time.Second,
		OnChange: func(from, to retry.BreakerState) {
			p.logger.Verbose("publishing %s -> %s", from, to)
		},
	}
	return p
}

func withDefaults(opts Options) Options {
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}
	if opts.ClientID == "" {
		opts.ClientID = opts.TopicPrefix
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = util.NewLogger(0)
	}
	return opts
}

// Connect contacts the broker and announces the client as online.
func (p *Publisher) Connect() error {
	if err := p.tokenWait(p.client.Connect(), "connect"); err != nil {
		return err
	}
	p.logger.Verbose("connected to broker")
	return p.publish("status", true, "online")
}

// Close announces the client as offline and disconnects.
func (p *Publisher) Close() {
	if !p.client.IsConnected() {
		return
	}
	if err := p.publish("status", true, "offline"); err != nil {
		p.logger.Debug("%v", err)
	}
	p.client.Disconnect(uint(p.timeout / time.Millisecond))
}

// HandleEvent implements [session.Handler].  Publish failures are
// logged and otherwise ignored; after repeated failures events are
// dropped for a while instead of waiting out the timeout each time.
func (p *Publisher) HandleEvent(ev session.Event) {
	topic, retained, msg := p.message(ev)
	if topic == "" {
		return
	}
	if !p.client.IsConnected() || !p.breaker.Allow() {
		p.logger.Debug("broker unavailable, dropping %s", topic)
		return
	}
	err := p.publish(topic, retained, msg)
	p.breaker.Record(err)
	if err != nil {
		p.logger.Warn("%v", err)
	}
}

type sessionMessage struct {
	State string `json:"state"`
	Addr  string `json:"addr,omitempty"`
	User  string `json:"user,omitempty"`
	Error string `json:"error,omitempty"`
	Time  int64  `json:"time"`
}

type telemetryMessage struct {
	Speed       int    `json:"speed"`
	Battery     int    `json:"battery"`
	Temperature int    `json:"temperature"`
	Direction   string `json:"direction"`
	Partial     bool   `json:"partial,omitempty"`
	Time        int64  `json:"time"`
}

type usersMessage struct {
	Users []string `json:"users"`
	Time  int64    `json:"time"`
}

type ackMessage struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Time    int64  `json:"time"`
}

// message maps an event onto a topic suffix and payload.  Events that
// are not republished yield an empty topic.
func (p *Publisher) message(ev session.Event) (string, bool, interface{}) {
	now := p.now().Unix()
	switch e := ev.(type) {
	case session.Connected:
		return "session", true, sessionMessage{State: "connected", Addr: e.Addr, Time: now}
	case session.Disconnected:
		m := sessionMessage{State: "disconnected", Time: now}
		if e.Err != nil {
			m.Error = e.Err.Error()
		}
		return "session", true, m
	case session.AuthSucceeded:
		return "session", true, sessionMessage{State: "authenticated", User: e.Username, Time: now}
	case session.AuthFailed:
		return "session", true, sessionMessage{State: "connected", Error: "authentication failed", Time: now}
	case session.TelemetryUpdated:
		return "telemetry", true, telemetryMessage{
			Speed:       e.Vehicle.Speed,
			Battery:     e.Vehicle.Battery,
			Temperature: e.Vehicle.Temperature,
			Direction:   string(e.Vehicle.Direction),
			Partial:     e.Err != nil,
			Time:        now,
		}
	case session.UsersUpdated:
		return "users", true, usersMessage{Users: e.Users, Time: now}
	case session.CommandAck:
		return "ack", false, ackMessage{OK: true, Message: e.Message, Time: now}
	case session.CommandError:
		return "ack", false, ackMessage{OK: false, Message: e.Message, Time: now}
	}
	return "", false, nil
}

func (p *Publisher) publish(suffix string, retained bool, msg interface{}) error {
	var payload []byte
	switch m := msg.(type) {
	case string:
		payload = []byte(m)
	default:
		b, err := json.Marshal(m)
		if err != nil {
			return errors.Annotatef(err, "encode %s", suffix)
		}
		payload = b
	}
	topic := p.prefix + "/" + suffix
	return p.tokenWait(p.client.Publish(topic, p.qos, retained, payload), "publish "+topic)
}

func (p *Publisher) tokenWait(t mqtt.Token, tag string) error {
	if !t.WaitTimeout(p.timeout) {
		return errors.Errorf("mqtt %s: timeout", tag)
	}
	if err := t.Error(); err != nil {
		return errors.Annotatef(err, "mqtt %s", tag)
	}
	return nil
}
