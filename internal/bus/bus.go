// Package bus is a small MQTT client on top of paho: it keeps subscriptions alive
// across reconnects, retries the first connection with backoff and bounds every
// publish by a timeout.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/shayanshabani/MotionGuard-IoT-and-Vision-Integration/internal/constants"
)

var (
	ErrNotConnected = errors.New("not connected to broker")
	ErrTimeout      = errors.New("broker operation timed out")
)

// qos 0 matches what the camera clients on the other end subscribe with.
const qos byte = 0

// Handler receives messages for a subscribed topic. It runs on paho's
// dispatch goroutine and must not block.
type Handler func(topic string, payload []byte)

// Options configure a Client. Zero values get defaults.
type Options struct {
	BrokerURL            string // tcp://host:port
	ClientID             string // motionguard-<uuid> when empty
	Username             string
	Password             string
	KeepAlive            time.Duration
	OperationTimeout     time.Duration // bound for publish/subscribe/connect tokens
	RetryInitialInterval time.Duration // first backoff step of the initial connect
	Logger               log.FieldLogger
}

func (o *Options) setDefaults() {
	if o.ClientID == "" {
		o.ClientID = "motionguard-" + uuid.NewString()
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = constants.DefaultKeepAlive
	}
	if o.OperationTimeout <= 0 {
		o.OperationTimeout = constants.DefaultOperationTimeout
	}
	if o.RetryInitialInterval <= 0 {
		o.RetryInitialInterval = time.Second
	}
	if o.Logger == nil {
		o.Logger = log.StandardLogger()
	}
}

// Client is a paho MQTT connection that remembers its subscriptions.
type Client struct {
	opts   Options
	client mqtt.Client
	log    log.FieldLogger

	mu   sync.Mutex
	subs map[string]Handler
}

// New creates a client for the broker in opts. Nothing is dialed until Connect.
func New(opts Options) *Client {
	c := newClient(opts)
	c.client = mqtt.NewClient(c.clientOptions())
	return c
}

// newWithClient wraps an existing paho client.
func newWithClient(pc mqtt.Client, opts Options) *Client {
	c := newClient(opts)
	c.client = pc
	return c
}

func newClient(opts Options) *Client {
	opts.setDefaults()
	return &Client{
		opts: opts,
		log:  opts.Logger.WithField("broker", opts.BrokerURL),
		subs: make(map[string]Handler),
	}
}

func (c *Client) clientOptions() *mqtt.ClientOptions {
	po := mqtt.NewClientOptions()
	po.AddBroker(c.opts.BrokerURL)
	po.SetClientID(c.opts.ClientID)
	po.SetUsername(c.opts.Username)
	po.SetPassword(c.opts.Password)
	po.SetKeepAlive(c.opts.KeepAlive)
	po.SetConnectTimeout(c.opts.OperationTimeout)
	po.SetAutoReconnect(true)
	po.SetMaxReconnectInterval(constants.MaxReconnectInterval)
	po.SetCleanSession(true)
	po.SetOnConnectHandler(c.onConnect)
	po.SetConnectionLostHandler(c.onConnectionLost)
	po.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		c.log.Info("Reconnecting to broker")
	})
	return po
}

// onConnect runs after every successful (re)connect. The session is clean, so
// every recorded subscription is made again.
func (c *Client) onConnect(pc mqtt.Client) {
	c.log.WithField("client_id", c.opts.ClientID).Info("Connected to broker")

	c.mu.Lock()
	subs := make(map[string]Handler, len(c.subs))
	for topic, h := range c.subs {
		subs[topic] = h
	}
	c.mu.Unlock()

	for topic, h := range subs {
		if err := c.subscribe(context.Background(), topic, h); err != nil {
			c.log.WithError(err).WithField("topic", topic).Error("Failed to subscribe")
		}
	}
}

func (c *Client) onConnectionLost(_ mqtt.Client, err error) {
	c.log.WithError(err).Warn("Connection to broker lost")
}

// Connect dials the broker, retrying with exponential backoff until it succeeds
// or ctx is done. Later connection losses are handled by paho's auto-reconnect.
func (c *Client) Connect(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryInitialInterval
	b.MaxInterval = constants.MaxReconnectInterval
	b.MaxElapsedTime = 0

	// A timed out attempt is still running inside paho; wait on it again rather
	// than starting a second one on top.
	var pending mqtt.Token
	op := func() error {
		if pending == nil {
			pending = c.client.Connect()
		}
		err := c.wait(ctx, pending, c.opts.OperationTimeout)
		if !errors.Is(err, ErrTimeout) {
			pending = nil
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		c.log.WithError(err).WithField("retry_in", next).Warn("Broker connection failed")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.opts.BrokerURL, err)
	}
	return nil
}

// Subscribe registers h for topic. The subscription is made now if connected and
// again after every reconnect.
func (c *Client) Subscribe(ctx context.Context, topic string, h Handler) error {
	c.mu.Lock()
	c.subs[topic] = h
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil
	}
	return c.subscribe(ctx, topic, h)
}

func (c *Client) subscribe(ctx context.Context, topic string, h Handler) error {
	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Topic(), msg.Payload())
	})
	if err := c.wait(ctx, token, c.opts.OperationTimeout); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	c.log.WithField("topic", topic).Debug("Subscribed")
	return nil
}

// Publish sends payload to topic and waits for the broker to accept it.
func (c *Client) Publish(ctx context.Context, topic, payload string) error {
	if !c.client.IsConnectionOpen() {
		return fmt.Errorf("publish %s: %w", topic, ErrNotConnected)
	}
	if err := c.wait(ctx, c.client.Publish(topic, qos, false, payload), c.opts.OperationTimeout); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the connection to the broker is currently up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Disconnect closes the connection, giving in-flight work quiesce time to finish.
func (c *Client) Disconnect(quiesce time.Duration) {
	c.client.Disconnect(uint(quiesce / time.Millisecond))
	c.log.Info("Disconnected from broker")
}

func (c *Client) wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTimeout
	}
}
