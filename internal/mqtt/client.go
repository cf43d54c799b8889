package mqtt

import (
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/SceneEngine/internal/events"
)

// DefaultBrokerURL is used when the config leaves the broker empty.
const DefaultBrokerURL = "tcp://localhost:1883"

const opTimeout = 10 * time.Second

// Client wraps the Paho MQTT client used to reach collaborators.
type Client struct {
	client paho.Client
	url    string
	mu     sync.Mutex

	hookMu    sync.Mutex
	onConnect func()
}

// NewClient creates a new MQTT client but does not connect.
func NewClient(url, clientID string) *Client {
	if url == "" {
		url = DefaultBrokerURL
	}
	c := &Client{url: url}
	opts := paho.NewClientOptions().
		AddBroker(url).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(func(paho.Client) { c.connected() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) { c.lost(err) })

	c.client = paho.NewClient(opts)
	return c
}

// URL returns the broker URL.
func (c *Client) URL() string { return c.url }

// OnConnect registers fn to run after every (re)connect. Subscriptions do
// not survive a clean reconnect, so the bridge resubscribes from here.
func (c *Client) OnConnect(fn func()) {
	c.hookMu.Lock()
	c.onConnect = fn
	c.hookMu.Unlock()
}

func (c *Client) connected() {
	events.Emit("info", "collaborator.connected", "", map[string]interface{}{"broker": c.url})
	c.hookMu.Lock()
	fn := c.onConnect
	c.hookMu.Unlock()
	if fn != nil {
		// Paho runs this on its own goroutine; subscribing inline would
		// deadlock against the connect token.
		go fn()
	}
}

func (c *Client) lost(err error) {
	fields := map[string]interface{}{"broker": c.url}
	if err != nil {
		fields["error"] = err.Error()
	}
	events.Emit("warn", "collaborator.disconnected", "connection lost", fields)
}

// Connect attempts to connect to the broker.
// Returns an error if connection fails, but does not block indefinitely.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(opTimeout) {
		return &ConnectTimeoutError{}
	}
	return token.Error()
}

// Subscribe subscribes to a topic with the given handler.
func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(opTimeout) {
		return &SubscribeTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Publish sends payload on topic at QoS 1 and waits for the broker ack.
func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(opTimeout) {
		return &PublishTimeoutError{Topic: topic}
	}
	return token.Error()
}

// Disconnect cleanly disconnects from the broker.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// ConnectTimeoutError indicates connection timed out.
type ConnectTimeoutError struct{}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout"
}

// SubscribeTimeoutError indicates subscription timed out.
type SubscribeTimeoutError struct {
	Topic string
}

func (e *SubscribeTimeoutError) Error() string {
	return "mqtt subscribe timeout: " + e.Topic
}

// PublishTimeoutError indicates a publish was not acknowledged in time.
type PublishTimeoutError struct {
	Topic string
}

func (e *PublishTimeoutError) Error() string {
	return "mqtt publish timeout: " + e.Topic
}

// Start attempts to connect, logging errors but not crashing. Paho keeps
// retrying in the background, so a false return is not fatal.
func (c *Client) Start() bool {
	if err := c.Connect(); err != nil {
		log.Printf("mqtt: failed to connect to %s: %v", c.url, err)
		return false
	}
	log.Printf("mqtt: connected to %s", c.url)
	return true
}
