package nextmqtt

import "context"

// Client is the public handle to a broker session, wrapping the mutex
// guarded session domain. All methods are safe to call concurrently from
// multiple goroutines; the session domain serializes the actual work.
type Client struct {
	session *session
}

// New builds a Client for the broker at host:port. If clientID (set via
// WithClientID) contains '%' placeholders, each is replaced with two
// uppercase hex digits of a random byte before the session is built,
// spec.md section 6.
func New(host string, port int, opts ...Option) (*Client, error) {
	o := applyOptions(opts...)

	id, err := generateClientID(o.clientID)
	if err != nil {
		return nil, err
	}
	o.clientID = id

	return &Client{session: newSession(host, port, o)}, nil
}

// NewWithCredentials is a convenience constructor equivalent to passing
// WithCredentials(username, password) among opts.
func NewWithCredentials(host string, port int, username, password string, opts ...Option) (*Client, error) {
	return New(host, port, append([]Option{WithCredentials(username, password)}, opts...)...)
}

// Connect dials the broker and completes the CONNECT/CONNACK handshake.
// It returns the broker's session-present flag from the CONNACK, spec.md
// section 4.3.
func (c *Client) Connect(ctx context.Context) (bool, error) {
	return c.session.connect(ctx)
}

// Disconnect sends DISCONNECT (if connected) and tears the session down.
// It does not start the reconnect loop; a disconnected Client is done.
func (c *Client) Disconnect() {
	c.session.disconnect()
}

// State returns the session's current ConnectionState.
func (c *Client) State() ConnectionState {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	return c.session.state
}

// Subscribe establishes a single-filter subscription and returns the
// broker's granted reason code (which encodes the granted QoS on
// success), spec.md section 4.5.
func (c *Client) Subscribe(filter string, opts SubscribeOptions) (ReasonCode, error) {
	return c.session.subscribe(filter, opts)
}

// Unsubscribe removes a single-filter subscription, spec.md section 4.5.
func (c *Client) Unsubscribe(filter string) error {
	return c.session.unsubscribe(filter)
}

// Publish sends a message at the given QoS. It blocks until the delivery
// handshake for QoS 1/2 completes; QoS 0 returns as soon as the bytes are
// handed to the transport, spec.md section 4.4.
func (c *Client) Publish(topic string, qos byte, payload []byte) error {
	_, err := c.session.publish(topic, qos, payload)
	return err
}
