package ble

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ClientOptions configures client behavior.
type ClientOptions struct {
	QueueSize       int           // max texts held while disconnected
	ReconnectMax    time.Duration // reconnect backoff ceiling
	InterChunkDelay time.Duration // pause between chunk writes
}

// DefaultClientOptions returns sensible defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		QueueSize:       64,
		ReconnectMax:    30 * time.Second,
		InterChunkDelay: 20 * time.Millisecond,
	}
}

// Client manages the connection to the keyboard bridge and satisfies
// inject.BLESender.
type Client struct {
	adapter Adapter
	addr    string
	key     []byte // derived AES-256 session key
	opts    ClientOptions

	mu        sync.Mutex
	conn      Connection
	textChar  Characteristic
	connected bool
	queue     []string

	seq atomic.Uint32
}

// NewClient creates a client for the bridge at addr. hexKey is the
// hex-encoded 32-byte pre-shared key from config.
func NewClient(adapter Adapter, addr, hexKey string, opts ClientOptions) (*Client, error) {
	key, err := ParseKey(hexKey)
	if err != nil {
		return nil, err
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.ReconnectMax <= 0 {
		opts.ReconnectMax = 30 * time.Second
	}
	if opts.InterChunkDelay <= 0 {
		opts.InterChunkDelay = 20 * time.Millisecond
	}
	return &Client{adapter: adapter, addr: addr, key: key, opts: opts}, nil
}

// Connect enables the adapter and establishes the initial connection.
// A dropped link later triggers background reconnection with backoff.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("ble: enable adapter: %w", err)
	}

	conn, err := c.adapter.Connect(ctx, c.addr)
	if err != nil {
		return fmt.Errorf("ble: initial connect: %w", err)
	}

	if err := c.attach(conn); err != nil {
		conn.Disconnect()
		return err
	}

	slog.Info("ble connected", "addr", c.addr)
	return nil
}

// Send encrypts and transmits text to the bridge. While disconnected the
// text is queued for delivery after reconnect. Safe for concurrent use.
func (c *Client) Send(text string) error {
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if !c.connected {
		c.enqueue(text)
		c.mu.Unlock()
		return nil
	}
	textChar := c.textChar
	c.mu.Unlock()

	return c.sendChunked(textChar, text)
}

// Close disconnects the client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.queue) > 0 {
		slog.Warn("ble closing with unsent messages", "count", len(c.queue))
	}
	if c.conn != nil {
		c.conn.Disconnect()
	}
	c.connected = false
	c.conn = nil
	c.textChar = nil
	return nil
}

// QueueLen returns the number of texts waiting for reconnection.
func (c *Client) QueueLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// sendChunked splits text into MTU-safe chunks and writes each as one
// encrypted frame.
func (c *Client) sendChunked(textChar Characteristic, text string) error {
	chunks := chunkText(text, maxChunkBytes)
	for i, chunk := range chunks {
		sealed, err := seal(c.key, []byte(chunk))
		if err != nil {
			return err
		}
		frame := encodeFrame(c.seq.Add(1), sealed)
		if err := textChar.Write(frame); err != nil {
			return fmt.Errorf("ble: write chunk %d/%d: %w", i+1, len(chunks), err)
		}
		// Give the bridge time to drain its HID output between chunks.
		if i < len(chunks)-1 {
			time.Sleep(c.opts.InterChunkDelay)
		}
	}
	return nil
}

// attach discovers the text characteristic and marks the link live.
func (c *Client) attach(conn Connection) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	textChar, err := conn.DiscoverCharacteristic(ServiceUUID, TextUUID)
	if err != nil {
		return fmt.Errorf("ble: discover text characteristic: %w", err)
	}
	c.conn = conn
	c.textChar = textChar
	c.connected = true

	conn.OnDisconnect(func() {
		slog.Warn("ble disconnected, reconnecting", "addr", c.addr)
		c.detach()
		go c.reconnectLoop()
	})
	return nil
}

func (c *Client) detach() {
	c.mu.Lock()
	c.connected = false
	c.conn = nil
	c.textChar = nil
	c.mu.Unlock()
}

// enqueue holds text for later delivery, dropping the oldest entry when
// full. Caller must hold mu.
func (c *Client) enqueue(text string) {
	if len(c.queue) >= c.opts.QueueSize {
		slog.Warn("ble queue full, dropping oldest message")
		c.queue = c.queue[1:]
	}
	c.queue = append(c.queue, text)
}

// flushQueue delivers texts queued during a disconnect. Failures are
// logged and dropped; for keyboard input, stale keystrokes are worse
// than missing ones.
func (c *Client) flushQueue() {
	c.mu.Lock()
	if !c.connected || len(c.queue) == 0 {
		c.mu.Unlock()
		return
	}
	queued := make([]string, len(c.queue))
	copy(queued, c.queue)
	c.queue = c.queue[:0]
	textChar := c.textChar
	c.mu.Unlock()

	for _, text := range queued {
		if err := c.sendChunked(textChar, text); err != nil {
			slog.Error("ble flush failed", "error", err)
		}
	}
}

// reconnectLoop retries the connection with exponential backoff until it
// succeeds.
func (c *Client) reconnectLoop() {
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt-1, c.opts.ReconnectMax)
			slog.Debug("ble reconnect backoff", "attempt", attempt+1, "delay", delay)
			time.Sleep(delay)
		}

		conn, err := c.adapter.Connect(context.Background(), c.addr)
		if err != nil {
			slog.Warn("ble reconnect failed", "error", err, "attempt", attempt+1)
			continue
		}
		if err := c.attach(conn); err != nil {
			slog.Warn("ble reconnect attach failed", "error", err, "attempt", attempt+1)
			conn.Disconnect()
			continue
		}

		slog.Info("ble reconnected", "addr", c.addr)
		c.flushQueue()
		return
	}
}

// backoffDelay returns the delay for reconnect attempt n, capped at max.
func backoffDelay(attempt int, max time.Duration) time.Duration {
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}
