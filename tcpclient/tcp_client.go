// Package tcpclient provides an event-driven TCP client for length-delimited
// framed streams. Callers register handlers for connection state changes,
// received frames and errors, then Connect. Frames are delivered one at a
// time on the read goroutine in the order they arrived.
package tcpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/cyberinferno/movectl/framedconn"
)

// ConnectionState is the lifecycle state of a Client.
type ConnectionState int

const (
	Disconnected ConnectionState = iota // Not connected
	Connecting                          // Dial in progress
	Connected                           // Connected and reading
	Closed                              // Closed by the caller; cannot be reused
)

// String returns the state name.
func (cs ConnectionState) String() string {
	switch cs {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// ConnectionStateEvent is passed to the OnConnectionState handler.
type ConnectionStateEvent struct {
	State     ConnectionState
	Address   string
	Timestamp time.Time
	Error     error // set when the change was caused by an error
}

// FrameEvent is passed to the OnFrame handler.
type FrameEvent struct {
	Payload   []byte
	Timestamp time.Time
}

// ErrorEvent is passed to the OnError handler.
type ErrorEvent struct {
	Error     error
	Timestamp time.Time
}

// ConnectionStateHandler is called asynchronously on state changes.
type ConnectionStateHandler func(event ConnectionStateEvent)

// FrameHandler is called synchronously on the read goroutine for every
// frame. A slow handler delays the next read.
type FrameHandler func(event FrameEvent)

// ErrorHandler is called asynchronously for read, write and dial errors.
type ErrorHandler func(event ErrorEvent)

// Config holds client settings.
type Config struct {
	// Address is the "host:port" to connect to.
	Address string
	// ConnectionTimeout bounds the dial.
	ConnectionTimeout time.Duration
	// WriteTimeout bounds each Send; 0 means no timeout.
	WriteTimeout time.Duration
	// ReadTimeout bounds the wait for each frame; 0 means wait forever.
	ReadTimeout time.Duration
	// MaxFrameSize is the largest accepted frame payload.
	MaxFrameSize int
}

// DefaultConfig returns a Config for address with a 10s dial and write
// timeout, no read timeout and the default frame limit.
func DefaultConfig(address string) Config {
	return Config{
		Address:           address,
		ConnectionTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadTimeout:       0,
		MaxFrameSize:      framedconn.DefaultMaxFrameSize,
	}
}

// Client is an event-driven framed TCP client. It is safe for concurrent use.
type Client struct {
	config Config

	mu      sync.RWMutex
	writeMu sync.Mutex
	conn    net.Conn
	state   ConnectionState
	used    bool
	closing bool
	closed  bool
	readErr error

	onConnectionState ConnectionStateHandler
	onFrame           FrameHandler
	onError           ErrorHandler

	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup
}

// New returns a Disconnected client for config.
func New(config Config) *Client {
	return &Client{
		config: config,
		state:  Disconnected,
		done:   make(chan struct{}),
	}
}

// OnConnectionState sets the state handler, replacing any previous one.
func (c *Client) OnConnectionState(handler ConnectionStateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnectionState = handler
}

// OnFrame sets the frame handler, replacing any previous one. Set it before
// Connect or early frames are dropped.
func (c *Client) OnFrame(handler FrameHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = handler
}

// OnError sets the error handler, replacing any previous one.
func (c *Client) OnError(handler ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

// Connect is ConnectContext with a background context.
func (c *Client) Connect() error {
	return c.ConnectContext(context.Background())
}

// ConnectContext dials the configured address and starts the read goroutine.
// Cancelling ctx aborts a dial in progress; it has no effect once connected.
// A failed dial may be retried, but once a connection has been established
// the Client cannot connect again.
//
// Returns:
//   - nil on success; otherwise an error (client closed, already used, or dial failure)
func (c *Client) ConnectContext(ctx context.Context) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}

	if c.state != Disconnected || c.used {
		c.mu.Unlock()
		return fmt.Errorf("already connected or connecting")
	}

	c.state = Connecting
	c.mu.Unlock()
	c.emitConnectionState(Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectionTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.config.Address)
	if err != nil {
		c.setState(Disconnected, err)
		c.emitError(err)
		return fmt.Errorf("dial %s: %w", c.config.Address, err)
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("client is closed")
	}

	c.conn = conn
	c.used = true
	c.mu.Unlock()
	c.setState(Connected, nil)

	c.wg.Add(1)
	go c.readLoop(conn)

	return nil
}

// Send writes payload as one frame.
//
// Returns:
//   - nil on success; an error if not connected or the write fails
func (c *Client) Send(payload []byte) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != Connected || conn == nil {
		return fmt.Errorf("not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}

		defer func() {
			_ = conn.SetWriteDeadline(time.Time{})
		}()
	}

	if err := framedconn.WriteFrame(conn, payload); err != nil {
		c.emitError(err)
		return err
	}

	return nil
}

// Close closes the connection and waits for the read goroutine to exit.
// It must not be called from the frame handler. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}

	c.closed = true
	c.closing = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}

	c.wg.Wait()
	c.setState(Closed, nil)
	c.doneOnce.Do(func() { close(c.done) })

	return nil
}

// Shutdown closes the connection without waiting for the read goroutine,
// so it is safe to call from the frame handler. Close must still be called
// to release the Client.
func (c *Client) Shutdown() {
	c.mu.Lock()
	c.closing = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

// Done is closed when the connection has ended, either because the read
// goroutine exited or because Close was called before Connect succeeded.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the read goroutine. It is nil while
// connected, after a clean EOF from the peer, and after a local Close.
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.readErr
}

// GetState returns the current state.
func (c *Client) GetState() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the client is Connected.
func (c *Client) IsConnected() bool {
	return c.GetState() == Connected
}

func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()
	defer c.doneOnce.Do(func() { close(c.done) })

	for {
		if c.config.ReadTimeout > 0 {
			if err := conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout)); err != nil {
				c.finishRead(err)
				return
			}
		}

		payload, err := framedconn.ReadFrame(conn, c.config.MaxFrameSize)
		if err != nil {
			c.finishRead(err)
			return
		}

		c.mu.RLock()
		handler := c.onFrame
		c.mu.RUnlock()

		if handler != nil {
			handler(FrameEvent{Payload: payload, Timestamp: time.Now()})
		}
	}
}

// finishRead records why the read loop ended. Errors caused by a local Close
// and a clean EOF from the peer are not reported.
func (c *Client) finishRead(err error) {
	c.mu.Lock()
	closed := c.closing
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}

	if !closed && !errors.Is(err, io.EOF) {
		c.readErr = err
	}
	c.mu.Unlock()

	if closed {
		return
	}

	if errors.Is(err, io.EOF) {
		c.setState(Disconnected, nil)
		return
	}

	c.emitError(err)
	c.setState(Disconnected, err)
}

func (c *Client) setState(state ConnectionState, err error) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	c.emitConnectionState(state, err)
}

func (c *Client) emitConnectionState(state ConnectionState, err error) {
	c.mu.RLock()
	handler := c.onConnectionState
	c.mu.RUnlock()

	if handler != nil {
		event := ConnectionStateEvent{
			State:     state,
			Address:   c.config.Address,
			Timestamp: time.Now(),
			Error:     err,
		}

		go handler(event)
	}
}

func (c *Client) emitError(err error) {
	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()

	if handler != nil {
		go handler(ErrorEvent{Error: err, Timestamp: time.Now()})
	}
}
