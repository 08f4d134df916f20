package framedconn

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// ErrDecode is returned by Receive when a frame arrived whole but its payload
// is not a valid message.
var ErrDecode = errors.New("decode message")

// Options tunes a Conn. The zero value means no timeouts and the default
// frame limit.
type Options struct {
	// MaxFrameSize is the largest payload Receive accepts.
	MaxFrameSize int
	// ReadTimeout bounds each Receive; 0 means wait forever.
	ReadTimeout time.Duration
	// WriteTimeout bounds each Send; 0 means no timeout.
	WriteTimeout time.Duration
}

// Conn sends and receives JSON values as frames over a net.Conn. Send is safe
// for concurrent use; Receive must only be called from one goroutine.
type Conn struct {
	conn    net.Conn
	opts    Options
	writeMu sync.Mutex
}

// New wraps conn. The Conn takes ownership of conn and closes it on Close.
func New(conn net.Conn, opts Options) *Conn {
	return &Conn{conn: conn, opts: opts}
}

// Send encodes v as JSON and writes it as one frame.
func (c *Conn) Send(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.opts.WriteTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return err
		}

		defer func() {
			_ = c.conn.SetWriteDeadline(time.Time{})
		}()
	}

	if err := WriteFrame(c.conn, payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

// Receive reads one frame and decodes its JSON payload into v. A clean EOF
// is returned unwrapped so callers can compare it with io.EOF directly.
func (c *Conn) Receive(v any) error {
	if c.opts.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout)); err != nil {
			return err
		}
	}

	payload, err := ReadFrame(c.conn, c.opts.MaxFrameSize)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return nil
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}
