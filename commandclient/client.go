// Package commandclient implements the reactive client. It introduces itself
// with an OnConnect message, then moves its Agent to every position the
// server commands and acknowledges each move.
package commandclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyberinferno/movectl/logger"
	"github.com/cyberinferno/movectl/message"
	"github.com/cyberinferno/movectl/tcpclient"
)

// Errors that end Run.
var (
	ErrWrongMessage = errors.New("server sent wrong message")
	ErrServerFailed = errors.New("server failed")
)

// Messages the client sends.
const (
	Hello = "hello"
	Ack   = "success"
)

// Options configures a Client.
type Options struct {
	// Name identifies the client to the server.
	Name string
	// Address is the server's "host:port".
	Address string
	// ConnectTimeout bounds the dial; 0 keeps the transport default.
	ConnectTimeout time.Duration
	// WriteTimeout bounds each send; 0 keeps the transport default.
	WriteTimeout time.Duration
	// MaxFrameSize caps incoming frames; 0 keeps the transport default.
	MaxFrameSize int
	// Logger defaults to a no-op logger.
	Logger logger.Logger
	// Agent defaults to a new agent at the origin.
	Agent *Agent
}

// Client runs one session against the command server.
type Client struct {
	opts  Options
	agent *Agent
	log   logger.Logger
}

// New returns a Client for opts.
func New(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	if opts.Agent == nil {
		opts.Agent = NewAgent()
	}

	return &Client{
		opts:  opts,
		agent: opts.Agent,
		log:   opts.Logger.With(logger.Field{Key: "client", Value: opts.Name}),
	}
}

// Agent returns the agent the client moves.
func (c *Client) Agent() *Agent {
	return c.agent
}

// Run connects, greets the server and answers move commands until the server
// hangs up, the server fails the session or ctx is cancelled.
//
// Returns:
//   - nil when the server closes the connection after the greeting
//   - an error wrapping ErrServerFailed or ErrWrongMessage on protocol errors
//   - ctx.Err() when ctx is cancelled
func (c *Client) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tcpclient.DefaultConfig(c.opts.Address)
	if c.opts.ConnectTimeout > 0 {
		cfg.ConnectionTimeout = c.opts.ConnectTimeout
	}
	if c.opts.WriteTimeout > 0 {
		cfg.WriteTimeout = c.opts.WriteTimeout
	}
	if c.opts.MaxFrameSize > 0 {
		cfg.MaxFrameSize = c.opts.MaxFrameSize
	}

	conn := tcpclient.New(cfg)
	s := &session{
		client: c,
		conn:   conn,
		log:    c.log.With(logger.Field{Key: "run", Value: uuid.NewString()}),
	}
	conn.OnFrame(s.onFrame)

	if err := conn.ConnectContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	s.log.Info("connected", logger.Field{Key: "addr", Value: c.opts.Address})

	if err := s.send(message.NewClientOnConnect(message.ClientOnConnect{
		ClientName:      c.opts.Name,
		Message:         Hello,
		CurrentPosition: c.agent.Position(),
	})); err != nil {
		return fmt.Errorf("send on connect: %w", err)
	}

	select {
	case <-ctx.Done():
		_ = conn.Close()
		return ctx.Err()
	case <-conn.Done():
	}

	return s.result(conn.Err())
}

// session holds the state of one Run.
type session struct {
	client *Client
	conn   *tcpclient.Client
	log    logger.Logger

	mu      sync.Mutex
	greeted bool
	moves   int
	err     error
}

func (s *session) send(m message.ClientMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	return s.conn.Send(payload)
}

// abort records the first error and drops the connection.
func (s *session) abort(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()

	s.conn.Shutdown()
}

func (s *session) onFrame(ev tcpclient.FrameEvent) {
	var msg message.ServerMessage
	if err := json.Unmarshal(ev.Payload, &msg); err != nil {
		s.abort(fmt.Errorf("failed to parse next message: %w", err))
		return
	}

	if err := msg.Validate(); err != nil {
		s.abort(err)
		return
	}

	if msg.Failed != nil {
		s.log.Warn("server failed", logger.Field{Key: "reason", Value: *msg.Failed})
		s.abort(fmt.Errorf("%w: %s", ErrServerFailed, *msg.Failed))
		return
	}

	s.mu.Lock()
	greeted := s.greeted
	s.greeted = true
	s.mu.Unlock()

	if !greeted {
		if msg.OnConnect == nil {
			s.abort(fmt.Errorf("%w: got %s before OnConnect", ErrWrongMessage, msg.Kind()))
			return
		}

		s.log.Info("greeted by server",
			logger.Field{Key: "client_name", Value: msg.OnConnect.ClientName},
			logger.Field{Key: "message", Value: msg.OnConnect.Message})
		return
	}

	if msg.MoveCommand == nil {
		s.abort(fmt.Errorf("%w: got %s during command sequence", ErrWrongMessage, msg.Kind()))
		return
	}

	target := *msg.MoveCommand
	s.log.Info("moving client", logger.Field{Key: "target", Value: target})
	s.client.agent.UpdatePosition(target)

	if err := s.send(message.NewClientCommandResponse(message.ClientCommandResponse{
		Message:         Ack,
		CurrentPosition: s.client.agent.Position(),
	})); err != nil {
		s.abort(fmt.Errorf("send command response: %w", err))
		return
	}

	s.mu.Lock()
	s.moves++
	s.mu.Unlock()
}

// result turns the way the connection ended into Run's return value.
func (s *session) result(readErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	if readErr != nil {
		return fmt.Errorf("connection lost: %w", readErr)
	}

	if !s.greeted {
		return fmt.Errorf("failed to retrieve next message: %w", io.EOF)
	}

	s.log.Info("server closed the session", logger.Field{Key: "moves", Value: s.moves})
	return nil
}
