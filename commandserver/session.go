package commandserver

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cyberinferno/movectl/framedconn"
	"github.com/cyberinferno/movectl/logger"
	"github.com/cyberinferno/movectl/message"
	"github.com/cyberinferno/movectl/perfmonitor"
	"github.com/cyberinferno/movectl/reportstore"
)

// Session serves one client connection.
type Session struct {
	id      uint32
	trace   string
	server  *Server
	conn    *framedconn.Conn
	log     logger.Logger
	elapsed *perfmonitor.PerformanceMonitor
	rtt     *perfmonitor.PerformanceMonitor

	name      string
	acked     int
	completed bool

	closeOnce sync.Once
	closeErr  error
}

func newSession(s *Server, id uint32, conn net.Conn) *Session {
	trace := uuid.NewString()
	return &Session{
		id:     id,
		trace:  trace,
		server: s,
		conn: framedconn.New(conn, framedconn.Options{
			MaxFrameSize: s.opts.MaxFrameSize,
			ReadTimeout:  s.opts.AckTimeout,
			WriteTimeout: s.opts.WriteTimeout,
		}),
		log: s.log.With(
			logger.Field{Key: "session_id", Value: id},
			logger.Field{Key: "session", Value: trace},
			logger.Field{Key: "remote", Value: conn.RemoteAddr().String()}),
		elapsed: perfmonitor.NewPerformanceMonitor(),
		rtt:     perfmonitor.NewPerformanceMonitor(),
	}
}

// ID implements tcpserver.TCPServerSession.
func (s *Session) ID() uint32 {
	return s.id
}

// Close implements tcpserver.TCPServerSession.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.conn.Close()
	})

	return s.closeErr
}

// Handle implements tcpserver.TCPServerSession.
func (s *Session) Handle() {
	defer s.Close()

	s.elapsed.Start()
	err := s.serve()
	s.elapsed.Stop()

	if s.name == "" {
		if err != nil && !errors.Is(err, io.EOF) {
			s.log.Warn("session ended before registration", logger.Field{Key: "error", Value: err})
		}

		return
	}

	s.finish(err)
}

func (s *Session) serve() error {
	var first message.ClientMessage
	if err := s.receive(&first); err != nil {
		return fmt.Errorf("receive on connect: %w", err)
	}

	if err := first.Validate(); err != nil {
		s.fail(err.Error())
		return err
	}

	if first.OnConnect == nil {
		s.fail("expected ClientOnConnect")
		return fmt.Errorf("%w: got %s before ClientOnConnect", ErrWrongMessage, first.Kind())
	}

	if err := s.register(first); err != nil {
		return err
	}

	if err := s.conn.Send(message.NewServerOnConnect(message.ServerOnConnect{
		ClientName: s.name,
		Message:    Greeting,
	})); err != nil {
		return fmt.Errorf("send on connect: %w", err)
	}

	for i, point := range MoveSequence() {
		if err := s.command(i+1, point); err != nil {
			return err
		}
	}

	s.completed = true
	return nil
}

// register claims the client name and stores the client's initial state.
func (s *Session) register(first message.ClientMessage) error {
	name := first.OnConnect.ClientName
	if strings.TrimSpace(name) == "" {
		s.fail(ErrEmptyClientName.Error())
		return ErrEmptyClientName
	}

	if !s.server.active.TryAdd(name) {
		s.fail(ErrDuplicateClient.Error())
		return fmt.Errorf("%w: %s", ErrDuplicateClient, name)
	}

	s.name = name
	s.log = s.log.With(logger.Field{Key: "client", Value: name})

	state, _ := first.State()
	s.server.clients.Store(name, state)
	s.log.Info("client registered", logger.Field{Key: "position", Value: state.CurrentPosition})

	return nil
}

// command sends one move and waits for the client's reply.
func (s *Session) command(seq int, point message.Point) error {
	s.rtt.Reset()
	s.rtt.Start()

	if err := s.conn.Send(message.NewServerMoveCommand(point)); err != nil {
		return fmt.Errorf("send command %d: %w", seq, err)
	}

	var reply message.ClientMessage
	if err := s.receive(&reply); err != nil {
		return fmt.Errorf("await reply to command %d: %w", seq, err)
	}

	if err := reply.Validate(); err != nil {
		s.fail(err.Error())
		return err
	}

	switch {
	case reply.CommandResponse != nil:
		state, _ := reply.State()
		s.server.clients.Store(s.name, state)
		s.acked++
		s.rtt.Stop()
		s.log.Debug("command acknowledged",
			logger.Field{Key: "seq", Value: seq},
			logger.Field{Key: "target", Value: point},
			logger.Field{Key: "position", Value: state.CurrentPosition},
			logger.Field{Key: "rtt_ms", Value: s.rtt.ElapsedMilliseconds()})
		return nil

	case reply.Failed != nil:
		state, _ := reply.State()
		s.server.clients.Store(s.name, state)
		return fmt.Errorf("%w: command %d: %s", ErrClientFailed, seq, reply.Failed.ServerCommand)

	default:
		s.fail("unexpected " + reply.Kind())
		return fmt.Errorf("%w: got %s during command sequence", ErrWrongMessage, reply.Kind())
	}
}

// receive reads the next client message. A frame that is oversized or does
// not decode is a protocol violation and gets a ServerFailed before the error
// is returned.
func (s *Session) receive(m *message.ClientMessage) error {
	err := s.conn.Receive(m)
	if errors.Is(err, framedconn.ErrDecode) || errors.Is(err, framedconn.ErrFrameTooLarge) {
		s.fail(err.Error())
	}

	return err
}

// fail tells the client why the session is ending. Delivery is best effort.
func (s *Session) fail(reason string) {
	s.log.Warn("rejecting client", logger.Field{Key: "reason", Value: reason})
	if err := s.conn.Send(message.NewServerFailed(reason)); err != nil {
		s.log.Debug("failed to send ServerFailed", logger.Field{Key: "error", Value: err})
	}
}

// finish removes the client's entry and publishes its final report.
func (s *Session) finish(err error) {
	state, _ := s.server.clients.LoadAndDelete(s.name)
	s.server.active.Remove(s.name)

	report := reportstore.Report{
		Session:       s.trace,
		ClientName:    s.name,
		Position:      state.CurrentPosition,
		LastMessage:   state.LastMessage,
		CommandsAcked: s.acked,
		CommandsTotal: len(moveSequence),
		Completed:     s.completed,
		Duration:      s.elapsed.Elapsed(),
		EndedAt:       time.Now(),
	}

	if err != nil {
		report.Error = err.Error()
		s.log.Warn("session ended early", logger.Field{Key: "error", Value: err})
	}

	s.server.publish(s.log, report)
}
