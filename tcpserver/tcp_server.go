// Package tcpserver implements a TCP accept loop that hands every connection
// to a session and tracks live sessions by id.
package tcpserver

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cyberinferno/movectl/idgenerator"
	"github.com/cyberinferno/movectl/logger"
	"github.com/cyberinferno/movectl/safemap"
)

// NewSessionFunc builds the session for an accepted connection.
type NewSessionFunc func(id uint32, conn net.Conn) TCPServerSession

// TCPServer accepts connections on Addr and runs one session per connection.
type TCPServer struct {
	Logger      logger.Logger
	Name        string
	Addr        string
	Sessions    *safemap.SafeMap[uint32, TCPServerSession]
	NewSession  NewSessionFunc
	IdGenerator *idgenerator.IdGenerator

	mu        sync.Mutex
	listener  net.Listener
	running   atomic.Bool
	acceptWg  sync.WaitGroup
	sessionWg sync.WaitGroup
}

// New returns a server ready to Start.
//
// Parameters:
//   - name: Human-readable server name used in log messages
//   - addr: The "host:port" to listen on; port 0 picks a free port
//   - log: Logger for lifecycle and accept errors
//   - newSession: Builds the session for each accepted connection
func New(name string, addr string, log logger.Logger, newSession NewSessionFunc) *TCPServer {
	return &TCPServer{
		Logger:      log,
		Name:        name,
		Addr:        addr,
		Sessions:    safemap.NewSafeMap[uint32, TCPServerSession](),
		NewSession:  newSession,
		IdGenerator: idgenerator.NewIdGenerator(0),
	}
}

// Start binds Addr and runs the accept loop in a goroutine.
//
// Returns:
//   - An error if the server is already running or if listening on Addr fails
func (s *TCPServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return fmt.Errorf("server %s already running", s.Name)
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		s.Logger.Error("server failed to start", logger.Field{Key: "error", Value: err})
		return fmt.Errorf("server %s failed to start: %w", s.Name, err)
	}

	s.listener = ln
	s.running.Store(true)

	s.Logger.Info(fmt.Sprintf("%s server started", s.Name), logger.Field{Key: "addr", Value: ln.Addr().String()})

	s.acceptWg.Add(1)
	go s.acceptLoop(ln)

	return nil
}

// ListenAddr returns the bound address, or nil before Start.
func (s *TCPServer) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Running reports whether the accept loop is active.
func (s *TCPServer) Running() bool {
	return s.running.Load()
}

// Stop closes the listener, waits for the accept loop to exit, closes every
// live session and waits for their Handle calls to return. Calling Stop on a
// server that is not running is a no-op.
func (s *TCPServer) Stop() {
	s.mu.Lock()
	if !s.running.Load() {
		s.mu.Unlock()
		return
	}

	s.running.Store(false)
	_ = s.listener.Close()
	s.mu.Unlock()

	s.acceptWg.Wait()

	s.Sessions.Range(func(_ uint32, session TCPServerSession) bool {
		_ = session.Close()
		return true
	})

	s.sessionWg.Wait()
	s.Logger.Info(fmt.Sprintf("%s server stopped", s.Name))
}

// Serve starts the server and blocks until ctx is cancelled, then stops it.
func (s *TCPServer) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	s.Stop()
	return nil
}

// GetSession returns the live session with the given id.
func (s *TCPServer) GetSession(id uint32) (TCPServerSession, bool) {
	return s.Sessions.Load(id)
}

// SessionCount returns the number of live sessions.
func (s *TCPServer) SessionCount() int {
	return s.Sessions.Len()
}

func (s *TCPServer) acceptLoop(ln net.Listener) {
	defer s.acceptWg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}

			s.Logger.Error(fmt.Sprintf("%s server accept error", s.Name), logger.Field{Key: "error", Value: err})
			continue
		}

		id := s.IdGenerator.Id()
		session := s.NewSession(id, conn)
		s.Sessions.Store(id, session)

		s.Logger.Debug("connection accepted",
			logger.Field{Key: "session_id", Value: id},
			logger.Field{Key: "remote", Value: conn.RemoteAddr().String()})

		s.sessionWg.Add(1)
		go func() {
			defer s.sessionWg.Done()
			defer s.Sessions.Delete(id)
			session.Handle()
		}()
	}
}
