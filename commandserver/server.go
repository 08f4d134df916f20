// Package commandserver implements the command server: it registers each
// client by the name in its OnConnect message, drives the fixed movement
// sequence at it one acknowledged command at a time, and reports the
// client's last known state when the session ends.
package commandserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/cyberinferno/movectl/logger"
	"github.com/cyberinferno/movectl/message"
	"github.com/cyberinferno/movectl/reportstore"
	"github.com/cyberinferno/movectl/safemap"
	"github.com/cyberinferno/movectl/safeset"
	"github.com/cyberinferno/movectl/tcpserver"
)

// Protocol errors that end a session.
var (
	ErrWrongMessage    = errors.New("client sent wrong message")
	ErrClientFailed    = errors.New("client failed")
	ErrDuplicateClient = errors.New("client name already connected")
	ErrEmptyClientName = errors.New("client name required")
)

// Greeting is the message the server answers every OnConnect with.
const Greeting = "hello"

// moveSequence is the fixed list of positions every client is sent to.
var moveSequence = [...]message.Point{
	{X: 0, Y: 0, Z: 0},
	{X: 0, Y: 0, Z: 0.2},
	{X: 0, Y: 0, Z: 0.4},
	{X: 0, Y: 0, Z: 0.6},
}

// MoveSequence returns a copy of the movement commands sent to each client,
// in order.
func MoveSequence() []message.Point {
	out := make([]message.Point, len(moveSequence))
	copy(out, moveSequence[:])
	return out
}

// ClientStore maps a client name to its last known state.
type ClientStore = safemap.SafeMap[string, message.ClientState]

// Notifier is told about every finished session.
type Notifier func(ctx context.Context, r reportstore.Report) error

// Options configures a Server. Zero values fall back to sensible defaults.
type Options struct {
	// Address is the "host:port" to listen on.
	Address string
	// AckTimeout bounds the wait for each client message; 0 waits forever.
	AckTimeout time.Duration
	// WriteTimeout bounds each send; 0 means no timeout.
	WriteTimeout time.Duration
	// MaxFrameSize caps incoming frames; 0 means the framing default.
	MaxFrameSize int
	// Logger receives structured logs; defaults to a no-op logger.
	Logger logger.Logger
	// Reports archives final reports; defaults to an in-memory store kept
	// for one hour.
	Reports reportstore.Store
	// Out receives the human-readable report of each session; defaults to
	// stdout.
	Out io.Writer
	// Notify, when set, is called with each report after it is archived.
	Notify Notifier
}

// Server is the command server.
type Server struct {
	opts    Options
	log     logger.Logger
	tcp     *tcpserver.TCPServer
	clients *ClientStore
	active  *safeset.SafeSet[string]
	reports *reportstore.CoalescingStore

	outMu sync.Mutex
}

// New builds a Server from opts. Call Start or Serve to begin accepting.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	if opts.Reports == nil {
		opts.Reports = reportstore.NewMemoryStore(time.Hour, 10*time.Minute)
	}

	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	s := &Server{
		opts:    opts,
		log:     opts.Logger,
		clients: safemap.NewSafeMap[string, message.ClientState](),
		active:  safeset.NewSafeSet[string](),
		reports: reportstore.Coalesce(opts.Reports),
	}
	s.tcp = tcpserver.New("command", opts.Address, opts.Logger, s.newSession)

	return s
}

func (s *Server) newSession(id uint32, conn net.Conn) tcpserver.TCPServerSession {
	return newSession(s, id, conn)
}

// Start binds the listen address and starts accepting clients.
func (s *Server) Start() error {
	return s.tcp.Start()
}

// Stop stops accepting, ends every live session (each still produces its
// report) and waits for them to finish.
func (s *Server) Stop() {
	s.tcp.Stop()
}

// Serve runs the server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	return s.tcp.Serve(ctx)
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	return s.tcp.ListenAddr()
}

// Clients returns a snapshot of the registered clients and their last known
// state.
func (s *Server) Clients() map[string]message.ClientState {
	return s.clients.Snapshot()
}

// SessionCount returns the number of open connections, registered or not.
func (s *Server) SessionCount() int {
	return s.tcp.SessionCount()
}

// LastReport returns the archived report of the most recent session of
// clientName, or an error wrapping reportstore.ErrReportNotFound.
func (s *Server) LastReport(ctx context.Context, clientName string) (reportstore.Report, error) {
	return s.reports.Get(ctx, clientName)
}

// Close releases the report store. Call it after Stop.
func (s *Server) Close() error {
	return s.opts.Reports.Close()
}

// publish prints, logs, archives and forwards a finished session's report.
func (s *Server) publish(log logger.Logger, r reportstore.Report) {
	s.outMu.Lock()
	_, _ = fmt.Fprint(s.opts.Out, r.String())
	s.outMu.Unlock()

	log.Info("client connection dropped",
		logger.Field{Key: "position", Value: r.Position},
		logger.Field{Key: "last_message", Value: r.LastMessage},
		logger.Field{Key: "acked", Value: r.CommandsAcked},
		logger.Field{Key: "completed", Value: r.Completed},
		logger.Field{Key: "duration_ms", Value: r.Duration.Milliseconds()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.reports.Save(ctx, r); err != nil {
		log.Warn("failed to archive report", logger.Field{Key: "error", Value: err})
	}

	if s.opts.Notify != nil {
		if err := s.opts.Notify(ctx, r); err != nil {
			log.Warn("failed to send report notification", logger.Field{Key: "error", Value: err})
		}
	}
}
