package tcpserver

// TCPServerSession handles one accepted connection. The server creates a
// session per connection, runs Handle in its own goroutine and drops the
// session from its table once Handle returns.
type TCPServerSession interface {
	// ID returns the id the server assigned to the connection.
	ID() uint32

	// Handle runs the session until the peer goes away, the protocol ends or
	// Close is called.
	Handle()

	// Close interrupts Handle and releases the connection. It must be safe to
	// call more than once and concurrently with Handle.
	Close() error
}
