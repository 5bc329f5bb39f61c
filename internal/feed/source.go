package feed

import "context"

// Source is a push transport the Listener can connect to.
type Source interface {
	// Name identifies the transport (websocket, redis, amqp, mailbox).
	Name() string

	// Connect opens a new connection. It is called again after every
	// disconnect.
	Connect(ctx context.Context) (Conn, error)
}

// Conn is a live connection delivering raw payloads in arrival order.
type Conn interface {
	// Read blocks until the next payload arrives or the connection fails.
	Read(ctx context.Context) ([]byte, error)

	// Close releases the connection. It unblocks a pending Read and is
	// safe to call more than once.
	Close() error
}
