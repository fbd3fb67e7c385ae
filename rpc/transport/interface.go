package transport

import (
	"errors"
	"net"
	"time"

	"github.com/ValentinKolb/qKV/rpc/common"
)

// ErrConnectionClosed is returned by Send if the transport was closed
var ErrConnectionClosed = errors.New("connection closed")

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IConnHandler handles the requests of exactly one connection.
// Requests on one connection are handled sequentially, each request line
// is answered by exactly one response line.
type IConnHandler interface {
	// Handle processes one request line (without terminator) and returns the response line
	Handle(req []byte) (resp []byte)
	// Close is called once after the connection terminated
	Close()
}

// ServerHandleFunc is called by a server transport for every accepted connection
// It takes the remote address of the connection and returns the handler for the connection
type ServerHandleFunc func(remote net.Addr) IConnHandler

// IRPCServerTransport is the interface for the RPC transport layer of a replica
type IRPCServerTransport interface {
	// RegisterHandler registers the handler factory for new connections
	// This must be called before Serve
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the listening socket, it does not accept connections yet
	Listen(config common.ServerConfig) error
	// Serve accepts connections until Close is called (blocking)
	// Every connection is handled in its own goroutine
	Serve() error
	// Addr returns the address the transport is bound to (nil before Listen)
	Addr() net.Addr
	// Close stops accepting, closes all open connections and waits for their handlers
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for a single client connection to one replica
type IRPCClientTransport interface {
	// Connect dials the endpoint. The timeout is used for dialing and as
	// deadline for every request (0 = none)
	Connect(endpoint string, config common.ClientTransportConfig, timeout time.Duration) error
	// Send sends one request line and waits for its response line.
	// If the connection broke it is re-established on the next call.
	Send(req []byte) (resp []byte, err error)
	// Endpoint returns the endpoint passed to Connect
	Endpoint() string
	// Close closes the connection
	Close() error
}
