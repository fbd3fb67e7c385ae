package base

import (
	"bufio"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(endpoint string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.ClientTransportConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium
type clientTransport struct {
	connector IClientConnector
	config    common.ClientTransportConfig
	endpoint  string
	timeout   time.Duration

	mu     sync.Mutex // serializes requests, the protocol has no request ids
	conn   net.Conn   // nil if not connected
	reader *bufio.Reader
	writer *bufio.Writer
	closed bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, etc.)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(endpoint string, config common.ClientTransportConfig, timeout time.Duration) error {
	if endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.endpoint = endpoint
	t.config = config
	t.timeout = timeout
	t.closed = false

	return t.reconnect()
}

func (t *clientTransport) Send(req []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, transport.ErrConnectionClosed
	}

	// Re-establish a broken connection. Locks held by the old connection
	// were released by the replica when it noticed the close.
	if t.conn == nil {
		if err := t.reconnect(); err != nil {
			return nil, err
		}
	}

	if err := t.conn.SetDeadline(deadline(t.timeout)); err != nil {
		t.drop()
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	if err := writeLine(t.writer, req); err != nil {
		t.drop()
		return nil, fmt.Errorf("failed to send request to %s: %w", t.endpoint, err)
	}

	resp, err := readLine(t.reader)
	if err != nil {
		// a late response would be read by the next request, so the connection is unusable
		t.drop()
		return nil, fmt.Errorf("failed to read response from %s: %w", t.endpoint, err)
	}

	return resp, nil
}

func (t *clientTransport) Endpoint() string {
	return t.endpoint
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// reconnect establishes or restores the connection to the endpoint (t.mu must be held)
func (t *clientTransport) reconnect() error {
	t.drop()

	conn, err := t.connector.Connect(t.endpoint, t.timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", t.endpoint, err)
	}

	// Upgrade the connection with protocol-specific settings
	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to upgrade connection to %s: %w", t.endpoint, err)
	}

	t.conn = conn
	t.reader = bufio.NewReaderSize(conn, bufferSize(t.config.ReadBufferSize))
	t.writer = bufio.NewWriterSize(conn, bufferSize(t.config.WriteBufferSize))

	Logger.Debugf("Connected to %s using %s transport", t.endpoint, t.connector.GetName())
	return nil
}

// drop closes the current connection (t.mu must be held)
func (t *clientTransport) drop() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
}
