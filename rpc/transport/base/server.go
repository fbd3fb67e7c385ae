package base

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sourcegraph/conc"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	config     common.ServerConfig
	listener   net.Listener
	conns      *xsync.MapOf[net.Conn, struct{}] // open connections, closed on shutdown
	workers    conc.WaitGroup                   // one worker per connection
	readerPool *sync.Pool
	closed     atomic.Bool
	mu         sync.Mutex // orders worker registration before Close waits
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with the specified connector
func NewBaseServerTransport(connector IServerConnector) transport.IRPCServerTransport {
	return &serverTransport{
		connector: connector,
		conns:     xsync.NewMapOf[net.Conn, struct{}](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	t.config = config

	size := bufferSize(config.Transport.ReadBufferSize)
	t.readerPool = &sync.Pool{
		New: func() interface{} {
			return bufio.NewReaderSize(nil, size)
		},
	}

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	t.listener = listener

	Logger.Infof("Listening with %s transport on %s", t.connector.GetName(), listener.Addr())
	return nil
}

func (t *serverTransport) Serve() error {
	if t.listener == nil {
		return fmt.Errorf("serve called before listen")
	}
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	// Accept connections
	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if !t.track(conn) {
			_ = conn.Close()
			return nil
		}
	}
}

func (t *serverTransport) Addr() net.Addr {
	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	if !t.closed.CompareAndSwap(false, true) {
		t.mu.Unlock()
		return nil
	}

	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}

	// Unblock all connection workers
	t.conns.Range(func(conn net.Conn, _ struct{}) bool {
		_ = conn.Close()
		return true
	})
	t.mu.Unlock()

	// no worker can be added once closed is set
	t.workers.Wait()
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// track registers conn and starts its worker. It returns false if the transport is closed.
func (t *serverTransport) track(conn net.Conn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed.Load() {
		return false
	}
	t.conns.Store(conn, struct{}{})

	// Handle the connection in a goroutine
	t.workers.Go(func() {
		t.handleConnection(conn)
	})
	return true
}

// handleConnection answers the requests of one connection until it is closed
func (t *serverTransport) handleConnection(conn net.Conn) {
	defer func() {
		t.conns.Delete(conn)
		_ = conn.Close()
	}()

	remote := conn.RemoteAddr()

	if err := t.connector.UpgradeConnection(conn, t.config); err != nil {
		Logger.Warningf("Failed to upgrade connection from %s: %v", remote, err)
	}

	// Timeout in seconds
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	reader := t.readerPool.Get().(*bufio.Reader)
	reader.Reset(conn)
	defer func() {
		reader.Reset(nil)
		t.readerPool.Put(reader)
	}()
	writer := bufio.NewWriterSize(conn, bufferSize(t.config.Transport.WriteBufferSize))

	handler := t.handler(remote)
	defer handler.Close()

	Logger.Debugf("Accepted connection from %s", remote)

	for {
		if err := conn.SetReadDeadline(deadline(timeout)); err != nil {
			Logger.Errorf("Failed to set read deadline: %v", err)
			return
		}

		req, err := readLine(reader)

		// Case EOF: Connection closed by client
		if err == io.EOF {
			Logger.Debugf("Connection closed by %s", remote)
			return
		}

		// Case error: log and close connection
		if err != nil {
			if !t.closed.Load() {
				Logger.Warningf("Error reading request from %s: %v", remote, err)
			}
			return
		}

		resp := handler.Handle(req)

		if err := conn.SetWriteDeadline(deadline(timeout)); err != nil {
			Logger.Errorf("Failed to set write deadline: %v", err)
			return
		}

		if err := writeLine(writer, resp); err != nil {
			Logger.Warningf("Failed to write response to %s: %v", remote, err)
			return
		}
	}
}
