package tcp

import (
	"bufio"
	"bytes"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler answers every request with the upper-cased request
type echoHandler struct {
	closed *atomic.Int32
}

func (h *echoHandler) Handle(req []byte) []byte { return bytes.ToUpper(req) }
func (h *echoHandler) Close()                   { h.closed.Add(1) }

// startServer starts a server on a random local port
func startServer(t *testing.T, closed *atomic.Int32) transport.IRPCServerTransport {
	t.Helper()

	srv := NewTCPServerTransport()
	srv.RegisterHandler(func(remote net.Addr) transport.IConnHandler {
		return &echoHandler{closed: closed}
	})
	require.NoError(t, srv.Listen(common.ServerConfig{
		Transport: common.ServerTransportConfig{
			Endpoint: "127.0.0.1:0",
			TCPConf:  common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
	}))

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})
	return srv
}

func TestRequestResponse(t *testing.T) {
	var closed atomic.Int32
	srv := startServer(t, &closed)

	client := NewTCPClientTransport()
	require.NoError(t, client.Connect(srv.Addr().String(), common.ClientTransportConfig{TCPConf: common.TCPConf{TCPLingerSec: -1}}, time.Second))
	defer client.Close()

	for _, req := range []string{"get k", "put k v 1", ""} {
		resp, err := client.Send([]byte(req))
		require.NoError(t, err)
		assert.Equal(t, string(bytes.ToUpper([]byte(req))), string(resp))
	}
}

func TestCRLFAndPartialLine(t *testing.T) {
	var closed atomic.Int32
	srv := startServer(t, &closed)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("get a\r\nget b\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "GET A\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "GET B\n", line)
}

func TestHandlerClosedWithConnection(t *testing.T) {
	var closed atomic.Int32
	srv := startServer(t, &closed)

	client := NewTCPClientTransport()
	require.NoError(t, client.Connect(srv.Addr().String(), common.ClientTransportConfig{TCPConf: common.TCPConf{TCPLingerSec: -1}}, time.Second))
	_, err := client.Send([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, client.Close())

	assert.Eventually(t, func() bool { return closed.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = client.Send([]byte("x"))
	assert.ErrorIs(t, err, transport.ErrConnectionClosed)
}

func TestConnectRefused(t *testing.T) {
	// reserve a port and free it again
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	client := NewTCPClientTransport()
	assert.Error(t, client.Connect(addr, common.ClientTransportConfig{TCPConf: common.TCPConf{TCPLingerSec: -1}}, time.Second))
}

func TestCloseShutsDownOpenConnections(t *testing.T) {
	var closed atomic.Int32

	srv := NewTCPServerTransport()
	srv.RegisterHandler(func(remote net.Addr) transport.IConnHandler {
		return &echoHandler{closed: &closed}
	})
	require.NoError(t, srv.Listen(common.ServerConfig{
		Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0", TCPConf: common.TCPConf{TCPLingerSec: -1}},
	}))
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	client := NewTCPClientTransport()
	require.NoError(t, client.Connect(srv.Addr().String(), common.ClientTransportConfig{TCPConf: common.TCPConf{TCPLingerSec: -1}}, time.Second))
	defer client.Close()
	_, err := client.Send([]byte("x"))
	require.NoError(t, err)

	require.NoError(t, srv.Close())
	assert.NoError(t, <-done)
	assert.Equal(t, int32(1), closed.Load())

	_, err = client.Send([]byte("x"))
	assert.Error(t, err)
}

func TestCloseWhileConnecting(t *testing.T) {
	var created, closed atomic.Int32

	srv := NewTCPServerTransport()
	srv.RegisterHandler(func(remote net.Addr) transport.IConnHandler {
		created.Add(1)
		return &echoHandler{closed: &closed}
	})
	require.NoError(t, srv.Listen(common.ServerConfig{
		Transport: common.ServerTransportConfig{Endpoint: "127.0.0.1:0", TCPConf: common.TCPConf{TCPLingerSec: -1}},
	}))
	addr := srv.Addr().String()
	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	// keep dialing until the server is gone
	stop := make(chan struct{})
	dialers := make(chan struct{})
	go func() {
		defer close(dialers)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond); err == nil {
				_ = conn.Close()
			}
		}
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, srv.Close())
	assert.NoError(t, <-done)
	close(stop)
	<-dialers

	// every worker started before Close has finished
	assert.Equal(t, created.Load(), closed.Load())
}
