package client

import (
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/qKV/lib/store/rstore"
	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/serializer"
	"github.com/ValentinKolb/qKV/rpc/server"
	"github.com/ValentinKolb/qKV/rpc/transport/tcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTransportConfig = common.ClientTransportConfig{TCPConf: common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1}}

// startReplica starts a replica on a random local port and returns its address
func startReplica(t *testing.T, ser serializer.IRPCSerializer) string {
	t.Helper()

	srv := server.NewRPCServer(common.ServerConfig{
		Transport: common.ServerTransportConfig{
			Endpoint: "127.0.0.1:0",
			TCPConf:  common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
	}, rstore.NewReplicaStore(), tcp.NewTCPServerTransport(), ser)
	require.NoError(t, srv.Listen())

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()
	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})
	return srv.Addr().String()
}

func TestReplicaLink(t *testing.T) {
	for name, ser := range map[string]serializer.IRPCSerializer{
		"Text": serializer.NewTextSerializer(),
		"JSON": serializer.NewJSONSerializer(),
	} {
		t.Run(name, func(t *testing.T) {
			addr := startReplica(t, ser)
			dial := NewTCPDialer(testTransportConfig, time.Second, ser)

			a, err := dial(addr)
			require.NoError(t, err)
			defer a.Close()
			b, err := dial(addr)
			require.NoError(t, err)
			defer b.Close()

			assert.Equal(t, addr, a.Endpoint())

			// absent key
			value, version, ok, err := a.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "", value)
			assert.Equal(t, int64(-1), version)

			// lock, put, get
			ok, version, err = a.AcquireLock("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(0), version)

			ok, _, err = b.AcquireLock("k")
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = b.Put("k", "b", 1)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = a.Put("k", "a", 1)
			require.NoError(t, err)
			assert.True(t, ok)

			value, version, ok, err = b.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "a", value)
			assert.Equal(t, int64(1), version)

			// release
			ok, version, err = b.AcquireLock("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, int64(1), version)
			require.NoError(t, b.ReleaseLock("k"))
			ok, _, err = a.AcquireLock("k")
			require.NoError(t, err)
			assert.True(t, ok)
			require.NoError(t, a.ReleaseLock("k"))

			// update
			require.NoError(t, b.Update("k", "newer", 7))
			require.NoError(t, b.Update("k", "older", 2))
			value, version, _, err = a.Get("k")
			require.NoError(t, err)
			assert.Equal(t, "newer", value)
			assert.Equal(t, int64(7), version)
		})
	}
}

func TestJSONValuesWithSpaces(t *testing.T) {
	ser := serializer.NewJSONSerializer()
	addr := startReplica(t, ser)

	link, err := NewTCPDialer(testTransportConfig, time.Second, ser)(addr)
	require.NoError(t, err)
	defer link.Close()

	require.NoError(t, link.Update("a key", "hello world", 1))
	value, version, ok, err := link.Get("a key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello world", value)
	assert.Equal(t, int64(1), version)
}

func TestTextRejectsSpacesLocally(t *testing.T) {
	ser := serializer.NewTextSerializer()
	addr := startReplica(t, ser)

	link, err := NewTCPDialer(testTransportConfig, time.Second, ser)(addr)
	require.NoError(t, err)
	defer link.Close()

	_, err = link.Put("k", "hello world", 1)
	assert.ErrorIs(t, err, serializer.ErrUnencodable)

	// the link is still usable
	_, _, ok, err := link.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCodecMismatchIsRejected(t *testing.T) {
	addr := startReplica(t, serializer.NewTextSerializer())

	link, err := NewTCPDialer(testTransportConfig, time.Second, serializer.NewJSONSerializer())(addr)
	require.NoError(t, err)
	defer link.Close()

	// the json line is answered with INVALID_REQUEST, which the json codec cannot decode
	_, _, _, err = link.Get("k")
	assert.Error(t, err)
}

func TestUnreachableReplica(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	_, err = NewTCPDialer(testTransportConfig, time.Second, serializer.NewTextSerializer())(addr)
	assert.Error(t, err)
}
