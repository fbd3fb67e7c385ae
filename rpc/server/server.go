package server

import (
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
	"github.com/ValentinKolb/qKV/lib/lockmgr"
	"github.com/ValentinKolb/qKV/lib/store"
	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/serializer"
	"github.com/ValentinKolb/qKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

// Server is the request handling side of one replica.
// Every accepted connection gets its own session with a fresh lock token.
type Server struct {
	config     common.ServerConfig
	store      store.IReplicaStore
	adapter    IRPCServerAdapter
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer

	metrics         *metrics.Set
	requests        *metrics.Counter
	invalidRequests *metrics.Counter
	openConns       atomic.Int64
}

// NewRPCServer creates a new RPC server for the store
// It takes a config, the store, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		rstore.NewReplicaStore(),
//		tcp.NewTCPServerTransport(),
//		serializer.NewTextSerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(
	config common.ServerConfig,
	store store.IReplicaStore,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *Server {
	s := &Server{
		config:     config,
		store:      store,
		adapter:    NewReplicaStoreServerAdapter(),
		transport:  transport,
		serializer: serializer,
		metrics:    metrics.NewSet(),
	}

	s.requests = s.metrics.NewCounter("qkv_rpc_requests_total")
	s.invalidRequests = s.metrics.NewCounter("qkv_rpc_invalid_requests_total")
	s.metrics.NewGauge("qkv_rpc_open_connections", func() float64 {
		return float64(s.openConns.Load())
	})

	Logger.Infof("Created RPC Server (%s serializer)", serializer.Name())
	return s
}

// Listen registers the connection handler and binds the listening socket
func (s *Server) Listen() error {
	s.transport.RegisterHandler(func(remote net.Addr) transport.IConnHandler {
		s.openConns.Add(1)
		return &connSession{
			server: s,
			remote: remote,
			token:  lockmgr.NewToken(),
		}
	})

	if err := s.transport.Listen(s.config); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Transport.Endpoint, err)
	}
	return nil
}

// Serve accepts connections until Close is called.
// If Listen was not called yet it is called first.
func (s *Server) Serve() error {
	if s.transport.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	return s.transport.Serve()
}

// Addr returns the address the server is bound to
func (s *Server) Addr() net.Addr {
	return s.transport.Addr()
}

// Close stops the server, open connections are closed and their locks released
func (s *Server) Close() error {
	return s.transport.Close()
}

// WriteMetrics writes the server and store metrics in Prometheus text format
func (s *Server) WriteMetrics(w io.Writer) {
	s.metrics.WritePrometheus(w)
	s.store.WriteMetrics(w)
}
