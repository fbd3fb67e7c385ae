package client

import (
	"time"

	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/serializer"
	"github.com/ValentinKolb/qKV/rpc/transport"
	"github.com/ValentinKolb/qKV/rpc/transport/tcp"
)

// NewReplicaLink creates a new link to one replica
// The function takes the endpoint, the transport config, a timeout (0 = none), a transport and a serializer as parameters
// It returns an IReplicaLink and an error if the replica is unreachable
func NewReplicaLink(
	endpoint string,
	config common.ClientTransportConfig,
	timeout time.Duration,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (IReplicaLink, error) {

	// Connect the transport
	if err := transport.Connect(endpoint, config, timeout); err != nil {
		return nil, err
	}

	return &replicaLink{
		rpcClientAdapter{
			transport:  transport,
			serializer: serializer,
		},
	}, nil
}

// NewTCPDialer returns a Dialer creating TCP links with the given settings
func NewTCPDialer(config common.ClientTransportConfig, timeout time.Duration, serializer serializer.IRPCSerializer) Dialer {
	return func(endpoint string) (IReplicaLink, error) {
		return NewReplicaLink(endpoint, config, timeout, tcp.NewTCPClientTransport(), serializer)
	}
}

type replicaLink struct {
	rpcClientAdapter
}

// --------------------------------------------------------------------------
// Interface Methods (docu see client.IReplicaLink)
// --------------------------------------------------------------------------

func (l *replicaLink) Endpoint() string {
	return l.transport.Endpoint()
}

func (l *replicaLink) AcquireLock(key string) (bool, int64, error) {
	resp, err := invokeRPCRequest(common.NewAcquireLockRequest(key), l.transport, l.serializer)
	if err != nil {
		return false, 0, err
	}
	return resp.Ok, resp.Version, nil
}

func (l *replicaLink) ReleaseLock(key string) error {
	_, err := invokeRPCRequest(common.NewReleaseLockRequest(key), l.transport, l.serializer)
	return err
}

func (l *replicaLink) Get(key string) (string, int64, bool, error) {
	resp, err := invokeRPCRequest(common.NewGetRequest(key), l.transport, l.serializer)
	if err != nil {
		return "", 0, false, err
	}
	return resp.Value, resp.Version, resp.Ok, nil
}

func (l *replicaLink) Put(key, value string, version int64) (bool, error) {
	resp, err := invokeRPCRequest(common.NewPutRequest(key, value, version), l.transport, l.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (l *replicaLink) Update(key, value string, version int64) error {
	_, err := invokeRPCRequest(common.NewUpdateRequest(key, value, version), l.transport, l.serializer)
	return err
}

func (l *replicaLink) Close() error {
	return l.transport.Close()
}
