package server

import (
	"fmt"

	"github.com/ValentinKolb/qKV/lib/lockmgr"
	"github.com/ValentinKolb/qKV/lib/store"
	"github.com/ValentinKolb/qKV/rpc/common"
)

// NewReplicaStoreServerAdapter creates the adapter mapping wire requests to store.IReplicaStore calls
func NewReplicaStoreServerAdapter() IRPCServerAdapter {
	return &replicaStoreServerAdapterImpl{}
}

type replicaStoreServerAdapterImpl struct{}

func (adapter *replicaStoreServerAdapterImpl) Handle(req *common.Message, holder lockmgr.Token, s store.IReplicaStore) *common.Message {
	// Check for nil store
	if s == nil {
		return common.NewInvalidRequestResponse("handler: store is nil")
	}

	// Handle different message types
	switch req.MsgType {
	case common.MsgTAcquireLock:
		ok, version := s.AcquireWriteLock(req.Key, holder)
		return common.NewAcquireLockResponse(ok, version)
	case common.MsgTReleaseLock:
		s.ReleaseWriteLock(req.Key, holder)
		return common.NewReleaseLockResponse()
	case common.MsgTGet:
		entry, err := s.Get(req.Key)
		if err != nil {
			return common.NewGetFailedResponse()
		}
		return common.NewGetResponse(entry.Value, entry.Version)
	case common.MsgTPut:
		return common.NewPutResponse(s.Put(req.Key, req.Value, holder, req.Version))
	case common.MsgTUpdate:
		s.ConditionalUpdate(req.Key, req.Value, req.Version)
		return common.NewUpdateResponse()
	default:
		return common.NewInvalidRequestResponse(
			fmt.Sprintf("unsupported message type: %s", req.MsgType),
		)
	}
}
