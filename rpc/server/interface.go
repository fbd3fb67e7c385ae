package server

import (
	"github.com/ValentinKolb/qKV/lib/lockmgr"
	"github.com/ValentinKolb/qKV/lib/store"
	"github.com/ValentinKolb/qKV/rpc/common"
)

// IRPCServerAdapter is the interface for all RPC server adapters
// It is responsible for translating requests into store calls
type IRPCServerAdapter interface {
	// Handle handles a request and returns a response
	// It takes the request, the lock token of the connection and the store as parameters.
	// It returns a Message as a response
	Handle(req *common.Message, holder lockmgr.Token, store store.IReplicaStore) (resp *common.Message)
}
