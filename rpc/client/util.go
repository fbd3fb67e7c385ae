package client

import (
	"fmt"

	"github.com/ValentinKolb/qKV/rpc/common"
	"github.com/ValentinKolb/qKV/rpc/serializer"
	"github.com/ValentinKolb/qKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
type rpcClientAdapter struct {
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs
// This method also checks if the response is an invalid request response and if the type of the response is the expected type
func invokeRPCRequest(req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	// Send the request
	respBytes, err := transport.Send(reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, fmt.Errorf("malformed response from %s: %w", transport.Endpoint(), err)
	}

	// Check if the request was rejected
	if resp.MsgType == common.MsgTInvalidRequest {
		Logger.Debugf("%s rejected %s: %s", transport.Endpoint(), req, resp.Err)
		return nil, fmt.Errorf("%w: %s %s", ErrRequestRejected, transport.Endpoint(), resp.Err)
	}

	// Check if the type of the response is the expected type
	if !resp.Response || resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("unexpected message from %s: %s, expected %s response", transport.Endpoint(), resp, req.MsgType)
	}

	// Return the response
	return resp, nil
}
