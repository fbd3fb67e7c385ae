package server

import (
	"net"

	"github.com/ValentinKolb/qKV/lib/lockmgr"
	"github.com/ValentinKolb/qKV/rpc/common"
)

// connSession handles the requests of one client connection.
// The only state is the lock token, it identifies the connection as lock holder.
type connSession struct {
	server *Server
	remote net.Addr
	token  lockmgr.Token
}

func (c *connSession) Handle(req []byte) []byte {
	var msg common.Message
	var resp *common.Message

	if err := c.server.serializer.Deserialize(req, &msg); err != nil {
		Logger.Debugf("Invalid request from %s: %v", c.remote, err)
		c.server.invalidRequests.Inc()
		resp = common.NewInvalidRequestResponse(err.Error())
	} else if msg.Response {
		Logger.Debugf("Unexpected response message from %s: %s", c.remote, msg)
		c.server.invalidRequests.Inc()
		resp = common.NewInvalidRequestResponse("expected a request")
	} else {
		c.server.requests.Inc()
		resp = c.server.adapter.Handle(&msg, c.token, c.server.store)
	}

	data, err := c.server.serializer.Serialize(*resp)
	if err != nil {
		Logger.Errorf("Failed to serialize %s for %s: %v", resp, c.remote, err)
		data, _ = c.server.serializer.Serialize(*common.NewInvalidRequestResponse(err.Error()))
	}
	return data
}

func (c *connSession) Close() {
	c.server.openConns.Add(-1)
	if n := c.server.store.ReleaseAll(c.token); n > 0 {
		Logger.Infof("Released %d write lock(s) left behind by %s", n, c.remote)
	}
}
