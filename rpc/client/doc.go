// Package client implements the client side of the replica wire protocol.
//
// Key Components:
//
//   - IReplicaLink: one persistent connection to one replica with a typed method
//     per request. Used by the quorum coordinator and by the anti-entropy process.
//
//   - NewReplicaLink: creates a link on top of any transport and serializer.
//
//   - NewTCPDialer: returns a Dialer that opens TCP links, the form in which links
//     are injected into the coordinator and the anti-entropy scheduler.
//
// Lock ownership on a replica is bound to the connection. A write therefore uses
// one link for acquire, put and release. If the connection breaks in between the
// replica drops the locks of that connection, and the next request on the link
// dials a new connection that holds no locks (a following put is rejected).
//
// Usage Example:
//
//	dial := client.NewTCPDialer(common.ClientTransportConfig{}, 5*time.Second, serializer.NewTextSerializer())
//	link, err := dial("localhost:5001")
//	if err != nil {
//	  return err
//	}
//	defer link.Close()
//
//	ok, version, err := link.AcquireLock("mykey")
//	if err == nil && ok {
//	  link.Put("mykey", "myvalue", version+1)
//	}
package client
