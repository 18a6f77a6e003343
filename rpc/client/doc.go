// Package client implements the RPC client of shKV. It provides an implementation
// of the store.IStore interface that forwards every call to a server.
//
// The package focuses on:
//   - Transparent access to the shared store through the store.IStore interface
//   - Integration with the transport and serialization layers
//   - Detecting responses that do not belong to the request (protocol errors)
//
// Key Components:
//
//   - NewRPCStore: Factory function that connects a transport and returns a client
//     implementing store.IStore (IRPCStore adds Close). Each client owns one connection.
//
// Usage Example:
//
//	config := common.DefaultClientConfig()
//	config.Endpoint = "127.0.0.1:6666"
//
//	s, err := client.NewRPCStore(config, tcp.NewTCPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  log.Fatal(err)
//	}
//	defer s.Close()
//
//	prev, found, _ := s.Set("mykey", []byte("myvalue"))
//	s.QueuePut("jobs", []byte("job-1"))
//	job, found, _ := s.QueueGet("jobs")
//
// Semantics:
//
//   - Every call is one blocking round trip. Calls on the same client from several
//     goroutines are serialized, there is never more than one request in flight.
//
//   - There is no retry and no reconnect. After a connection fault every further call
//     returns a common.ConnectionError, after Close every call returns common.ErrClientClosed.
//
//   - Info is not part of the protocol and returns an error.
//
// Thread Safety:
//
//	The client is thread-safe.
package client
