// Package server implements the shKV RPC server. It owns the in-memory store and
// connects it to a transport (the event loop) and a serializer.
//
// The package focuses on:
//   - Decoding request payloads, dispatching them onto the store and encoding the response
//   - Adapter pattern to decouple the store from the RPC mechanisms
//   - Server metrics in the Prometheus format
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters, with the
//     Handle method that executes a request against a store.IStore.
//
//   - NewIStoreServerAdapter: Factory function creating the adapter that maps every
//     operation code onto the matching store.IStore method.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Usage Example:
//
//	config := common.DefaultServerConfig()
//	config.Endpoint = "127.0.0.1:6666"
//
//	s := server.NewRPCServer(
//	  config,
//	  tcp.NewTCPServerTransport(),
//	  serializer.NewBinarySerializer(),
//	)
//
//	// Listen is optional, it separates binding the endpoint from serving it
//	if err := s.Listen(); err != nil {
//	  log.Fatalf("endpoint is taken: %v", err)
//	}
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Metrics:
//
//	With a metrics endpoint configured, http://<endpoint>/metrics exposes request counters
//	per operation, a request duration histogram, connection and error counters and
//	gauges for the store contents (github.com/VictoriaMetrics/metrics).
//
// Thread Safety:
//
//	Requests of all connections are handled one after another on the transport's event
//	loop goroutine. The store therefore needs no locking, and the effects of requests
//	are totally ordered. Listen, Serve and Close may be called from any goroutine.
package server
