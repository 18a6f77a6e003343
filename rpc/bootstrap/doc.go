// Package bootstrap attaches a process to the shared store and starts the store
// when no process serves it yet.
//
// Several processes may start at the same moment and all find the endpoint empty.
// Binding an endpoint is atomic, so exactly one of them becomes the server; all
// others fail to bind and connect to the winner in their next round:
//
//	connect ── ok ──────────────────────────────► client
//	   │
//	   └─ refused ─► bind ── ok ─► serve in background, connect ─► client + server
//	                   │
//	                   └─ in use ─► backoff ─► connect ...
//
// The loop is bounded by the context, so a missing server is reported instead of
// retried forever.
//
// Usage Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//
//	a, err := bootstrap.Attach(ctx, bootstrap.Options{
//		Server:          serverConfig,
//		Client:          clientConfig,
//		Serializer:      serializer.NewBinarySerializer(),
//		ServerTransport: tcp.NewTCPServerTransport,
//		ClientTransport: tcp.NewTCPClientTransport,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer a.Close()
//
//	a.Store.QueuePut("jobs", []byte("job-1"))
package bootstrap
