// Package store defines the data model of shKV: a scalar key-value namespace and an
// independent namespace of FIFO queues, both addressed by string keys.
//
// The same key may exist in both namespaces with unrelated contents. Values are opaque
// byte slices that are stored without interpretation.
//
// Available Implementations:
//
//   - lstore: in-memory implementation used by the server. Available in the
//     "github.com/ValentinKolb/shKV/lib/store/lstore" package.
//
//   - rpcStore: implements IStore against a remote server over the wire protocol. Available in the
//     "github.com/ValentinKolb/shKV/rpc/client" package.
//
// Missing entries are not errors. Get, Set, Delete and QueueGet report them with
// found == false and QueueSize reports 0.
package store
