// Package serializer provides payload serialization for the shKV protocol.
// It defines a common interface and two implementations for converting
// requests and responses to and from byte arrays. Framing (the length prefix)
// is not part of the payload and is handled by the transport layer.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom, versioned binary format. Every payload starts with
//     a version byte, the operation code and a flags byte; only fields marked in the
//     flags follow, each variable length field with a uint32 length prefix:
//
//     request:  version | op | flags | [len | key] | [len | value]
//     response: version | op | flags | [len | value] | [count]
//
//     The found bit of a response is carried by the flags byte alone. Unknown versions,
//     unknown operation codes, unknown flag bits, truncated fields and trailing bytes
//     are rejected with a common.ProtocolError.
//
//   - jsonSerializerImpl: JSON encoding with operation names instead of codes. Useful
//     for debugging or talking to the server from other languages without writing a
//     binary codec.
//
// Both implementations are deterministic and round-trip exactly: a nil value stays nil
// and an empty value stays empty.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.SerializeRequest(*common.NewSetRequest("x", []byte("1")))
//	// ... send data ...
//	var req common.Request
//	err = s.DeserializeRequest(data, &req)
package serializer
