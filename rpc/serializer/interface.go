package serializer

import (
	"fmt"

	"github.com/ValentinKolb/shKV/rpc/common"
)

// IRPCSerializer is the interface for all payload serializers.
// Deserialization errors are always *common.ProtocolError values.
type IRPCSerializer interface {
	// SerializeRequest serializes a Request into a byte array
	SerializeRequest(req common.Request) ([]byte, error)
	// DeserializeRequest deserializes a byte array into a Request.
	// A payload that is not a well-formed request results in an error.
	DeserializeRequest(b []byte, req *common.Request) error
	// SerializeResponse serializes a Response into a byte array
	SerializeResponse(resp common.Response) ([]byte, error)
	// DeserializeResponse deserializes a byte array into a Response
	DeserializeResponse(b []byte, resp *common.Response) error
}

// ByName returns the serializer registered under the given name (binary, json).
func ByName(name string) (IRPCSerializer, error) {
	switch name {
	case "binary":
		return NewBinarySerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s (expected binary or json)", name)
	}
}
