package common

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Request / Response Structures
// --------------------------------------------------------------------------

// Request is a single operation sent from a client to the server.
// Value is only used by OpSet and OpQueuePut and must be nil for every other operation.
type Request struct {
	Op    OpCode `json:"op"`
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// Response is the result of exactly one Request.
// Which fields are meaningful depends on the operation of the originating request:
//
//   - OpGet, OpSet, OpDelete, OpQueueGet: Found + Value ("no value" is Found=false)
//   - OpQueueSize: Count
//   - OpQueuePut: nothing
type Response struct {
	Op    OpCode `json:"op"`
	Found bool   `json:"found,omitempty"`
	Value []byte `json:"value"`
	Count uint64 `json:"count,omitempty"`
}

// Validate checks that the request carries a value exactly when its operation requires one.
func (r *Request) Validate() error {
	if !r.Op.Valid() {
		return NewProtocolError("unknown operation code %d", uint8(r.Op))
	}
	if r.Op.RequiresValue() && r.Value == nil {
		return NewProtocolError("%s request without value", r.Op)
	}
	if !r.Op.RequiresValue() && r.Value != nil {
		return NewProtocolError("%s request must not carry a value", r.Op)
	}
	return nil
}

// --------------------------------------------------------------------------
// Request Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request
func NewGetRequest(key string) *Request {
	return &Request{Op: OpGet, Key: key}
}

// NewSetRequest creates a new Set request. A nil value is stored as an empty value.
func NewSetRequest(key string, value []byte) *Request {
	return &Request{Op: OpSet, Key: key, Value: nonNil(value)}
}

// NewDeleteRequest creates a new Delete request
func NewDeleteRequest(key string) *Request {
	return &Request{Op: OpDelete, Key: key}
}

// NewQueueGetRequest creates a new QueueGet request
func NewQueueGetRequest(key string) *Request {
	return &Request{Op: OpQueueGet, Key: key}
}

// NewQueuePutRequest creates a new QueuePut request. A nil value is queued as an empty value.
func NewQueuePutRequest(key string, value []byte) *Request {
	return &Request{Op: OpQueuePut, Key: key, Value: nonNil(value)}
}

// NewQueueSizeRequest creates a new QueueSize request
func NewQueueSizeRequest(key string) *Request {
	return &Request{Op: OpQueueSize, Key: key}
}

// --------------------------------------------------------------------------
// Response Factory Functions
// --------------------------------------------------------------------------

// NewValueResponse creates a response carrying an optional value.
// Used for Get, Set, Delete and QueueGet.
func NewValueResponse(op OpCode, value []byte, found bool) *Response {
	if !found {
		return &Response{Op: op}
	}
	return &Response{Op: op, Found: true, Value: nonNil(value)}
}

// NewQueuePutResponse creates the (empty) response of a QueuePut request
func NewQueuePutResponse() *Response {
	return &Response{Op: OpQueuePut}
}

// NewQueueSizeResponse creates the response of a QueueSize request
func NewQueueSizeResponse(count uint64) *Response {
	return &Response{Op: OpQueueSize, Count: count}
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// --------------------------------------------------------------------------
// Operation Code Definition
// --------------------------------------------------------------------------

// OpCode identifies the operation of a request. The set of codes is fixed.
type OpCode uint8

const (
	OpUnknown   OpCode = iota
	OpGet              // Read a scalar value
	OpSet              // Replace a scalar value, returns the previous one
	OpDelete           // Remove a scalar value, returns the removed one
	OpQueueGet         // Pop the head of a queue
	OpQueuePut         // Append to the tail of a queue
	OpQueueSize        // Number of queued elements
)

// Valid reports whether the code is one of the defined operations.
func (o OpCode) Valid() bool {
	return o >= OpGet && o <= OpQueueSize
}

// RequiresValue reports whether requests of this operation carry a value.
func (o OpCode) RequiresValue() bool {
	return o == OpSet || o == OpQueuePut
}

// String returns the string representation of an OpCode.
func (o OpCode) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpSet:
		return "set"
	case OpDelete:
		return "del"
	case OpQueueGet:
		return "queue_get"
	case OpQueuePut:
		return "queue_put"
	case OpQueueSize:
		return "queue_size"
	default:
		return "unknown"
	}
}

// ParseOpCode is the inverse of OpCode.String.
func ParseOpCode(s string) (OpCode, error) {
	for o := OpGet; o <= OpQueueSize; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return OpUnknown, fmt.Errorf("unknown operation: %s", s)
}

// MarshalJSON implements the json.Marshaller interface for OpCode.
// This allows OpCode to be serialized as a string in JSON.
func (o OpCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for OpCode.
func (o *OpCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	op, err := ParseOpCode(s)
	if err != nil {
		return err
	}
	*o = op
	return nil
}
