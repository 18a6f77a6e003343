package serializer

import (
	"encoding/json"

	"github.com/ValentinKolb/shKV/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// jsonRequest is the json form of common.Request. Keys are opaque bytes and are
// encoded as base64 like values, json strings would replace invalid UTF-8.
type jsonRequest struct {
	Op    common.OpCode `json:"op"`
	Key   []byte        `json:"key"`
	Value []byte        `json:"value"`
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) SerializeRequest(req common.Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(jsonRequest{Op: req.Op, Key: []byte(req.Key), Value: req.Value})
}

func (j jsonSerializerImpl) DeserializeRequest(b []byte, req *common.Request) error {
	var wire jsonRequest
	if err := json.Unmarshal(b, &wire); err != nil {
		*req = common.Request{}
		return common.NewProtocolError("malformed json request: %v", err)
	}
	*req = common.Request{Op: wire.Op, Key: string(wire.Key), Value: wire.Value}
	return req.Validate()
}

func (j jsonSerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	if !resp.Op.Valid() {
		return nil, common.NewProtocolError("unknown operation code %d", uint8(resp.Op))
	}
	return json.Marshal(resp)
}

func (j jsonSerializerImpl) DeserializeResponse(b []byte, resp *common.Response) error {
	*resp = common.Response{}
	if err := json.Unmarshal(b, resp); err != nil {
		return common.NewProtocolError("malformed json response: %v", err)
	}
	if !resp.Op.Valid() {
		return common.NewProtocolError("unknown operation code %d", uint8(resp.Op))
	}
	return nil
}
