package serializer

import (
	"encoding/binary"

	"github.com/ValentinKolb/shKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// formatVersion is written as the first byte of every payload
const formatVersion byte = 1

// headerSize is version + op + flags
const headerSize = 3

// Bit flags to indicate which optional fields are present
const (
	hasKey   byte = 1 << 0
	hasValue byte = 1 << 1
	hasFound byte = 1 << 2
	hasCount byte = 1 << 3

	requestFlags  = hasKey | hasValue
	responseFlags = hasValue | hasFound | hasCount
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) SerializeRequest(req common.Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Calculate total size needed
	size := headerSize
	if req.Key != "" {
		size += 4 + len(req.Key)
	}
	if req.Value != nil {
		size += 4 + len(req.Value)
	}

	result := make([]byte, size)
	result[0] = formatVersion
	result[1] = byte(req.Op)

	var flags byte = 0
	pos := headerSize

	if req.Key != "" {
		flags |= hasKey
		pos = putBytes(result, pos, []byte(req.Key))
	}

	if req.Value != nil {
		flags |= hasValue
		pos = putBytes(result, pos, req.Value)
	}

	// Set flags byte after knowing which fields are present
	result[2] = flags

	return result, nil
}

func (b binarySerializerImpl) DeserializeRequest(data []byte, req *common.Request) error {
	op, flags, err := readHeader(data, requestFlags)
	if err != nil {
		return err
	}

	*req = common.Request{Op: op}
	pos := headerSize

	// Read Key if present
	if flags&hasKey != 0 {
		var key []byte
		if key, pos, err = readBytes(data, pos, "key"); err != nil {
			return err
		}
		req.Key = string(key)
	}

	// Read Value if present - an empty but present value stays non-nil
	if flags&hasValue != 0 {
		if req.Value, pos, err = readBytes(data, pos, "value"); err != nil {
			return err
		}
	}

	if pos != len(data) {
		return common.NewProtocolError("%d trailing bytes after request", len(data)-pos)
	}

	return req.Validate()
}

func (b binarySerializerImpl) SerializeResponse(resp common.Response) ([]byte, error) {
	if !resp.Op.Valid() {
		return nil, common.NewProtocolError("unknown operation code %d", uint8(resp.Op))
	}

	size := headerSize
	if resp.Value != nil {
		size += 4 + len(resp.Value)
	}
	if resp.Count > 0 {
		size += 8
	}

	result := make([]byte, size)
	result[0] = formatVersion
	result[1] = byte(resp.Op)

	var flags byte = 0
	pos := headerSize

	// Found has no payload, the flag is the value
	if resp.Found {
		flags |= hasFound
	}

	if resp.Value != nil {
		flags |= hasValue
		pos = putBytes(result, pos, resp.Value)
	}

	if resp.Count > 0 {
		flags |= hasCount
		binary.BigEndian.PutUint64(result[pos:pos+8], resp.Count)
	}

	result[2] = flags

	return result, nil
}

func (b binarySerializerImpl) DeserializeResponse(data []byte, resp *common.Response) error {
	op, flags, err := readHeader(data, responseFlags)
	if err != nil {
		return err
	}

	*resp = common.Response{Op: op, Found: flags&hasFound != 0}
	pos := headerSize

	if flags&hasValue != 0 {
		if resp.Value, pos, err = readBytes(data, pos, "value"); err != nil {
			return err
		}
	}

	if flags&hasCount != 0 {
		if pos+8 > len(data) {
			return common.NewProtocolError("data too short for count")
		}
		resp.Count = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	if pos != len(data) {
		return common.NewProtocolError("%d trailing bytes after response", len(data)-pos)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readHeader validates version, operation code and flag bits
func readHeader(data []byte, allowedFlags byte) (common.OpCode, byte, error) {
	if len(data) < headerSize {
		return common.OpUnknown, 0, common.NewProtocolError("data too short for message header")
	}
	if data[0] != formatVersion {
		return common.OpUnknown, 0, common.NewProtocolError("unsupported format version %d", data[0])
	}
	op := common.OpCode(data[1])
	if !op.Valid() {
		return common.OpUnknown, 0, common.NewProtocolError("unknown operation code %d", data[1])
	}
	flags := data[2]
	if flags&^allowedFlags != 0 {
		return common.OpUnknown, 0, common.NewProtocolError("invalid flags %08b", flags)
	}
	return op, flags, nil
}

// putBytes writes a uint32 length prefix followed by b and returns the new position
func putBytes(dst []byte, pos int, b []byte) int {
	binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(b)))
	pos += 4
	copy(dst[pos:pos+len(b)], b)
	return pos + len(b)
}

// readBytes reads a length prefixed field. The result is a copy and never nil.
func readBytes(data []byte, pos int, field string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, common.NewProtocolError("data too short for %s length", field)
	}
	declared := binary.BigEndian.Uint32(data[pos : pos+4])
	pos += 4

	// compared before converting, int(declared) is negative on 32 bit platforms
	if uint64(declared) > uint64(len(data)-pos) {
		return nil, pos, common.NewProtocolError("data too short for %s data", field)
	}
	n := int(declared)

	out := make([]byte, n)
	copy(out, data[pos:pos+n])
	return out, pos + n, nil
}
