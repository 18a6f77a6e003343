package base

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/ValentinKolb/shKV/rpc/common"
)

// frameHeaderSize is the size of the length prefix of every frame
const frameHeaderSize = 4

// writeFrame writes a frame to the connection with the format:
// - 4 bytes: payload length (uint32, big endian)
// - N bytes: payload
func writeFrame(conn net.Conn, data []byte) error {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// decodeFrame extracts the first complete frame from an accumulation buffer.
// It returns the payload (a sub slice of buf) and the number of bytes consumed.
// common.ErrIncompleteFrame signals that more bytes are needed, a declared length above
// maxFrameSize is a protocol error.
func decodeFrame(buf []byte, maxFrameSize int) (payload []byte, consumed int, err error) {
	if len(buf) < frameHeaderSize {
		return nil, 0, common.ErrIncompleteFrame
	}

	length := binary.BigEndian.Uint32(buf[:frameHeaderSize])
	if uint64(length) > uint64(maxFrameSize) {
		return nil, 0, common.NewProtocolError("frame of %d bytes exceeds maximum of %d bytes", length, maxFrameSize)
	}

	end := frameHeaderSize + int(length)
	if len(buf) < end {
		return nil, 0, common.ErrIncompleteFrame
	}

	return buf[frameHeaderSize:end], end, nil
}

// readFrame blocks until one complete frame was read from r.
// Used by the client, which only ever waits for a single response.
func readFrame(r io.Reader, maxFrameSize int) ([]byte, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(header)
	if uint64(length) > uint64(maxFrameSize) {
		return nil, common.NewProtocolError("frame of %d bytes exceeds maximum of %d bytes", length, maxFrameSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		// the header promised more bytes than the peer sent
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}
	return data, nil
}
