package bridge

import (
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameSize bounds the payload of a single frame
const maxFrameSize = 64 << 20

// writeFrame writes a 4-byte big-endian length header followed by the
// payload
func writeFrame(w io.Writer, payload []byte) error {
	if len(payload) > maxFrameSize {
		return fmt.Errorf("writeframe: payload too large\n\twant(<=%v)"+
			"\n\thave(%v)", maxFrameSize, len(payload))
	}

	buf := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(buf[:4], uint32(len(payload)))
	copy(buf[4:], payload)

	_, err := w.Write(buf)
	return err
}

// readFrame reads a single length-prefixed frame
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	length := binary.BigEndian.Uint32(hdr[:])
	if length == 0 {
		return nil, nil
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("readframe: frame too large\n\twant(<=%v)"+
			"\n\thave(%v)", maxFrameSize, length)
	}

	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
