package encoding

import (
	"encoding/binary"
	"fmt"
)

const (
	magicByte     = 0x00
	wireHeaderLen = 5
)

// BuildWireFormat frames payload as [0x00][schema id, 4 bytes BE][payload].
func BuildWireFormat(schemaID int, payload []byte) []byte {
	out := make([]byte, wireHeaderLen+len(payload))
	out[0] = magicByte
	binary.BigEndian.PutUint32(out[1:wireHeaderLen], uint32(schemaID))
	copy(out[wireHeaderLen:], payload)
	return out
}

// ParseWireFormat is the inverse of BuildWireFormat.
func ParseWireFormat(data []byte) (int, []byte, error) {
	if len(data) < wireHeaderLen {
		return 0, nil, fmt.Errorf("data too short: expected at least %d bytes, got %d", wireHeaderLen, len(data))
	}
	if data[0] != magicByte {
		return 0, nil, fmt.Errorf("invalid magic byte: expected 0x00, got 0x%02x", data[0])
	}
	return int(binary.BigEndian.Uint32(data[1:wireHeaderLen])), data[wireHeaderLen:], nil
}
