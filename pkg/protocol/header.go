package protocol

import (
	"encoding/binary"
)

// Header describes the fixed 15-byte prefix of a request or data reply.
type Header struct {
	SeqID     uint8
	SessionID uint32
	Reserved  uint16
	Signature [4]byte
	Reserved2 uint16
	Length    uint8
	Opcode    Opcode
}

// MarshalBinary encodes the header to a 15-byte buffer.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf, nil
}

func (h *Header) put(buf []byte) {
	buf[offSeq] = h.SeqID
	binary.BigEndian.PutUint32(buf[offSession:offReserved], h.SessionID)
	binary.BigEndian.PutUint16(buf[offReserved:offSignature], h.Reserved)
	copy(buf[offSignature:offReserved2], h.Signature[:])
	binary.BigEndian.PutUint16(buf[offReserved2:offLength], h.Reserved2)
	buf[offLength] = h.Length
	buf[offOpcode] = byte(h.Opcode)
}

// UnmarshalBinary decodes the header from the first 15 bytes of buf.
// The signature is copied, not checked; see Signed.
func (h *Header) UnmarshalBinary(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrShortHeader
	}
	h.SeqID = buf[offSeq]
	h.SessionID = binary.BigEndian.Uint32(buf[offSession:offReserved])
	h.Reserved = binary.BigEndian.Uint16(buf[offReserved:offSignature])
	copy(h.Signature[:], buf[offSignature:offReserved2])
	h.Reserved2 = binary.BigEndian.Uint16(buf[offReserved2:offLength])
	h.Length = buf[offLength]
	h.Opcode = Opcode(buf[offOpcode])
	return nil
}

// Signed reports whether the header carries the fixed signature.
func (h *Header) Signed() bool { return h.Signature == Signature }

// EncodeConnect builds the 6-byte handshake frame: seq 0, session id, marker.
func EncodeConnect(sessionID uint32) []byte {
	buf := make([]byte, ConnectSize)
	buf[offSeq] = 0
	binary.BigEndian.PutUint32(buf[offSession:offReserved], sessionID)
	buf[ConnectSize-1] = ConnectMarker
	return buf
}

// EncodePoll builds a statistics request.
func EncodePoll(seq uint8, sessionID uint32) []byte {
	return EncodeRequest(seq, sessionID, OpStats, nil)
}

// EncodeCommand builds a remote command request carrying text as payload.
// Text beyond MaxPayload bytes is dropped.
func EncodeCommand(seq uint8, sessionID uint32, text string) []byte {
	return EncodeRequest(seq, sessionID, OpCommand, []byte(text))
}

// EncodeRequest builds a request header for op followed by as much of payload
// as fits into MaxBufferSize. The length byte counts the opcode plus the
// appended payload bytes.
func EncodeRequest(seq uint8, sessionID uint32, op Opcode, payload []byte) []byte {
	n := min(len(payload), MaxPayload)
	h := Header{
		SeqID:     seq,
		SessionID: sessionID,
		Signature: Signature,
		Length:    1 + uint8(n),
		Opcode:    op,
	}
	buf := make([]byte, HeaderSize+n)
	h.put(buf)
	copy(buf[HeaderSize:], payload[:n])
	return buf
}
