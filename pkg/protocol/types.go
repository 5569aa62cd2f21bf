package protocol

// Frame sizes, in bytes.
const (
	MaxBufferSize = 256
	AckSize       = 5
	ConnectSize   = 6
	HeaderSize    = 15
	// MaxPayload is what is left for command text after the header.
	MaxPayload = MaxBufferSize - HeaderSize
)

// Header layout shared by outbound requests and inbound data replies.
// All multi-byte integers are big-endian.
//
//	0       SeqID      u8
//	1  ..4  SessionID  u32
//	5  ..6  Reserved   u16 (always zero on send)
//	7  ..10 Signature  0x21 0x39 0xFF 0xB2
//	11 ..12 Reserved2  u16
//	13      Length     u8 (opcode byte + payload bytes)
//	14      Opcode     u8
//	15      Status     u8 (data replies only)
//	16 ..   Entries    (category, valueHigh, valueLow) triples
const (
	offSeq       = 0
	offSession   = 1
	offReserved  = 5
	offSignature = 7
	offReserved2 = 11
	offLength    = 13
	offOpcode    = 14
	offStatus    = 15
	offEntries   = 16

	entrySize = 3
)

// ConnectMarker trails the connect frame.
const ConnectMarker byte = 0xFD

// Signature is the fixed marker at offset 7 of every request header.
var Signature = [4]byte{0x21, 0x39, 0xFF, 0xB2}

// Opcode selects the server function a request invokes.
type Opcode uint8

const (
	// OpStats requests the statistics snapshot.
	OpStats Opcode = 0xF0
	// OpCommand executes a remote command carried as payload text.
	OpCommand Opcode = 0xF1
)

func (o Opcode) String() string {
	switch o {
	case OpStats:
		return "stats"
	case OpCommand:
		return "command"
	default:
		return "unknown"
	}
}
