package protocol

import "encoding/binary"

// Kind classifies an inbound datagram by its length alone.
type Kind int

const (
	// KindDisconnected is a zero-length datagram: the peer closed the session.
	KindDisconnected Kind = iota
	// KindAck is a datagram of at most AckSize bytes confirming the last frame.
	KindAck
	// KindAnomalous is longer than an ack but shorter than a data reply.
	KindAnomalous
	// KindData carries a header, a status byte and statistics entries.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindDisconnected:
		return "disconnected"
	case KindAck:
		return "ack"
	case KindAnomalous:
		return "anomalous"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// Classify maps a received length to its Kind.
func Classify(n int) Kind {
	switch {
	case n <= 0:
		return KindDisconnected
	case n <= AckSize:
		return KindAck
	case n <= HeaderSize:
		return KindAnomalous
	default:
		return KindData
	}
}

// Ack is the 5-byte acknowledgment: the acked sequence id and session id.
type Ack struct {
	SeqID     uint8
	SessionID uint32
}

// ParseAck decodes the first AckSize bytes of b.
func ParseAck(b []byte) (Ack, error) {
	if len(b) < AckSize {
		return Ack{}, ErrShortAck
	}
	return Ack{SeqID: b[offSeq], SessionID: binary.BigEndian.Uint32(b[offSession:AckSize])}, nil
}

// Entry is one (category, value) statistic.
type Entry struct {
	Category uint8
	Value    uint16
}

// Label returns the category's display label.
func (e Entry) Label() string { return CategoryLabel(e.Category) }

// Reply is a decoded inbound datagram. Header, Status and Entries are set for
// KindData only; Ack is set for a full-size KindAck.
type Reply struct {
	Kind    Kind
	Len     int
	Ack     *Ack
	Header  Header
	Status  uint8
	Entries []Entry
	// Trailing counts bytes of an incomplete final triple.
	Trailing int
	// Connect is set for an anomalous datagram shaped like a connect frame,
	// which the server sends when it opens its own side of the session.
	Connect bool
}

// DecodeReply decodes b. It never fails: short or odd input degrades to a
// less specific Kind and an incomplete trailing triple is skipped.
func DecodeReply(b []byte) Reply {
	r := Reply{Kind: Classify(len(b)), Len: len(b)}
	switch r.Kind {
	case KindAck:
		if ack, err := ParseAck(b); err == nil {
			r.Ack = &ack
		}
	case KindAnomalous:
		r.Connect = IsConnect(b)
	case KindData:
		_ = r.Header.UnmarshalBinary(b)
		r.Status = b[offStatus]
		body := b[offEntries:]
		r.Entries = make([]Entry, 0, len(body)/entrySize)
		for i := 0; i+entrySize <= len(body); i += entrySize {
			r.Entries = append(r.Entries, Entry{
				Category: body[i],
				Value:    uint16(body[i+1])<<8 | uint16(body[i+2]),
			})
		}
		r.Trailing = len(body) % entrySize
	}
	return r
}

// IsConnect reports whether b is a connect frame: sequence id 0, a session
// id and the trailing marker.
func IsConnect(b []byte) bool {
	return len(b) == ConnectSize && b[offSeq] == 0 && b[ConnectSize-1] == ConnectMarker
}
