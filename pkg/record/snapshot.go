// Package record appends decoded statistics replies to a file so a polling
// session can be inspected later.
package record

import (
	"time"

	"swstat/pkg/protocol"
)

// Value is one labelled statistic.
type Value struct {
	Category uint8  `json:"category" cbor:"category"`
	Label    string `json:"label" cbor:"label"`
	Value    uint16 `json:"value" cbor:"value"`
}

// Snapshot is one recorded data reply.
type Snapshot struct {
	RunID      string    `json:"run_id" cbor:"run_id"`
	SessionID  uint32    `json:"session_id" cbor:"session_id"`
	Seq        uint8     `json:"seq" cbor:"seq"`
	Status     uint8     `json:"status" cbor:"status"`
	ReceivedAt time.Time `json:"received_at" cbor:"received_at"`
	Entries    []Value   `json:"entries" cbor:"entries"`
}

// FromReply builds a snapshot from a data reply.
func FromReply(runID string, rep protocol.Reply, at time.Time) Snapshot {
	s := Snapshot{
		RunID:      runID,
		SessionID:  rep.Header.SessionID,
		Seq:        rep.Header.SeqID,
		Status:     rep.Status,
		ReceivedAt: at.UTC(),
		Entries:    make([]Value, 0, len(rep.Entries)),
	}
	for _, e := range rep.Entries {
		s.Entries = append(s.Entries, Value{Category: e.Category, Label: e.Label(), Value: e.Value})
	}
	return s
}
