// Package session holds the client side state of one SwUDP session: the
// 32-bit session id sent in every frame and the 8-bit sequence id.
package session

import (
	"math/rand"
	"sync/atomic"
)

// Reserved sequence ids.
const (
	// SeqConnect is carried only by the connect frame. The server also uses it
	// as the ack id that confirms the handshake.
	SeqConnect uint8 = 0
	// SeqErrorAck is never sent by the client. The server acks with it when a
	// frame arrives for a session it does not know.
	SeqErrorAck uint8 = 1
)

// Source yields 16-bit random draws for the session id.
type Source interface {
	Uint16() uint16
}

type defaultSource struct{}

func (defaultSource) Uint16() uint16 { return uint16(rand.Uint32()) }

// Session is created once per run. Advance is called by the sending loop only;
// ID and Seq may be read from any goroutine.
type Session struct {
	id  atomic.Uint32
	seq atomic.Uint32
}

// New returns an initialized session with an id drawn from src
// (math/rand/v2 when src is nil).
func New(src Source) *Session {
	s := &Session{}
	s.Init(src)
	return s
}

// Init seeds the sequence id to SeqConnect and draws a fresh session id as
// (r1 << 16) | r2.
func (s *Session) Init(src Source) {
	if src == nil {
		src = defaultSource{}
	}
	r1 := uint32(src.Uint16())
	r2 := uint32(src.Uint16())
	s.id.Store(r1<<16 | r2)
	s.seq.Store(uint32(SeqConnect))
}

// ID returns the session id.
func (s *Session) ID() uint32 { return s.id.Load() }

// Seq returns the last sequence id handed out.
func (s *Session) Seq() uint8 { return uint8(s.seq.Load()) }

// Advance moves to the next usable sequence id and returns it.
func (s *Session) Advance() uint8 {
	next := Next(s.Seq())
	s.seq.Store(uint32(next))
	return next
}

// Next returns the successor of n modulo 256, skipping SeqConnect and
// SeqErrorAck. At most two extra steps are ever taken (255 -> 0 -> 1 -> 2).
func Next(n uint8) uint8 {
	n++
	for n == SeqConnect || n == SeqErrorAck {
		n++
	}
	return n
}
