// Package emulator is an in-process stand-in for a Winesaps statistics
// server. It speaks the server side of the SwUDP session: it acks every
// frame, opens its own side after a connect, rejects unknown sessions with an
// error ack, and answers statistics and remote function requests.
//
// It backs the mem transport kind and the end-to-end tests.
package emulator

import (
	"context"
	"encoding/binary"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"swstat/pkg/protocol"
	"swstat/pkg/session"
	"swstat/pkg/transport"
	"swstat/pkg/transport/mem"
)

// StatsFunc produces the entries of a statistics reply.
type StatsFunc func() []protocol.Entry

// Server answers requests. It is safe for concurrent use.
type Server struct {
	log   *zap.Logger
	token [4]byte
	stats StatsFunc

	mu       sync.Mutex
	users    []string
	stopping bool
	sessions map[uint32]uint8 // session id -> last server sequence id
	started  time.Time
	requests uint64
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// WithToken sets the 4-byte statistics token expected at the signature offset.
func WithToken(t [4]byte) Option { return func(s *Server) { s.token = t } }

// WithStats replaces the built-in statistics.
func WithStats(f StatsFunc) Option { return func(s *Server) { s.stats = f } }

// WithUsers sets the names known to the user functions.
func WithUsers(names ...string) Option {
	return func(s *Server) { s.users = append([]string(nil), names...) }
}

// New returns a server expecting the standard token.
func New(opts ...Option) *Server {
	s := &Server{
		log:      zap.L(),
		token:    protocol.Signature,
		sessions: make(map[uint32]uint8),
		started:  time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.stats == nil {
		s.stats = s.builtinStats
	}
	return s
}

// Stopping reports the soft-stop flag toggled by function '3'.
func (s *Server) Stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// Sessions returns the number of known sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Handle processes one inbound datagram and returns the datagrams to send
// back, in order.
func (s *Server) Handle(b []byte) [][]byte {
	if len(b) < protocol.AckSize {
		return nil
	}
	id := b[0]
	sid := binary.BigEndian.Uint32(b[1:protocol.AckSize])
	if len(b) == protocol.AckSize {
		// ack of one of our frames
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id == session.SeqConnect {
		s.sessions[sid] = session.SeqConnect
		s.log.Debug("emulator: session connected", zap.Uint32("session_id", sid))
		return [][]byte{ack(id, sid), protocol.EncodeConnect(sid)}
	}
	if _, ok := s.sessions[sid]; !ok {
		return [][]byte{ack(session.SeqErrorAck, sid)}
	}

	out := [][]byte{ack(id, sid)}
	if len(b) < protocol.HeaderSize {
		return out
	}
	var h protocol.Header
	_ = h.UnmarshalBinary(b)
	s.requests++
	t0 := time.Now()

	var status uint8
	var body []byte
	switch h.Opcode {
	case protocol.OpStats:
		if h.Signature != s.token {
			status = protocol.StatusIncorrectToken
			break
		}
		body = encodeEntries(s.stats(), t0)
	case protocol.OpCommand:
		status, body = s.call(b[protocol.HeaderSize:])
	default:
		status = protocol.StatusNotHandled
	}

	seq := session.Next(s.sessions[sid])
	s.sessions[sid] = seq
	rh := protocol.Header{
		SeqID:     seq,
		SessionID: sid,
		Signature: h.Signature,
		Length:    uint8(min(2+len(body), 255)),
		Opcode:    h.Opcode,
	}
	reply, _ := rh.MarshalBinary()
	reply = append(reply, status)
	reply = append(reply, body...)
	if len(reply) > protocol.MaxBufferSize {
		reply = reply[:protocol.MaxBufferSize]
	}
	return append(out, reply)
}

// call runs a remote function: '1<name>' kicks a user, '2' runs the
// collector, '3' toggles soft stop, '4<n>' returns the n-th user's name.
func (s *Server) call(args []byte) (uint8, []byte) {
	if len(args) == 0 {
		return protocol.StatusIncorrectLength, nil
	}
	switch args[0] {
	case '1':
		if len(args) == 1 {
			return protocol.StatusIncorrectLength, nil
		}
		name := string(args[1:])
		for i, u := range s.users {
			if u == name {
				s.users = append(s.users[:i], s.users[i+1:]...)
				return protocol.StatusOK, nil
			}
		}
		return protocol.StatusUserNotFound, nil
	case '2':
		return protocol.StatusOK, nil
	case '3':
		s.stopping = !s.stopping
		return protocol.StatusOK, nil
	case '4':
		if len(args) == 1 {
			return protocol.StatusIncorrectLength, nil
		}
		n, err := strconv.Atoi(string(args[1:]))
		if err != nil {
			return protocol.StatusIncorrectArg, nil
		}
		if n < 0 || n >= len(s.users) {
			return protocol.StatusUserNotFound, nil
		}
		return protocol.StatusOK, []byte(s.users[n])
	default:
		return protocol.StatusFnCodeNotFound, nil
	}
}

// builtinStats reports the emulator's own counters. Called with mu held.
func (s *Server) builtinStats() []protocol.Entry {
	n := clamp(len(s.sessions))
	users := clamp(len(s.users))
	uptime := time.Since(s.started).Seconds()
	rps := 0
	if uptime >= 1 {
		rps = int(float64(s.requests) / uptime)
	}
	entries := make([]protocol.Entry, protocol.NumCategories)
	for i := range entries {
		entries[i].Category = uint8(i)
	}
	entries[1].Value = clamp(rps)
	entries[2].Value = n
	entries[4].Value = users
	entries[6].Value = users
	entries[7].Value = n
	entries[8].Value = n
	return entries
}

// encodeEntries packs entries as triples; category 0 is overwritten with the
// handling time in microseconds.
func encodeEntries(entries []protocol.Entry, t0 time.Time) []byte {
	out := make([]byte, 0, 3*len(entries))
	for _, e := range entries {
		v := e.Value
		if e.Category == 0 {
			v = clamp(int(time.Since(t0) / time.Microsecond))
		}
		out = append(out, e.Category, byte(v>>8), byte(v))
	}
	return out
}

func clamp(n int) uint16 { return uint16(min(max(n, 0), 65535)) }

func ack(id uint8, sid uint32) []byte {
	b := make([]byte, protocol.AckSize)
	b[0] = id
	binary.BigEndian.PutUint32(b[1:], sid)
	return b
}

// Serve answers datagrams on ep until ctx is done or ep is closed.
func (s *Server) Serve(ctx context.Context, ep transport.Endpoint) error {
	stop := context.AfterFunc(ctx, func() { _ = ep.Close() })
	defer stop()

	buf := make([]byte, protocol.MaxBufferSize)
	for {
		n, err := ep.Recv(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "emulator receive failed")
		}
		for _, out := range s.Handle(buf[:n]) {
			if err := ep.Send(out); err != nil {
				return errors.Wrap(err, "emulator send failed")
			}
		}
	}
}

// ListenMem registers name on nw and serves every endpoint dialed to it.
func (s *Server) ListenMem(ctx context.Context, nw *mem.Network, name string) (*mem.Listener, error) {
	l, err := nw.Listen(ctx, name)
	if err != nil {
		return nil, err
	}
	go func() {
		for {
			ep, err := l.Accept(ctx)
			if err != nil {
				return
			}
			go func() {
				if err := s.Serve(ctx, ep); err != nil {
					s.log.Warn("emulator session ended", zap.Error(err))
				}
			}()
		}
	}()
	s.log.Info("emulator listening", zap.String("name", name))
	return l, nil
}

// ServeUDP answers datagrams on a bound UDP socket until ctx is done.
func (s *Server) ServeUDP(ctx context.Context, conn *net.UDPConn) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	buf := make([]byte, protocol.MaxBufferSize)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return errors.Wrap(err, "emulator receive failed")
		}
		for _, out := range s.Handle(buf[:n]) {
			if _, err := conn.WriteToUDP(out, addr); err != nil {
				return errors.Wrap(err, "emulator send failed")
			}
		}
	}
}
