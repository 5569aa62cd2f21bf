package client

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"swstat/pkg/protocol"
	"swstat/pkg/transport/mem"
)

// fakeServer is the far end of a mem pipe. Every datagram it receives is
// queued on in.
type fakeServer struct {
	t  *testing.T
	ep *mem.Endpoint
	in chan []byte
}

func newFakeServer(t *testing.T) (*fakeServer, *mem.Endpoint) {
	t.Helper()
	cli, srv := mem.Pipe()
	s := &fakeServer{t: t, ep: srv, in: make(chan []byte, 256)}
	go func() {
		buf := make([]byte, protocol.MaxBufferSize)
		for {
			n, err := srv.Recv(buf)
			if err != nil {
				close(s.in)
				return
			}
			s.in <- append([]byte(nil), buf[:n]...)
		}
	}()
	t.Cleanup(func() { _ = srv.Close() })
	return s, cli
}

// next returns the next datagram from the client.
func (s *fakeServer) next() []byte {
	s.t.Helper()
	select {
	case b, ok := <-s.in:
		require.True(s.t, ok, "server endpoint closed")
		return b
	case <-time.After(2 * time.Second):
		s.t.Fatal("no datagram from client")
		return nil
	}
}

// nextRequest skips acks and returns the next request frame.
func (s *fakeServer) nextRequest() []byte {
	s.t.Helper()
	for {
		b := s.next()
		if len(b) >= protocol.HeaderSize {
			return b
		}
	}
}

// nextAck skips request frames and returns the next ack from the client.
func (s *fakeServer) nextAck() []byte {
	s.t.Helper()
	for {
		b := s.next()
		if len(b) == protocol.AckSize {
			return b
		}
	}
}

// drain returns every datagram that arrives before the line goes quiet.
func (s *fakeServer) drain() [][]byte {
	var out [][]byte
	for {
		select {
		case b, ok := <-s.in:
			if !ok {
				return out
			}
			out = append(out, b)
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func (s *fakeServer) send(b []byte) {
	s.t.Helper()
	require.NoError(s.t, s.ep.Send(b))
}

func (s *fakeServer) ack(seq uint8, sid uint32) {
	b := make([]byte, protocol.AckSize)
	b[0] = seq
	binary.BigEndian.PutUint32(b[1:], sid)
	s.send(b)
}

// reply answers a request with its own header, a status and entries.
func (s *fakeServer) reply(req []byte, status uint8, entries ...protocol.Entry) []byte {
	b := append([]byte(nil), req[:protocol.HeaderSize]...)
	b = append(b, status)
	for _, e := range entries {
		b = append(b, e.Category, byte(e.Value>>8), byte(e.Value))
	}
	s.send(b)
	return b
}
