package emulator

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"swstat/pkg/client"
	"swstat/pkg/protocol"
	"swstat/pkg/render"
	"swstat/pkg/session"
	"swstat/pkg/transport/mem"
	"swstat/pkg/transport/udp"
)

const sid = 0x0badf00d

func connect(t *testing.T, s *Server) {
	t.Helper()
	out := s.Handle(protocol.EncodeConnect(sid))
	require.Len(t, out, 2)
	require.Equal(t, []byte{0, 0x0b, 0xad, 0xf0, 0x0d}, out[0])
	require.True(t, protocol.IsConnect(out[1]))
}

func TestHandleUnknownSession(t *testing.T) {
	s := New()
	out := s.Handle(protocol.EncodePoll(2, sid))
	require.Equal(t, [][]byte{{session.SeqErrorAck, 0x0b, 0xad, 0xf0, 0x0d}}, out)
	require.Nil(t, s.Handle([]byte{1, 2, 3}))
}

func TestHandleStats(t *testing.T) {
	s := New(WithStats(func() []protocol.Entry {
		return []protocol.Entry{{Category: 4, Value: 513}}
	}))
	connect(t, s)
	require.Equal(t, 1, s.Sessions())

	out := s.Handle(protocol.EncodePoll(2, sid))
	require.Len(t, out, 2)
	require.Equal(t, []byte{2, 0x0b, 0xad, 0xf0, 0x0d}, out[0])

	rep := protocol.DecodeReply(out[1])
	require.Equal(t, protocol.KindData, rep.Kind)
	require.Equal(t, uint8(2), rep.Header.SeqID)
	require.Equal(t, uint32(sid), rep.Header.SessionID)
	require.Equal(t, protocol.StatusOK, rep.Status)
	require.Equal(t, []protocol.Entry{{Category: 4, Value: 513}}, rep.Entries)

	// acks from the client produce nothing
	require.Nil(t, s.Handle(out[1][:protocol.AckSize]))

	// the server's own sequence advances per reply
	out = s.Handle(protocol.EncodePoll(3, sid))
	require.Equal(t, uint8(3), protocol.DecodeReply(out[1]).Header.SeqID)
}

func TestHandleWrongToken(t *testing.T) {
	s := New(WithToken([4]byte{1, 2, 3, 4}))
	connect(t, s)
	out := s.Handle(protocol.EncodePoll(2, sid))
	rep := protocol.DecodeReply(out[1])
	require.Equal(t, protocol.StatusIncorrectToken, rep.Status)
	require.Empty(t, rep.Entries)
}

func TestBuiltinStats(t *testing.T) {
	s := New(WithUsers("alice", "bob"))
	connect(t, s)
	rep := protocol.DecodeReply(s.Handle(protocol.EncodePoll(2, sid))[1])
	require.Len(t, rep.Entries, protocol.NumCategories)
	require.Equal(t, uint16(2), rep.Entries[4].Value)
	require.Equal(t, uint16(1), rep.Entries[2].Value)
}

func TestFunctions(t *testing.T) {
	s := New(WithUsers("alice", "bob"))
	connect(t, s)
	cases := []struct {
		cmd    string
		status uint8
	}{
		{"", protocol.StatusIncorrectLength},
		{"1", protocol.StatusIncorrectLength},
		{"1carol", protocol.StatusUserNotFound},
		{"1alice", protocol.StatusOK},
		{"1alice", protocol.StatusUserNotFound},
		{"2", protocol.StatusOK},
		{"3", protocol.StatusOK},
		{"4x", protocol.StatusIncorrectArg},
		{"47", protocol.StatusUserNotFound},
		{"9", protocol.StatusFnCodeNotFound},
	}
	seq := uint8(session.SeqConnect)
	for _, tc := range cases {
		seq = session.Next(seq)
		out := s.Handle(protocol.EncodeCommand(seq, sid, tc.cmd))
		require.Len(t, out, 2, tc.cmd)
		require.Equal(t, tc.status, protocol.DecodeReply(out[1]).Status, tc.cmd)
	}
	require.True(t, s.Stopping())

	out := s.Handle(protocol.EncodeCommand(session.Next(seq), sid, "40"))
	reply := out[1]
	require.Equal(t, protocol.StatusOK, reply[protocol.HeaderSize])
	require.Equal(t, "bob", string(reply[protocol.HeaderSize+1:]))
}

func TestClientPollingOverMem(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nw := mem.NewNetwork()
	_, err := New(WithUsers("alice")).ListenMem(ctx, nw, "winesaps")
	require.NoError(t, err)

	ep, err := nw.Dial(ctx, "winesaps")
	require.NoError(t, err)
	var console render.Buffer
	c, err := client.NewClient(
		client.WithEndpoint(ep),
		client.WithInterval(10*time.Millisecond),
		client.WithRenderer(render.New(&console, false)),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Replies() >= 2 }, 3*time.Second, 5*time.Millisecond)
	require.True(t, c.Connected())
	require.Zero(t, c.ErrorAcks())
	lines := console.Lines()
	require.GreaterOrEqual(t, len(lines), 2)
	require.Equal(t, render.Title, lines[0])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestClientOneShotOverUDP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	go func() { _ = New().ServeUDP(ctx, conn) }()

	ep, err := udp.DialAddr(ctx, conn.LocalAddr().String())
	require.NoError(t, err)
	var console render.Buffer
	c, err := client.NewClient(
		client.WithEndpoint(ep),
		client.WithInterval(10*time.Millisecond),
		client.WithOneShotTimeout(2*time.Second),
		client.WithCommand("3"),
		client.WithRenderer(render.New(&console, true)),
	)
	require.NoError(t, err)
	require.NoError(t, c.Run(ctx))
	require.Equal(t, []string{"Waiting for server...", "Response code (0)"}, console.Lines())
}

func TestClientKeepsPollingUntilServerStarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	spare, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	addr := spare.LocalAddr().(*net.UDPAddr)
	require.NoError(t, spare.Close())

	ep, err := udp.DialAddr(ctx, addr.String())
	require.NoError(t, err)
	var console render.Buffer
	c, err := client.NewClient(
		client.WithEndpoint(ep),
		client.WithInterval(20*time.Millisecond),
		client.WithRenderer(render.New(&console, false)),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Several polls go out while nothing listens.
	time.Sleep(150 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("client stopped while the server was down: %v", err)
	default:
	}

	// The connect frame was lost, so the server answers the polls with
	// error-acks for an unknown session.
	conn, err := net.ListenUDP("udp", addr)
	require.NoError(t, err)
	go func() { _ = New().ServeUDP(ctx, conn) }()
	require.Eventually(t, func() bool { return c.ErrorAcks() > 0 }, 3*time.Second, 10*time.Millisecond)
	require.False(t, c.Connected())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("client did not stop")
	}
	require.Equal(t, []string{"Waiting for server..."}, console.Lines())
}
