package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"swstat/pkg/protocol"
)

func dataReply(status uint8, entries ...protocol.Entry) protocol.Reply {
	return protocol.Reply{Kind: protocol.KindData, Status: status, Entries: entries}
}

func TestRenderStats(t *testing.T) {
	r := New(nil, false)
	sc := r.Render(dataReply(0,
		protocol.Entry{Category: 0, Value: 258},
		protocol.Entry{Category: 4, Value: 7},
	))
	require.True(t, sc.Clear)
	require.False(t, sc.Done)
	require.Equal(t, Title, sc.Title)
	require.Equal(t, ".", sc.Busy)
	require.Equal(t, []string{
		"Time elapsed:         258",
		"Current users:          7",
	}, sc.Lines)
}

func TestBusyCycle(t *testing.T) {
	r := New(nil, false)
	var got []string
	for i := 0; i < 8; i++ {
		got = append(got, r.Render(dataReply(0)).Busy)
	}
	require.Equal(t, []string{".", "..", "...", "", ".", "..", "...", ""}, got)
}

func TestUnknownCategory(t *testing.T) {
	r := New(nil, false)
	sc := r.Render(dataReply(0, protocol.Entry{Category: 18, Value: 2*256 + 3}))
	require.Equal(t, []string{"Unknown parameter:   515"}, sc.Lines)
}

func TestStatusScreen(t *testing.T) {
	r := New(nil, false)
	sc := r.Render(dataReply(246))
	require.False(t, sc.Clear)
	require.False(t, sc.Done)
	require.Equal(t, []string{"Response code (246)"}, sc.Lines)

	// status screens do not advance the busy indicator
	require.Equal(t, ".", r.Render(dataReply(0)).Busy)
}

func TestOneShot(t *testing.T) {
	r := New(nil, true)
	require.True(t, r.OneShot())
	sc := r.Render(dataReply(7, protocol.Entry{Category: 1, Value: 1}))
	require.Equal(t, []string{"Response code (7)"}, sc.Lines)
	require.True(t, sc.Done)

	sc = r.Render(dataReply(0))
	require.Equal(t, []string{"Response code (0)"}, sc.Lines)
	require.True(t, sc.Done)
}

func TestNonDataIsEmpty(t *testing.T) {
	r := New(nil, false)
	require.True(t, r.Render(protocol.Reply{Kind: protocol.KindAck}).Empty())
}

func TestShowDrawsToConsole(t *testing.T) {
	var buf Buffer
	r := New(&buf, false)
	_, err := r.Show(dataReply(0, protocol.Entry{Category: 1, Value: 42}))
	require.NoError(t, err)
	require.Equal(t, 1, buf.Clears())
	require.Equal(t, []string{Title, ".", "RPS:                   42"}, buf.Lines())

	_, err = r.Show(dataReply(3))
	require.NoError(t, err)
	require.Equal(t, 1, buf.Clears())
	require.Equal(t, "Response code (3)", buf.Lines()[3])
}

func TestTerminal(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminal(&out)
	require.NoError(t, Draw(term, Screen{Clear: true, Title: Title, Busy: "..", Lines: []string{"a"}}))
	require.Equal(t, clearSeq+Title+"\n..\na\n", out.String())
}
