package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fixedSource struct {
	draws []uint16
	i     int
}

func (f *fixedSource) Uint16() uint16 {
	v := f.draws[f.i%len(f.draws)]
	f.i++
	return v
}

func TestNextNeverYieldsReserved(t *testing.T) {
	for n := 0; n < 256; n++ {
		got := Next(uint8(n))
		require.NotEqual(t, SeqConnect, got, "Next(%d)", n)
		require.NotEqual(t, SeqErrorAck, got, "Next(%d)", n)
	}
}

func TestNextWrapsAroundReserved(t *testing.T) {
	require.Equal(t, uint8(2), Next(255))
	require.Equal(t, uint8(2), Next(0))
	require.Equal(t, uint8(2), Next(1))
	require.Equal(t, uint8(3), Next(2))
	require.Equal(t, uint8(255), Next(254))
}

func TestAdvanceVisitsEveryUsableID(t *testing.T) {
	s := New(&fixedSource{draws: []uint16{1, 2}})
	seen := make(map[uint8]bool)
	prev := s.Seq()
	for i := 0; i < 254; i++ {
		id := s.Advance()
		if prev != 255 && prev != SeqConnect {
			require.Equal(t, prev+1, id)
		}
		seen[id] = true
		prev = id
	}
	require.Len(t, seen, 254)
	require.False(t, seen[SeqConnect])
	require.False(t, seen[SeqErrorAck])

	// the next cycle starts again at 2
	require.Equal(t, uint8(2), s.Advance())
}

func TestInitBuildsIDFromTwoDraws(t *testing.T) {
	s := New(&fixedSource{draws: []uint16{0xABCD, 0x1234}})
	require.Equal(t, uint32(0xABCD1234), s.ID())
	require.Equal(t, SeqConnect, s.Seq())

	s.Advance()
	s.Init(&fixedSource{draws: []uint16{0x0001, 0xFFFF}})
	require.Equal(t, uint32(0x0001FFFF), s.ID())
	require.Equal(t, SeqConnect, s.Seq())
}

func TestNewWithDefaultSource(t *testing.T) {
	s := New(nil)
	require.Equal(t, SeqConnect, s.Seq())
	require.Equal(t, uint8(2), s.Advance())
}
