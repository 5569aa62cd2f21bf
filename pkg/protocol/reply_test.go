package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func dataReply(status byte, body ...byte) []byte {
	b := EncodePoll(3, 0x11223344)
	b = append(b, status)
	return append(b, body...)
}

func TestClassifyByLength(t *testing.T) {
	require.Equal(t, KindDisconnected, Classify(0))
	for n := 1; n <= AckSize; n++ {
		require.Equal(t, KindAck, Classify(n), "n=%d", n)
	}
	for n := AckSize + 1; n <= HeaderSize; n++ {
		require.Equal(t, KindAnomalous, Classify(n), "n=%d", n)
	}
	require.Equal(t, KindData, Classify(HeaderSize+1))
	require.Equal(t, KindData, Classify(MaxBufferSize))
}

func TestDecodeAck(t *testing.T) {
	r := DecodeReply([]byte{7, 0x11, 0x22, 0x33, 0x44})
	require.Equal(t, KindAck, r.Kind)
	require.NotNil(t, r.Ack)
	require.Equal(t, Ack{SeqID: 7, SessionID: 0x11223344}, *r.Ack)
	require.Empty(t, r.Entries)
}

func TestDecodeShortAck(t *testing.T) {
	r := DecodeReply([]byte{7, 0x11})
	require.Equal(t, KindAck, r.Kind)
	require.Nil(t, r.Ack)
}

func TestDecodeDisconnected(t *testing.T) {
	require.Equal(t, KindDisconnected, DecodeReply(nil).Kind)
	require.Equal(t, KindDisconnected, DecodeReply([]byte{}).Kind)
}

func TestDecodeAnomalous(t *testing.T) {
	r := DecodeReply(make([]byte, 10))
	require.Equal(t, KindAnomalous, r.Kind)
	require.Equal(t, 10, r.Len)
	require.Empty(t, r.Entries)
}

func TestDecodeDataTwoEntries(t *testing.T) {
	b := dataReply(0, 1, 0x01, 0x02, 4, 0x00, 0x07)
	require.Len(t, b, 22)
	r := DecodeReply(b)
	require.Equal(t, KindData, r.Kind)
	require.Equal(t, uint8(0), r.Status)
	require.Equal(t, []Entry{{Category: 1, Value: 258}, {Category: 4, Value: 7}}, r.Entries)
	require.Equal(t, "RPS", r.Entries[0].Label())
	require.Equal(t, "Current users", r.Entries[1].Label())
	require.Equal(t, uint32(0x11223344), r.Header.SessionID)
	require.Equal(t, uint8(3), r.Header.SeqID)
	require.Zero(t, r.Trailing)
}

func TestDecodeDataIgnoresPartialTriple(t *testing.T) {
	r := DecodeReply(dataReply(0, 2, 0xFF, 0xFF, 9, 0x01))
	require.Equal(t, []Entry{{Category: 2, Value: 65535}}, r.Entries)
	require.Equal(t, 2, r.Trailing)
}

func TestDecodeDataStatusOnly(t *testing.T) {
	r := DecodeReply(dataReply(StatusIncorrectToken))
	require.Equal(t, KindData, r.Kind)
	require.Equal(t, StatusIncorrectToken, r.Status)
	require.Empty(t, r.Entries)
}

func TestCategoryLabels(t *testing.T) {
	require.Equal(t, 18, NumCategories)
	require.Equal(t, "Time elapsed", CategoryLabel(0))
	require.Equal(t, "Current env size", CategoryLabel(uint8(NumCategories-1)))
	require.Equal(t, UnknownLabel, CategoryLabel(uint8(NumCategories)))
	require.Equal(t, UnknownLabel, CategoryLabel(255))
	require.False(t, KnownCategory(uint8(NumCategories)))
}

func TestStatusText(t *testing.T) {
	require.Equal(t, "ok", StatusText(StatusOK))
	require.Equal(t, "incorrect token", StatusText(246))
	require.Equal(t, "code 7", StatusText(7))
}

func TestServerConnectFrame(t *testing.T) {
	rep := DecodeReply(EncodeConnect(0x0A0B0C0D))
	require.Equal(t, KindAnomalous, rep.Kind)
	require.True(t, rep.Connect)

	rep = DecodeReply([]byte{3, 0, 0, 0, 1, 0xFD})
	require.False(t, rep.Connect)
	require.True(t, IsConnect(EncodeConnect(7)))
	require.False(t, IsConnect(EncodePoll(2, 7)))
}
