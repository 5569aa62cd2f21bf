package mem

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPipeExchange(t *testing.T) {
	a, b := Pipe()
	defer a.Close()
	defer b.Close()

	msg := []byte{1, 2, 3, 4, 5, 6}
	require.NoError(t, a.Send(msg))
	msg[0] = 99 // sender buffer reuse must not leak into the queued datagram

	buf := make([]byte, 16)
	n, err := b.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, buf[:n])

	require.NoError(t, b.Send(nil))
	n, err = a.Recv(buf)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRecvTruncates(t *testing.T) {
	a, b := Pipe()
	require.NoError(t, a.Send([]byte("abcdef")))
	buf := make([]byte, 3)
	n, err := b.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, "abc", string(buf[:n]))
}

func TestCloseUnblocksRecv(t *testing.T) {
	a, b := Pipe()
	defer b.Close()
	done := make(chan error, 1)
	go func() {
		_, err := a.Recv(make([]byte, 8))
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, a.Close())
	select {
	case err := <-done:
		require.ErrorIs(t, err, net.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("recv still blocked")
	}
	require.ErrorIs(t, a.Send([]byte{1}), net.ErrClosed)
	// peer side drops silently
	require.NoError(t, b.Send([]byte{1}))
}

func TestConcurrentSenders(t *testing.T) {
	a, b := Pipe()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = a.Send([]byte{byte(i), byte(j)})
			}
		}(i)
	}
	got := 0
	buf := make([]byte, 4)
	for got < 40 {
		n, err := b.Recv(buf)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		got++
	}
	wg.Wait()
}

func TestNetworkListenDial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nw := NewNetwork()

	l, err := nw.Listen(ctx, "srv")
	require.NoError(t, err)
	_, err = nw.Listen(ctx, "srv")
	require.ErrorIs(t, err, ErrListenerExists)

	d := &Dialer{Network: nw}
	require.Equal(t, "mem", d.Kind().String())
	cli, err := d.Dial(ctx, "srv")
	require.NoError(t, err)
	srv, err := l.Accept(ctx)
	require.NoError(t, err)
	require.Equal(t, "srv", cli.RemoteAddr().String())

	require.NoError(t, cli.Send([]byte("hi")))
	buf := make([]byte, 8)
	n, err := srv.Recv(buf)
	require.NoError(t, err)
	require.Equal(t, "hi", string(buf[:n]))

	require.NoError(t, l.Close())
	_, err = nw.Dial(ctx, "srv")
	require.ErrorIs(t, err, ErrNoListener)
}
