// Package mem provides in-process datagram endpoints. A Pipe is a connected
// pair; a Network lets a server Listen under a name and clients Dial it.
package mem

import (
	"context"
	"net"
	"sync"

	"github.com/pkg/errors"

	"swstat/pkg/transport"
)

// queueDepth bounds undelivered datagrams per direction. A full queue blocks
// the sender until the peer reads or either side closes.
const queueDepth = 64

var (
	ErrListenerExists = errors.New("mem: listener already exists")
	ErrNoListener     = errors.New("mem: no such listener")
	ErrListenerClosed = errors.New("mem: listener closed")
)

// Addr is a named in-process address.
type Addr string

func (a Addr) Network() string { return "mem" }
func (a Addr) String() string  { return string(a) }

// Endpoint is one end of an in-process datagram pair.
type Endpoint struct {
	local, remote Addr
	in            chan []byte
	out           chan []byte
	closed        chan struct{}
	peerClosed    chan struct{}
	closeOnce     sync.Once
}

// Pipe returns two connected endpoints.
func Pipe() (*Endpoint, *Endpoint) { return pipe("mem-a", "mem-b") }

func pipe(a, b Addr) (*Endpoint, *Endpoint) {
	ab := make(chan []byte, queueDepth)
	ba := make(chan []byte, queueDepth)
	ca := make(chan struct{})
	cb := make(chan struct{})
	ea := &Endpoint{local: a, remote: b, in: ba, out: ab, closed: ca, peerClosed: cb}
	eb := &Endpoint{local: b, remote: a, in: ab, out: ba, closed: cb, peerClosed: ca}
	return ea, eb
}

func (e *Endpoint) LocalAddr() net.Addr  { return e.local }
func (e *Endpoint) RemoteAddr() net.Addr { return e.remote }

// Send copies b and queues it for the peer. Datagrams sent after the peer
// has closed are dropped silently, as on a real datagram socket.
func (e *Endpoint) Send(b []byte) error {
	select {
	case <-e.closed:
		return errors.Wrap(net.ErrClosed, "mem send failed")
	default:
	}
	pkt := make([]byte, len(b))
	copy(pkt, b)
	select {
	case e.out <- pkt:
		return nil
	case <-e.peerClosed:
		return nil
	case <-e.closed:
		return errors.Wrap(net.ErrClosed, "mem send failed")
	}
}

func (e *Endpoint) Recv(b []byte) (int, error) {
	select {
	case <-e.closed:
		return 0, errors.Wrap(net.ErrClosed, "mem recv failed")
	default:
	}
	select {
	case pkt := <-e.in:
		return copy(b, pkt), nil
	case <-e.closed:
		return 0, errors.Wrap(net.ErrClosed, "mem recv failed")
	}
}

func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() { close(e.closed) })
	return nil
}

// Network is a namespace of in-process listeners.
type Network struct {
	mu        sync.Mutex
	listeners map[string]*Listener
}

func NewNetwork() *Network { return &Network{listeners: make(map[string]*Listener)} }

// Default is the process-wide network used by the mem dialer kind.
var Default = NewNetwork()

// Listen registers name. The listener is removed when ctx is done or it is closed.
func (n *Network) Listen(ctx context.Context, name string) (*Listener, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.listeners[name]; ok {
		return nil, errors.Wrap(ErrListenerExists, name)
	}
	l := &Listener{name: name, net: n, newCh: make(chan *Endpoint, 8), closeCh: make(chan struct{})}
	n.listeners[name] = l
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-l.closeCh:
		}
	}()
	return l, nil
}

// Dial connects to a listener by name.
func (n *Network) Dial(ctx context.Context, name string) (*Endpoint, error) {
	n.mu.Lock()
	l := n.listeners[name]
	n.mu.Unlock()
	if l == nil {
		return nil, errors.Wrap(ErrNoListener, name)
	}
	cli, srv := pipe(Addr(name+"-client"), Addr(name))
	select {
	case l.newCh <- srv:
		return cli, nil
	case <-l.closeCh:
		return nil, errors.Wrap(ErrListenerClosed, name)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Listener accepts in-process endpoints.
type Listener struct {
	name      string
	net       *Network
	newCh     chan *Endpoint
	closeCh   chan struct{}
	closeOnce sync.Once
}

func (l *Listener) Addr() net.Addr { return Addr(l.name) }

func (l *Listener) Accept(ctx context.Context) (*Endpoint, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closeCh:
		return nil, ErrListenerClosed
	case ep := <-l.newCh:
		return ep, nil
	}
}

func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.net.mu.Lock()
		if l.net.listeners[l.name] == l {
			delete(l.net.listeners, l.name)
		}
		l.net.mu.Unlock()
	})
	return nil
}

// Dialer opens endpoints on a Network.
type Dialer struct{ Network *Network }

// New returns a dialer on the Default network.
func New() *Dialer { return &Dialer{Network: Default} }

func (d *Dialer) Kind() transport.Kind { return transport.KindMem }

func (d *Dialer) Dial(ctx context.Context, address string) (transport.Endpoint, error) {
	ep, err := d.Network.Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	return ep, nil
}
