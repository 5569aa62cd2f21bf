package udp

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"swstat/pkg/transport"
)

// Dialer opens UDP endpoints bound to one server address.
type Dialer struct{}

func New() *Dialer { return &Dialer{} }

func (d *Dialer) Kind() transport.Kind { return transport.KindUDP }

func (d *Dialer) Dial(ctx context.Context, address string) (transport.Endpoint, error) {
	return DialAddr(ctx, address)
}

// Dial opens an endpoint for host:port.
func Dial(ctx context.Context, host string, port int) (*Endpoint, error) {
	return DialAddr(ctx, net.JoinHostPort(host, strconv.Itoa(port)))
}

// DialAddr resolves address and opens an unconnected UDP socket that sends to
// it. Resolution and socket errors are returned wrapped; there is no retry.
//
// The socket is not connected so that ICMP port-unreachable from a server that
// is not up yet never surfaces as a receive error.
func DialAddr(ctx context.Context, address string) (*Endpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raddr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s failed", address)
	}
	c, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, errors.Wrap(err, "udp socket failed")
	}
	zap.L().Debug("udp endpoint open",
		zap.String("local", c.LocalAddr().String()),
		zap.String("remote", raddr.String()))
	return &Endpoint{conn: c, raddr: raddr}, nil
}

// Endpoint is a UDP socket that exchanges datagrams with one server.
// Datagrams from any other source are dropped.
type Endpoint struct {
	conn  *net.UDPConn
	raddr *net.UDPAddr

	closeOnce sync.Once
	closeErr  error
}

func (e *Endpoint) LocalAddr() net.Addr  { return e.conn.LocalAddr() }
func (e *Endpoint) RemoteAddr() net.Addr { return e.raddr }

func (e *Endpoint) Send(b []byte) error {
	if _, err := e.conn.WriteToUDP(b, e.raddr); err != nil {
		return errors.Wrap(err, "udp send failed")
	}
	return nil
}

func (e *Endpoint) Recv(b []byte) (int, error) {
	for {
		n, from, err := e.conn.ReadFromUDP(b)
		if err != nil {
			return 0, errors.Wrap(err, "udp recv failed")
		}
		if fromServer(from, e.raddr) {
			return n, nil
		}
		zap.L().Debug("udp datagram from unknown source dropped",
			zap.Stringer("from", from), zap.Int("len", n))
	}
}

func (e *Endpoint) Close() error {
	e.closeOnce.Do(func() { e.closeErr = e.conn.Close() })
	return e.closeErr
}

func fromServer(from, server *net.UDPAddr) bool {
	if from == nil || from.Port != server.Port {
		return false
	}
	if server.IP == nil || server.IP.IsUnspecified() {
		return true
	}
	return from.IP.Equal(server.IP)
}
