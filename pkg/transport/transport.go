package transport

import (
	"context"
	"net"
	"strings"
)

// Kind identifies the endpoint implementation.
type Kind int

const (
	KindUnknown Kind = iota
	KindUDP
	KindMem
)

func (k Kind) String() string {
	switch k {
	case KindUDP:
		return "udp"
	case KindMem:
		return "mem"
	default:
		return "unknown"
	}
}

// ParseKind maps a configuration string to a Kind.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "udp", "":
		return KindUDP
	case "mem", "inproc", "loopback":
		return KindMem
	default:
		return KindUnknown
	}
}

// Endpoint is one datagram channel to a fixed remote.
// One reader and any number of concurrent writers are allowed.
type Endpoint interface {
	// Send writes b as a single datagram.
	Send(b []byte) error
	// Recv blocks for the next datagram and copies it into b. Datagrams longer
	// than b are truncated. After Close it returns an error matching net.ErrClosed.
	Recv(b []byte) (int, error)
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Close() error
}

// Dialer opens endpoints of one kind.
type Dialer interface {
	Kind() Kind
	// Dial opens an endpoint to address (host:port for udp, a name for mem).
	Dial(ctx context.Context, address string) (Endpoint, error)
}
