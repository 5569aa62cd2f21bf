// Package netstack builds transport dialers from configuration.
package netstack

import (
	"context"

	"go.uber.org/zap"

	"swstat/pkg/transport"
	"swstat/pkg/transport/mem"
	"swstat/pkg/transport/udp"
)

// NewByKind constructs a Dialer by string kind.
func NewByKind(kind string) (transport.Dialer, error) {
	switch transport.ParseKind(kind) {
	case transport.KindUDP:
		return udp.New(), nil
	case transport.KindMem:
		return mem.New(), nil
	default:
		return nil, ErrUnknownKind(kind)
	}
}

// ErrUnknownKind is returned for a transport kind with no dialer.
type ErrUnknownKind string

func (e ErrUnknownKind) Error() string { return "unknown transport kind: " + string(e) }

// Open dials address with the dialer for kind.
func Open(ctx context.Context, kind, address string) (transport.Endpoint, error) {
	d, err := NewByKind(kind)
	if err != nil {
		return nil, err
	}
	ep, err := d.Dial(ctx, address)
	if err != nil {
		return nil, err
	}
	zap.L().Info("endpoint open",
		zap.String("kind", d.Kind().String()),
		zap.String("remote", ep.RemoteAddr().String()))
	return ep, nil
}
