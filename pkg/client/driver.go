package client

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"swstat/pkg/metrics"
	"swstat/pkg/protocol"
	"swstat/pkg/transport"
)

// Handler receives decoded datagrams from the Driver's receive loop.
// Calls are made sequentially from that loop.
type Handler interface {
	OnAck(rep protocol.Reply)
	OnData(rep protocol.Reply)
	OnAnomalous(rep protocol.Reply)
	OnDisconnect()
}

// Driver owns the endpoint: it serialises sends and runs the receive loop.
type Driver struct {
	ep      transport.Endpoint
	log     *zap.Logger
	metrics *metrics.Metrics

	mu sync.Mutex
}

// NewDriver wraps ep. log and m may be nil.
func NewDriver(ep transport.Endpoint, log *zap.Logger, m *metrics.Metrics) *Driver {
	if log == nil {
		log = zap.L()
	}
	return &Driver{ep: ep, log: log, metrics: m}
}

// Send writes one frame. Concurrent callers are serialised.
func (d *Driver) Send(frame []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ep.Send(frame); err != nil {
		return errors.Wrap(err, "send failed")
	}
	d.log.Debug("datagram out", zap.Int("len", len(frame)))
	return nil
}

// Run reads datagrams until the peer disconnects, ctx is done, or an I/O
// error occurs. Every datagram longer than an ack is acknowledged by echoing
// its first AckSize bytes before it is dispatched to h. Disconnect and
// cancellation return nil. The endpoint is closed when ctx is done.
func (d *Driver) Run(ctx context.Context, h Handler) error {
	stop := context.AfterFunc(ctx, func() { _ = d.ep.Close() })
	defer stop()

	buf := make([]byte, protocol.MaxBufferSize)
	for {
		n, err := d.ep.Recv(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "receive failed")
		}
		frame := buf[:n]
		d.log.Debug("datagram in", zap.Int("len", n))

		if n > protocol.AckSize {
			if err := d.Send(frame[:protocol.AckSize]); err != nil {
				return errors.Wrap(err, "ack failed")
			}
			d.metrics.AckSent()
		}

		rep := protocol.DecodeReply(frame)
		d.metrics.Received(rep.Kind)
		switch rep.Kind {
		case protocol.KindDisconnected:
			h.OnDisconnect()
			return nil
		case protocol.KindAck:
			h.OnAck(rep)
		case protocol.KindAnomalous:
			h.OnAnomalous(rep)
		case protocol.KindData:
			h.OnData(rep)
		}
	}
}
