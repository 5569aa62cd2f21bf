package client

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"swstat/pkg/metrics"
	"swstat/pkg/protocol"
	"swstat/pkg/record"
	"swstat/pkg/render"
	"swstat/pkg/session"
	"swstat/pkg/transport"
)

// Defaults.
const (
	DefaultInterval       = 3 * time.Second
	DefaultOneShotTimeout = 10 * time.Second
)

// Client runs one session over an endpoint.
type Client struct {
	ep       transport.Endpoint
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	oneShot  bool
	command  string

	sess     *session.Session
	renderer *render.Renderer
	recorder *record.Recorder
	metrics  *metrics.Metrics
	now      func() time.Time

	driver *Driver

	connected atomic.Bool
	errorAcks atomic.Int64
	replies   atomic.Int64

	done     chan struct{}
	doneOnce sync.Once
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithEndpoint sets the endpoint. The client closes it when Run returns.
func WithEndpoint(ep transport.Endpoint) Cfg {
	return func(c *Client) error {
		c.ep = ep
		return nil
	}
}

// WithLogger sets the logger (default zap.L()).
func WithLogger(l *zap.Logger) Cfg {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithInterval sets the delay before each request.
func WithInterval(d time.Duration) Cfg {
	return func(c *Client) error {
		if d <= 0 {
			return errors.Errorf("interval must be positive, got %s", d)
		}
		c.interval = d
		return nil
	}
}

// WithOneShotTimeout bounds the wait for the one-shot reply.
func WithOneShotTimeout(d time.Duration) Cfg {
	return func(c *Client) error {
		if d <= 0 {
			return errors.Errorf("one-shot timeout must be positive, got %s", d)
		}
		c.timeout = d
		return nil
	}
}

// WithCommand switches the client to one-shot mode sending text.
func WithCommand(text string) Cfg {
	return func(c *Client) error {
		c.oneShot = true
		c.command = text
		return nil
	}
}

// WithSession sets the session state (default: a fresh random session).
func WithSession(s *session.Session) Cfg {
	return func(c *Client) error {
		c.sess = s
		return nil
	}
}

// WithRenderer sets the renderer. Its mode must match the client's.
func WithRenderer(r *render.Renderer) Cfg {
	return func(c *Client) error {
		c.renderer = r
		return nil
	}
}

// WithRecorder records every data reply.
func WithRecorder(r *record.Recorder) Cfg {
	return func(c *Client) error {
		c.recorder = r
		return nil
	}
}

// WithMetrics exports counters and statistic values.
func WithMetrics(m *metrics.Metrics) Cfg {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// NewClient creates a Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	c := &Client{
		interval: DefaultInterval,
		timeout:  DefaultOneShotTimeout,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, cfg := range cfgs {
		if err := cfg(c); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	if c.ep == nil {
		return nil, ErrNoEndpoint
	}
	if c.log == nil {
		c.log = zap.L()
	}
	if c.sess == nil {
		c.sess = session.New(nil)
	}
	if c.renderer == nil {
		c.renderer = render.New(render.NewTerminal(os.Stdout), c.oneShot)
	}
	if c.renderer.OneShot() != c.oneShot {
		return nil, errors.New("renderer mode does not match client mode")
	}
	c.log = c.log.With(zap.String("session_id", fmt.Sprintf("%08x", c.sess.ID())))
	c.driver = NewDriver(c.ep, c.log, c.metrics)
	return c, nil
}

// Session returns the session state.
func (c *Client) Session() *session.Session { return c.sess }

// OneShot reports whether the client sends a single command.
func (c *Client) OneShot() bool { return c.oneShot }

// Connected reports whether the server acknowledged the connect frame.
func (c *Client) Connected() bool { return c.connected.Load() }

// ErrorAcks counts error acknowledgments received.
func (c *Client) ErrorAcks() int64 { return c.errorAcks.Load() }

// Replies counts data replies received.
func (c *Client) Replies() int64 { return c.replies.Load() }

// Run performs the handshake and runs the session until ctx is done, the
// server disconnects, the one-shot result is shown, or an I/O error occurs.
func (c *Client) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.ep.Close()

	recvClosed := make(chan struct{})
	var recvErr error
	go func() {
		defer close(recvClosed)
		recvErr = c.driver.Run(ctx, handler{c})
	}()

	err := c.run(ctx, recvClosed)
	cancel()
	<-recvClosed
	if err != nil {
		return err
	}
	return recvErr
}

func (c *Client) run(ctx context.Context, recvClosed <-chan struct{}) error {
	if err := c.renderer.Draw(render.Waiting); err != nil {
		c.log.Warn("draw failed", zap.Error(err))
	}
	if err := c.sendConnect(); err != nil {
		return err
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-recvClosed:
			return nil
		case <-ticker.C:
			if err := c.sendRequest(); err != nil {
				return err
			}
			if c.oneShot {
				return c.awaitResult(ctx, recvClosed)
			}
		}
	}
}

func (c *Client) awaitResult(ctx context.Context, recvClosed <-chan struct{}) error {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case <-c.done:
		return nil
	case <-recvClosed:
		return nil
	case <-ctx.Done():
		return nil
	case <-timer.C:
		return errors.Wrapf(ErrNoResponse, "after %s", c.timeout)
	}
}

func (c *Client) sendConnect() error {
	if err := c.driver.Send(protocol.EncodeConnect(c.sess.ID())); err != nil {
		return errors.Wrap(err, "send connect failed")
	}
	c.metrics.FrameSent("connect")
	c.log.Info("connect sent")
	return nil
}

func (c *Client) sendRequest() error {
	seq := c.sess.Advance()
	op := protocol.OpStats
	var frame []byte
	if c.oneShot {
		op = protocol.OpCommand
		frame = protocol.EncodeCommand(seq, c.sess.ID(), c.command)
	} else {
		frame = protocol.EncodePoll(seq, c.sess.ID())
	}
	if err := c.driver.Send(frame); err != nil {
		return errors.Wrapf(err, "send %s failed", op)
	}
	c.metrics.FrameSent(op.String())
	c.log.Debug("request sent", zap.Uint8("seq", seq), zap.Stringer("opcode", op))
	return nil
}

func (c *Client) finish() { c.doneOnce.Do(func() { close(c.done) }) }

// handler adapts Client to the Driver's callbacks.
type handler struct{ c *Client }

func (h handler) OnAck(rep protocol.Reply) {
	c := h.c
	if rep.Ack == nil {
		c.log.Debug("short ack", zap.Int("len", rep.Len))
		return
	}
	if rep.Ack.SessionID != c.sess.ID() {
		c.log.Debug("ack for another session", zap.String("ack_session_id", fmt.Sprintf("%08x", rep.Ack.SessionID)))
	}
	switch rep.Ack.SeqID {
	case session.SeqConnect:
		if !c.connected.Swap(true) {
			c.log.Info("session established")
		}
	case session.SeqErrorAck:
		c.errorAcks.Add(1)
		c.metrics.ErrorAck()
		c.log.Warn("server rejected frame: session unknown")
	default:
		c.log.Debug("ack", zap.Uint8("seq", rep.Ack.SeqID))
	}
}

func (h handler) OnData(rep protocol.Reply) {
	c := h.c
	c.replies.Add(1)
	c.log.Debug("data reply",
		zap.Uint8("seq", rep.Header.SeqID),
		zap.Uint8("status", rep.Status),
		zap.Int("entries", len(rep.Entries)))
	if rep.Status != protocol.StatusOK {
		c.log.Info("server status", zap.Uint8("status", rep.Status), zap.String("text", protocol.StatusText(rep.Status)))
	}
	if rep.Trailing > 0 {
		c.log.Debug("incomplete trailing entry", zap.Int("bytes", rep.Trailing))
	}

	c.metrics.Observe(rep)
	if c.recorder != nil {
		if err := c.recorder.Record(rep, c.now()); err != nil {
			c.log.Warn("record failed", zap.Error(err))
		}
	}
	sc, err := c.renderer.Show(rep)
	if err != nil {
		c.log.Warn("draw failed", zap.Error(err))
	}
	if sc.Done {
		c.finish()
	}
}

func (h handler) OnAnomalous(rep protocol.Reply) {
	if rep.Connect {
		h.c.log.Debug("server opened its side of the session")
		return
	}
	h.c.log.Warn("unexpected datagram length", zap.Int("len", rep.Len))
}

func (h handler) OnDisconnect() {
	c := h.c
	c.log.Info("disconnected")
	if err := c.renderer.Draw(render.Disconnected); err != nil {
		c.log.Warn("draw failed", zap.Error(err))
	}
}
