package aissource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/looplab/fsm"

	"github.com/slim-bean/airdash/pkg/ais"
	"github.com/slim-bean/airdash/pkg/metrics"
	"github.com/slim-bean/airdash/pkg/model"
)

var (
	// ErrInvalidState is returned by Connect unless the client is disconnected or reconnecting.
	ErrInvalidState = errors.New("invalid connection state")
	// ErrDecode wraps lines the decoder could not make sense of.
	ErrDecode = errors.New("ais decode failed")
	// ErrClosed is reported when the remote end closes the stream.
	ErrClosed = errors.New("connection closed")
)

const (
	eventConnect    = "connect"
	eventConnected  = "connected"
	eventLost       = "lost"
	eventDisconnect = "disconnect"
)

type stopper interface {
	Stop() bool
}

// Client keeps one connection to an NMEA AIS stream open, reconnecting after a fixed
// delay when it drops. Decoded messages are delivered in stream order from a single
// goroutine per connection.
type Client struct {
	logger     log.Logger
	delay      time.Duration
	dial       Dialer
	newDecoder func() ais.Decoder
	onMessage  func(ais.Message)
	onError    func(error)
	afterFunc  func(time.Duration, func()) stopper

	mtx            sync.Mutex
	status         *fsm.FSM
	session        uint64
	cancel         context.CancelFunc
	conn           io.Closer
	reconnectTimer stopper
	wg             sync.WaitGroup
}

func NewClient(logger log.Logger, delay time.Duration, dial Dialer, onMessage func(ais.Message), onError func(error)) *Client {
	return &Client{
		logger:     logger,
		delay:      delay,
		dial:       dial,
		newDecoder: func() ais.Decoder { return ais.NewNMEADecoder() },
		onMessage:  onMessage,
		onError:    onError,
		afterFunc: func(d time.Duration, fn func()) stopper {
			return time.AfterFunc(d, fn)
		},
		status: fsm.NewFSM(
			string(model.StatusDisconnected),
			fsm.Events{
				{Name: eventConnect, Src: []string{string(model.StatusDisconnected), string(model.StatusReconnecting)}, Dst: string(model.StatusConnecting)},
				{Name: eventConnected, Src: []string{string(model.StatusConnecting)}, Dst: string(model.StatusConnected)},
				{Name: eventLost, Src: []string{string(model.StatusConnecting), string(model.StatusConnected)}, Dst: string(model.StatusReconnecting)},
				{Name: eventDisconnect, Src: []string{string(model.StatusConnecting), string(model.StatusConnected), string(model.StatusReconnecting)}, Dst: string(model.StatusDisconnected)},
			},
			fsm.Callbacks{
				"enter_state": func(_ context.Context, e *fsm.Event) {
					level.Debug(logger).Log("msg", "status changed", "from", e.Src, "to", e.Dst)
				},
			},
		),
	}
}

func (c *Client) Status() model.SourceStatus {
	return model.SourceStatus(c.status.Current())
}

// Connect starts a connection attempt and returns without waiting for the transport.
func (c *Client) Connect() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.connectLocked()
}

func (c *Client) connectLocked() error {
	if err := c.status.Event(context.Background(), eventConnect); err != nil {
		return fmt.Errorf("%w: cannot connect while %s", ErrInvalidState, c.status.Current())
	}
	c.stopTimerLocked()

	ctx, cancel := context.WithCancel(context.Background())
	c.session++
	c.cancel = cancel
	c.wg.Add(1)
	go c.run(ctx, c.session)
	return nil
}

// Disconnect closes the transport and cancels any pending reconnect. No callback
// runs after it returns, so it must not be called from a callback.
func (c *Client) Disconnect() {
	c.mtx.Lock()
	c.session++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.stopTimerLocked()
	if c.status.Current() != string(model.StatusDisconnected) {
		_ = c.status.Event(context.Background(), eventDisconnect)
	}
	c.mtx.Unlock()
	c.wg.Wait()
}

func (c *Client) run(ctx context.Context, session uint64) {
	defer c.wg.Done()

	conn, err := c.dial(ctx)
	if err != nil {
		c.lost(session, fmt.Errorf("dial: %w", err))
		return
	}

	c.mtx.Lock()
	if session != c.session {
		c.mtx.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	_ = c.status.Event(context.Background(), eventConnected)
	c.mtx.Unlock()
	level.Info(c.logger).Log("msg", "connected")

	c.lost(session, c.read(conn))
}

func (c *Client) read(r io.Reader) error {
	dec := c.newDecoder()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		msg, err := dec.Decode(sc.Text())
		if err != nil {
			c.onError(fmt.Errorf("%w: %v", ErrDecode, err))
			continue
		}
		if msg != nil {
			c.onMessage(*msg)
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return ErrClosed
}

// lost handles a transport failure of the given session.
func (c *Client) lost(session uint64, err error) {
	c.mtx.Lock()
	if session != c.session || c.status.Current() == string(model.StatusDisconnected) {
		c.mtx.Unlock()
		return
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	_ = c.status.Event(context.Background(), eventLost)
	c.scheduleReconnectLocked()
	c.mtx.Unlock()

	level.Warn(c.logger).Log("msg", "connection lost", "retry_in", c.delay, "err", err)
	c.onError(err)
}

// scheduleReconnectLocked arms the reconnect timer unless one is already pending.
func (c *Client) scheduleReconnectLocked() {
	if c.reconnectTimer != nil {
		return
	}
	var t stopper
	t = c.afterFunc(c.delay, func() {
		c.mtx.Lock()
		defer c.mtx.Unlock()
		c.reconnectLocked(t)
	})
	c.reconnectTimer = t
}

// reconnectLocked runs when timer t fires. A timer that was stopped or replaced is ignored.
func (c *Client) reconnectLocked(t stopper) {
	if c.reconnectTimer != t {
		return
	}
	c.reconnectTimer = nil
	metrics.SourceReconnects.Inc()
	if err := c.connectLocked(); err != nil {
		level.Debug(c.logger).Log("msg", "reconnect skipped", "err", err)
	}
}

func (c *Client) stopTimerLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}
