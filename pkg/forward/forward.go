// Package forward ships entity updates to Loki as log lines.
package forward

import (
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/grafana/loki/pkg/promtail/client"
	"github.com/grafana/loki/pkg/util/flagext"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/common/model"

	"github.com/slim-bean/airdash/pkg/metrics"
	entity "github.com/slim-bean/airdash/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const queueSize = 1024

// Client is the subset of the promtail client the forwarder pushes to.
type Client interface {
	Handle(labels model.LabelSet, t time.Time, line string) error
	Stop()
}

type Forwarder struct {
	logger   log.Logger
	client   Client
	queue    chan entity.Entity
	shutdown chan struct{}
	done     chan struct{}
}

// NewFromConfig builds a forwarder pushing to every configured Loki client.
func NewFromConfig(logger log.Logger, cfgs []client.Config) (*Forwarder, error) {
	c, err := client.NewMulti(logger, flagext.LabelSet{}, cfgs...)
	if err != nil {
		level.Error(logger).Log("msg", "failed to create new Loki client(s)", "err", err)
		return nil, err
	}
	return New(logger, c), nil
}

func New(logger log.Logger, c Client) *Forwarder {
	f := &Forwarder{
		logger:   log.With(logger, "component", "forward"),
		client:   c,
		queue:    make(chan entity.Entity, queueSize),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go f.run()
	level.Info(f.logger).Log("msg", "forwarder initialized")
	return f
}

// Enqueue queues e for sending. It never blocks, updates are dropped when the
// queue is full.
func (f *Forwarder) Enqueue(e entity.Entity) {
	select {
	case f.queue <- e:
	default:
		metrics.ForwardDropped.Inc()
	}
}

func (f *Forwarder) run() {
	defer func() {
		level.Info(f.logger).Log("msg", "run loop shut down")
		close(f.done)
	}()
	level.Info(f.logger).Log("msg", "forwarder run loop started")
	for {
		select {
		case <-f.shutdown:
			level.Info(f.logger).Log("msg", "run loop shutting down")
			return
		case e := <-f.queue:
			f.send(e)
		}
	}
}

func (f *Forwarder) send(e entity.Entity) {
	// The track is derived state, every point was already sent as its own update.
	e.Track = nil
	bts, err := json.Marshal(e)
	if err != nil {
		level.Error(f.logger).Log("msg", "error marshalling entity", "id", e.ID, "err", err)
		return
	}
	lbls := model.LabelSet{
		model.LabelName("job"):  model.LabelValue("airdash"),
		model.LabelName("type"): model.LabelValue(e.Type),
		model.LabelName("id"):   model.LabelValue(e.ID),
	}
	if err := f.client.Handle(lbls, time.UnixMilli(e.LastUpdatedAtMillis), string(bts)); err != nil {
		level.Error(f.logger).Log("msg", "error sending entity", "id", e.ID, "err", err)
	}
}

func (f *Forwarder) Stop() {
	level.Info(f.logger).Log("msg", "forwarder shutdown called")
	close(f.shutdown)
	<-f.done
	level.Info(f.logger).Log("msg", "forwarder closing clients")
	f.client.Stop()
	level.Info(f.logger).Log("msg", "forwarder clients closed, shutdown complete")
}
