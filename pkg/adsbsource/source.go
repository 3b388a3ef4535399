package adsbsource

import (
	"context"
	"flag"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/slim-bean/airdash/pkg/metrics"
	"github.com/slim-bean/airdash/pkg/model"
	"github.com/slim-bean/airdash/pkg/readsb"
)

// MinTrackDistance is the distance in meters an aircraft has to move before a new track point is recorded.
const MinTrackDistance = 50.0

type Config struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxRecords   int           `yaml:"max_records"`
	RecordTTL    time.Duration `yaml:"record_ttl"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.DurationVar(&c.PollInterval, "adsb.poll-interval", time.Second, "Delay between the end of one ADS-B poll and the start of the next")
	f.IntVar(&c.MaxRecords, "adsb.max-records", 1000, "Maximum number of aircraft remembered per ADS-B source")
	f.DurationVar(&c.RecordTTL, "adsb.record-ttl", time.Minute, "How long an aircraft is remembered per ADS-B source")
}

// Fetcher returns the current aircraft snapshot of a backend.
type Fetcher interface {
	GetAircraft(ctx context.Context) (*readsb.AircraftsUpdate, error)
	URL() string
}

// Enricher fills reference fields such as tail number and operator.
type Enricher interface {
	Enrich(hex string, a *model.AircraftData)
}

// DataSource polls one readsb backend and emits an update per aircraft per poll.
type DataSource struct {
	logger   log.Logger
	uri      string
	cfg      Config
	client   Fetcher
	ref      Enricher
	onUpdate func(model.Entity)
	onError  func(error)
	records  *expirable.LRU[string, model.Entity]

	mtx    sync.Mutex
	status model.SourceStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a data source. ref may be nil.
func New(logger log.Logger, cfg Config, uri string, client Fetcher, ref Enricher, onUpdate func(model.Entity), onError func(error)) *DataSource {
	return &DataSource{
		logger:   log.With(logger, "component", "adsb-source", "source", uri),
		uri:      uri,
		cfg:      cfg,
		client:   client,
		ref:      ref,
		onUpdate: onUpdate,
		onError:  onError,
		records:  expirable.NewLRU[string, model.Entity](cfg.MaxRecords, nil, cfg.RecordTTL),
		status:   model.StatusDisconnected,
	}
}

// Start begins polling immediately. Starting a running source does nothing.
func (s *DataSource) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.status = model.StatusConnecting
	go s.run(ctx, s.done)
	level.Info(s.logger).Log("msg", "polling started", "url", s.client.URL(), "interval", s.cfg.PollInterval)
	return nil
}

// Stop cancels the pending or running poll and waits for it, no callback runs after it returns.
func (s *DataSource) Stop() {
	s.mtx.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mtx.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mtx.Lock()
	s.status = model.StatusDisconnected
	s.mtx.Unlock()
	level.Info(s.logger).Log("msg", "polling stopped")
}

func (s *DataSource) String() string {
	return s.uri
}

func (s *DataSource) Type() model.EntityType {
	return model.EntityTypeAircraft
}

func (s *DataSource) MinTrackDistance() float64 {
	return MinTrackDistance
}

// Status is connected after a successful poll and reconnecting after a failed one.
func (s *DataSource) Status() model.SourceStatus {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.status
}

func (s *DataSource) setStatus(st model.SourceStatus) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.cancel != nil {
		s.status = st
	}
}

func (s *DataSource) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		s.poll(ctx)
		t.Reset(s.cfg.PollInterval)
	}
}

func (s *DataSource) poll(ctx context.Context) {
	start := time.Now()
	u, err := s.client.GetAircraft(ctx)
	metrics.PollDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		metrics.Polls.WithLabelValues("failure").Inc()
		s.setStatus(model.StatusReconnecting)
		s.onError(fmt.Errorf("poll %s: %w", s.client.URL(), err))
		return
	}
	metrics.Polls.WithLabelValues("success").Inc()
	s.setStatus(model.StatusConnected)

	for i := range u.Aircraft {
		if ctx.Err() != nil {
			return
		}
		s.process(&u.Aircraft[i])
	}
}

func (s *DataSource) process(a *readsb.AircraftMeta) {
	id := fmt.Sprintf("%06X", a.Addr)
	prev, known := s.records.Get(id)
	hasFix := a.Lat != 0 || a.Lon != 0
	if !hasFix && (!known || !prev.HasPosition()) {
		return
	}

	e := model.Entity{ID: id, Type: model.EntityTypeAircraft}
	data := &model.AircraftData{}
	if known {
		e.Lat, e.Lon = prev.Lat, prev.Lon
		if c := prev.Aircraft.Clone(); c != nil {
			data = c
		}
	}
	if hasFix {
		e.Lat, e.Lon = a.Lat, a.Lon
	}
	merge(data, a)
	if s.ref != nil {
		s.ref.Enrich(id, data)
	}
	e.Aircraft = data

	s.records.Add(id, e)
	s.onUpdate(e)
}

// merge copies the fields a carries onto data.
func merge(data *model.AircraftData, a *readsb.AircraftMeta) {
	if f := strings.TrimSpace(a.Flight); f != "" {
		data.Flight = f
	}
	if a.Squawk != "" {
		data.Squawk = a.Squawk
	}
	if a.Category != "" {
		data.Category = a.Category
	}
	if a.Emergency != "" {
		data.Emergency = a.Emergency
	}
	if a.OnGround {
		data.OnGround = true
	}
	if a.AltBaro != nil {
		alt := int(*a.AltBaro)
		data.AltitudeBaro = &alt
		data.OnGround = false
	}
	if a.AltGeom != nil {
		alt := int(*a.AltGeom)
		data.AltitudeGeom = &alt
	}
	if a.BaroRate != nil {
		rate := int(*a.BaroRate)
		data.VerticalRate = &rate
	}
	if a.GS != nil {
		gs := *a.GS
		data.GroundSpeed = &gs
	}
	if a.Track != nil {
		track := *a.Track
		data.Track = &track
	}
	if a.RSSI != nil {
		rssi := *a.RSSI
		data.RSSI = &rssi
	}
	if a.Messages != 0 {
		data.Messages = a.Messages
	}
}
