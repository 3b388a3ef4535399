package aissource

import (
	"errors"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/slim-bean/airdash/pkg/ais"
	"github.com/slim-bean/airdash/pkg/metrics"
	"github.com/slim-bean/airdash/pkg/model"
)

// MinTrackDistance is the distance in meters a vessel has to move before a new track point is recorded.
const MinTrackDistance = 10.0

// DataSource turns the messages of one AIS feed into vessel entity updates.
type DataSource struct {
	logger   log.Logger
	uri      string
	debug    bool
	client   *Client
	records  *expirable.LRU[uint32, *model.VesselData]
	onUpdate func(model.Entity)
	onError  func(error)
	now      func() time.Time
}

// New creates a data source for uri reading from dial. With debug set a message
// that fails to decode or validate panics instead of being dropped.
func New(logger log.Logger, cfg Config, uri string, dial Dialer, debug bool, onUpdate func(model.Entity), onError func(error)) *DataSource {
	s := &DataSource{
		logger:   log.With(logger, "component", "ais-source", "source", uri),
		uri:      uri,
		debug:    debug,
		records:  expirable.NewLRU[uint32, *model.VesselData](cfg.MaxRecords, nil, cfg.RecordTTL),
		onUpdate: onUpdate,
		onError:  onError,
		now:      time.Now,
	}
	s.client = NewClient(s.logger, cfg.ReconnectDelay, dial, s.handleMessage, s.handleError)
	return s
}

func (s *DataSource) Start() error {
	return s.client.Connect()
}

func (s *DataSource) Stop() {
	s.client.Disconnect()
}

func (s *DataSource) String() string {
	return s.uri
}

func (s *DataSource) Type() model.EntityType {
	return model.EntityTypeVessel
}

func (s *DataSource) MinTrackDistance() float64 {
	return MinTrackDistance
}

func (s *DataSource) Status() model.SourceStatus {
	return s.client.Status()
}

func (s *DataSource) handleMessage(msg ais.Message) {
	prev, _ := s.records.Get(msg.MMSI)
	v, err := ais.Merge(msg, prev, s.now())
	if err != nil {
		s.decodeFailure(err)
		return
	}
	if v == nil {
		return
	}
	s.records.Add(msg.MMSI, v)

	e := model.Entity{
		ID:     v.MMSI,
		Type:   model.EntityTypeVessel,
		Vessel: v,
	}
	if v.Lat != nil && v.Lon != nil {
		e.Lat, e.Lon = *v.Lat, *v.Lon
	}
	s.onUpdate(e)
}

func (s *DataSource) handleError(err error) {
	if errors.Is(err, ErrDecode) {
		s.decodeFailure(err)
		return
	}
	s.onError(err)
}

func (s *DataSource) decodeFailure(err error) {
	metrics.DecodeErrors.WithLabelValues("ais").Inc()
	if s.debug {
		panic(err)
	}
	level.Warn(s.logger).Log("msg", "dropping ais message", "err", err)
}
