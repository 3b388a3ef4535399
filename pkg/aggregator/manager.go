// Package aggregator owns the configured data sources and merges their updates
// into the shared entity cache.
package aggregator

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/slim-bean/airdash/pkg/adsbsource"
	"github.com/slim-bean/airdash/pkg/entitycache"
	"github.com/slim-bean/airdash/pkg/metrics"
	"github.com/slim-bean/airdash/pkg/model"
)

// Store persists the registered source URIs.
type Store interface {
	Add(uri string) error
	Remove(uri string) error
	List() ([]string, error)
}

type Option func(*Manager)

// WithDebug makes AIS decode failures panic instead of being logged.
func WithDebug(debug bool) Option {
	return func(m *Manager) { m.debug = debug }
}

// WithReference enriches ADS-B updates.
func WithReference(ref adsbsource.Enricher) Option {
	return func(m *Manager) { m.ref = ref }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(m *Manager) { m.httpClient = hc }
}

func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithSourceFactory replaces the client built for scheme.
func WithSourceFactory(scheme string, f Factory) Option {
	return func(m *Manager) { m.overrides[scheme] = f }
}

type Manager struct {
	logger     log.Logger
	cfg        Config
	debug      bool
	ref        adsbsource.Enricher
	httpClient *http.Client
	store      Store
	now        func() time.Time
	overrides  map[string]Factory
	factories  map[string]Factory
	cache      *entitycache.Cache

	sourcesMtx sync.Mutex
	sources    map[string]DataSource

	hooksMtx sync.RWMutex
	hooks    []func(model.Entity)
}

func New(logger log.Logger, cfg Config, opts ...Option) *Manager {
	m := &Manager{
		logger:    log.With(logger, "component", "aggregator"),
		cfg:       cfg,
		now:       time.Now,
		overrides: map[string]Factory{},
		sources:   map[string]DataSource{},
	}
	for _, o := range opts {
		o(m)
	}
	m.factories = defaultFactories(logger, cfg, m.debug, m.ref, m.httpClient)
	for scheme, f := range m.overrides {
		m.factories[scheme] = f
	}
	m.cache = entitycache.New(cfg.AircraftMaxAge,
		entitycache.WithMaxAge(model.EntityTypeVessel, cfg.VesselMaxAge),
		entitycache.WithMaxAge(model.EntityTypeAircraft, cfg.AircraftMaxAge),
		entitycache.WithMaxEntries(cfg.MaxEntities),
		entitycache.WithClock(func() time.Time { return m.now() }),
	)
	return m
}

// AddDataSource registers and starts the source for raw. It fails with KindBadURI
// when raw cannot be parsed or has no client, and with KindAlreadyConnected when
// a source with the same canonical URI is registered.
func (m *Manager) AddDataSource(raw string) (DataSource, error) {
	return m.addDataSource(raw, true)
}

func (m *Manager) addDataSource(raw string, persist bool) (DataSource, error) {
	u, err := ParseSourceURI(raw, m.cfg.AIS.DefaultBaud)
	if err != nil {
		return nil, &Error{Kind: KindBadURI, URI: raw, Err: err}
	}

	m.sourcesMtx.Lock()
	defer m.sourcesMtx.Unlock()

	if _, ok := m.sources[u.Canonical]; ok {
		return nil, &Error{Kind: KindAlreadyConnected, URI: u.Canonical}
	}
	factory, ok := m.factories[u.Scheme]
	if !ok {
		return nil, &Error{Kind: KindBadURI, URI: raw}
	}

	var src DataSource
	src, err = factory(u,
		func(e model.Entity) { m.mergeUpdate(e, src.MinTrackDistance()) },
		func(err error) { m.onDataSourceError(src, err) },
	)
	if err != nil {
		return nil, &Error{Kind: KindBadURI, URI: raw, Err: err}
	}
	if err := src.Start(); err != nil {
		return nil, err
	}
	m.sources[u.Canonical] = src

	if persist && m.store != nil {
		if err := m.store.Add(u.Canonical); err != nil {
			level.Error(m.logger).Log("msg", "failed to persist data source", "source", u.Canonical, "err", err)
		}
	}
	level.Info(m.logger).Log("msg", "data source added", "source", u.Canonical, "type", src.Type())
	return src, nil
}

// RemoveDataSource stops and unregisters the source for raw.
func (m *Manager) RemoveDataSource(raw string) error {
	u, err := ParseSourceURI(raw, m.cfg.AIS.DefaultBaud)
	if err != nil {
		return &Error{Kind: KindBadURI, URI: raw, Err: err}
	}

	m.sourcesMtx.Lock()
	src, ok := m.sources[u.Canonical]
	delete(m.sources, u.Canonical)
	m.sourcesMtx.Unlock()
	if !ok {
		return &Error{Kind: KindNotFound, URI: u.Canonical}
	}

	src.Stop()
	if m.store != nil {
		if err := m.store.Remove(u.Canonical); err != nil {
			level.Error(m.logger).Log("msg", "failed to remove persisted data source", "source", u.Canonical, "err", err)
		}
	}
	level.Info(m.logger).Log("msg", "data source removed", "source", u.Canonical)
	return nil
}

// Restore adds every persisted source. Failures are logged and skipped.
func (m *Manager) Restore() int {
	if m.store == nil {
		return 0
	}
	uris, err := m.store.List()
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to list persisted data sources", "err", err)
		return 0
	}
	n := 0
	for _, uri := range uris {
		if _, err := m.addDataSource(uri, false); err != nil {
			level.Warn(m.logger).Log("msg", "failed to restore data source", "source", uri, "err", err)
			continue
		}
		n++
	}
	return n
}

// GetDataSources returns the registered sources keyed by canonical URI.
func (m *Manager) GetDataSources() map[string]DataSource {
	m.sourcesMtx.Lock()
	defer m.sourcesMtx.Unlock()
	out := make(map[string]DataSource, len(m.sources))
	for k, v := range m.sources {
		out[k] = v
	}
	return out
}

// DataSources describes the registered sources, ordered by id.
func (m *Manager) DataSources() []model.SourceInfo {
	sources := m.GetDataSources()
	out := make([]model.SourceInfo, 0, len(sources))
	for id, src := range sources {
		out = append(out, model.SourceInfo{
			ID:     id,
			Type:   src.Type(),
			Label:  src.String(),
			Status: src.Status(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Manager) Entities() []model.Entity {
	return m.cache.Snapshot()
}

func (m *Manager) Entity(t model.EntityType, id string) (model.Entity, bool) {
	return m.cache.Get(model.Key{Type: t, ID: id})
}

// OnUpdate registers fn to run after each merge with a copy of the stored entity.
// Hooks run on the goroutine of the source that produced the update.
func (m *Manager) OnUpdate(fn func(model.Entity)) {
	m.hooksMtx.Lock()
	defer m.hooksMtx.Unlock()
	m.hooks = append(m.hooks, fn)
}

// mergeUpdate is the only writer of the entity cache. The stored entity replaces the
// previous one, keeping its track and, when the update has no fix, its position.
func (m *Manager) mergeUpdate(update model.Entity, minDistance float64) {
	if update.ID == "" || !update.Type.Valid() {
		level.Warn(m.logger).Log("msg", "dropping update without identity", "id", update.ID, "type", update.Type)
		return
	}
	now := m.now()
	stored, _ := m.cache.Update(update.Key(), func(existing model.Entity, found bool) (model.Entity, bool) {
		e := update
		e.Track = nil
		if found {
			e.Track = existing.Track
			if !e.HasPosition() {
				e.Lat, e.Lon = existing.Lat, existing.Lon
			}
		}
		e.LastUpdatedAtMillis = now.UnixMilli()
		e.Track = deriveTrack(e.Track, e, minDistance, m.cfg.MaxTrackLength)
		return e, true
	})
	metrics.EntityUpdates.WithLabelValues(string(update.Type)).Inc()

	m.hooksMtx.RLock()
	hooks := m.hooks
	m.hooksMtx.RUnlock()
	for _, h := range hooks {
		h(stored.Clone())
	}
}

// onDataSourceError records a failure. The source keeps retrying on its own.
func (m *Manager) onDataSourceError(src DataSource, err error) {
	metrics.SourceErrors.WithLabelValues(string(src.Type())).Inc()
	level.Warn(m.logger).Log("msg", "data source error", "source", src.String(), "err", err)
}

// Run sweeps expired entities until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	t := time.NewTicker(m.cfg.sweepInterval())
	defer t.Stop()
	level.Info(m.logger).Log("msg", "sweep loop started", "interval", m.cfg.sweepInterval())
	for {
		select {
		case <-ctx.Done():
			level.Info(m.logger).Log("msg", "sweep loop shut down")
			return nil
		case <-t.C:
			if n := m.cache.Sweep(); n > 0 {
				level.Debug(m.logger).Log("msg", "expired entities removed", "count", n)
			}
			m.updateGauges()
		}
	}
}

func (m *Manager) updateGauges() {
	counts := m.cache.Counts()
	for _, t := range []model.EntityType{model.EntityTypeVessel, model.EntityTypeAircraft} {
		metrics.Entities.WithLabelValues(string(t)).Set(float64(counts[t]))
	}
}

// Stop stops every registered source.
func (m *Manager) Stop() {
	m.sourcesMtx.Lock()
	sources := m.sources
	m.sources = map[string]DataSource{}
	m.sourcesMtx.Unlock()

	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src DataSource) {
			defer wg.Done()
			src.Stop()
		}(src)
	}
	wg.Wait()
	level.Info(m.logger).Log("msg", "all data sources stopped", "count", len(sources))
}
