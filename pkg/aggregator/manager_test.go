package aggregator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slim-bean/airdash/pkg/adsbsource"
	"github.com/slim-bean/airdash/pkg/aissource"
	"github.com/slim-bean/airdash/pkg/metrics"
	"github.com/slim-bean/airdash/pkg/model"
	"github.com/slim-bean/airdash/pkg/readsb"
)

type fakeSource struct {
	uri      string
	typ      model.EntityType
	minDist  float64
	onUpdate func(model.Entity)
	onError  func(error)

	mtx     sync.Mutex
	started int
	stopped int
}

func (s *fakeSource) Start() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.started++
	return nil
}

func (s *fakeSource) Stop() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.stopped++
}

func (s *fakeSource) String() string             { return s.uri }
func (s *fakeSource) Type() model.EntityType     { return s.typ }
func (s *fakeSource) MinTrackDistance() float64  { return s.minDist }
func (s *fakeSource) Status() model.SourceStatus { return model.StatusConnected }

type fakeFactory struct {
	mtx     sync.Mutex
	sources []*fakeSource
}

func (f *fakeFactory) build(typ model.EntityType, minDist float64) Factory {
	return func(u *SourceURI, onUpdate func(model.Entity), onError func(error)) (DataSource, error) {
		f.mtx.Lock()
		defer f.mtx.Unlock()
		s := &fakeSource{uri: u.Canonical, typ: typ, minDist: minDist, onUpdate: onUpdate, onError: onError}
		f.sources = append(f.sources, s)
		return s, nil
	}
}

type memStore struct {
	mtx  sync.Mutex
	uris []string
}

func (s *memStore) Add(uri string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.uris = append(s.uris, uri)
	return nil
}

func (s *memStore) Remove(uri string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for i, u := range s.uris {
		if u == uri {
			s.uris = append(s.uris[:i], s.uris[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) List() ([]string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return append([]string(nil), s.uris...), nil
}

type testClock struct {
	mtx sync.Mutex
	t   time.Time
}

func (c *testClock) now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.t = c.t.Add(d)
}

func testConfig() Config {
	return Config{
		VesselMaxAge:   time.Hour,
		AircraftMaxAge: time.Minute,
		MaxTrackLength: 100,
		AIS:            aissource.Config{ReconnectDelay: time.Hour, DefaultBaud: 38400, MaxRecords: 1000, RecordTTL: time.Hour},
		ADSB:           adsbsource.Config{PollInterval: 5 * time.Millisecond, MaxRecords: 1000, RecordTTL: time.Minute},
	}
}

func newFakeManager(opts ...Option) (*Manager, *fakeFactory, *testClock) {
	ff := &fakeFactory{}
	clk := &testClock{t: time.Unix(1700000000, 0)}
	opts = append([]Option{
		WithClock(clk.now),
		WithSourceFactory(SchemeAISTCP, ff.build(model.EntityTypeVessel, aissource.MinTrackDistance)),
		WithSourceFactory(SchemeReadsbProto, ff.build(model.EntityTypeAircraft, adsbsource.MinTrackDistance)),
	}, opts...)
	return New(log.NewNopLogger(), testConfig(), opts...), ff, clk
}

func aircraftAt(lat, lon float64) model.Entity {
	return model.Entity{ID: "A12345", Type: model.EntityTypeAircraft, Lat: lat, Lon: lon, Aircraft: &model.AircraftData{}}
}

func TestAddDataSourceTwiceIsAlreadyConnected(t *testing.T) {
	m, ff, _ := newFakeManager()

	src, err := m.AddDataSource("ais-tcp://LOCALHOST:10110")
	require.NoError(t, err)
	assert.Equal(t, "ais-tcp://localhost:10110", src.String())

	_, err = m.AddDataSource("ais-tcp://localhost:10110/")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyConnected))
	assert.Equal(t, KindAlreadyConnected, KindOf(err))

	assert.Len(t, m.GetDataSources(), 1)
	require.Len(t, ff.sources, 1)
	assert.Equal(t, 1, ff.sources[0].started)
}

func TestAddDataSourceBadURI(t *testing.T) {
	m, _, _ := newFakeManager()
	for _, raw := range []string{"ftp://example.com", "not a uri", "ais-tcp://nohost"} {
		_, err := m.AddDataSource(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrBadURI), raw)
		assert.False(t, errors.Is(err, ErrAlreadyConnected), raw)
	}
	assert.Empty(t, m.DataSources())
}

func TestAddDataSourceBuildsDefaultClients(t *testing.T) {
	m := New(log.NewNopLogger(), testConfig())
	defer m.Stop()

	src, err := m.AddDataSource("ais-serial:///dev/does-not-exist")
	require.NoError(t, err)
	_, ok := src.(*aissource.DataSource)
	assert.True(t, ok)
	assert.Equal(t, model.EntityTypeVessel, src.Type())

	src, err = m.AddDataSource("http://127.0.0.1:1/tar1090")
	require.NoError(t, err)
	_, ok = src.(*adsbsource.DataSource)
	assert.True(t, ok)

	infos := m.DataSources()
	require.Len(t, infos, 2)
	assert.Equal(t, "ais-serial:///dev/does-not-exist?baud=38400", infos[0].ID)
	assert.Equal(t, "http://127.0.0.1:1/tar1090", infos[1].ID)
	assert.Equal(t, model.EntityTypeAircraft, infos[1].Type)
}

func TestRemoveDataSource(t *testing.T) {
	st := &memStore{}
	m, ff, _ := newFakeManager(WithStore(st))

	_, err := m.AddDataSource("readsb-proto://radar:8080")
	require.NoError(t, err)
	assert.Equal(t, []string{"readsb-proto://radar:8080"}, st.uris)

	require.NoError(t, m.RemoveDataSource("readsb-proto://RADAR:8080"))
	assert.Equal(t, 1, ff.sources[0].stopped)
	assert.Empty(t, m.GetDataSources())
	assert.Empty(t, st.uris)

	err = m.RemoveDataSource("readsb-proto://radar:8080")
	assert.True(t, errors.Is(err, ErrNotFound))
	err = m.RemoveDataSource("bogus")
	assert.True(t, errors.Is(err, ErrBadURI))
}

func TestRestore(t *testing.T) {
	st := &memStore{uris: []string{"ais-tcp://localhost:10110", "ftp://bad", "readsb-proto://radar:8080"}}
	m, ff, _ := newFakeManager(WithStore(st))

	assert.Equal(t, 2, m.Restore())
	assert.Len(t, m.GetDataSources(), 2)
	assert.Len(t, ff.sources, 2)
	assert.Len(t, st.uris, 3, "restoring does not write to the store")
}

func TestAircraftTrackThreshold(t *testing.T) {
	m, ff, clk := newFakeManager()
	_, err := m.AddDataSource("readsb-proto://radar:8080")
	require.NoError(t, err)
	src := ff.sources[0]

	src.onUpdate(aircraftAt(52, 4))
	clk.advance(time.Second)
	src.onUpdate(aircraftAt(north(52, 51), 4))

	e, ok := m.Entity(model.EntityTypeAircraft, "A12345")
	require.True(t, ok)
	assert.Len(t, e.Track, 2)

	clk.advance(time.Second)
	src.onUpdate(aircraftAt(north(north(52, 51), 10), 4))
	e, _ = m.Entity(model.EntityTypeAircraft, "A12345")
	assert.Len(t, e.Track, 2)
	assert.Equal(t, north(north(52, 51), 10), e.Lat)
	assert.Equal(t, clk.now().UnixMilli(), e.LastUpdatedAtMillis)
}

func TestTenMetersApartYieldsOnePoint(t *testing.T) {
	m, ff, clk := newFakeManager()
	_, err := m.AddDataSource("readsb-proto://radar:8080")
	require.NoError(t, err)
	src := ff.sources[0]

	src.onUpdate(aircraftAt(52, 4))
	clk.advance(time.Second)
	src.onUpdate(aircraftAt(north(52, 10), 4))

	e, ok := m.Entity(model.EntityTypeAircraft, "A12345")
	require.True(t, ok)
	assert.Len(t, e.Track, 1)
}

func TestVesselUsesFinerThreshold(t *testing.T) {
	m, ff, clk := newFakeManager()
	_, err := m.AddDataSource("ais-tcp://localhost:10110")
	require.NoError(t, err)
	src := ff.sources[0]

	vessel := func(lat float64) model.Entity {
		return model.Entity{ID: "244123000", Type: model.EntityTypeVessel, Lat: lat, Lon: 4, Vessel: &model.VesselData{MMSI: "244123000"}}
	}
	src.onUpdate(vessel(52))
	clk.advance(time.Second)
	src.onUpdate(vessel(north(52, 11)))

	e, ok := m.Entity(model.EntityTypeVessel, "244123000")
	require.True(t, ok)
	assert.Len(t, e.Track, 2)
}

func TestUnknownPositionKeepsPrevious(t *testing.T) {
	m, ff, _ := newFakeManager()
	_, err := m.AddDataSource("ais-tcp://localhost:10110")
	require.NoError(t, err)
	src := ff.sources[0]

	src.onUpdate(model.Entity{ID: "244123000", Type: model.EntityTypeVessel, Vessel: &model.VesselData{Name: "NOFIX"}})
	e, ok := m.Entity(model.EntityTypeVessel, "244123000")
	require.True(t, ok)
	assert.Empty(t, e.Track)
	assert.False(t, e.HasPosition())

	src.onUpdate(model.Entity{ID: "244123000", Type: model.EntityTypeVessel, Lat: 52, Lon: 4})
	src.onUpdate(model.Entity{ID: "244123000", Type: model.EntityTypeVessel, Vessel: &model.VesselData{Name: "ALBATROS"}})
	e, _ = m.Entity(model.EntityTypeVessel, "244123000")
	assert.Equal(t, 52.0, e.Lat)
	assert.Equal(t, 4.0, e.Lon)
	assert.Equal(t, "ALBATROS", e.Vessel.Name)
	assert.Len(t, e.Track, 1)
}

func TestTypesDoNotCollide(t *testing.T) {
	m, ff, _ := newFakeManager()
	_, err := m.AddDataSource("ais-tcp://localhost:10110")
	require.NoError(t, err)
	_, err = m.AddDataSource("readsb-proto://radar:8080")
	require.NoError(t, err)

	ff.sources[0].onUpdate(model.Entity{ID: "123456", Type: model.EntityTypeVessel, Lat: 1, Lon: 1})
	ff.sources[1].onUpdate(model.Entity{ID: "123456", Type: model.EntityTypeAircraft, Lat: 2, Lon: 2})
	assert.Len(t, m.Entities(), 2)
}

func TestHooksAndErrors(t *testing.T) {
	m, ff, _ := newFakeManager()
	var got []model.Entity
	m.OnUpdate(func(e model.Entity) { got = append(got, e) })

	_, err := m.AddDataSource("readsb-proto://radar:8080")
	require.NoError(t, err)
	src := ff.sources[0]

	src.onUpdate(aircraftAt(52, 4))
	require.Len(t, got, 1)
	assert.Len(t, got[0].Track, 1)

	before := testutil.ToFloat64(metrics.SourceErrors.WithLabelValues(string(model.EntityTypeAircraft)))
	src.onError(errors.New("connection refused"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SourceErrors.WithLabelValues(string(model.EntityTypeAircraft))))
	assert.Len(t, m.GetDataSources(), 1, "a failing source stays registered")
	assert.Equal(t, 0, src.stopped)
}

func TestExpiryAndSweep(t *testing.T) {
	m, ff, clk := newFakeManager()
	_, err := m.AddDataSource("readsb-proto://radar:8080")
	require.NoError(t, err)
	ff.sources[0].onUpdate(aircraftAt(52, 4))

	clk.advance(2 * time.Minute)
	_, ok := m.Entity(model.EntityTypeAircraft, "A12345")
	assert.False(t, ok)
	assert.Empty(t, m.Entities())
}

func TestRunStopsWithContext(t *testing.T) {
	cfg := testConfig()
	cfg.SweepInterval = time.Millisecond
	m := New(log.NewNopLogger(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- m.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not return")
	}
}

func TestSweepInterval(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, 30*time.Second, cfg.sweepInterval())
	cfg.SweepInterval = 5 * time.Second
	assert.Equal(t, 5*time.Second, cfg.sweepInterval())
}

func TestReadsbProtoEndToEnd(t *testing.T) {
	start := 52.0
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lat := start
		if atomic.AddInt32(&polls, 1) > 2 {
			lat = north(start, 51)
		}
		w.Write(readsb.AppendAircraftsUpdate(nil, &readsb.AircraftsUpdate{Aircraft: []readsb.AircraftMeta{
			{Addr: 0xA12345, Lat: 0, Lon: 0},
			{Addr: 0x4CA2B1, Lat: lat, Lon: 4},
		}}))
	}))
	defer srv.Close()

	m := New(log.NewNopLogger(), testConfig())
	_, err := m.AddDataSource("readsb-proto://" + strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		e, ok := m.Entity(model.EntityTypeAircraft, "4CA2B1")
		return ok && len(e.Track) == 2
	}, 2*time.Second, 5*time.Millisecond)
	m.Stop()

	_, ok := m.Entity(model.EntityTypeAircraft, "A12345")
	assert.False(t, ok, "no fix on first sight is never cached")
	assert.Len(t, m.Entities(), 1)
}
