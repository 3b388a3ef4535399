package aggregator

import (
	"net/http"

	"github.com/go-kit/kit/log"

	"github.com/slim-bean/airdash/pkg/adsbsource"
	"github.com/slim-bean/airdash/pkg/aissource"
	"github.com/slim-bean/airdash/pkg/model"
	"github.com/slim-bean/airdash/pkg/readsb"
)

// DataSource is a feed client owned by the Manager. Start and Stop must be
// idempotent, and no callback may run once Stop has returned.
type DataSource interface {
	Start() error
	Stop()
	String() string
	Type() model.EntityType
	MinTrackDistance() float64
	Status() model.SourceStatus
}

// Factory builds the client for a parsed URI, wired to the given callbacks.
type Factory func(u *SourceURI, onUpdate func(model.Entity), onError func(error)) (DataSource, error)

func defaultFactories(logger log.Logger, cfg Config, debug bool, ref adsbsource.Enricher, hc *http.Client) map[string]Factory {
	tcp := func(u *SourceURI, onUpdate func(model.Entity), onError func(error)) (DataSource, error) {
		return aissource.New(logger, cfg.AIS, u.Canonical, aissource.TCPDialer(u.Host), debug, onUpdate, onError), nil
	}
	serial := func(u *SourceURI, onUpdate func(model.Entity), onError func(error)) (DataSource, error) {
		return aissource.New(logger, cfg.AIS, u.Canonical, aissource.SerialDialer(u.Device, u.Baud), debug, onUpdate, onError), nil
	}
	proto := func(u *SourceURI, onUpdate func(model.Entity), onError func(error)) (DataSource, error) {
		return adsbsource.New(logger, cfg.ADSB, u.Canonical, readsb.NewProtoClient(u.Host, hc), ref, onUpdate, onError), nil
	}
	json := func(u *SourceURI, onUpdate func(model.Entity), onError func(error)) (DataSource, error) {
		return adsbsource.New(logger, cfg.ADSB, u.Canonical, readsb.NewJSONClient(u.Canonical, hc), ref, onUpdate, onError), nil
	}
	return map[string]Factory{
		SchemeAISTCP:      tcp,
		SchemeAISSerial:   serial,
		SchemeReadsbProto: proto,
		SchemeHTTP:        json,
		SchemeHTTPS:       json,
	}
}
