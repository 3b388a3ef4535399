package aggregator

import (
	"flag"
	"time"

	"github.com/slim-bean/airdash/pkg/adsbsource"
	"github.com/slim-bean/airdash/pkg/aissource"
)

type Config struct {
	VesselMaxAge   time.Duration `yaml:"vessel_max_age"`
	AircraftMaxAge time.Duration `yaml:"aircraft_max_age"`
	MaxTrackLength int           `yaml:"max_track_length"`
	MaxEntities    int           `yaml:"max_entities"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`

	AIS  aissource.Config  `yaml:"ais,omitempty"`
	ADSB adsbsource.Config `yaml:"adsb,omitempty"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.DurationVar(&c.VesselMaxAge, "aggregator.vessel-max-age", time.Hour, "Vessels not updated for this long are dropped")
	f.DurationVar(&c.AircraftMaxAge, "aggregator.aircraft-max-age", time.Minute, "Aircraft not updated for this long are dropped")
	f.IntVar(&c.MaxTrackLength, "aggregator.max-track-length", 100, "Number of track points kept per entity")
	f.IntVar(&c.MaxEntities, "aggregator.max-entities", 10000, "Maximum number of entities kept, 0 for no limit")
	f.DurationVar(&c.SweepInterval, "aggregator.sweep-interval", 0, "How often expired entities are swept, defaults to half the shortest max age")
	c.AIS.RegisterFlags(f)
	c.ADSB.RegisterFlags(f)
}

func (c *Config) sweepInterval() time.Duration {
	if c.SweepInterval > 0 {
		return c.SweepInterval
	}
	d := c.VesselMaxAge
	if c.AircraftMaxAge < d {
		d = c.AircraftMaxAge
	}
	if d <= 0 {
		return time.Second
	}
	return d / 2
}
