package cfg

import (
	"flag"
	"strings"

	"github.com/cortexproject/cortex/pkg/util/flagext"
	"github.com/grafana/loki/pkg/promtail/client"

	"github.com/slim-bean/airdash/pkg/aggregator"
	"github.com/slim-bean/airdash/pkg/aircraft"
	"github.com/slim-bean/airdash/pkg/refdb"
	"github.com/slim-bean/airdash/pkg/store"
)

type Config struct {
	ClientConfigs []client.Config     `yaml:"clients,omitempty"`
	DataSources   flagext.StringSlice `yaml:"data_sources"`
	Debug         bool                `yaml:"debug"`
	LogLevel      string              `yaml:"log_level"`
	ListenAddress string              `yaml:"listen_address"`

	Aggregator aggregator.Config `yaml:"aggregator,omitempty"`
	Aircraft   aircraft.Config   `yaml:"aircraft_db,omitempty"`
	RefDB      refdb.Config      `yaml:"refdb,omitempty"`
	Store      store.Config      `yaml:"store,omitempty"`
}

// RegisterFlags with prefix registers flags where every name is prefixed by
// prefix. If prefix is a non-empty string, prefix should end with a period.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	for i := range c.ClientConfigs {
		c.ClientConfigs[i].RegisterFlags(f)
	}
	f.Var(&c.DataSources, "source", "Data source URI to connect at startup, may be repeated")
	f.BoolVar(&c.Debug, "debug", false, "Fail loudly on AIS decode errors")
	f.StringVar(&c.LogLevel, "log.level", "info", "Only log messages with the given severity or above: debug, info, warn, error")
	f.StringVar(&c.ListenAddress, "http.listen-address", ":8080", "Address the HTTP API listens on")
	c.Aggregator.RegisterFlags(f)
	c.Aircraft.RegisterFlags(f)
	c.RefDB.RegisterFlags(f)
	c.Store.RegisterFlags(f)
}

// ApplyEnvironment applies the DATA_SOURCES and DEBUG variables on top of the
// parsed config. DATA_SOURCES is a comma separated list of URIs appended to the
// configured sources, DEBUG enables debug mode when set to 1 or y.
func (c *Config) ApplyEnvironment(getenv func(string) string) {
	for _, s := range strings.Split(getenv("DATA_SOURCES"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			c.DataSources = append(c.DataSources, s)
		}
	}
	switch strings.ToLower(strings.TrimSpace(getenv("DEBUG"))) {
	case "1", "y", "yes", "true":
		c.Debug = true
	}
}
