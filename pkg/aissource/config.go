package aissource

import (
	"flag"
	"time"
)

type Config struct {
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	DefaultBaud    int           `yaml:"default_baud"`
	MaxRecords     int           `yaml:"max_records"`
	RecordTTL      time.Duration `yaml:"record_ttl"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.DurationVar(&c.ReconnectDelay, "ais.reconnect-delay", 5*time.Second, "Delay before reconnecting a dropped AIS feed")
	f.IntVar(&c.DefaultBaud, "ais.default-baud", 38400, "Baud rate for ais-serial sources that do not specify one")
	f.IntVar(&c.MaxRecords, "ais.max-records", 1000, "Maximum number of vessels remembered per AIS source for incremental decoding")
	f.DurationVar(&c.RecordTTL, "ais.record-ttl", time.Hour, "How long a vessel record is remembered per AIS source")
}
