package aircraft

import (
	"bufio"
	"compress/gzip"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/slim-bean/airdash/pkg/model"
)

const (
	dbFile     = "aircraft.csv.gz"
	tempDBFile = "aircraft.csv.gz.tmp"
)

type Config struct {
	Enabled       bool          `yaml:"enabled"`
	Directory     string        `yaml:"directory"`
	URL           string        `yaml:"url"`
	MaxAge        time.Duration `yaml:"max_age"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	path, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	f.BoolVar(&c.Enabled, "aircraft-db.enabled", true, "Download and use the tar1090 aircraft database for registration and type lookups")
	f.StringVar(&c.Directory, "aircraft-db.directory", path, "Where to save the downloaded aircraft database, defaults to the current working directory")
	f.StringVar(&c.URL, "aircraft-db.url", "https://github.com/wiedehopf/tar1090-db/raw/csv/aircraft.csv.gz", "Where to get the aircraft database")
	f.DurationVar(&c.MaxAge, "aircraft-db.max-age", 24*time.Hour, "Age after which the aircraft database is downloaded again")
	f.DurationVar(&c.CheckInterval, "aircraft-db.check-interval", time.Minute, "How often the age of the aircraft database is checked")
}

// Manager keeps the tar1090 aircraft database on disk up to date and serves lookups by ICAO hex.
type Manager struct {
	logger    log.Logger
	config    Config
	client    *http.Client
	details   map[string]*model.Details
	detailMtx sync.RWMutex
	shutdown  chan struct{}
	done      chan struct{}
	stopOnce  sync.Once
}

func NewManager(logger log.Logger, config Config) (*Manager, error) {
	m := &Manager{
		logger:   log.With(logger, "component", "aircraft-db"),
		config:   config,
		client:   http.DefaultClient,
		details:  map[string]*model.Details{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	if !config.Enabled {
		close(m.done)
		level.Info(m.logger).Log("msg", "aircraft database disabled")
		return m, nil
	}
	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("aircraft database directory: %w", err)
	}

	m.refresh(true)
	go m.run()
	level.Info(m.logger).Log("msg", "aircraft database initialized", "aircraft", m.Len())
	return m, nil
}

func (m *Manager) run() {
	t := time.NewTicker(m.config.CheckInterval)
	defer func() {
		t.Stop()
		level.Info(m.logger).Log("msg", "run loop shut down")
		close(m.done)
	}()
	for {
		select {
		case <-m.shutdown:
			return
		case <-t.C:
			m.refresh(false)
		}
	}
}

// Lookup returns the details of the airframe with the given ICAO hex, or nil.
func (m *Manager) Lookup(hex string) *model.Details {
	m.detailMtx.RLock()
	defer m.detailMtx.RUnlock()
	return m.details[strings.ToLower(strings.TrimSpace(hex))]
}

func (m *Manager) Len() int {
	m.detailMtx.RLock()
	defer m.detailMtx.RUnlock()
	return len(m.details)
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		if m.config.Enabled {
			close(m.shutdown)
		}
	})
	<-m.done
}

// refresh downloads a new database when the file on disk is missing or stale and
// loads it. With force set the file on disk is loaded even when it is current.
func (m *Manager) refresh(force bool) {
	updated := m.download()
	if updated || force {
		m.load()
	}
}

func (m *Manager) download() bool {
	target := filepath.Join(m.config.Directory, dbFile)
	fi, err := os.Stat(target)
	if err == nil {
		if time.Since(fi.ModTime()) < m.config.MaxAge {
			return false
		}
	} else if !os.IsNotExist(err) {
		level.Error(m.logger).Log("msg", "failed to stat aircraft database, cannot update", "err", err)
		return false
	}

	level.Info(m.logger).Log("msg", "downloading aircraft database", "url", m.config.URL)
	resp, err := m.client.Get(m.config.URL)
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to download aircraft database", "url", m.config.URL, "err", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		level.Error(m.logger).Log("msg", "failed to download aircraft database", "url", m.config.URL, "status", resp.Status)
		return false
	}

	tmp := filepath.Join(m.config.Directory, tempDBFile)
	out, err := os.Create(tmp)
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to create temp aircraft database", "err", err)
		return false
	}
	defer os.Remove(tmp)

	_, err = io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to write temp aircraft database", "err", err)
		return false
	}
	if err := os.Rename(tmp, target); err != nil {
		level.Error(m.logger).Log("msg", "failed to replace aircraft database", "err", err)
		return false
	}
	level.Info(m.logger).Log("msg", "aircraft database downloaded")
	return true
}

func (m *Manager) load() {
	file, err := os.Open(filepath.Join(m.config.Directory, dbFile))
	if err != nil {
		level.Warn(m.logger).Log("msg", "no aircraft database to load", "err", err)
		return
	}
	defer file.Close()
	reader, err := gzip.NewReader(file)
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to open gzip reader on aircraft database", "err", err)
		return
	}
	defer reader.Close()

	details, err := parseDetails(reader)
	if err != nil {
		level.Error(m.logger).Log("msg", "failed to read aircraft database", "err", err)
		return
	}
	m.detailMtx.Lock()
	m.details = details
	m.detailMtx.Unlock()
	level.Info(m.logger).Log("msg", "finished loading aircraft database", "aircraft", len(details))
}

// parseDetails reads lines of hex;registration;typecode;flags;description;year;owner;
// where a backslash escapes a separator. Flags are four digits for military,
// interesting, PIA and LADD.
func parseDetails(r io.Reader) (map[string]*model.Details, error) {
	details := map[string]*model.Details{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := splitFields(scanner.Text())
		if len(fields) == 0 || fields[0] == "" {
			continue
		}
		d := &model.Details{}
		for i, v := range fields[1:] {
			if v == "" {
				continue
			}
			v := v
			switch i + 1 {
			case 1:
				d.Registration = &v
			case 2:
				d.TypeCode = &v
			case 3:
				d.Military = bit(v, 0)
				d.Interesting = bit(v, 1)
				d.PIA = bit(v, 2)
				d.LADD = bit(v, 3)
			case 4:
				d.Description = &v
			case 5:
				d.Manufactured = &v
			case 6:
				d.Owner = &v
			}
		}
		details[strings.ToLower(strings.TrimSpace(fields[0]))] = d
	}
	return details, scanner.Err()
}

// splitFields splits on ';' separators not preceded by a backslash. The text after the
// last separator is not a field.
func splitFields(line string) []string {
	var fields []string
	start := 0
	for p := 0; p < len(line); p++ {
		if line[p] == ';' && (p == 0 || line[p-1] != '\\') {
			fields = append(fields, line[start:p])
			start = p + 1
		}
	}
	return fields
}

func bit(flags string, i int) *bool {
	if len(flags) > i && flags[i] == '1' {
		t := true
		return &t
	}
	return nil
}
