// Package refdb holds the operator and aircraft type tables used to enrich ADS-B updates.
package refdb

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gocarina/gocsv"
)

type Config struct {
	OperatorsFile string `yaml:"operators_file"`
	TypesFile     string `yaml:"types_file"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.OperatorsFile, "refdb.operators-file", "db/operators.csv", "CSV of airline operators: code,name,country,callsign")
	f.StringVar(&c.TypesFile, "refdb.types-file", "db/types.csv", "CSV of aircraft types: designator,name,description,wtc")
}

type Operator struct {
	Code     string `csv:"code"`
	Name     string `csv:"name"`
	Country  string `csv:"country"`
	Callsign string `csv:"callsign"`
}

type AircraftType struct {
	Designator  string `csv:"designator"`
	Name        string `csv:"name"`
	Description string `csv:"description"`
	WTC         string `csv:"wtc"`
}

// Tables is read only once loaded.
type Tables struct {
	operators map[string]Operator
	types     map[string]AircraftType
}

// Load reads both tables. A missing file leaves its table empty.
func Load(logger log.Logger, cfg Config) (*Tables, error) {
	logger = log.With(logger, "component", "refdb")
	t := &Tables{}

	var ops []Operator
	if err := readCSVFile(logger, cfg.OperatorsFile, &ops); err != nil {
		return nil, err
	}
	var types []AircraftType
	if err := readCSVFile(logger, cfg.TypesFile, &types); err != nil {
		return nil, err
	}
	t.operators = indexOperators(ops)
	t.types = indexTypes(types)
	level.Info(logger).Log("msg", "reference tables loaded", "operators", len(t.operators), "types", len(t.types))
	return t, nil
}

func readCSVFile(logger log.Logger, path string, out interface{}) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		level.Info(logger).Log("msg", "reference file not found, lookups disabled", "file", path)
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	if err := readCSV(f, out); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func readCSV(r io.Reader, out interface{}) error {
	cr := csv.NewReader(utfbom.SkipOnly(r))
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return gocsv.UnmarshalCSV(cr, out)
}

func indexOperators(ops []Operator) map[string]Operator {
	m := make(map[string]Operator, len(ops))
	for _, o := range ops {
		code := strings.ToUpper(strings.TrimSpace(o.Code))
		if code != "" {
			m[code] = o
		}
	}
	return m
}

func indexTypes(types []AircraftType) map[string]AircraftType {
	m := make(map[string]AircraftType, len(types))
	for _, t := range types {
		d := strings.ToUpper(strings.TrimSpace(t.Designator))
		if d != "" {
			m[d] = t
		}
	}
	return m
}

// NewTables builds tables from records already in memory.
func NewTables(ops []Operator, types []AircraftType) *Tables {
	return &Tables{operators: indexOperators(ops), types: indexTypes(types)}
}

func (t *Tables) Operator(code string) (Operator, bool) {
	if t == nil {
		return Operator{}, false
	}
	o, ok := t.operators[strings.ToUpper(code)]
	return o, ok
}

func (t *Tables) Type(designator string) (AircraftType, bool) {
	if t == nil {
		return AircraftType{}, false
	}
	a, ok := t.types[strings.ToUpper(designator)]
	return a, ok
}
