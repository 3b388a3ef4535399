package refdb

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slim-bean/airdash/pkg/model"
)

const operatorsCSV = "\xef\xbb\xbfcode,name,country,callsign\n" +
	"DAL,Delta Air Lines,United States,DELTA\n" +
	"BAW,British Airways,United Kingdom,SPEEDBIRD\n" +
	"AFR,\"Air France\",France,AIRFRANS\n"

const typesCSV = "designator,name,description,wtc\n" +
	"B738,Boeing 737-800,L2J,M\n" +
	"A388,Airbus A380-800,L4J,H\n"

type fakeAircraft map[string]*model.Details

func (f fakeAircraft) Lookup(hex string) *model.Details {
	return f[strings.ToLower(hex)]
}

func str(s string) *string { return &s }

func writeFile(t *testing.T, dir, name, content string) string {
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	tables, err := Load(log.NewNopLogger(), Config{
		OperatorsFile: writeFile(t, dir, "operators.csv", operatorsCSV),
		TypesFile:     writeFile(t, dir, "types.csv", typesCSV),
	})
	require.NoError(t, err)

	o, ok := tables.Operator("DAL")
	require.True(t, ok)
	assert.Equal(t, Operator{Code: "DAL", Name: "Delta Air Lines", Country: "United States", Callsign: "DELTA"}, o)
	o, ok = tables.Operator("afr")
	require.True(t, ok)
	assert.Equal(t, "Air France", o.Name)

	ty, ok := tables.Type("b738")
	require.True(t, ok)
	assert.Equal(t, "M", ty.WTC)

	_, ok = tables.Type("ZZZZ")
	assert.False(t, ok)
}

func TestLoadMissingFiles(t *testing.T) {
	tables, err := Load(log.NewNopLogger(), Config{
		OperatorsFile: filepath.Join(t.TempDir(), "nope.csv"),
	})
	require.NoError(t, err)
	_, ok := tables.Operator("DAL")
	assert.False(t, ok)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(log.NewNopLogger(), Config{
		OperatorsFile: writeFile(t, dir, "operators.csv", "code,name\nDAL,Delta,extra,columns,here\n"),
	})
	assert.Error(t, err)
}

func TestEnrich(t *testing.T) {
	ref := NewReference(fakeAircraft{
		"a12345": {Registration: str("N123DL"), TypeCode: str("B738"), Owner: str("DELTA AIR LINES INC")},
	}, NewTables(
		[]Operator{{Code: "DAL", Name: "Delta Air Lines", Country: "United States"}},
		[]AircraftType{{Designator: "B738", Name: "Boeing 737-800", Description: "L2J", WTC: "M"}},
	))

	a := &model.AircraftData{Flight: "DAL42"}
	ref.Enrich("A12345", a)
	assert.Equal(t, &model.AircraftData{
		Flight:         "DAL42",
		TailNumber:     "N123DL",
		TypeDesignator: "B738",
		TypeCode:       "L2J",
		TypeName:       "Boeing 737-800",
		TypeWTC:        "M",
		Operator:       "Delta Air Lines",
		CountryName:    "United States",
		Owner:          "DELTA AIR LINES INC",
	}, a)

	// Misses blank previously enriched fields.
	a.Flight = "N123DL"
	ref.Enrich("FFFFFF", a)
	assert.Equal(t, &model.AircraftData{Flight: "N123DL"}, a)
}

func TestEnrichWithoutReference(t *testing.T) {
	var ref *Reference
	a := &model.AircraftData{Flight: "DAL42", Operator: "stale"}
	ref.Enrich("A12345", a)
	assert.Equal(t, "", a.Operator)

	NewReference(nil, nil).Enrich("A12345", a)
	assert.Equal(t, "", a.TailNumber)
}
