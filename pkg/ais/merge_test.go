package ais

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slim-bean/airdash/pkg/model"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func TestMergeStaticTrimsPadding(t *testing.T) {
	msg := Message{Type: 5, MMSI: 353136000, Static: &Static{
		IMONumber:   9811000,
		Callsign:    "H3RC@@@",
		Name:        "EVER GIVEN@@",
		ShipType:    70,
		ETA:         ETA{Month: 3, Day: 29, Hour: 14, Minute: 30},
		Draught:     15.7,
		Destination: "NEW YORK@@@@@",
	}}

	v, err := Merge(msg, nil, now)
	require.NoError(t, err)
	assert.Equal(t, "353136000", v.MMSI)
	assert.Equal(t, "EVER GIVEN", v.Name)
	assert.Equal(t, "NEW YORK", v.Destination)
	assert.Equal(t, "H3RC", v.Callsign)
	require.NotNil(t, v.ETA)
	assert.Equal(t, time.Date(2024, 3, 29, 14, 30, 0, 0, time.UTC), *v.ETA)
	require.NotNil(t, v.ShipType)
	assert.Equal(t, "cargo", v.ShipType.String())
	assert.Equal(t, 15.7, *v.Draught)
}

func TestMergeUndefinedNavStatusKeepsExisting(t *testing.T) {
	underway := model.NavStatusUnderwayUsingEngine
	existing := &model.VesselData{MMSI: "244123000", NavigationalStatus: &underway}

	msg := Message{Type: 1, MMSI: 244123000, Position: &Position{
		Lat: f(52.1), Lon: f(4.2), NavigationalStatus: 15, SpeedOverGround: f(3.4),
	}}
	v, err := Merge(msg, existing, now)
	require.NoError(t, err)
	require.NotNil(t, v.NavigationalStatus)
	assert.Equal(t, model.NavStatusUnderwayUsingEngine, *v.NavigationalStatus)
	assert.Equal(t, 3.4, *v.SpeedOverGround)
}

func TestMergeSentinelsNeverErase(t *testing.T) {
	underway := model.NavStatusAtAnchor
	yes := true
	existing := &model.VesselData{
		MMSI:               "244123000",
		Lat:                f(52.1),
		Lon:                f(4.2),
		RateOfTurn:         f(2),
		SpeedOverGround:    f(0.3),
		CourseOverGround:   f(120.5),
		Heading:            i(118),
		NavigationalStatus: &underway,
		SpecialManeuver:    &yes,
		Name:               "ALBATROS",
		Destination:        "ROTTERDAM",
	}

	position := Message{Type: 3, MMSI: 244123000, Position: &Position{
		Lat: f(0), Lon: f(0), NavigationalStatus: 15, SpecialManoeuvre: 1,
	}}
	v, err := Merge(position, existing, now)
	require.NoError(t, err)
	assert.Equal(t, existing, v)

	static := Message{Type: 5, MMSI: 244123000, Static: &Static{
		Name: "@@@@@@@@", Destination: "", ETA: ETA{Hour: 24, Minute: 60},
	}}
	v, err = Merge(static, v, now)
	require.NoError(t, err)
	assert.Equal(t, existing, v)
}

func TestMergeDoesNotModifyExisting(t *testing.T) {
	existing := &model.VesselData{MMSI: "244123000", Lat: f(52.1), Lon: f(4.2)}
	msg := Message{Type: 1, MMSI: 244123000, Position: &Position{Lat: f(52.2), Lon: f(4.3), NavigationalStatus: 15}}

	v, err := Merge(msg, existing, now)
	require.NoError(t, err)
	assert.Equal(t, 52.2, *v.Lat)
	assert.Equal(t, 52.1, *existing.Lat)
}

func TestMergeSpecialManoeuvre(t *testing.T) {
	for _, tc := range []struct {
		indicator int
		want      *bool
	}{
		{0, nil},
		{1, nil},
		{2, func() *bool { b := true; return &b }()},
	} {
		msg := Message{Type: 1, MMSI: 1, Position: &Position{NavigationalStatus: 15, SpecialManoeuvre: tc.indicator}}
		v, err := Merge(msg, nil, now)
		require.NoError(t, err)
		assert.Equal(t, tc.want, v.SpecialManeuver, "indicator %d", tc.indicator)
	}
}

func TestMergeUnsupportedTypePassesThrough(t *testing.T) {
	existing := &model.VesselData{MMSI: "244123000", Name: "ALBATROS"}
	v, err := Merge(Message{Type: 18, MMSI: 244123000}, existing, now)
	require.NoError(t, err)
	assert.Same(t, existing, v)

	v, err = Merge(Message{Type: 21, MMSI: 1}, nil, now)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMergeSchemaViolation(t *testing.T) {
	msg := Message{Type: 1, MMSI: 244123000, Position: &Position{NavigationalStatus: 0, Heading: i(400)}}
	_, err := Merge(msg, nil, now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))

	_, err = Merge(Message{Type: 1, MMSI: 0, Position: &Position{NavigationalStatus: 15}}, nil, now)
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestETATime(t *testing.T) {
	for _, tc := range []struct {
		name string
		eta  ETA
		ok   bool
	}{
		{"valid", ETA{Month: 12, Day: 31, Hour: 23, Minute: 59}, true},
		{"not available", ETA{Month: 0, Day: 0, Hour: 24, Minute: 60}, false},
		{"hour sentinel", ETA{Month: 5, Day: 4, Hour: 24, Minute: 0}, false},
		{"nonexistent date", ETA{Month: 2, Day: 30, Hour: 1, Minute: 0}, false},
		{"leap day", ETA{Month: 2, Day: 29, Hour: 1, Minute: 0}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tc.eta.Time(2024)
			assert.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, 2024, got.Year())
				assert.Equal(t, time.UTC, got.Location())
			}
		})
	}
}
