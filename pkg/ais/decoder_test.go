package ais

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slim-bean/airdash/pkg/model"
)

func TestNMEADecoderPositionReport(t *testing.T) {
	d := NewNMEADecoder()
	msg, err := d.Decode("!AIVDM,1,1,,B,177KQJ5000G?tO`K>RA1wUbN0TKH,0*5C\r\n")
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.NotNil(t, msg.Position)

	assert.Equal(t, 1, msg.Type)
	assert.Equal(t, uint32(477553000), msg.MMSI)
	require.NotNil(t, msg.Position.Lat)
	require.NotNil(t, msg.Position.Lon)
	assert.InDelta(t, 47.582833, *msg.Position.Lat, 1e-4)
	assert.InDelta(t, -122.345833, *msg.Position.Lon, 1e-4)
	assert.Equal(t, 5, msg.Position.NavigationalStatus)

	v, err := Merge(*msg, nil, now)
	require.NoError(t, err)
	assert.Equal(t, "477553000", v.MMSI)
	assert.Equal(t, model.NavStatusMoored, *v.NavigationalStatus)
}

func TestNMEADecoderRejectsGarbage(t *testing.T) {
	d := NewNMEADecoder()

	msg, err := d.Decode("   ")
	assert.NoError(t, err)
	assert.Nil(t, msg)

	_, err = d.Decode("hello world")
	assert.Error(t, err)
}

func TestRateOfTurn(t *testing.T) {
	assert.Equal(t, 0.0, rateOfTurn(0))
	assert.Equal(t, 720.0, rateOfTurn(127))
	assert.Equal(t, -720.0, rateOfTurn(-127))
}
