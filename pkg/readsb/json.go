package readsb

import (
	"fmt"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsonUpdate struct {
	Now      float64        `json:"now"`
	Messages uint64         `json:"messages"`
	Aircraft []jsonAircraft `json:"aircraft"`
}

type jsonAircraft struct {
	Hex       string              `json:"hex"`
	Flight    string              `json:"flight"`
	Squawk    string              `json:"squawk"`
	Category  string              `json:"category"`
	Emergency string              `json:"emergency"`
	AltBaro   jsoniter.RawMessage `json:"alt_baro"`
	AltGeom   *int32              `json:"alt_geom"`
	BaroRate  *int32              `json:"baro_rate"`
	GS        *float64            `json:"gs"`
	Track     *float64            `json:"track"`
	Lat       *float64            `json:"lat"`
	Lon       *float64            `json:"lon"`
	RSSI      *float64            `json:"rssi"`
	Messages  uint64              `json:"messages"`
	Seen      float64             `json:"seen"`
}

// DecodeAircraftJSON parses the aircraft.json document served by readsb and tar1090.
// Non-ICAO addresses, marked with a leading '~', are skipped.
func DecodeAircraftJSON(b []byte) (*AircraftsUpdate, error) {
	var doc jsonUpdate
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("aircraft json: %w", err)
	}

	u := &AircraftsUpdate{
		Now:      uint64(doc.Now),
		Messages: doc.Messages,
		Aircraft: make([]AircraftMeta, 0, len(doc.Aircraft)),
	}
	for _, ja := range doc.Aircraft {
		addr, err := strconv.ParseUint(strings.TrimSpace(ja.Hex), 16, 24)
		if err != nil {
			continue
		}
		a := AircraftMeta{
			Addr:     uint32(addr),
			Flight:   ja.Flight,
			Squawk:   ja.Squawk,
			Category: ja.Category,
			AltGeom:  ja.AltGeom,
			BaroRate: ja.BaroRate,
			GS:       ja.GS,
			Track:    ja.Track,
			RSSI:     ja.RSSI,
			Messages: ja.Messages,
			Seen:     ja.Seen,
		}
		if ja.Emergency != "none" {
			a.Emergency = ja.Emergency
		}
		if ja.Lat != nil && ja.Lon != nil {
			a.Lat, a.Lon = *ja.Lat, *ja.Lon
		}
		if len(ja.AltBaro) > 0 {
			var alt int32
			if string(ja.AltBaro) == `"ground"` {
				a.OnGround = true
			} else if err := json.Unmarshal(ja.AltBaro, &alt); err == nil {
				a.AltBaro = &alt
			}
		}
		u.Aircraft = append(u.Aircraft, a)
	}
	return u, nil
}
