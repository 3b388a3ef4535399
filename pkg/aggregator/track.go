package aggregator

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/slim-bean/airdash/pkg/model"
)

// Distance returns the great-circle distance in meters between two positions.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// deriveTrack appends the position of e to track when it is the first point or at
// least minDistance meters from the last one, then keeps the newest maxLen points.
// Timestamps never go backwards.
func deriveTrack(track []model.TrackPoint, e model.Entity, minDistance float64, maxLen int) []model.TrackPoint {
	if e.HasPosition() {
		ts := e.LastUpdatedAtMillis
		appendPoint := true
		if n := len(track); n > 0 {
			last := track[n-1]
			if ts < last.TimestampMillis {
				ts = last.TimestampMillis
			}
			appendPoint = Distance(last.Lat, last.Lon, e.Lat, e.Lon) >= minDistance
		}
		if appendPoint {
			speed, alt := e.TrackSample()
			track = append(track, model.TrackPoint{
				TimestampMillis: ts,
				Lat:             e.Lat,
				Lon:             e.Lon,
				Speed:           speed,
				Altitude:        alt,
			})
		}
	}
	if maxLen > 0 && len(track) > maxLen {
		kept := make([]model.TrackPoint, maxLen)
		copy(kept, track[len(track)-maxLen:])
		track = kept
	}
	return track
}
