// Package readsb reads aircraft snapshots from readsb compatible HTTP backends.
package readsb

// AircraftsUpdate is one snapshot of every aircraft the receiver currently tracks.
type AircraftsUpdate struct {
	Now      uint64
	Messages uint64
	Aircraft []AircraftMeta
}

// AircraftMeta is the state of one aircraft. Pointer fields are nil when the
// backend did not report them. Lat and Lon are 0 without a position fix.
type AircraftMeta struct {
	Addr      uint32
	Flight    string
	Squawk    string
	Category  string
	AltBaro   *int32
	OnGround  bool
	AltGeom   *int32
	BaroRate  *int32
	GS        *float64
	Track     *float64
	Lat       float64
	Lon       float64
	RSSI      *float64
	Messages  uint64
	Seen      float64
	Emergency string
}
