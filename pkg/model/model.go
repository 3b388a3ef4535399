package model

// Details is the reference information known about an airframe, keyed by ICAO hex.
type Details struct {
	Registration *string `json:"registration,omitempty"`
	TypeCode     *string `json:"type_code,omitempty"`
	Military     *bool   `json:"military,omitempty"`
	Interesting  *bool   `json:"interesting,omitempty"`
	PIA          *bool   `json:"pia,omitempty"`
	LADD         *bool   `json:"ladd,omitempty"`
	Description  *string `json:"description,omitempty"`
	Manufactured *string `json:"manufactured,omitempty"`
	Owner        *string `json:"owner,omitempty"`
}

type EntityType string

const (
	EntityTypeVessel   EntityType = "VESSEL"
	EntityTypeAircraft EntityType = "AIRCRAFT"
)

func (t EntityType) Valid() bool {
	return t == EntityTypeVessel || t == EntityTypeAircraft
}

// Key namespaces an entity id by its type, an MMSI and an ICAO address may collide.
type Key struct {
	Type EntityType
	ID   string
}

func (k Key) String() string {
	return string(k.Type) + ":" + k.ID
}

type TrackPoint struct {
	TimestampMillis int64    `json:"timestampMillis"`
	Lat             float64  `json:"lat"`
	Lon             float64  `json:"lon"`
	Speed           *float64 `json:"speed,omitempty"`
	Altitude        *float64 `json:"altitude,omitempty"`
}

// Entity is the protocol agnostic record of one tracked object.
type Entity struct {
	ID                  string        `json:"id"`
	Type                EntityType    `json:"type"`
	Lat                 float64       `json:"lat"`
	Lon                 float64       `json:"lon"`
	LastUpdatedAtMillis int64         `json:"lastUpdatedAtMillis"`
	Vessel              *VesselData   `json:"vessel,omitempty"`
	Aircraft            *AircraftData `json:"aircraft,omitempty"`
	Track               []TrackPoint  `json:"track"`
}

func (e Entity) Key() Key {
	return Key{Type: e.Type, ID: e.ID}
}

// HasPosition reports whether the entity carries a real fix. 0,0 means unknown.
func (e Entity) HasPosition() bool {
	return !(e.Lat == 0 && e.Lon == 0)
}

// Clone copies the track so the result can be handed to readers outside the cache lock.
// Protocol payloads are never mutated in place once stored and are shared.
func (e Entity) Clone() Entity {
	if e.Track != nil {
		t := make([]TrackPoint, len(e.Track))
		copy(t, e.Track)
		e.Track = t
	}
	return e
}

// TrackSample returns the speed and altitude to record alongside a track point.
func (e Entity) TrackSample() (speed, altitude *float64) {
	switch {
	case e.Vessel != nil:
		return e.Vessel.SpeedOverGround, nil
	case e.Aircraft != nil:
		if e.Aircraft.AltitudeBaro != nil {
			alt := float64(*e.Aircraft.AltitudeBaro)
			altitude = &alt
		}
		return e.Aircraft.GroundSpeed, altitude
	}
	return nil, nil
}
