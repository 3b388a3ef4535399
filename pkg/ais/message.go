// Package ais turns NMEA AIS sentences into vessel records.
package ais

// Message is one decoded AIS message. Unknown values are nil, or zero for counters and strings.
type Message struct {
	Type     int
	MMSI     uint32
	Position *Position
	Static   *Static
}

// Position carries the fields of message types 1, 2 and 3.
type Position struct {
	Lat                *float64
	Lon                *float64
	NavigationalStatus int
	RateOfTurn         *float64
	SpeedOverGround    *float64
	CourseOverGround   *float64
	Heading            *int
	// SpecialManoeuvre is 0 not available, 1 not engaged, 2 engaged.
	SpecialManoeuvre int
}

// Static carries the fields of message type 5.
type Static struct {
	IMONumber   uint32
	Callsign    string
	Name        string
	ShipType    int
	ETA         ETA
	Draught     float64
	Destination string
}

type ETA struct {
	Month  int
	Day    int
	Hour   int
	Minute int
}

func (m Message) IsPositionReport() bool {
	return m.Type >= 1 && m.Type <= 3
}
