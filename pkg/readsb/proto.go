package readsb

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the readsb AircraftsUpdate message.
const (
	updateNow      protowire.Number = 1
	updateMessages protowire.Number = 2
	updateAircraft protowire.Number = 3
)

// Field numbers of the readsb AircraftMeta message.
const (
	metaAddr      protowire.Number = 1
	metaFlight    protowire.Number = 2
	metaSquawk    protowire.Number = 3
	metaCategory  protowire.Number = 4
	metaAltBaro   protowire.Number = 5
	metaAltGeom   protowire.Number = 6
	metaBaroRate  protowire.Number = 7
	metaGS        protowire.Number = 8
	metaTrack     protowire.Number = 9
	metaLat       protowire.Number = 10
	metaLon       protowire.Number = 11
	metaRSSI      protowire.Number = 12
	metaMessages  protowire.Number = 13
	metaSeen      protowire.Number = 14
	metaEmergency protowire.Number = 15
)

var errWireType = errors.New("unexpected wire type")

// DecodeAircraftsUpdate parses the protobuf body served at radar/data/aircraft.pb.
// Unknown fields are skipped.
func DecodeAircraftsUpdate(b []byte) (*AircraftsUpdate, error) {
	u := &AircraftsUpdate{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("aircrafts update: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == updateNow && typ == protowire.VarintType:
			u.Now, n = protowire.ConsumeVarint(b)
		case num == updateMessages && typ == protowire.VarintType:
			u.Messages, n = protowire.ConsumeVarint(b)
		case num == updateAircraft && typ == protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			if n >= 0 {
				a, err := decodeAircraftMeta(v)
				if err != nil {
					return nil, err
				}
				u.Aircraft = append(u.Aircraft, a)
			}
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return nil, fmt.Errorf("aircrafts update field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return u, nil
}

func decodeAircraftMeta(b []byte) (AircraftMeta, error) {
	var a AircraftMeta
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return a, fmt.Errorf("aircraft meta: %w", protowire.ParseError(n))
		}
		b = b[n:]

		want, known := metaWireType(num)
		if !known {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return a, fmt.Errorf("aircraft meta field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}
		if typ != want {
			return a, fmt.Errorf("aircraft meta field %d: %w %d", num, errWireType, typ)
		}

		switch typ {
		case protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			if n >= 0 {
				a.setVarint(num, v)
			}
		case protowire.Fixed64Type:
			var v uint64
			v, n = protowire.ConsumeFixed64(b)
			if n >= 0 {
				a.setDouble(num, math.Float64frombits(v))
			}
		case protowire.Fixed32Type:
			var v uint32
			v, n = protowire.ConsumeFixed32(b)
			if n >= 0 {
				rssi := float64(math.Float32frombits(v))
				a.RSSI = &rssi
			}
		case protowire.BytesType:
			var v []byte
			v, n = protowire.ConsumeBytes(b)
			if n >= 0 {
				if num == metaFlight {
					a.Flight = string(v)
				} else {
					a.Emergency = string(v)
				}
			}
		}
		if n < 0 {
			return a, fmt.Errorf("aircraft meta field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]
	}
	return a, nil
}

func metaWireType(num protowire.Number) (protowire.Type, bool) {
	switch num {
	case metaAddr, metaSquawk, metaCategory, metaAltBaro, metaAltGeom, metaBaroRate, metaMessages:
		return protowire.VarintType, true
	case metaGS, metaTrack, metaLat, metaLon, metaSeen:
		return protowire.Fixed64Type, true
	case metaRSSI:
		return protowire.Fixed32Type, true
	case metaFlight, metaEmergency:
		return protowire.BytesType, true
	}
	return 0, false
}

func (a *AircraftMeta) setVarint(num protowire.Number, v uint64) {
	switch num {
	case metaAddr:
		a.Addr = uint32(v)
	case metaSquawk:
		// squawk is BCD coded, four octal digits read as hex
		a.Squawk = fmt.Sprintf("%04x", uint32(v))
	case metaCategory:
		if v != 0 {
			a.Category = fmt.Sprintf("%02X", uint32(v))
		}
	case metaAltBaro:
		alt := int32(v)
		a.AltBaro = &alt
	case metaAltGeom:
		alt := int32(v)
		a.AltGeom = &alt
	case metaBaroRate:
		rate := int32(v)
		a.BaroRate = &rate
	case metaMessages:
		a.Messages = v
	}
}

func (a *AircraftMeta) setDouble(num protowire.Number, v float64) {
	switch num {
	case metaGS:
		a.GS = &v
	case metaTrack:
		a.Track = &v
	case metaLat:
		a.Lat = v
	case metaLon:
		a.Lon = v
	case metaSeen:
		a.Seen = v
	}
}

// AppendAircraftsUpdate encodes u the way a readsb backend serves it.
func AppendAircraftsUpdate(b []byte, u *AircraftsUpdate) []byte {
	if u.Now != 0 {
		b = protowire.AppendTag(b, updateNow, protowire.VarintType)
		b = protowire.AppendVarint(b, u.Now)
	}
	if u.Messages != 0 {
		b = protowire.AppendTag(b, updateMessages, protowire.VarintType)
		b = protowire.AppendVarint(b, u.Messages)
	}
	for i := range u.Aircraft {
		b = protowire.AppendTag(b, updateAircraft, protowire.BytesType)
		b = protowire.AppendBytes(b, appendAircraftMeta(nil, &u.Aircraft[i]))
	}
	return b
}

func appendAircraftMeta(b []byte, a *AircraftMeta) []byte {
	varint := func(num protowire.Number, v uint64) {
		b = protowire.AppendTag(b, num, protowire.VarintType)
		b = protowire.AppendVarint(b, v)
	}
	double := func(num protowire.Number, v float64) {
		b = protowire.AppendTag(b, num, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	}
	str := func(num protowire.Number, s string) {
		b = protowire.AppendTag(b, num, protowire.BytesType)
		b = protowire.AppendString(b, s)
	}

	varint(metaAddr, uint64(a.Addr))
	if a.Flight != "" {
		str(metaFlight, a.Flight)
	}
	if sq, err := strconv.ParseUint(a.Squawk, 16, 32); err == nil {
		varint(metaSquawk, sq)
	}
	if cat, err := strconv.ParseUint(a.Category, 16, 32); err == nil {
		varint(metaCategory, cat)
	}
	if a.AltBaro != nil {
		varint(metaAltBaro, uint64(int64(*a.AltBaro)))
	}
	if a.AltGeom != nil {
		varint(metaAltGeom, uint64(int64(*a.AltGeom)))
	}
	if a.BaroRate != nil {
		varint(metaBaroRate, uint64(int64(*a.BaroRate)))
	}
	if a.GS != nil {
		double(metaGS, *a.GS)
	}
	if a.Track != nil {
		double(metaTrack, *a.Track)
	}
	if a.Lat != 0 || a.Lon != 0 {
		double(metaLat, a.Lat)
		double(metaLon, a.Lon)
	}
	if a.RSSI != nil {
		b = protowire.AppendTag(b, metaRSSI, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(float32(*a.RSSI)))
	}
	if a.Messages != 0 {
		varint(metaMessages, a.Messages)
	}
	if a.Seen != 0 {
		double(metaSeen, a.Seen)
	}
	if a.Emergency != "" {
		str(metaEmergency, a.Emergency)
	}
	return b
}
