package ais

import (
	"fmt"
	"math"
	"strings"

	goais "github.com/BertoldVdb/go-ais"
	"github.com/BertoldVdb/go-ais/aisnmea"
)

// Decoder turns one raw NMEA line into a Message. A nil Message with a nil error means
// the line carried nothing to emit yet, a fragment of a multipart sentence for example.
type Decoder interface {
	Decode(line string) (*Message, error)
}

// NMEADecoder reassembles multipart sentences, so each stream needs its own instance.
type NMEADecoder struct {
	nmea *aisnmea.NMEACodec
}

func NewNMEADecoder() *NMEADecoder {
	return &NMEADecoder{
		nmea: aisnmea.NMEACodecNew(goais.CodecNew(false, false)),
	}
}

func (d *NMEADecoder) Decode(line string) (*Message, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	if line[0] != '!' && line[0] != '$' {
		return nil, fmt.Errorf("not an NMEA sentence: %q", line)
	}
	pkt, err := d.nmea.ParseSentence(line)
	if err != nil {
		return nil, fmt.Errorf("parse sentence: %w", err)
	}
	if pkt == nil || pkt.Packet == nil {
		return nil, nil
	}

	switch p := any(pkt.Packet).(type) {
	case goais.PositionReport:
		return fromPositionReport(p), nil
	case *goais.PositionReport:
		return fromPositionReport(*p), nil
	case goais.ShipStaticData:
		return fromShipStaticData(p), nil
	case *goais.ShipStaticData:
		return fromShipStaticData(*p), nil
	case interface{ GetHeader() *goais.Header }:
		h := p.GetHeader()
		return &Message{Type: int(h.MessageID), MMSI: h.UserID}, nil
	}
	return nil, nil
}

func fromPositionReport(p goais.PositionReport) *Message {
	pos := &Position{
		NavigationalStatus: int(p.NavigationalStatus),
		SpecialManoeuvre:   int(p.SpecialManoeuvreIndicator),
	}
	if lat := float64(p.Latitude); lat >= -90 && lat <= 90 {
		pos.Lat = &lat
	}
	if lon := float64(p.Longitude); lon >= -180 && lon <= 180 {
		pos.Lon = &lon
	}
	if p.RateOfTurn != -128 {
		rot := rateOfTurn(int(p.RateOfTurn))
		pos.RateOfTurn = &rot
	}
	if sog := float64(p.Sog); sog < 102.25 {
		pos.SpeedOverGround = &sog
	}
	if cog := float64(p.Cog); cog < 360 {
		pos.CourseOverGround = &cog
	}
	if p.TrueHeading < 360 {
		h := int(p.TrueHeading)
		pos.Heading = &h
	}
	return &Message{
		Type:     int(p.Header.MessageID),
		MMSI:     p.Header.UserID,
		Position: pos,
	}
}

func fromShipStaticData(p goais.ShipStaticData) *Message {
	return &Message{
		Type: int(p.Header.MessageID),
		MMSI: p.Header.UserID,
		Static: &Static{
			IMONumber: p.ImoNumber,
			Callsign:  p.CallSign,
			Name:      p.Name,
			ShipType:  int(p.Type),
			ETA: ETA{
				Month:  int(p.Eta.Month),
				Day:    int(p.Eta.Day),
				Hour:   int(p.Eta.Hour),
				Minute: int(p.Eta.Minute),
			},
			Draught:     float64(p.MaximumStaticDraught),
			Destination: p.Destination,
		},
	}
}

// rateOfTurn converts the encoded ROT indicator to degrees per minute.
func rateOfTurn(raw int) float64 {
	v := float64(raw) / 4.733
	v = v * v
	if raw < 0 {
		v = -v
	}
	return math.Round(v*10) / 10
}
