package ais

import (
	"strconv"
	"strings"
	"time"

	"github.com/slim-bean/airdash/pkg/model"
)

// Merge folds msg into the previous record for the vessel and returns the result.
// existing is never modified. Unsupported message types return existing unchanged.
// The merged record is validated and a violation is returned as ErrSchema.
func Merge(msg Message, existing *model.VesselData, now time.Time) (*model.VesselData, error) {
	var out *model.VesselData
	switch {
	case msg.IsPositionReport() && msg.Position != nil:
		out = prepare(msg, existing)
		mergePosition(out, msg.Position)
	case msg.Type == 5 && msg.Static != nil:
		out = prepare(msg, existing)
		mergeStatic(out, msg.Static, now)
	default:
		return existing, nil
	}
	if err := Validate(out); err != nil {
		return nil, err
	}
	return out, nil
}

func prepare(msg Message, existing *model.VesselData) *model.VesselData {
	out := existing.Clone()
	if out == nil {
		out = &model.VesselData{}
	}
	out.MMSI = strconv.FormatUint(uint64(msg.MMSI), 10)
	return out
}

func mergePosition(out *model.VesselData, p *Position) {
	if p.Lat != nil && p.Lon != nil && !(*p.Lat == 0 && *p.Lon == 0) {
		lat, lon := *p.Lat, *p.Lon
		out.Lat, out.Lon = &lat, &lon
	}
	if ns := model.NavigationalStatus(p.NavigationalStatus); ns.Known() {
		out.NavigationalStatus = &ns
	}
	if p.RateOfTurn != nil {
		out.RateOfTurn = copyFloat(p.RateOfTurn)
	}
	if p.SpeedOverGround != nil {
		out.SpeedOverGround = copyFloat(p.SpeedOverGround)
	}
	if p.CourseOverGround != nil {
		out.CourseOverGround = copyFloat(p.CourseOverGround)
	}
	if p.Heading != nil {
		h := *p.Heading
		out.Heading = &h
	}
	if p.SpecialManoeuvre == 2 {
		yes := true
		out.SpecialManeuver = &yes
	}
}

func mergeStatic(out *model.VesselData, s *Static, now time.Time) {
	if s.IMONumber != 0 {
		imo := s.IMONumber
		out.IMONumber = &imo
	}
	if v := trimPad(s.Callsign); v != "" {
		out.Callsign = v
	}
	if v := trimPad(s.Name); v != "" {
		out.Name = v
	}
	if v := trimPad(s.Destination); v != "" {
		out.Destination = v
	}
	if st := model.ShipType(s.ShipType); st.Known() {
		out.ShipType = &st
	}
	if eta, ok := s.ETA.Time(now.Year()); ok {
		out.ETA = &eta
	}
	if s.Draught > 0 {
		d := s.Draught
		out.Draught = &d
	}
}

// Time assembles the ETA in the given year, UTC. Sentinel or out of range
// components, and dates that do not exist in that year, are rejected.
func (e ETA) Time(year int) (time.Time, bool) {
	if e.Month < 1 || e.Month > 12 || e.Day < 1 || e.Day > 31 ||
		e.Hour < 0 || e.Hour > 23 || e.Minute < 0 || e.Minute > 59 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(e.Month), e.Day, e.Hour, e.Minute, 0, 0, time.UTC)
	if t.Day() != e.Day || int(t.Month()) != e.Month {
		return time.Time{}, false
	}
	return t, true
}

// trimPad strips the '@' padding of six-bit text fields and surrounding blanks.
func trimPad(s string) string {
	if i := strings.IndexByte(s, '@'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func copyFloat(f *float64) *float64 {
	v := *f
	return &v
}
