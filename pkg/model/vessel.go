package model

import (
	"fmt"
	"time"
)

// VesselData is the AIS payload of a vessel entity. Nil and empty fields are unknown.
type VesselData struct {
	MMSI               string              `json:"mmsi"`
	Lat                *float64            `json:"lat,omitempty"`
	Lon                *float64            `json:"lon,omitempty"`
	RateOfTurn         *float64            `json:"rateOfTurn,omitempty"`
	SpeedOverGround    *float64            `json:"speedOverGround,omitempty"`
	CourseOverGround   *float64            `json:"courseOverGround,omitempty"`
	Heading            *int                `json:"heading,omitempty"`
	NavigationalStatus *NavigationalStatus `json:"navigationalStatus,omitempty"`
	SpecialManeuver    *bool               `json:"specialManeuver,omitempty"`
	IMONumber          *uint32             `json:"imoNumber,omitempty"`
	Callsign           string              `json:"callsign,omitempty"`
	Name               string              `json:"name,omitempty"`
	ShipType           *ShipType           `json:"shipType,omitempty"`
	ETA                *time.Time          `json:"etaUtc,omitempty"`
	Draught            *float64            `json:"draught,omitempty"`
	Destination        string              `json:"destination,omitempty"`
}

// Clone returns a shallow copy. Pointer fields are replaced, never written through.
func (v *VesselData) Clone() *VesselData {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

type NavigationalStatus int

const (
	NavStatusUnderwayUsingEngine NavigationalStatus = iota
	NavStatusAtAnchor
	NavStatusNotUnderCommand
	NavStatusRestrictedManoeuverability
	NavStatusConstrainedByDraught
	NavStatusMoored
	NavStatusAground
	NavStatusEngagedInFishing
	NavStatusUnderwaySailing
	NavStatusReservedHSC
	NavStatusReservedWIG
	NavStatusPowerDrivenTowingAstern
	NavStatusPowerDrivenPushingAhead
	NavStatusReserved13
	NavStatusAISSARTActive
	NavStatusUndefined
)

var navStatusNames = map[NavigationalStatus]string{
	NavStatusUnderwayUsingEngine:        "underway using engine",
	NavStatusAtAnchor:                   "at anchor",
	NavStatusNotUnderCommand:            "not under command",
	NavStatusRestrictedManoeuverability: "restricted manoeuverability",
	NavStatusConstrainedByDraught:       "constrained by her draught",
	NavStatusMoored:                     "moored",
	NavStatusAground:                    "aground",
	NavStatusEngagedInFishing:           "engaged in fishing",
	NavStatusUnderwaySailing:            "underway sailing",
	NavStatusReservedHSC:                "reserved (HSC)",
	NavStatusReservedWIG:                "reserved (WIG)",
	NavStatusPowerDrivenTowingAstern:    "power-driven vessel towing astern",
	NavStatusPowerDrivenPushingAhead:    "power-driven vessel pushing ahead",
	NavStatusReserved13:                 "reserved",
	NavStatusAISSARTActive:              "AIS-SART active",
	NavStatusUndefined:                  "undefined",
}

// Known reports whether s is a defined status. Undefined (15) is a sentinel and not known.
func (s NavigationalStatus) Known() bool {
	_, ok := navStatusNames[s]
	return ok && s != NavStatusUndefined
}

func (s NavigationalStatus) String() string {
	if n, ok := navStatusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("NavigationalStatus(%d)", int(s))
}

// ShipType is the AIS "type of ship and cargo" code.
type ShipType int

var shipTypeNames = map[int]string{
	2: "wing in ground",
	3: "special",
	4: "high speed craft",
	5: "special",
	6: "passenger",
	7: "cargo",
	8: "tanker",
	9: "other",
}

var specialShipTypes = map[ShipType]string{
	30: "fishing",
	31: "towing",
	32: "towing, large",
	33: "dredging or underwater ops",
	34: "diving ops",
	35: "military ops",
	36: "sailing",
	37: "pleasure craft",
	50: "pilot vessel",
	51: "search and rescue vessel",
	52: "tug",
	53: "port tender",
	54: "anti-pollution equipment",
	55: "law enforcement",
	58: "medical transport",
	59: "noncombatant ship",
}

// Known reports whether t is a defined ship type. 0 is "not available" and 1-19 are reserved.
func (t ShipType) Known() bool {
	return t >= 20 && t <= 99
}

func (t ShipType) String() string {
	if n, ok := specialShipTypes[t]; ok {
		return n
	}
	if t.Known() {
		return shipTypeNames[int(t)/10]
	}
	return fmt.Sprintf("ShipType(%d)", int(t))
}
