package refdb

import (
	"regexp"

	"github.com/slim-bean/airdash/pkg/model"
)

var operatorPrefix = regexp.MustCompile(`^[A-Z]{3}`)

// AircraftLookup finds airframe details by ICAO hex.
type AircraftLookup interface {
	Lookup(hex string) *model.Details
}

// Reference combines the airframe database with the operator and type tables.
type Reference struct {
	aircraft AircraftLookup
	tables   *Tables
}

// NewReference accepts a nil aircraft lookup or nil tables.
func NewReference(aircraft AircraftLookup, tables *Tables) *Reference {
	return &Reference{aircraft: aircraft, tables: tables}
}

// Enrich fills the reference fields of a for hex. Every field is recomputed, misses blank it.
func (r *Reference) Enrich(hex string, a *model.AircraftData) {
	a.TailNumber, a.TypeDesignator, a.Owner = "", "", ""
	a.TypeName, a.TypeCode, a.TypeWTC = "", "", ""
	a.Operator, a.CountryName = "", ""
	if r == nil {
		return
	}

	if r.aircraft != nil {
		if d := r.aircraft.Lookup(hex); d != nil {
			a.TailNumber = deref(d.Registration)
			a.TypeDesignator = deref(d.TypeCode)
			a.Owner = deref(d.Owner)
		}
	}
	if t, ok := r.tables.Type(a.TypeDesignator); ok && a.TypeDesignator != "" {
		a.TypeName = t.Name
		a.TypeCode = t.Description
		a.TypeWTC = t.WTC
	}
	if code := operatorPrefix.FindString(a.Flight); code != "" {
		if o, ok := r.tables.Operator(code); ok {
			a.Operator = o.Name
			a.CountryName = o.Country
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
