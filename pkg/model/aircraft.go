package model

// AircraftData is the ADS-B payload of an aircraft entity, plus reference enrichment.
type AircraftData struct {
	Flight       string   `json:"flight,omitempty"`
	Squawk       string   `json:"squawk,omitempty"`
	Category     string   `json:"category,omitempty"`
	Emergency    string   `json:"emergency,omitempty"`
	AltitudeBaro *int     `json:"altBaro,omitempty"`
	OnGround     bool     `json:"onGround,omitempty"`
	AltitudeGeom *int     `json:"altGeom,omitempty"`
	VerticalRate *int     `json:"baroRate,omitempty"`
	GroundSpeed  *float64 `json:"gs,omitempty"`
	Track        *float64 `json:"track,omitempty"`
	RSSI         *float64 `json:"rssi,omitempty"`
	Messages     uint64   `json:"messages,omitempty"`

	TailNumber     string `json:"tailNumber,omitempty"`
	TypeDesignator string `json:"typeDesignator,omitempty"`
	TypeCode       string `json:"typeCode,omitempty"`
	TypeName       string `json:"typeName,omitempty"`
	TypeWTC        string `json:"typeWtc,omitempty"`
	Operator       string `json:"operator,omitempty"`
	CountryName    string `json:"countryName,omitempty"`
	Owner          string `json:"owner,omitempty"`
}

func (a *AircraftData) Clone() *AircraftData {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}
