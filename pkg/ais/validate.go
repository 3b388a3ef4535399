package ais

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/slim-bean/airdash/pkg/model"
)

// ErrSchema marks a merged vessel record that violates the vessel schema.
var ErrSchema = errors.New("vessel record violates schema")

func Validate(v *model.VesselData) error {
	if v == nil {
		return fmt.Errorf("%w: nil record", ErrSchema)
	}
	if _, err := strconv.ParseUint(v.MMSI, 10, 32); err != nil || v.MMSI == "0" {
		return fmt.Errorf("%w: mmsi %q", ErrSchema, v.MMSI)
	}
	if (v.Lat == nil) != (v.Lon == nil) {
		return fmt.Errorf("%w: partial position", ErrSchema)
	}
	if v.Lat != nil && (*v.Lat < -90 || *v.Lat > 90) {
		return fmt.Errorf("%w: latitude %v", ErrSchema, *v.Lat)
	}
	if v.Lon != nil && (*v.Lon < -180 || *v.Lon > 180) {
		return fmt.Errorf("%w: longitude %v", ErrSchema, *v.Lon)
	}
	if v.SpeedOverGround != nil && (*v.SpeedOverGround < 0 || *v.SpeedOverGround > 102.2) {
		return fmt.Errorf("%w: speed over ground %v", ErrSchema, *v.SpeedOverGround)
	}
	if v.CourseOverGround != nil && (*v.CourseOverGround < 0 || *v.CourseOverGround >= 360) {
		return fmt.Errorf("%w: course over ground %v", ErrSchema, *v.CourseOverGround)
	}
	if v.Heading != nil && (*v.Heading < 0 || *v.Heading > 359) {
		return fmt.Errorf("%w: heading %d", ErrSchema, *v.Heading)
	}
	if v.NavigationalStatus != nil && !v.NavigationalStatus.Known() {
		return fmt.Errorf("%w: navigational status %d", ErrSchema, int(*v.NavigationalStatus))
	}
	if v.ShipType != nil && !v.ShipType.Known() {
		return fmt.Errorf("%w: ship type %d", ErrSchema, int(*v.ShipType))
	}
	if v.Draught != nil && *v.Draught <= 0 {
		return fmt.Errorf("%w: draught %v", ErrSchema, *v.Draught)
	}
	return nil
}
