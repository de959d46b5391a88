package usecase

import (
	"sync"
	"time"

	"hospital-booking/internal/domain/entity"
)

// HospitalClock reads "now" and civil dates in a hospital's own timezone.
// Unknown or empty zone names fall back to the configured operating zone.
type HospitalClock struct {
	fallback *time.Location
	now      func() time.Time
	zones    sync.Map // map[string]*time.Location
}

func NewHospitalClock(fallback *time.Location, now func() time.Time) *HospitalClock {
	if fallback == nil {
		fallback = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &HospitalClock{fallback: fallback, now: now}
}

// Location resolves the timezone a hospital's slots are read in
func (c *HospitalClock) Location(hospital *entity.Hospital) *time.Location {
	if hospital == nil || hospital.Timezone == "" {
		return c.fallback
	}
	return c.LocationByName(hospital.Timezone)
}

func (c *HospitalClock) LocationByName(name string) *time.Location {
	if name == "" {
		return c.fallback
	}
	if loc, ok := c.zones.Load(name); ok {
		return loc.(*time.Location)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return c.fallback
	}
	c.zones.Store(name, loc)
	return loc
}

func (c *HospitalClock) Now() time.Time {
	return c.now()
}

// Today returns midnight of the current civil date in loc
func (c *HospitalClock) Today(loc *time.Location) time.Time {
	now := c.now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
}
