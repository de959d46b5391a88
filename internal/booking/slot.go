package booking

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"

	displayClockLayout = "3:04 PM"
)

// RawSlot is one slot descriptor as served by the availability endpoint.
type RawSlot struct {
	Date         string `json:"date"`
	Start        string `json:"start"`
	End          string `json:"end"`
	Available    bool   `json:"available"`
	MaxCapacity  int    `json:"maxCapacity"`
	PatientCount int    `json:"patientCount"`
}

// DoctorAvailability holds a doctor's raw slots keyed by relative day ("today", "tomorrow").
type DoctorAvailability struct {
	DoctorID uuid.UUID            `json:"doctorId"`
	Days     map[string][]RawSlot `json:"days"`
}

// Slot is a normalized bookable window for a doctor on a date.
type Slot struct {
	Date         string    `json:"date"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	DisplayLabel string    `json:"displayLabel"`
	IsAvailable  bool      `json:"isAvailable"`
	MaxCapacity  int       `json:"maxCapacity"`
	BookedCount  int       `json:"bookedCount"`
	Identity     string    `json:"identity"`
	DateTime     time.Time `json:"-"`
}

// SlotIdentity returns the stable key of a slot within one fetch.
func SlotIdentity(date, start string) string {
	return date + "_" + start
}

// Normalize flattens raw availability into slots ordered by date and start time.
// Entries whose date or time cannot be parsed are skipped, and a repeated
// date+start keeps its first occurrence.
func Normalize(av DoctorAvailability) []Slot {
	if len(av.Days) == 0 {
		return []Slot{}
	}

	keys := make([]string, 0, len(av.Days))
	for k := range av.Days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]struct{})
	slots := make([]Slot, 0)
	for _, k := range keys {
		for _, raw := range av.Days[k] {
			slot, ok := normalizeSlot(raw)
			if !ok {
				continue
			}
			if _, dup := seen[slot.Identity]; dup {
				continue
			}
			seen[slot.Identity] = struct{}{}
			slots = append(slots, slot)
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].DateTime.Before(slots[j].DateTime)
	})
	return slots
}

func normalizeSlot(raw RawSlot) (Slot, bool) {
	// Civil date and time only; zone is applied by the grouper.
	start, err := time.Parse(DateLayout+" "+ClockLayout, raw.Date+" "+raw.Start)
	if err != nil {
		return Slot{}, false
	}
	end, err := time.Parse(ClockLayout, raw.End)
	if err != nil {
		return Slot{}, false
	}

	capacity := raw.MaxCapacity
	if capacity < 1 {
		capacity = 1
	}
	booked := raw.PatientCount
	if booked < 0 {
		booked = 0
	}
	if booked > capacity {
		booked = capacity
	}

	// The hour field parses with one digit ("9:00"); re-format so ordering by
	// string and downstream HH:MM checks see the zero-padded form.
	date := start.Format(DateLayout)
	startClock := start.Format(ClockLayout)
	return Slot{
		Date:         date,
		Start:        startClock,
		End:          end.Format(ClockLayout),
		DisplayLabel: fmt.Sprintf("%s - %s", start.Format(displayClockLayout), end.Format(displayClockLayout)),
		IsAvailable:  booked < capacity,
		MaxCapacity:  capacity,
		BookedCount:  booked,
		Identity:     SlotIdentity(date, startClock),
		DateTime:     start,
	}, true
}

// Window returns the slot's start and end instants in loc. Slots never cross midnight.
func (s Slot) Window(loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DateLayout+" "+ClockLayout, s.Date+" "+s.Start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation(DateLayout+" "+ClockLayout, s.Date+" "+s.End, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("slot %s ends before it starts", s.Identity)
	}
	return start, end, nil
}
