package booking

import (
	"sort"
	"time"
)

// GroupedSlots maps civil dates to their remaining slots.
type GroupedSlots struct {
	Dates  []string          `json:"dates"`
	ByDate map[string][]Slot `json:"byDate"`
}

// Empty reports whether no date has a bookable window left.
func (g GroupedSlots) Empty() bool {
	return len(g.Dates) == 0
}

// Slots returns the slots of date, or nil.
func (g GroupedSlots) Slots(date string) []Slot {
	return g.ByDate[date]
}

// Find looks a slot up by identity.
func (g GroupedSlots) Find(identity string) (Slot, bool) {
	for _, date := range g.Dates {
		for _, s := range g.ByDate[date] {
			if s.Identity == identity {
				return s, true
			}
		}
	}
	return Slot{}, false
}

// DefaultDate keeps selected when it still has slots, otherwise picks the earliest date.
func (g GroupedSlots) DefaultDate(selected string) string {
	if selected != "" {
		if _, ok := g.ByDate[selected]; ok {
			return selected
		}
	}
	if len(g.Dates) == 0 {
		return ""
	}
	return g.Dates[0]
}

// Group partitions slots by civil date and drops windows that ended at or before now.
// Windows are read in loc, the hospital's operating timezone. Capacity plays no part here.
func Group(slots []Slot, now time.Time, loc *time.Location) GroupedSlots {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)

	byDate := make(map[string][]Slot)
	for _, s := range slots {
		_, end, err := s.Window(loc)
		if err != nil {
			continue
		}
		if !now.Before(end) {
			continue
		}
		byDate[s.Date] = append(byDate[s.Date], s)
	}

	dates := make([]string, 0, len(byDate))
	for date, list := range byDate {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Start < list[j].Start
		})
		dates = append(dates, date)
	}
	sort.Strings(dates)

	return GroupedSlots{Dates: dates, ByDate: byDate}
}
