package entity

import (
	"time"

	"github.com/google/uuid"
)

// DoctorSchedule is a weekly recurring consultation window. The window is cut
// into consecutive slots of SlotMinutes, each taking up to MaxCapacity patients.
type DoctorSchedule struct {
	ID          int          `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID    uuid.UUID    `gorm:"type:uuid;not null;index" json:"doctor_id"`
	DayOfWeek   time.Weekday `gorm:"not null;index" json:"day_of_week"`
	StartTime   string       `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime     string       `gorm:"type:varchar(5);not null" json:"end_time"`
	SlotMinutes int          `gorm:"not null;default:30" json:"slot_minutes"`
	MaxCapacity int          `gorm:"not null;default:1" json:"max_capacity"`
	CreatedAt   time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Doctor DoctorProfile `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (DoctorSchedule) TableName() string {
	return "doctor_schedules"
}

// SlotWindow is one generated slot of a schedule.
type SlotWindow struct {
	Start       string
	End         string
	MaxCapacity int
}

// Slots cuts the schedule window into slots. A trailing remainder shorter
// than SlotMinutes is not offered.
func (s *DoctorSchedule) Slots() []SlotWindow {
	start, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		return nil
	}
	end, err := time.Parse("15:04", s.EndTime)
	if err != nil || !end.After(start) || s.SlotMinutes <= 0 {
		return nil
	}

	step := time.Duration(s.SlotMinutes) * time.Minute
	var windows []SlotWindow
	for t := start; !t.Add(step).After(end); t = t.Add(step) {
		windows = append(windows, SlotWindow{
			Start:       t.Format("15:04"),
			End:         t.Add(step).Format("15:04"),
			MaxCapacity: s.MaxCapacity,
		})
	}
	return windows
}
