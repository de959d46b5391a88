package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDoctorSchedule_Slots(t *testing.T) {
	s := DoctorSchedule{DayOfWeek: time.Monday, StartTime: "09:00", EndTime: "10:45", SlotMinutes: 30, MaxCapacity: 3}

	assert.Equal(t, []SlotWindow{
		{Start: "09:00", End: "09:30", MaxCapacity: 3},
		{Start: "09:30", End: "10:00", MaxCapacity: 3},
		{Start: "10:00", End: "10:30", MaxCapacity: 3},
	}, s.Slots(), "trailing 15 minutes are not offered")
}

func TestDoctorSchedule_SlotsOfInvalidWindow(t *testing.T) {
	tests := []struct {
		name string
		s    DoctorSchedule
	}{
		{name: "end before start", s: DoctorSchedule{StartTime: "10:00", EndTime: "09:00", SlotMinutes: 30}},
		{name: "zero slot length", s: DoctorSchedule{StartTime: "09:00", EndTime: "10:00"}},
		{name: "window shorter than a slot", s: DoctorSchedule{StartTime: "09:00", EndTime: "09:20", SlotMinutes: 30}},
		{name: "unparseable start", s: DoctorSchedule{StartTime: "9am", EndTime: "10:00", SlotMinutes: 30}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, tt.s.Slots())
		})
	}
}

func TestAppointment_SlotKeyUsesCivilDate(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+30*60)
	a := Appointment{AppointmentDate: time.Date(2025, 1, 10, 0, 0, 0, 0, ist), StartTime: "09:00"}

	assert.Equal(t, "2025-01-10", a.SlotKey().Date)
}
