package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"hospital-booking/internal/booking"
	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Relative day labels served by the availability endpoint
const (
	DayToday    = "today"
	DayTomorrow = "tomorrow"
)

type AvailabilityUsecase interface {
	GetDoctorAvailability(ctx context.Context, hospitalID, doctorID uuid.UUID) (*booking.DoctorAvailability, error)
}

type availabilityUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	clock           *HospitalClock
	hospitalRepo    repository.HospitalRepository
	doctorRepo      repository.DoctorProfileRepository
	scheduleRepo    repository.DoctorScheduleRepository
	appointmentRepo repository.AppointmentRepository
}

func NewAvailabilityUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	clock *HospitalClock,
	hospitalRepo repository.HospitalRepository,
	doctorRepo repository.DoctorProfileRepository,
	scheduleRepo repository.DoctorScheduleRepository,
	appointmentRepo repository.AppointmentRepository,
) AvailabilityUsecase {
	return &availabilityUsecase{
		db:              db,
		log:             log,
		clock:           clock,
		hospitalRepo:    hospitalRepo,
		doctorRepo:      doctorRepo,
		scheduleRepo:    scheduleRepo,
		appointmentRepo: appointmentRepo,
	}
}

// GetDoctorAvailability expands the doctor's weekly schedule into today's and
// tomorrow's slots, in the hospital's timezone, with the number of patients
// already booked on each.
func (u *availabilityUsecase) GetDoctorAvailability(ctx context.Context, hospitalID, doctorID uuid.UUID) (*booking.DoctorAvailability, error) {
	db := u.db.WithContext(ctx)

	hospital, err := findActiveHospital(db, u.hospitalRepo, hospitalID)
	if err != nil {
		if !errors.Is(err, ErrHospitalNotFound) {
			u.log.Warnf("Failed to find hospital %s: %+v", hospitalID, err)
		}
		return nil, err
	}

	if _, err := findHospitalDoctor(db, u.doctorRepo, hospitalID, doctorID); err != nil {
		if !errors.Is(err, ErrDoctorNotFound) {
			u.log.Warnf("Failed to find doctor %s: %+v", doctorID, err)
		}
		return nil, err
	}

	loc := u.clock.Location(hospital)
	today := u.clock.Today(loc)
	days := []struct {
		label string
		date  time.Time
	}{
		{label: DayToday, date: today},
		{label: DayTomorrow, date: today.AddDate(0, 0, bookingHorizonDays)},
	}

	schedules, err := u.scheduleRepo.FindByDoctorAndDays(db, doctorID, days[0].date.Weekday(), days[1].date.Weekday())
	if err != nil {
		u.log.Warnf("Failed to find schedules for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	counts, err := u.appointmentRepo.CountActiveByDoctorAndDates(db, doctorID,
		days[0].date.Format(booking.DateLayout), days[1].date.Format(booking.DateLayout))
	if err != nil {
		u.log.Warnf("Failed to count appointments for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	availability := &booking.DoctorAvailability{
		DoctorID: doctorID,
		Days:     make(map[string][]booking.RawSlot, len(days)),
	}
	for _, day := range days {
		availability.Days[day.label] = expandDay(schedules, doctorID, day.date, counts)
	}

	return availability, nil
}

// expandDay lists the slots the schedules offer on date, ordered by start time
func expandDay(schedules []entity.DoctorSchedule, doctorID uuid.UUID, date time.Time, counts map[entity.SlotKey]int) []booking.RawSlot {
	civil := date.Format(booking.DateLayout)
	slots := []booking.RawSlot{}
	seen := make(map[string]bool)

	for i := range schedules {
		if schedules[i].DayOfWeek != date.Weekday() {
			continue
		}
		for _, w := range schedules[i].Slots() {
			if seen[w.Start] {
				continue
			}
			seen[w.Start] = true

			booked := counts[entity.SlotKey{DoctorID: doctorID, Date: civil, StartTime: w.Start}]
			slots = append(slots, booking.RawSlot{
				Date:         civil,
				Start:        w.Start,
				End:          w.End,
				Available:    booked < w.MaxCapacity,
				MaxCapacity:  w.MaxCapacity,
				PatientCount: booked,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots
}

// findOfferedWindow returns the schedule slot that starts and ends exactly at the given times on date
func findOfferedWindow(schedules []entity.DoctorSchedule, date time.Time, start, end string) (entity.SlotWindow, bool) {
	for i := range schedules {
		if schedules[i].DayOfWeek != date.Weekday() {
			continue
		}
		for _, w := range schedules[i].Slots() {
			if w.Start == start && w.End == end {
				return w, true
			}
		}
	}
	return entity.SlotWindow{}, false
}
