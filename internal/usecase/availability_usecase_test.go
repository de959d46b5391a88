package usecase

import (
	"context"
	"testing"
	"time"

	"hospital-booking/internal/booking"
	"hospital-booking/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAvailabilityUsecase(t *testing.T, f *bookingFixture) AvailabilityUsecase {
	t.Helper()
	db, _ := setupMockDB(t)
	return NewAvailabilityUsecase(db, testLogger(), f.hospitalClock(), f.hospitals, f.doctors, f.schedules, f.appointments)
}

func TestAvailabilityUsecase_ExpandsTodayAndTomorrow(t *testing.T) {
	f := newBookingFixture()
	f.schedules.Create(nil, &entity.DoctorSchedule{
		DoctorID:    f.doctor.ID,
		DayOfWeek:   time.Saturday,
		StartTime:   "10:00",
		EndTime:     "11:00",
		SlotMinutes: 60,
		MaxCapacity: 1,
	})
	f.seedAppointment("9000000001", "09:00", "09:30")
	cancelled := f.seedAppointment("9000000002", "09:30", "10:00")
	f.appointments.CancelAppointment(nil, cancelled.ID)

	u := newTestAvailabilityUsecase(t, f)
	av, err := u.GetDoctorAvailability(context.Background(), f.hospital.ID, f.doctor.ID)
	require.NoError(t, err)

	assert.Equal(t, f.doctor.ID, av.DoctorID)
	assert.Equal(t, []booking.RawSlot{
		{Date: "2025-01-10", Start: "09:00", End: "09:30", Available: true, MaxCapacity: 2, PatientCount: 1},
		{Date: "2025-01-10", Start: "09:30", End: "10:00", Available: true, MaxCapacity: 2, PatientCount: 0},
	}, av.Days[DayToday])
	assert.Equal(t, []booking.RawSlot{
		{Date: "2025-01-11", Start: "10:00", End: "11:00", Available: true, MaxCapacity: 1, PatientCount: 0},
	}, av.Days[DayTomorrow])
}

func TestAvailabilityUsecase_DayWithoutScheduleIsEmpty(t *testing.T) {
	f := newBookingFixture()
	u := newTestAvailabilityUsecase(t, f)

	av, err := u.GetDoctorAvailability(context.Background(), f.hospital.ID, f.doctor.ID)
	require.NoError(t, err)

	require.Contains(t, av.Days, DayTomorrow)
	assert.NotNil(t, av.Days[DayTomorrow])
	assert.Empty(t, av.Days[DayTomorrow])
}

func TestAvailabilityUsecase_FullSlotIsReported(t *testing.T) {
	f := newBookingFixture()
	f.seedAppointment("9000000001", "09:00", "09:30")
	f.seedAppointment("9000000002", "09:00", "09:30")
	u := newTestAvailabilityUsecase(t, f)

	av, err := u.GetDoctorAvailability(context.Background(), f.hospital.ID, f.doctor.ID)
	require.NoError(t, err)

	first := av.Days[DayToday][0]
	assert.False(t, first.Available)
	assert.Equal(t, 2, first.PatientCount)

	// The normalizer agrees with the raw flag
	slots := booking.Normalize(*av)
	assert.False(t, slots[0].IsAvailable)
}

func TestAvailabilityUsecase_DoctorOfAnotherHospital(t *testing.T) {
	f := newBookingFixture()
	other := entity.Hospital{ID: uuid.New(), Name: "Other", IsActive: boolPtr(true)}
	f.hospitals.hospitals[other.ID] = other
	u := newTestAvailabilityUsecase(t, f)

	_, err := u.GetDoctorAvailability(context.Background(), other.ID, f.doctor.ID)
	assert.ErrorIs(t, err, ErrDoctorNotFound)

	_, err = u.GetDoctorAvailability(context.Background(), uuid.New(), f.doctor.ID)
	assert.ErrorIs(t, err, ErrHospitalNotFound)
}
