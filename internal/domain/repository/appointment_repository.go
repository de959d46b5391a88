package repository

import (
	"errors"

	"hospital-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrActiveAppointmentExists is returned by Create when the mobile already holds
// an active place in the same slot.
var ErrActiveAppointmentExists = errors.New("active appointment already exists for this mobile and slot")

type AppointmentRepository interface {
	Create(db *gorm.DB, appointment *entity.Appointment) error
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error)
	CancelAppointment(db *gorm.DB, id uuid.UUID) (int64, error)
	FindActiveByMobileAndSlot(db *gorm.DB, mobile string, slot entity.SlotKey) (*entity.Appointment, error)
	CountActiveBySlot(db *gorm.DB, slot entity.SlotKey) (int64, error)
	CountActiveByDoctorAndDates(db *gorm.DB, doctorID uuid.UUID, dates ...string) (map[entity.SlotKey]int, error)
}
