package repository

import (
	"time"

	"hospital-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorScheduleRepository interface {
	Create(db *gorm.DB, schedule *entity.DoctorSchedule) error
	FindByID(db *gorm.DB, id int) (*entity.DoctorSchedule, error)
	FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorSchedule, error)
	FindByDoctorAndDays(db *gorm.DB, doctorID uuid.UUID, days ...time.Weekday) ([]entity.DoctorSchedule, error)
	Delete(db *gorm.DB, id int) (int64, error)
}
