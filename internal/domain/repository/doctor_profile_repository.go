package repository

import (
	"hospital-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorProfileRepository interface {
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.DoctorProfile, error)
	FindActiveByHospital(db *gorm.DB, hospitalID uuid.UUID, filter *entity.DoctorFilter) ([]entity.DoctorProfile, error)
}
