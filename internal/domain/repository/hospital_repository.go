package repository

import (
	"hospital-booking/internal/domain/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HospitalRepository interface {
	FindByID(db *gorm.DB, id uuid.UUID) (*entity.Hospital, error)
}
