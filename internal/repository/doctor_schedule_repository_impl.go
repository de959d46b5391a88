package repository

import (
	"errors"
	"time"

	"hospital-booking/internal/domain/entity"
	domainRepo "hospital-booking/internal/domain/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type doctorScheduleRepository struct{}

func NewDoctorScheduleRepository() domainRepo.DoctorScheduleRepository {
	return &doctorScheduleRepository{}
}

// weeklyOrder lists a doctor's working windows Monday-first within the week.
func weeklyOrder(doctorID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("doctor_id = ?", doctorID).Order("day_of_week ASC, start_time ASC")
	}
}

func (r *doctorScheduleRepository) Create(db *gorm.DB, schedule *entity.DoctorSchedule) error {
	return db.Omit("Doctor").Create(schedule).Error
}

func (r *doctorScheduleRepository) FindByID(db *gorm.DB, id int) (*entity.DoctorSchedule, error) {
	var schedule entity.DoctorSchedule
	if err := db.Preload("Doctor").First(&schedule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *doctorScheduleRepository) FindByDoctorID(db *gorm.DB, doctorID uuid.UUID) ([]entity.DoctorSchedule, error) {
	schedules := []entity.DoctorSchedule{}
	if err := db.Scopes(weeklyOrder(doctorID)).Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// FindByDoctorAndDays narrows the week to the given weekdays, used to expand
// availability for today and tomorrow.
func (r *doctorScheduleRepository) FindByDoctorAndDays(db *gorm.DB, doctorID uuid.UUID, days ...time.Weekday) ([]entity.DoctorSchedule, error) {
	schedules := []entity.DoctorSchedule{}
	if len(days) == 0 {
		return schedules, nil
	}
	err := db.Scopes(weeklyOrder(doctorID)).Where("day_of_week IN ?", days).Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *doctorScheduleRepository) Delete(db *gorm.DB, id int) (int64, error) {
	result := db.Delete(&entity.DoctorSchedule{}, id)
	return result.RowsAffected, result.Error
}
