package repository

import (
	"errors"
	"strings"
	"time"

	"hospital-booking/internal/domain/entity"
	domainRepo "hospital-booking/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// activeMobileSlotIndex is the partial unique index guarding one active place
// per mobile per slot.
const activeMobileSlotIndex = "idx_appointments_active_mobile_slot"

type appointmentRepository struct{}

func NewAppointmentRepository() domainRepo.AppointmentRepository {
	return &appointmentRepository{}
}

func (r *appointmentRepository) Create(db *gorm.DB, appointment *entity.Appointment) error {
	err := db.Omit("Hospital", "Doctor").Create(appointment).Error
	if isDuplicateKeyError(err, activeMobileSlotIndex) {
		return domainRepo.ErrActiveAppointmentExists
	}
	return err
}

// isDuplicateKeyError checks if the error is a PostgreSQL unique constraint violation
// on the named constraint
func isDuplicateKeyError(err error, constraintName string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505" && strings.EqualFold(pgErr.ConstraintName, constraintName)
	}
	return false
}

func (r *appointmentRepository) FindByID(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Preload("Doctor").Preload("Hospital").Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

// CancelAppointment atomically cancels an appointment ONLY if it's not already cancelled.
// Returns affected rows: 1 = success, 0 = already cancelled (prevents double-cancel race).
func (r *appointmentRepository) CancelAppointment(db *gorm.DB, id uuid.UUID) (int64, error) {
	result := db.Model(&entity.Appointment{}).
		Where("id = ? AND status != ?", id, entity.AppointmentStatusCancelled).
		Update("status", entity.AppointmentStatusCancelled)
	return result.RowsAffected, result.Error
}

func (r *appointmentRepository) FindActiveByMobileAndSlot(db *gorm.DB, mobile string, slot entity.SlotKey) (*entity.Appointment, error) {
	var appointment entity.Appointment
	err := db.Where("mobile = ? AND doctor_id = ? AND appointment_date = ? AND start_time = ? AND status != ?",
		mobile, slot.DoctorID, slot.Date, slot.StartTime, entity.AppointmentStatusCancelled).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) CountActiveBySlot(db *gorm.DB, slot entity.SlotKey) (int64, error) {
	var count int64
	err := db.Model(&entity.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ? AND start_time = ? AND status != ?",
			slot.DoctorID, slot.Date, slot.StartTime, entity.AppointmentStatusCancelled).
		Count(&count).Error
	return count, err
}

// CountActiveByDoctorAndDates returns non-cancelled appointment counts per slot.
func (r *appointmentRepository) CountActiveByDoctorAndDates(db *gorm.DB, doctorID uuid.UUID, dates ...string) (map[entity.SlotKey]int, error) {
	type slotCount struct {
		AppointmentDate time.Time
		StartTime       string
		Total           int
	}
	var rows []slotCount

	err := db.Model(&entity.Appointment{}).
		Select("appointment_date, start_time, COUNT(*) AS total").
		Where("doctor_id = ? AND appointment_date IN ? AND status != ?", doctorID, dates, entity.AppointmentStatusCancelled).
		Group("appointment_date, start_time").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[entity.SlotKey]int, len(rows))
	for _, row := range rows {
		key := entity.SlotKey{DoctorID: doctorID, Date: row.AppointmentDate.Format("2006-01-02"), StartTime: row.StartTime}
		counts[key] = row.Total
	}
	return counts, nil
}
