package entity

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a patient's booking of one doctor slot.
// Patients are identified by name and mobile; there is no patient account.
type Appointment struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	HospitalID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"hospital_id"`
	DoctorID        uuid.UUID         `gorm:"type:uuid;not null;index:idx_appointments_slot" json:"doctor_id"`
	PatientName     string            `gorm:"type:varchar(100);not null" json:"patient_name"`
	Mobile          string            `gorm:"type:char(10);not null;index" json:"mobile"`
	Age             int               `gorm:"not null" json:"age"`
	AppointmentDate time.Time         `gorm:"type:date;not null;index:idx_appointments_slot" json:"appointment_date"`
	StartTime       string            `gorm:"type:varchar(5);not null;index:idx_appointments_slot" json:"start_time"`
	EndTime         string            `gorm:"type:varchar(5);not null" json:"end_time"`
	BookingCode     string            `gorm:"type:varchar(50);uniqueIndex;not null" json:"booking_code"`
	Status          AppointmentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Hospital Hospital      `gorm:"foreignKey:HospitalID" json:"hospital,omitempty"`
	Doctor   DoctorProfile `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}

func (Appointment) TableName() string {
	return "appointments"
}

// IsCancelled checks if appointment is cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == AppointmentStatusCancelled
}

// Cancel changes appointment status to cancelled
func (a *Appointment) Cancel() {
	a.Status = AppointmentStatusCancelled
}

// SlotKey identifies a doctor slot. Date is a civil date (YYYY-MM-DD).
type SlotKey struct {
	DoctorID  uuid.UUID
	Date      string
	StartTime string
}

// SlotKey returns the slot this appointment occupies
func (a *Appointment) SlotKey() SlotKey {
	return SlotKey{DoctorID: a.DoctorID, Date: a.AppointmentDate.Format("2006-01-02"), StartTime: a.StartTime}
}
