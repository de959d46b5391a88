package dto

import (
	"time"

	"github.com/google/uuid"
)

// The create request body is booking.AppointmentRequest, shared with the wizard.

// Response DTOs

type AppointmentResponse struct {
	ID              uuid.UUID       `json:"id"`
	BookingCode     string          `json:"booking_code"`
	HospitalID      uuid.UUID       `json:"hospital_id"`
	DoctorID        uuid.UUID       `json:"doctor_id"`
	Doctor          *DoctorResponse `json:"doctor,omitempty"`
	PatientName     string          `json:"patient_name"`
	Mobile          string          `json:"mobile"`
	Age             int             `json:"age"`
	AppointmentDate string          `json:"appointment_date"`
	StartTime       string          `json:"start_time"`
	EndTime         string          `json:"end_time"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}
