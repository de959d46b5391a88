package dto

import (
	"time"

	"hospital-booking/internal/booking"

	"github.com/google/uuid"
)

// Request DTOs

type StartWizardRequest struct {
	// Optional; defaults to the hospital of the caller's token
	HospitalID string `json:"hospital_id" validate:"omitempty,uuid"`
}

// The patient step body is booking.PatientDraft; its fields are validated
// by the wizard itself so that errors stay per field.

type SelectDoctorRequest struct {
	DoctorID string `json:"doctor_id" validate:"required,uuid"`
}

type SelectDateRequest struct {
	Date string `json:"date" validate:"required,civil_date"`
}

type SelectSlotRequest struct {
	Identity string `json:"identity" validate:"required,max=32"`
}

// Response DTOs

type WizardResponse struct {
	ID         uuid.UUID    `json:"id"`
	HospitalID string       `json:"hospital_id"`
	Step       string       `json:"step"`
	ExpiresAt  time.Time    `json:"expires_at"`
	Wizard     booking.View `json:"wizard"`
}
