package booking

import (
	"errors"
	"strings"

	"hospital-booking/pkg/validator"
)

// AppointmentRequest is the body of the appointment creation call.
type AppointmentRequest struct {
	HospitalID      string `json:"hospitalId" validate:"required,uuid"`
	DoctorID        string `json:"doctorId" validate:"required,uuid"`
	PatientName     string `json:"patientName" validate:"required,min=2,max=100"`
	Mobile          string `json:"mobile" validate:"required,mobile_in"`
	Age             int    `json:"age" validate:"gte=1,lte=120"`
	AppointmentDate string `json:"appointmentDate" validate:"required,civil_date"`
	StartTime       string `json:"startTime" validate:"required,clock_time"`
	EndTime         string `json:"endTime" validate:"required,clock_time"`
}

// ErrInvalidAppointment wraps structural validation failures.
var ErrInvalidAppointment = errors.New("invalid appointment request")

// PayloadError carries the first human-readable validation message.
type PayloadError struct {
	Message string
	Fields  map[string]string
}

func (e *PayloadError) Error() string { return e.Message }

func (e *PayloadError) Unwrap() error { return ErrInvalidAppointment }

// ValidateAppointmentRequest runs the shape, range and format checks shared by
// the wizard and the appointment endpoint.
func ValidateAppointmentRequest(v *validator.CustomValidator, req *AppointmentRequest) error {
	if err := v.Validate(req); err != nil {
		return &PayloadError{Message: v.FirstMessage(err), Fields: v.FormatValidationErrors(err)}
	}
	if strings.Compare(req.EndTime, req.StartTime) <= 0 {
		return &PayloadError{
			Message: "endTime must be after startTime",
			Fields:  map[string]string{"endTime": "endTime must be after startTime"},
		}
	}
	return nil
}

// BuildAppointmentRequest flattens a draft into the request shape.
func BuildAppointmentRequest(hospitalID string, draft BookingDraft) AppointmentRequest {
	req := AppointmentRequest{
		HospitalID:  hospitalID,
		DoctorID:    draft.DoctorID,
		PatientName: strings.TrimSpace(draft.Patient.Name),
		Mobile:      strings.TrimSpace(draft.Patient.Mobile),
	}
	if age, err := ParseAge(draft.Patient.Age); err == nil {
		req.Age = age
	}
	if draft.SelectedSlot != nil {
		req.AppointmentDate = draft.SelectedSlot.Date
		req.StartTime = draft.SelectedSlot.Start
		req.EndTime = draft.SelectedSlot.End
	}
	return req
}
