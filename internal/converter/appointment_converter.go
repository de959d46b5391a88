package converter

import (
	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/domain/entity"

	"github.com/google/uuid"
)

// AppointmentToResponse converts an Appointment entity to AppointmentResponse DTO
func AppointmentToResponse(appointment *entity.Appointment) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:              appointment.ID,
		BookingCode:     appointment.BookingCode,
		HospitalID:      appointment.HospitalID,
		DoctorID:        appointment.DoctorID,
		PatientName:     appointment.PatientName,
		Mobile:          appointment.Mobile,
		Age:             appointment.Age,
		AppointmentDate: appointment.AppointmentDate.Format("2006-01-02"),
		StartTime:       appointment.StartTime,
		EndTime:         appointment.EndTime,
		Status:          string(appointment.Status),
		CreatedAt:       appointment.CreatedAt,
	}

	// Include doctor info if preloaded
	if appointment.Doctor.ID != uuid.Nil {
		response.Doctor = DoctorProfileToResponse(&appointment.Doctor)
	}

	return response
}
