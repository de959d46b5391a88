package usecase

import (
	"context"
	"encoding/json"

	"hospital-booking/internal/booking"
	"hospital-booking/internal/delivery/dto"

	"github.com/google/uuid"
)

// WizardBackend is what a wizard session needs from the booking backend.
// It is served in-process by NewLocalBackend or remotely by the REST client.
type WizardBackend interface {
	booking.AvailabilityFetcher
	booking.AppointmentCreator
	GetHospital(ctx context.Context, hospitalID string) (*dto.HospitalResponse, error)
}

type localBackend struct {
	doctors      DoctorUsecase
	availability AvailabilityUsecase
	appointments AppointmentUsecase
}

// NewLocalBackend serves wizard sessions from this service's own usecases
func NewLocalBackend(doctors DoctorUsecase, availability AvailabilityUsecase, appointments AppointmentUsecase) WizardBackend {
	return &localBackend{
		doctors:      doctors,
		availability: availability,
		appointments: appointments,
	}
}

func (b *localBackend) GetHospital(ctx context.Context, hospitalID string) (*dto.HospitalResponse, error) {
	id, err := uuid.Parse(hospitalID)
	if err != nil {
		return nil, ErrHospitalNotFound
	}
	return b.doctors.GetHospital(ctx, id)
}

func (b *localBackend) FetchAvailability(ctx context.Context, hospitalID, doctorID string) (booking.DoctorAvailability, error) {
	hID, err := uuid.Parse(hospitalID)
	if err != nil {
		return booking.DoctorAvailability{}, ErrHospitalNotFound
	}
	dID, err := uuid.Parse(doctorID)
	if err != nil {
		return booking.DoctorAvailability{}, ErrDoctorNotFound
	}

	av, err := b.availability.GetDoctorAvailability(ctx, hID, dID)
	if err != nil {
		return booking.DoctorAvailability{}, err
	}
	return *av, nil
}

func (b *localBackend) CreateAppointment(ctx context.Context, req booking.AppointmentRequest) (json.RawMessage, error) {
	appointment, err := b.appointments.CreateAppointment(ctx, &req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(appointment)
}
