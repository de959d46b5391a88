package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"hospital-booking/internal/booking"
	"hospital-booking/internal/converter"
	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/delivery/http/middleware"
	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/domain/repository"
	"hospital-booking/internal/service"
	"hospital-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrAppointmentNotFound         = errors.New("appointment not found")
	ErrAlreadyBooked               = errors.New("this mobile number already has an appointment in this slot")
	ErrAppointmentAlreadyCancelled = errors.New("appointment is already cancelled")
	ErrAppointmentNotOwned         = errors.New("appointment belongs to another hospital")
	ErrSlotNotOffered              = errors.New("the doctor does not offer this slot")
	ErrSlotElapsed                 = errors.New("this slot has already ended")
)

// bookingHorizonDays is how many days after today can be booked
const bookingHorizonDays = 1

// compensationTimeout bounds Redis calls made after the request context may be gone
const compensationTimeout = 5 * time.Second

// AppointmentObserver receives appointment outcomes, typically for metrics.
type AppointmentObserver interface {
	ObserveAppointment(operation, result string)
}

type AppointmentUsecase interface {
	CreateAppointment(ctx context.Context, req *booking.AppointmentRequest) (*dto.AppointmentResponse, error)
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error)
	CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error
}

type appointmentUsecase struct {
	db              *gorm.DB
	log             *logrus.Logger
	validator       *validator.CustomValidator
	clock           *HospitalClock
	hospitalRepo    repository.HospitalRepository
	doctorRepo      repository.DoctorProfileRepository
	scheduleRepo    repository.DoctorScheduleRepository
	appointmentRepo repository.AppointmentRepository
	capacity        *service.SlotCapacityService
	audit           service.AuditService
	observer        AppointmentObserver
}

func NewAppointmentUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	validator *validator.CustomValidator,
	clock *HospitalClock,
	hospitalRepo repository.HospitalRepository,
	doctorRepo repository.DoctorProfileRepository,
	scheduleRepo repository.DoctorScheduleRepository,
	appointmentRepo repository.AppointmentRepository,
	capacity *service.SlotCapacityService,
	audit service.AuditService,
	observer AppointmentObserver,
) AppointmentUsecase {
	return &appointmentUsecase{
		db:              db,
		log:             log,
		validator:       validator,
		clock:           clock,
		hospitalRepo:    hospitalRepo,
		doctorRepo:      doctorRepo,
		scheduleRepo:    scheduleRepo,
		appointmentRepo: appointmentRepo,
		capacity:        capacity,
		audit:           audit,
		observer:        observer,
	}
}

// CreateAppointment books one place in a doctor's slot.
//
// Flow:
// 1. Validate the request shape (same rules the wizard applies)
// 2. Hospital and doctor must exist, be active and belong together
// 3. The slot must be offered by the weekly schedule, today or tomorrow, and not have ended
// 4. The same mobile cannot hold two places in one slot
// 5. Redis Reserve (atomic capacity check, seeded from the DB count)
// 6. Insert appointment and audit row in one transaction
// 7. If the DB fails -> compensate: Release in Redis
func (u *appointmentUsecase) CreateAppointment(ctx context.Context, req *booking.AppointmentRequest) (*dto.AppointmentResponse, error) {
	if err := booking.ValidateAppointmentRequest(u.validator, req); err != nil {
		u.observe("create", "invalid")
		return nil, err
	}

	hospitalID := uuid.MustParse(req.HospitalID)
	doctorID := uuid.MustParse(req.DoctorID)
	db := u.db.WithContext(ctx)

	// Step 2: Hospital and doctor
	hospital, err := findActiveHospital(db, u.hospitalRepo, hospitalID)
	if err != nil {
		return nil, u.lookupFailed("hospital", hospitalID, err)
	}
	doctor, err := findHospitalDoctor(db, u.doctorRepo, hospitalID, doctorID)
	if err != nil {
		return nil, u.lookupFailed("doctor", doctorID, err)
	}

	// Step 3: Slot is offered and still bookable
	loc := u.clock.Location(hospital)
	date, err := time.ParseInLocation(booking.DateLayout, req.AppointmentDate, loc)
	if err != nil {
		return nil, &booking.PayloadError{Message: "appointmentDate must be a date (YYYY-MM-DD)"}
	}
	today := u.clock.Today(loc)
	if date.Before(today) || date.After(today.AddDate(0, 0, bookingHorizonDays)) {
		u.observe("create", "not_offered")
		return nil, ErrSlotNotOffered
	}

	slot := booking.Slot{Date: req.AppointmentDate, Start: req.StartTime, End: req.EndTime}
	_, slotEnd, err := slot.Window(loc)
	if err != nil {
		return nil, &booking.PayloadError{Message: "endTime must be after startTime"}
	}
	if !u.clock.Now().Before(slotEnd) {
		u.observe("create", "elapsed")
		return nil, ErrSlotElapsed
	}

	schedules, err := u.scheduleRepo.FindByDoctorAndDays(db, doctorID, date.Weekday())
	if err != nil {
		u.log.Warnf("Failed to find schedules for doctor %s: %+v", doctorID, err)
		return nil, err
	}
	window, ok := findOfferedWindow(schedules, date, req.StartTime, req.EndTime)
	if !ok {
		u.observe("create", "not_offered")
		return nil, ErrSlotNotOffered
	}

	// Step 4: Prevent duplicate booking by the same patient
	key := entity.SlotKey{DoctorID: doctorID, Date: req.AppointmentDate, StartTime: req.StartTime}
	existing, err := u.appointmentRepo.FindActiveByMobileAndSlot(db, req.Mobile, key)
	if err != nil {
		u.log.Warnf("Failed to check existing appointment: %+v", err)
		return nil, err
	}
	if existing != nil {
		u.observe("create", "duplicate")
		return nil, ErrAlreadyBooked
	}

	// Step 5: Redis atomic capacity reservation
	bookedInDB, err := u.appointmentRepo.CountActiveBySlot(db, key)
	if err != nil {
		u.log.Warnf("Failed to count appointments for slot %+v: %+v", key, err)
		return nil, err
	}
	if _, err := u.capacity.Reserve(ctx, key, window.MaxCapacity, bookedInDB, date); err != nil {
		if errors.Is(err, service.ErrSlotFull) {
			u.observe("create", "slot_full")
			return nil, service.ErrSlotFull
		}
		u.log.Warnf("Failed Redis slot reservation for %+v: %+v", key, err)
		return nil, err
	}

	// Step 6: Insert appointment and audit trail
	appointment := &entity.Appointment{
		HospitalID:      hospitalID,
		DoctorID:        doctorID,
		PatientName:     booking.NormalizeName(req.PatientName),
		Mobile:          req.Mobile,
		Age:             req.Age,
		AppointmentDate: date,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		BookingCode:     generateBookingCode(date),
		Status:          entity.AppointmentStatusConfirmed,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := u.appointmentRepo.Create(tx, appointment); err != nil {
			return err
		}
		return u.audit.LogCreate(ctx, tx, actorFromContext(ctx), entity.AuditActionAppointmentCreate,
			entity.AuditEntityAppointment, appointment.ID.String(), converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		// Step 7: COMPENSATE - give the place back since nothing was stored
		syncCtx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
		defer cancel()
		if releaseErr := u.capacity.Release(syncCtx, key); releaseErr != nil {
			u.log.Errorf("CRITICAL: Failed to release Redis slot after DB failure for %+v: %+v", key, releaseErr)
		}

		// A concurrent identical request won the insert after our Step 4 check
		if errors.Is(err, repository.ErrActiveAppointmentExists) {
			u.observe("create", "duplicate")
			return nil, ErrAlreadyBooked
		}

		u.log.Errorf("Failed to insert appointment to DB, released Redis slot: %+v", err)
		u.observe("create", "error")
		return nil, err
	}

	u.observe("create", "ok")
	u.log.Infof("Appointment created: id=%s, doctor=%s, slot=%s %s, code=%s", appointment.ID, doctorID, req.AppointmentDate, req.StartTime, appointment.BookingCode)

	appointment.Doctor = *doctor
	return converter.AppointmentToResponse(appointment), nil
}

func (u *appointmentUsecase) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (*dto.AppointmentResponse, error) {
	appointment, err := u.findScoped(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	return converter.AppointmentToResponse(appointment), nil
}

// CancelAppointment cancels an appointment and gives its place back.
func (u *appointmentUsecase) CancelAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	appointment, err := u.findScoped(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appointment.IsCancelled() {
		return ErrAppointmentAlreadyCancelled
	}

	oldValue := converter.AppointmentToResponse(appointment)
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := u.appointmentRepo.CancelAppointment(tx, appointmentID)
		if err != nil {
			return err
		}
		// Lost a race with a concurrent cancel
		if affected == 0 {
			return ErrAppointmentAlreadyCancelled
		}

		appointment.Cancel()
		return u.audit.LogUpdate(ctx, tx, actorFromContext(ctx), entity.AuditActionAppointmentCancel,
			entity.AuditEntityAppointment, appointmentID.String(), oldValue, converter.AppointmentToResponse(appointment))
	})
	if err != nil {
		if !errors.Is(err, ErrAppointmentAlreadyCancelled) {
			u.log.Warnf("Failed to cancel appointment %s: %+v", appointmentID, err)
		}
		u.observe("cancel", "error")
		return err
	}

	syncCtx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()
	if err := u.capacity.Release(syncCtx, appointment.SlotKey()); err != nil {
		// Log but don't fail - the counter is reseeded from the DB once it expires
		u.log.Warnf("Failed to release Redis slot for appointment %s (non-fatal): %+v", appointmentID, err)
	}

	u.observe("cancel", "ok")
	u.log.Infof("Appointment cancelled: id=%s, code=%s", appointmentID, appointment.BookingCode)
	return nil
}

// findScoped loads an appointment; staff tokens only see their own hospital's
func (u *appointmentUsecase) findScoped(ctx context.Context, appointmentID uuid.UUID) (*entity.Appointment, error) {
	appointment, err := u.appointmentRepo.FindByID(u.db.WithContext(ctx), appointmentID)
	if err != nil {
		u.log.Warnf("Failed to find appointment %s: %+v", appointmentID, err)
		return nil, err
	}
	if appointment == nil {
		return nil, ErrAppointmentNotFound
	}
	if scope, ok := middleware.GetHospitalIDFromContext(ctx); ok && scope != appointment.HospitalID.String() {
		return nil, ErrAppointmentNotOwned
	}
	return appointment, nil
}

func (u *appointmentUsecase) lookupFailed(what string, id uuid.UUID, err error) error {
	if errors.Is(err, ErrHospitalNotFound) || errors.Is(err, ErrDoctorNotFound) {
		u.observe("create", "not_found")
		return err
	}
	u.log.Warnf("Failed to find %s %s: %+v", what, id, err)
	return err
}

func (u *appointmentUsecase) observe(operation, result string) {
	if u.observer != nil {
		u.observer.ObserveAppointment(operation, result)
	}
}

// actorFromContext returns the authenticated caller, if any
func actorFromContext(ctx context.Context) *uuid.UUID {
	userID, ok := middleware.GetUserIDFromContext(ctx)
	if !ok || userID == uuid.Nil {
		return nil
	}
	return &userID
}

// generateBookingCode generates a unique booking code: AP-YYYYMMDD-XXXXXX
func generateBookingCode(appointmentDate time.Time) string {
	dateStr := appointmentDate.Format("20060102")
	randomBytes := make([]byte, 3)
	rand.Read(randomBytes)
	return fmt.Sprintf("AP-%s-%06X", dateStr, randomBytes)
}
