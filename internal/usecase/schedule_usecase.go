package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"hospital-booking/internal/converter"
	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/domain/repository"
	"hospital-booking/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
	ErrScheduleTooShort  = errors.New("schedule window is shorter than one slot")
	ErrScheduleOverlap   = errors.New("schedule overlaps an existing schedule on the same day")
	ErrInvalidTimeFormat = errors.New("invalid time format, use HH:MM")
)

type ScheduleUsecase interface {
	CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error)
	ListSchedules(ctx context.Context, doctorID uuid.UUID) (*dto.ScheduleListResponse, error)
	DeleteSchedule(ctx context.Context, scheduleID int) error
}

type scheduleUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	scheduleRepo repository.DoctorScheduleRepository
	doctorRepo   repository.DoctorProfileRepository
	capacity     *service.SlotCapacityService
	clock        *HospitalClock
	audit        service.AuditService
}

func NewScheduleUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	scheduleRepo repository.DoctorScheduleRepository,
	doctorRepo repository.DoctorProfileRepository,
	capacity *service.SlotCapacityService,
	clock *HospitalClock,
	audit service.AuditService,
) ScheduleUsecase {
	return &scheduleUsecase{
		db:           db,
		log:          log,
		scheduleRepo: scheduleRepo,
		doctorRepo:   doctorRepo,
		capacity:     capacity,
		clock:        clock,
		audit:        audit,
	}
}

func (u *scheduleUsecase) CreateSchedule(ctx context.Context, req *dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	db := u.db.WithContext(ctx)

	doctor, err := u.doctorRepo.FindByID(db, req.DoctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, ErrInvalidTimeFormat
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, ErrInvalidTimeFormat
	}
	if !end.After(start) {
		return nil, ErrInvalidTimeRange
	}

	schedule := &entity.DoctorSchedule{
		DoctorID:    req.DoctorID,
		DayOfWeek:   time.Weekday(*req.DayOfWeek),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SlotMinutes: req.SlotMinutes,
		MaxCapacity: req.MaxCapacity,
	}
	if len(schedule.Slots()) == 0 {
		return nil, ErrScheduleTooShort
	}

	existing, err := u.scheduleRepo.FindByDoctorAndDays(db, req.DoctorID, schedule.DayOfWeek)
	if err != nil {
		u.log.Warnf("Failed to find schedules of doctor %s: %+v", req.DoctorID, err)
		return nil, err
	}
	for i := range existing {
		// HH:MM strings order the same way as the times they denote
		if schedule.StartTime < existing[i].EndTime && existing[i].StartTime < schedule.EndTime {
			return nil, ErrScheduleOverlap
		}
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := u.scheduleRepo.Create(tx, schedule); err != nil {
			return err
		}
		return u.audit.LogCreate(ctx, tx, actorFromContext(ctx), entity.AuditActionScheduleCreate,
			entity.AuditEntitySchedule, strconv.Itoa(schedule.ID), converter.ScheduleToResponse(schedule))
	})
	if err != nil {
		u.log.Warnf("Failed to create schedule: %+v", err)
		return nil, err
	}

	return converter.ScheduleToResponse(schedule), nil
}

func (u *scheduleUsecase) ListSchedules(ctx context.Context, doctorID uuid.UUID) (*dto.ScheduleListResponse, error) {
	db := u.db.WithContext(ctx)

	doctor, err := u.doctorRepo.FindByID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor: %+v", err)
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	schedules, err := u.scheduleRepo.FindByDoctorID(db, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find schedules by doctor: %+v", err)
		return nil, err
	}

	return &dto.ScheduleListResponse{
		Schedules: converter.SchedulesToResponses(schedules),
		Total:     len(schedules),
	}, nil
}

// DeleteSchedule removes a weekly window. Appointments already booked in it are kept.
func (u *scheduleUsecase) DeleteSchedule(ctx context.Context, scheduleID int) error {
	db := u.db.WithContext(ctx)

	schedule, err := u.scheduleRepo.FindByID(db, scheduleID)
	if err != nil {
		u.log.Warnf("Failed to find schedule: %+v", err)
		return err
	}
	if schedule == nil {
		return ErrScheduleNotFound
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		affected, err := u.scheduleRepo.Delete(tx, scheduleID)
		if err != nil {
			u.log.Warnf("Failed to delete schedule: %+v", err)
			return err
		}
		if affected == 0 {
			return ErrScheduleNotFound
		}
		return u.audit.LogDelete(ctx, tx, actorFromContext(ctx), entity.AuditActionScheduleDelete,
			entity.AuditEntitySchedule, strconv.Itoa(scheduleID), converter.ScheduleToResponse(schedule))
	})
	if err != nil {
		return err
	}

	u.forgetSlotCounters(ctx, schedule)
	return nil
}

// forgetSlotCounters drops the redis counters of the removed window on every
// bookable date, so a schedule recreated at the same times reseeds them from
// the database. The date range is widened by a day on each side to cover any
// hospital timezone.
func (u *scheduleUsecase) forgetSlotCounters(ctx context.Context, schedule *entity.DoctorSchedule) {
	if u.capacity == nil || u.clock == nil {
		return
	}

	now := u.clock.Now().UTC()
	for offset := -1; offset <= bookingHorizonDays+1; offset++ {
		date := now.AddDate(0, 0, offset)
		if date.Weekday() != schedule.DayOfWeek {
			continue
		}
		for _, window := range schedule.Slots() {
			slot := entity.SlotKey{DoctorID: schedule.DoctorID, Date: date.Format("2006-01-02"), StartTime: window.Start}
			if err := u.capacity.Forget(ctx, slot); err != nil {
				u.log.Warnf("Failed to forget slot counter: %+v", err)
			}
		}
	}
}
