package usecase

import (
	"context"
	"errors"
	"strings"

	"hospital-booking/internal/converter"
	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/domain/entity"
	"hospital-booking/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrHospitalNotFound = errors.New("hospital not found")
	ErrDoctorNotFound   = errors.New("doctor not found")
)

type DoctorUsecase interface {
	GetHospital(ctx context.Context, hospitalID uuid.UUID) (*dto.HospitalResponse, error)
	ListDoctors(ctx context.Context, hospitalID uuid.UUID, filter *dto.DoctorFilterRequest) (*dto.DoctorListResponse, error)
}

type doctorUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	hospitalRepo repository.HospitalRepository
	doctorRepo   repository.DoctorProfileRepository
}

func NewDoctorUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	hospitalRepo repository.HospitalRepository,
	doctorRepo repository.DoctorProfileRepository,
) DoctorUsecase {
	return &doctorUsecase{
		db:           db,
		log:          log,
		hospitalRepo: hospitalRepo,
		doctorRepo:   doctorRepo,
	}
}

// GetHospital returns an active hospital. Inactive hospitals are reported as not found.
func (u *doctorUsecase) GetHospital(ctx context.Context, hospitalID uuid.UUID) (*dto.HospitalResponse, error) {
	hospital, err := findActiveHospital(u.db.WithContext(ctx), u.hospitalRepo, hospitalID)
	if err != nil {
		if !errors.Is(err, ErrHospitalNotFound) {
			u.log.Warnf("Failed to find hospital %s: %+v", hospitalID, err)
		}
		return nil, err
	}
	return converter.HospitalToResponse(hospital), nil
}

// ListDoctors returns the bookable doctors of a hospital, ordered by name
func (u *doctorUsecase) ListDoctors(ctx context.Context, hospitalID uuid.UUID, filter *dto.DoctorFilterRequest) (*dto.DoctorListResponse, error) {
	db := u.db.WithContext(ctx)

	if _, err := findActiveHospital(db, u.hospitalRepo, hospitalID); err != nil {
		if !errors.Is(err, ErrHospitalNotFound) {
			u.log.Warnf("Failed to find hospital %s: %+v", hospitalID, err)
		}
		return nil, err
	}

	var domainFilter *entity.DoctorFilter
	if filter != nil {
		domainFilter = &entity.DoctorFilter{
			Name:           strings.TrimSpace(filter.Name),
			Specialization: strings.TrimSpace(filter.Specialization),
		}
	}

	doctors, err := u.doctorRepo.FindActiveByHospital(db, hospitalID, domainFilter)
	if err != nil {
		u.log.Warnf("Failed to list doctors of hospital %s: %+v", hospitalID, err)
		return nil, err
	}

	return &dto.DoctorListResponse{
		Doctors: converter.DoctorProfilesToResponses(doctors),
		Total:   len(doctors),
	}, nil
}

func findActiveHospital(db *gorm.DB, repo repository.HospitalRepository, hospitalID uuid.UUID) (*entity.Hospital, error) {
	hospital, err := repo.FindByID(db, hospitalID)
	if err != nil {
		return nil, err
	}
	if hospital == nil || !hospital.Active() {
		return nil, ErrHospitalNotFound
	}
	return hospital, nil
}

// findHospitalDoctor returns an active doctor practicing at the given hospital
func findHospitalDoctor(db *gorm.DB, repo repository.DoctorProfileRepository, hospitalID, doctorID uuid.UUID) (*entity.DoctorProfile, error) {
	doctor, err := repo.FindByID(db, doctorID)
	if err != nil {
		return nil, err
	}
	if doctor == nil || doctor.HospitalID != hospitalID || !doctor.Active() {
		return nil, ErrDoctorNotFound
	}
	return doctor, nil
}
