package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"hospital-booking/internal/booking"
	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/delivery/http/middleware"
	"hospital-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrWizardNotFound   = errors.New("booking wizard not found or expired")
	ErrHospitalRequired = errors.New("hospital id is required")
)

const (
	minSessionSweepInterval = time.Second
	maxSessionSweepInterval = time.Minute
)

// WizardObserver receives wizard events and the number of live sessions.
type WizardObserver interface {
	booking.Observer
	SetActiveSessions(n int)
}

// WizardUsecase hosts booking wizards as server-side sessions. Every
// operation returns the wizard view, also when the operation was refused,
// so callers can render inline errors.
type WizardUsecase interface {
	Start(ctx context.Context, hospitalID string) (*dto.WizardResponse, error)
	Get(ctx context.Context, wizardID uuid.UUID) (*dto.WizardResponse, error)
	Discard(ctx context.Context, wizardID uuid.UUID) error
	SetPatient(ctx context.Context, wizardID uuid.UUID, patient booking.PatientDraft) (*dto.WizardResponse, error)
	SelectDoctor(ctx context.Context, wizardID uuid.UUID, doctorID string) (*dto.WizardResponse, error)
	SelectDate(ctx context.Context, wizardID uuid.UUID, date string) (*dto.WizardResponse, error)
	SelectSlot(ctx context.Context, wizardID uuid.UUID, identity string) (*dto.WizardResponse, error)
	Next(ctx context.Context, wizardID uuid.UUID) (*dto.WizardResponse, error)
	Back(ctx context.Context, wizardID uuid.UUID) (*dto.WizardResponse, error)
	Submit(ctx context.Context, wizardID uuid.UUID) (*dto.WizardResponse, error)
	ActiveSessions() int
	Stop()
}

type wizardSession struct {
	id         uuid.UUID
	owner      uuid.UUID
	hospitalID string
	wizard     *booking.Wizard

	// guarded by wizardUsecase.mu
	expiresAt time.Time
}

type wizardUsecase struct {
	log       *logrus.Logger
	validator *validator.CustomValidator
	clock     *HospitalClock
	backend   WizardBackend
	observer  WizardObserver
	ttl       time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*wizardSession

	// Graceful shutdown
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// NewWizardUsecase creates the session host and starts the goroutine that
// expires idle sessions. Call Stop() during graceful shutdown.
func NewWizardUsecase(
	log *logrus.Logger,
	validator *validator.CustomValidator,
	clock *HospitalClock,
	backend WizardBackend,
	observer WizardObserver,
	ttl time.Duration,
) WizardUsecase {
	u := &wizardUsecase{
		log:       log,
		validator: validator,
		clock:     clock,
		backend:   backend,
		observer:  observer,
		ttl:       ttl,
		sessions:  make(map[uuid.UUID]*wizardSession),
		stopChan:  make(chan struct{}),
	}

	u.wg.Add(1)
	go u.expireSessionsLoop()

	return u
}

// Start opens a wizard for a hospital. An empty hospitalID falls back to the
// hospital of the caller's token.
func (u *wizardUsecase) Start(ctx context.Context, hospitalID string) (*dto.WizardResponse, error) {
	if hospitalID == "" {
		hospitalID, _ = middleware.GetHospitalIDFromContext(ctx)
	}
	if hospitalID == "" {
		return nil, ErrHospitalRequired
	}

	hospital, err := u.backend.GetHospital(ctx, hospitalID)
	if err != nil {
		if !errors.Is(err, ErrHospitalNotFound) {
			u.log.Warnf("Failed to load hospital %s for wizard: %+v", hospitalID, err)
		}
		return nil, err
	}

	session := &wizardSession{
		id:         uuid.New(),
		hospitalID: hospital.ID.String(),
	}
	if owner := actorFromContext(ctx); owner != nil {
		session.owner = *owner
	}
	session.wizard = booking.NewWizard(booking.Options{
		Fetcher:   u.backend,
		Creator:   u.backend,
		Hospitals: &sessionHospital{backend: u.backend, hospitalID: session.hospitalID},
		Validator: u.validator,
		Location:  u.clock.LocationByName(hospital.Timezone),
		Now:       u.clock.Now,
		Log:       u.log,
		Observer:  u.observer,
	})

	u.mu.Lock()
	expiresAt := u.clock.Now().Add(u.ttl)
	session.expiresAt = expiresAt
	u.sessions[session.id] = session
	active := len(u.sessions)
	u.mu.Unlock()

	u.reportActive(active)
	u.log.Debugf("Booking wizard %s started for hospital %s", session.id, session.hospitalID)
	return session.response(session.wizard.View(), expiresAt), nil
}

func (u *wizardUsecase) Get(ctx context.Context, wizardID uuid.UUID) (*dto.WizardResponse, error) {
	return u.apply(ctx, wizardID, func(w *booking.Wizard) (booking.View, error) {
		return w.View(), nil
	})
}

// Discard drops a session; an in-flight network call finishes but its result is never read.
func (u *wizardUsecase) Discard(ctx context.Context, wizardID uuid.UUID) error {
	if _, _, err := u.lookup(ctx, wizardID); err != nil {
		return err
	}

	u.mu.Lock()
	delete(u.sessions, wizardID)
	active := len(u.sessions)
	u.mu.Unlock()

	u.reportActive(active)
	return nil
}

func (u *wizardUsecase) SetPatient(ctx context.Context, wizardID uuid.UUID, patient booking.PatientDraft) (*dto.WizardResponse, error) {
	return u.apply(ctx, wizardID, func(w *booking.Wizard) (booking.View, error) {
		return w.SetPatient(patient)
	})
}

func (u *wizardUsecase) SelectDoctor(ctx context.Context, wizardID uuid.UUID, doctorID string) (*dto.WizardResponse, error) {
	return u.apply(ctx, wizardID, func(w *booking.Wizard) (booking.View, error) {
		return w.SelectDoctor(doctorID)
	})
}

func (u *wizardUsecase) SelectDate(ctx context.Context, wizardID uuid.UUID, date string) (*dto.WizardResponse, error) {
	return u.apply(ctx, wizardID, func(w *booking.Wizard) (booking.View, error) {
		return w.SelectDate(date)
	})
}

func (u *wizardUsecase) SelectSlot(ctx context.Context, wizardID uuid.UUID, identity string) (*dto.WizardResponse, error) {
	return u.apply(ctx, wizardID, func(w *booking.Wizard) (booking.View, error) {
		return w.SelectSlot(identity)
	})
}

func (u *wizardUsecase) Next(ctx context.Context, wizardID uuid.UUID) (*dto.WizardResponse, error) {
	return u.apply(ctx, wizardID, func(w *booking.Wizard) (booking.View, error) {
		return w.Next(ctx)
	})
}

func (u *wizardUsecase) Back(ctx context.Context, wizardID uuid.UUID) (*dto.WizardResponse, error) {
	return u.apply(ctx, wizardID, func(w *booking.Wizard) (booking.View, error) {
		return w.Back()
	})
}

// Submit creates the appointment. The backend's response is exposed as View.Result.
func (u *wizardUsecase) Submit(ctx context.Context, wizardID uuid.UUID) (*dto.WizardResponse, error) {
	return u.apply(ctx, wizardID, func(w *booking.Wizard) (booking.View, error) {
		_, err := w.Submit(ctx)
		return w.View(), err
	})
}

func (u *wizardUsecase) ActiveSessions() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.sessions)
}

// Stop gracefully shuts down the expiry goroutine.
// Safe to call multiple times.
func (u *wizardUsecase) Stop() {
	if u.stopped.CompareAndSwap(false, true) {
		close(u.stopChan)
		u.wg.Wait()
		u.log.Info("Wizard session host stopped")
	}
}

func (u *wizardUsecase) apply(ctx context.Context, wizardID uuid.UUID, fn func(w *booking.Wizard) (booking.View, error)) (*dto.WizardResponse, error) {
	session, expiresAt, err := u.lookup(ctx, wizardID)
	if err != nil {
		return nil, err
	}
	view, err := fn(session.wizard)
	return session.response(view, expiresAt), err
}

// lookup finds a live session owned by the caller and extends its lifetime
func (u *wizardUsecase) lookup(ctx context.Context, wizardID uuid.UUID) (*wizardSession, time.Time, error) {
	now := u.clock.Now()

	u.mu.Lock()
	defer u.mu.Unlock()

	session, ok := u.sessions[wizardID]
	if !ok {
		return nil, time.Time{}, ErrWizardNotFound
	}
	if !now.Before(session.expiresAt) {
		delete(u.sessions, wizardID)
		return nil, time.Time{}, ErrWizardNotFound
	}
	if session.owner != uuid.Nil {
		caller := actorFromContext(ctx)
		if caller == nil || *caller != session.owner {
			return nil, time.Time{}, ErrWizardNotFound
		}
	}

	session.expiresAt = now.Add(u.ttl)
	return session, session.expiresAt, nil
}

// expireSessionsLoop runs in background to drop idle sessions
func (u *wizardUsecase) expireSessionsLoop() {
	defer u.wg.Done()

	interval := min(max(u.ttl/4, minSessionSweepInterval), maxSessionSweepInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-u.stopChan:
			u.log.Debug("Wizard session expiry goroutine stopping")
			return
		case <-ticker.C:
			u.expireSessions()
		}
	}
}

func (u *wizardUsecase) expireSessions() {
	now := u.clock.Now()

	u.mu.Lock()
	var expired int
	for id, session := range u.sessions {
		if !now.Before(session.expiresAt) {
			delete(u.sessions, id)
			expired++
		}
	}
	active := len(u.sessions)
	u.mu.Unlock()

	if expired > 0 {
		u.log.Debugf("Expired %d idle booking wizards", expired)
	}
	u.reportActive(active)
}

func (u *wizardUsecase) reportActive(n int) {
	if u.observer != nil {
		u.observer.SetActiveSessions(n)
	}
}

func (s *wizardSession) response(view booking.View, expiresAt time.Time) *dto.WizardResponse {
	return &dto.WizardResponse{
		ID:         s.id,
		HospitalID: s.hospitalID,
		Step:       view.State.CurrentStep.String(),
		ExpiresAt:  expiresAt,
		Wizard:     view,
	}
}

// sessionHospital resolves the session's hospital through the backend on
// every use, so a hospital that stopped accepting bookings is noticed.
type sessionHospital struct {
	backend    WizardBackend
	hospitalID string
}

func (h *sessionHospital) HospitalID(ctx context.Context) (string, error) {
	hospital, err := h.backend.GetHospital(ctx, h.hospitalID)
	if err != nil {
		return "", err
	}
	return hospital.ID.String(), nil
}
