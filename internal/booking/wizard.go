package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"hospital-booking/pkg/validator"

	"github.com/sirupsen/logrus"
)

// Step is a position in the four-step booking flow.
type Step int

const (
	StepPatientDetails Step = iota + 1
	StepDoctorSelection
	StepSlotSelection
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepPatientDetails:
		return "patient_details"
	case StepDoctorSelection:
		return "doctor_selection"
	case StepSlotSelection:
		return "slot_selection"
	case StepConfirmation:
		return "confirmation"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

var (
	ErrStepIncomplete      = errors.New("current step is not complete")
	ErrWrongStep           = errors.New("action is not available on the current step")
	ErrNoPreviousStep      = errors.New("already on the first step")
	ErrNoNextStep          = errors.New("no step after confirmation, submit the booking instead")
	ErrWizardLocked        = errors.New("booking already submitted successfully")
	ErrSubmissionInFlight  = errors.New("booking submission is in progress")
	ErrStaleAvailability   = errors.New("availability response no longer matches the selection")
	ErrAvailabilityFetch   = errors.New("failed to load doctor availability")
	ErrSlotNotFound        = errors.New("slot is not offered or has already elapsed")
	ErrSlotUnavailable     = errors.New("slot is fully booked")
	ErrDateNotFound        = errors.New("no slots on the selected date")
	ErrDoctorRequired      = errors.New("doctor id is required")
	ErrHospitalUnresolved  = errors.New("hospital information is not loaded")
	ErrSubmissionFailed    = errors.New("failed to create appointment")
	ErrDuplicateSubmission = errors.New("booking has already been submitted")
)

const msgHospitalUnresolved = "Hospital information is not loaded. Please refresh the page and try again."

// AvailabilityFetcher loads raw availability for a doctor of a hospital.
type AvailabilityFetcher interface {
	FetchAvailability(ctx context.Context, hospitalID, doctorID string) (DoctorAvailability, error)
}

// AppointmentCreator issues the single create call. The response is passed on untouched.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, req AppointmentRequest) (json.RawMessage, error)
}

// HospitalResolver provides the hospital the wizard books into. An empty id means unresolved.
type HospitalResolver interface {
	HospitalID(ctx context.Context) (string, error)
}

// Observer receives wizard events, typically for metrics.
type Observer interface {
	ObserveTransition(from, to Step)
	ObserveAvailabilityFetch(elapsed time.Duration, err error)
	ObserveSubmission(outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveTransition(Step, Step) {}
func (noopObserver) ObserveAvailabilityFetch(time.Duration, error) {}
func (noopObserver) ObserveSubmission(string) {}

// BookingDraft aggregates the selections made across the steps.
type BookingDraft struct {
	Patient      PatientDraft `json:"patient"`
	DoctorID     string       `json:"doctorId,omitempty"`
	SelectedSlot *Slot        `json:"selectedSlot,omitempty"`
	HospitalID   string       `json:"hospitalId,omitempty"`
}

// WizardState tracks navigation and submission.
type WizardState struct {
	CurrentStep  Step   `json:"currentStep"`
	IsSubmitting bool   `json:"isSubmitting"`
	IsSuccess    bool   `json:"isSuccess"`
	LastError    string `json:"lastError,omitempty"`
}

// View is everything needed to render the wizard at one instant.
type View struct {
	State          WizardState     `json:"state"`
	Draft          BookingDraft    `json:"draft"`
	PatientErrors  PatientErrors   `json:"patientErrors"`
	CanAdvance     bool            `json:"canAdvance"`
	SubmitDisabled bool            `json:"submitDisabled"`
	SlotsLoading   bool            `json:"slotsLoading"`
	Slots          GroupedSlots    `json:"slots"`
	SelectedDate   string          `json:"selectedDate,omitempty"`
	NoSlots        bool            `json:"noSlots"`
	Result         json.RawMessage `json:"result,omitempty"`
}

type Options struct {
	Fetcher   AvailabilityFetcher
	Creator   AppointmentCreator
	Hospitals HospitalResolver
	Validator *validator.CustomValidator
	Location  *time.Location
	Now       func() time.Time
	Log       *logrus.Logger
	Observer  Observer
}

// Wizard is one booking flow. It is safe for concurrent use; network calls run
// without holding the lock and their results are applied only if still current.
type Wizard struct {
	mu sync.Mutex

	opts Options

	state WizardState
	draft BookingDraft

	showPatientErrors bool
	slots             []Slot
	selectedDate      string
	loadSeq           uint64
	loading           bool
	result            json.RawMessage
}

func NewWizard(opts Options) *Wizard {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	if opts.Validator == nil {
		opts.Validator = validator.NewValidator()
	}
	return &Wizard{
		opts:  opts,
		state: WizardState{CurrentStep: StepPatientDetails},
	}
}

// View renders the current state. Field errors, the advance gate and slot
// grouping are recomputed from the draft and the clock on every call.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.viewLocked()
}

func (w *Wizard) viewLocked() View {
	v := View{
		State:          w.state,
		Draft:          w.draft,
		CanAdvance:     w.canAdvanceLocked(),
		SubmitDisabled: w.state.IsSubmitting || w.state.IsSuccess,
		SlotsLoading:   w.loading,
		Result:         w.result,
	}
	if w.draft.SelectedSlot != nil {
		s := *w.draft.SelectedSlot
		v.Draft.SelectedSlot = &s
	}
	if w.showPatientErrors {
		v.PatientErrors = w.draft.Patient.Validate()
	}
	if w.state.CurrentStep >= StepSlotSelection {
		v.Slots = w.groupedLocked()
		v.SelectedDate = v.Slots.DefaultDate(w.selectedDate)
		v.NoSlots = v.Slots.Empty()
	}
	return v
}

// CanAdvance reports whether Next would be accepted on the current step.
func (w *Wizard) CanAdvance() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canAdvanceLocked()
}

func (w *Wizard) canAdvanceLocked() bool {
	if w.state.IsSuccess || w.state.IsSubmitting {
		return false
	}
	switch w.state.CurrentStep {
	case StepPatientDetails:
		return CanAdvanceFromPatient(w.draft.Patient)
	case StepDoctorSelection:
		return w.draft.DoctorID != ""
	case StepSlotSelection:
		return w.draft.SelectedSlot != nil
	default:
		return false
	}
}

func (w *Wizard) groupedLocked() GroupedSlots {
	return Group(w.slots, w.opts.Now(), w.opts.Location)
}

func (w *Wizard) frozenLocked() error {
	if w.state.IsSuccess {
		return ErrWizardLocked
	}
	if w.state.IsSubmitting {
		return ErrSubmissionInFlight
	}
	return nil
}

// SetPatient replaces the patient draft. Only editable on the first step.
func (w *Wizard) SetPatient(p PatientDraft) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.frozenLocked(); err != nil {
		return w.viewLocked(), err
	}
	if w.state.CurrentStep != StepPatientDetails {
		return w.viewLocked(), ErrWrongStep
	}
	w.draft.Patient = p
	return w.viewLocked(), nil
}

// SelectDoctor picks the doctor on the second step. Changing the doctor
// invalidates any availability request still in flight.
func (w *Wizard) SelectDoctor(doctorID string) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.frozenLocked(); err != nil {
		return w.viewLocked(), err
	}
	if w.state.CurrentStep != StepDoctorSelection {
		return w.viewLocked(), ErrWrongStep
	}
	if doctorID == "" {
		return w.viewLocked(), ErrDoctorRequired
	}
	if doctorID != w.draft.DoctorID {
		w.draft.DoctorID = doctorID
		w.resetSlotsLocked()
	}
	w.state.LastError = ""
	return w.viewLocked(), nil
}

// SelectDate switches the active date tab on the slot step.
func (w *Wizard) SelectDate(date string) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.frozenLocked(); err != nil {
		return w.viewLocked(), err
	}
	if w.state.CurrentStep != StepSlotSelection {
		return w.viewLocked(), ErrWrongStep
	}
	if len(w.groupedLocked().Slots(date)) == 0 {
		return w.viewLocked(), ErrDateNotFound
	}
	w.selectedDate = date
	return w.viewLocked(), nil
}

// SelectSlot picks a slot by identity. The slot must still be running or in
// the future and must have free capacity at this moment.
func (w *Wizard) SelectSlot(identity string) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.frozenLocked(); err != nil {
		return w.viewLocked(), err
	}
	if w.state.CurrentStep != StepSlotSelection {
		return w.viewLocked(), ErrWrongStep
	}
	slot, ok := w.groupedLocked().Find(identity)
	if !ok {
		return w.viewLocked(), ErrSlotNotFound
	}
	if !slot.IsAvailable {
		return w.viewLocked(), ErrSlotUnavailable
	}
	w.draft.SelectedSlot = &slot
	w.selectedDate = slot.Date
	return w.viewLocked(), nil
}

// Next moves one step forward if the current step is complete. Leaving the
// doctor step loads that doctor's availability first.
func (w *Wizard) Next(ctx context.Context) (View, error) {
	w.mu.Lock()

	if err := w.frozenLocked(); err != nil {
		defer w.mu.Unlock()
		return w.viewLocked(), err
	}

	from := w.state.CurrentStep
	switch from {
	case StepPatientDetails:
		defer w.mu.Unlock()
		if !CanAdvanceFromPatient(w.draft.Patient) {
			w.showPatientErrors = true
			return w.viewLocked(), ErrStepIncomplete
		}
		w.showPatientErrors = false
		w.moveLocked(StepDoctorSelection)
		return w.viewLocked(), nil

	case StepDoctorSelection:
		if w.draft.DoctorID == "" {
			defer w.mu.Unlock()
			return w.viewLocked(), ErrStepIncomplete
		}
		w.mu.Unlock()
		return w.loadAvailability(ctx)

	case StepSlotSelection:
		defer w.mu.Unlock()
		if w.draft.SelectedSlot == nil {
			return w.viewLocked(), ErrStepIncomplete
		}
		w.moveLocked(StepConfirmation)
		return w.viewLocked(), nil

	default:
		defer w.mu.Unlock()
		return w.viewLocked(), ErrNoNextStep
	}
}

// Back moves one step backward and clears selections made after the target step.
func (w *Wizard) Back() (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.frozenLocked(); err != nil {
		return w.viewLocked(), err
	}

	switch w.state.CurrentStep {
	case StepConfirmation:
		// Time may have passed; force a fresh pick.
		w.draft.SelectedSlot = nil
		w.moveLocked(StepSlotSelection)
	case StepSlotSelection:
		w.draft.DoctorID = ""
		w.resetSlotsLocked()
		w.moveLocked(StepDoctorSelection)
	case StepDoctorSelection:
		w.loadSeq++
		w.loading = false
		w.moveLocked(StepPatientDetails)
	default:
		return w.viewLocked(), ErrNoPreviousStep
	}
	return w.viewLocked(), nil
}

func (w *Wizard) moveLocked(to Step) {
	from := w.state.CurrentStep
	w.state.CurrentStep = to
	w.state.LastError = ""
	w.opts.Observer.ObserveTransition(from, to)
	w.opts.Log.WithFields(logrus.Fields{
		"from": from.String(),
		"to":   to.String(),
	}).Debug("Booking wizard transition")
}

func (w *Wizard) resetSlotsLocked() {
	w.loadSeq++
	w.loading = false
	w.slots = nil
	w.selectedDate = ""
	w.draft.SelectedSlot = nil
}

// loadAvailability fetches, normalizes and groups the chosen doctor's slots,
// then enters the slot step. A response is dropped when the doctor changed,
// the user navigated away or a newer load was issued meanwhile.
func (w *Wizard) loadAvailability(ctx context.Context) (View, error) {
	w.mu.Lock()
	w.loadSeq++
	seq := w.loadSeq
	doctorID := w.draft.DoctorID
	w.loading = true
	w.state.LastError = ""
	w.mu.Unlock()

	start := time.Now()
	av, err := w.fetch(ctx, doctorID)
	w.opts.Observer.ObserveAvailabilityFetch(time.Since(start), err)

	w.mu.Lock()
	defer w.mu.Unlock()

	if seq != w.loadSeq || doctorID != w.draft.DoctorID || w.state.CurrentStep != StepDoctorSelection {
		w.opts.Log.Debugf("Discarding stale availability for doctor %s", doctorID)
		return w.viewLocked(), ErrStaleAvailability
	}
	w.loading = false

	if err != nil {
		w.opts.Log.Warnf("Failed to load availability for doctor %s: %+v", doctorID, err)
		w.state.LastError = err.Error()
		return w.viewLocked(), fmt.Errorf("%w: %v", ErrAvailabilityFetch, err)
	}

	w.slots = Normalize(av)
	w.selectedDate = ""
	w.draft.SelectedSlot = nil
	w.moveLocked(StepSlotSelection)
	return w.viewLocked(), nil
}

func (w *Wizard) fetch(ctx context.Context, doctorID string) (DoctorAvailability, error) {
	if w.opts.Fetcher == nil {
		return DoctorAvailability{}, errors.New("availability source is not configured")
	}
	hospitalID, err := w.resolveHospital(ctx)
	if err != nil {
		return DoctorAvailability{}, err
	}
	return w.opts.Fetcher.FetchAvailability(ctx, hospitalID, doctorID)
}

func (w *Wizard) resolveHospital(ctx context.Context) (string, error) {
	if w.opts.Hospitals == nil {
		return "", ErrHospitalUnresolved
	}
	id, err := w.opts.Hospitals.HospitalID(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHospitalUnresolved, err)
	}
	if id == "" {
		return "", ErrHospitalUnresolved
	}
	return id, nil
}
