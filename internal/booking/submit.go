package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Submission outcomes reported to the observer.
const (
	OutcomeSuccess        = "success"
	OutcomeDuplicate      = "duplicate"
	OutcomeNoHospital     = "hospital_unresolved"
	OutcomeInvalidPayload = "invalid_payload"
	OutcomeBackendFailure = "backend_failure"
	OutcomeStepIncomplete = "step_incomplete"
)

// Submit creates the appointment from the completed draft.
//
// While a submission is in flight or after one succeeded the call does nothing
// and returns ErrDuplicateSubmission, so at most one create call is ever made
// per successful booking. Failures keep the draft for correction and re-enable
// submission; there is no automatic retry.
func (w *Wizard) Submit(ctx context.Context) (json.RawMessage, error) {
	w.mu.Lock()
	if w.state.IsSubmitting || w.state.IsSuccess {
		w.mu.Unlock()
		w.opts.Observer.ObserveSubmission(OutcomeDuplicate)
		return nil, ErrDuplicateSubmission
	}
	if w.state.CurrentStep != StepConfirmation || w.draft.SelectedSlot == nil {
		w.mu.Unlock()
		w.opts.Observer.ObserveSubmission(OutcomeStepIncomplete)
		return nil, ErrStepIncomplete
	}
	w.state.IsSubmitting = true
	w.state.LastError = ""
	draft := w.draft
	slot := *w.draft.SelectedSlot
	draft.SelectedSlot = &slot
	w.mu.Unlock()

	hospitalID, err := w.resolveHospital(ctx)
	if err != nil {
		w.opts.Log.Warnf("Failed to resolve hospital before submission: %+v", err)
		return nil, w.failSubmission(OutcomeNoHospital, msgHospitalUnresolved, err)
	}

	req := BuildAppointmentRequest(hospitalID, draft)
	if err := ValidateAppointmentRequest(w.opts.Validator, &req); err != nil {
		return nil, w.failSubmission(OutcomeInvalidPayload, err.Error(), err)
	}

	if w.opts.Creator == nil {
		err := errors.New("appointment backend is not configured")
		return nil, w.failSubmission(OutcomeBackendFailure, err.Error(), fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}

	resp, err := w.opts.Creator.CreateAppointment(ctx, req)
	if err != nil {
		w.opts.Log.Warnf("Failed to create appointment for doctor %s on %s %s: %+v", req.DoctorID, req.AppointmentDate, req.StartTime, err)
		return nil, w.failSubmission(OutcomeBackendFailure, err.Error(), fmt.Errorf("%w: %w", ErrSubmissionFailed, err))
	}

	w.mu.Lock()
	w.state.IsSuccess = true
	w.state.IsSubmitting = false
	w.result = resp
	// The draft is consumed; only the terminal display remains.
	w.draft = BookingDraft{HospitalID: hospitalID}
	w.slots = nil
	w.selectedDate = ""
	w.mu.Unlock()

	w.opts.Observer.ObserveSubmission(OutcomeSuccess)
	w.opts.Log.Infof("Appointment submitted: hospital=%s doctor=%s date=%s start=%s", hospitalID, req.DoctorID, req.AppointmentDate, req.StartTime)
	return resp, nil
}

func (w *Wizard) failSubmission(outcome, message string, err error) error {
	w.mu.Lock()
	w.state.IsSubmitting = false
	w.state.LastError = message
	w.mu.Unlock()

	w.opts.Observer.ObserveSubmission(outcome)
	return err
}
