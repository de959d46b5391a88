package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"hospital-booking/internal/booking"
	"hospital-booking/internal/delivery/dto"
	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/response"
	"hospital-booking/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type WizardHandler struct {
	wizardUsecase usecase.WizardUsecase
	validator     *validator.CustomValidator
}

func NewWizardHandler(wizardUsecase usecase.WizardUsecase, validator *validator.CustomValidator) *WizardHandler {
	return &WizardHandler{
		wizardUsecase: wizardUsecase,
		validator:     validator,
	}
}

func (h *WizardHandler) StartWizard(w http.ResponseWriter, r *http.Request) {
	var req dto.StartWizardRequest
	// Empty body is allowed: the hospital then comes from the token
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	wizard, err := h.wizardUsecase.Start(r.Context(), req.HospitalID)
	if err != nil {
		h.writeError(w, nil, err)
		return
	}

	response.Success(w, http.StatusCreated, "Booking wizard started", wizard)
}

func (h *WizardHandler) GetWizard(w http.ResponseWriter, r *http.Request) {
	wizardID, ok := wizardIDFromPath(w, r)
	if !ok {
		return
	}

	wizard, err := h.wizardUsecase.Get(r.Context(), wizardID)
	h.respond(w, wizard, err, "Booking wizard retrieved successfully")
}

func (h *WizardHandler) DiscardWizard(w http.ResponseWriter, r *http.Request) {
	wizardID, ok := wizardIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.wizardUsecase.Discard(r.Context(), wizardID); err != nil {
		h.writeError(w, nil, err)
		return
	}

	response.Success(w, http.StatusOK, "Booking wizard discarded", nil)
}

func (h *WizardHandler) SetPatient(w http.ResponseWriter, r *http.Request) {
	wizardID, ok := wizardIDFromPath(w, r)
	if !ok {
		return
	}

	var req booking.PatientDraft
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	wizard, err := h.wizardUsecase.SetPatient(r.Context(), wizardID, req)
	h.respond(w, wizard, err, "Patient details updated")
}

func (h *WizardHandler) SelectDoctor(w http.ResponseWriter, r *http.Request) {
	wizardID, ok := wizardIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.SelectDoctorRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	wizard, err := h.wizardUsecase.SelectDoctor(r.Context(), wizardID, req.DoctorID)
	h.respond(w, wizard, err, "Doctor selected")
}

func (h *WizardHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	wizardID, ok := wizardIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.SelectDateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	wizard, err := h.wizardUsecase.SelectDate(r.Context(), wizardID, req.Date)
	h.respond(w, wizard, err, "Date selected")
}

func (h *WizardHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	wizardID, ok := wizardIDFromPath(w, r)
	if !ok {
		return
	}

	var req dto.SelectSlotRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	wizard, err := h.wizardUsecase.SelectSlot(r.Context(), wizardID, req.Identity)
	h.respond(w, wizard, err, "Slot selected")
}

func (h *WizardHandler) Next(w http.ResponseWriter, r *http.Request) {
	wizardID, ok := wizardIDFromPath(w, r)
	if !ok {
		return
	}

	wizard, err := h.wizardUsecase.Next(r.Context(), wizardID)
	h.respond(w, wizard, err, "Moved to next step")
}

func (h *WizardHandler) Back(w http.ResponseWriter, r *http.Request) {
	wizardID, ok := wizardIDFromPath(w, r)
	if !ok {
		return
	}

	wizard, err := h.wizardUsecase.Back(r.Context(), wizardID)
	h.respond(w, wizard, err, "Moved to previous step")
}

func (h *WizardHandler) Submit(w http.ResponseWriter, r *http.Request) {
	wizardID, ok := wizardIDFromPath(w, r)
	if !ok {
		return
	}

	wizard, err := h.wizardUsecase.Submit(r.Context(), wizardID)
	if err != nil {
		h.writeError(w, wizard, err)
		return
	}

	response.Success(w, http.StatusCreated, "Appointment booked successfully", wizard)
}

func (h *WizardHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	if err := h.validator.Validate(req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return false
	}
	return true
}

func (h *WizardHandler) respond(w http.ResponseWriter, wizard *dto.WizardResponse, err error, message string) {
	if err != nil {
		h.writeError(w, wizard, err)
		return
	}
	response.Success(w, http.StatusOK, message, wizard)
}

// writeError maps wizard errors to statuses. The wizard view, when there is
// one, is sent along so the client can show field errors and LastError.
func (h *WizardHandler) writeError(w http.ResponseWriter, wizard *dto.WizardResponse, err error) {
	status, message := wizardErrorStatus(err)
	if wizard != nil && wizard.Wizard.State.LastError != "" && reportsLastError(err) {
		message = wizard.Wizard.State.LastError
	}
	if wizard == nil {
		response.Error(w, status, message, nil)
		return
	}
	response.Error(w, status, message, wizard)
}

func wizardErrorStatus(err error) (int, string) {
	var payloadErr *booking.PayloadError
	switch {
	case errors.Is(err, usecase.ErrWizardNotFound):
		return http.StatusNotFound, "Booking wizard not found or expired"
	case errors.Is(err, usecase.ErrHospitalRequired):
		return http.StatusBadRequest, "Hospital ID is required"
	case errors.Is(err, usecase.ErrHospitalNotFound):
		return http.StatusNotFound, "Hospital not found"
	case errors.Is(err, booking.ErrStepIncomplete):
		return http.StatusUnprocessableEntity, "Please complete the current step"
	case errors.Is(err, booking.ErrDoctorRequired):
		return http.StatusUnprocessableEntity, "Please select a doctor"
	case errors.Is(err, booking.ErrSlotNotFound):
		return http.StatusUnprocessableEntity, "This slot is not offered or has already ended"
	case errors.Is(err, booking.ErrSlotUnavailable):
		return http.StatusUnprocessableEntity, "This slot is fully booked"
	case errors.Is(err, booking.ErrDateNotFound):
		return http.StatusUnprocessableEntity, "No slots on the selected date"
	case errors.As(err, &payloadErr):
		return http.StatusUnprocessableEntity, payloadErr.Message
	case errors.Is(err, booking.ErrWrongStep),
		errors.Is(err, booking.ErrNoPreviousStep),
		errors.Is(err, booking.ErrNoNextStep):
		return http.StatusConflict, "This action is not available on the current step"
	case errors.Is(err, booking.ErrDuplicateSubmission),
		errors.Is(err, booking.ErrWizardLocked):
		return http.StatusConflict, "This booking has already been submitted"
	case errors.Is(err, booking.ErrSubmissionInFlight):
		return http.StatusConflict, "Booking submission is in progress"
	case errors.Is(err, booking.ErrStaleAvailability):
		return http.StatusConflict, "The doctor selection changed while slots were loading"
	case errors.Is(err, booking.ErrHospitalUnresolved):
		return http.StatusConflict, "Hospital information is not loaded. Please refresh the page and try again."
	case errors.Is(err, booking.ErrAvailabilityFetch):
		return http.StatusBadGateway, "Failed to load doctor availability"
	case errors.Is(err, booking.ErrSubmissionFailed):
		return http.StatusBadGateway, "Failed to create appointment"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// reportsLastError is true for failures whose user-facing message is the one
// the wizard recorded, usually the backend's own.
func reportsLastError(err error) bool {
	return errors.Is(err, booking.ErrAvailabilityFetch) ||
		errors.Is(err, booking.ErrSubmissionFailed) ||
		errors.Is(err, booking.ErrHospitalUnresolved) ||
		errors.Is(err, booking.ErrInvalidAppointment)
}

func wizardIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	wizardID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		response.BadRequest(w, "Invalid wizard ID")
		return uuid.Nil, false
	}
	return wizardID, true
}
