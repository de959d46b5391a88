package booking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHospitalID = "6f1c1a2e-2b7d-4f57-9a55-0b0c3c9f2a10"
	testDoctorA    = "0d4f8a3c-6f5e-4a51-8b1e-52a7b0f7c001"
	testDoctorB    = "0d4f8a3c-6f5e-4a51-8b1e-52a7b0f7c002"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	byDoc   map[string]DoctorAvailability
	err     error
	gates   map[string]chan struct{}
	started chan string
}

func (f *fakeFetcher) FetchAvailability(ctx context.Context, hospitalID, doctorID string) (DoctorAvailability, error) {
	f.mu.Lock()
	f.calls = append(f.calls, doctorID)
	gate := f.gates[doctorID]
	av := f.byDoc[doctorID]
	err := f.err
	f.mu.Unlock()

	if f.started != nil {
		f.started <- doctorID
	}
	if gate != nil {
		<-gate
	}
	return av, err
}

type fakeCreator struct {
	mu      sync.Mutex
	calls   int
	last    AppointmentRequest
	resp    json.RawMessage
	err     error
	gate    chan struct{}
	started chan struct{}
}

func (f *fakeCreator) CreateAppointment(ctx context.Context, req AppointmentRequest) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.last = req
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	return f.resp, f.err
}

type staticHospital struct {
	id  string
	err error
}

func (h staticHospital) HospitalID(ctx context.Context) (string, error) {
	return h.id, h.err
}

func morningAvailability(date string) DoctorAvailability {
	return DoctorAvailability{Days: map[string][]RawSlot{
		"today": {
			rawSlot(date, "09:00", "10:00", 2, 1),
			rawSlot(date, "10:00", "11:00", 1, 1),
		},
	}}
}

func newTestWizard(fetcher *fakeFetcher, creator *fakeCreator, hospitals HospitalResolver) *Wizard {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewWizard(Options{
		Fetcher:   fetcher,
		Creator:   creator,
		Hospitals: hospitals,
		Location:  ist,
		Now:       func() time.Time { return time.Date(2025, 1, 10, 8, 0, 0, 0, ist) },
		Log:       log,
	})
}

func validPatient() PatientDraft {
	return PatientDraft{Name: "Jane Doe", Age: "34", Mobile: "9876543210"}
}

// toConfirmation drives a wizard to the last step with the 09:00 slot picked.
func toConfirmation(t *testing.T, w *Wizard) {
	t.Helper()
	ctx := context.Background()

	_, err := w.SetPatient(validPatient())
	require.NoError(t, err)
	_, err = w.Next(ctx)
	require.NoError(t, err)
	_, err = w.SelectDoctor(testDoctorA)
	require.NoError(t, err)
	_, err = w.Next(ctx)
	require.NoError(t, err)
	_, err = w.SelectSlot("2025-01-10_09:00")
	require.NoError(t, err)
	v, err := w.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, StepConfirmation, v.State.CurrentStep)
}

func defaultFetcher() *fakeFetcher {
	return &fakeFetcher{byDoc: map[string]DoctorAvailability{
		testDoctorA: morningAvailability("2025-01-10"),
		testDoctorB: {Days: map[string][]RawSlot{"tomorrow": {rawSlot("2025-01-11", "15:00", "15:30", 3, 0)}}},
	}}
}

func TestWizard_StartsOnPatientDetails(t *testing.T) {
	w := newTestWizard(defaultFetcher(), &fakeCreator{}, staticHospital{id: testHospitalID})

	v := w.View()
	assert.Equal(t, StepPatientDetails, v.State.CurrentStep)
	assert.False(t, v.CanAdvance)
	assert.True(t, v.PatientErrors.Empty(), "errors stay hidden until an advance is attempted")
}

func TestWizard_PatientStepRefusesInvalidDraft(t *testing.T) {
	w := newTestWizard(defaultFetcher(), &fakeCreator{}, staticHospital{id: testHospitalID})

	_, err := w.SetPatient(PatientDraft{Name: "J", Age: "34", Mobile: "9876543210"})
	require.NoError(t, err)

	v, err := w.Next(context.Background())
	assert.ErrorIs(t, err, ErrStepIncomplete)
	assert.Equal(t, StepPatientDetails, v.State.CurrentStep)
	assert.Equal(t, MsgNameTooShort, v.PatientErrors.Name)
	assert.Empty(t, v.PatientErrors.Age)
	assert.Empty(t, v.PatientErrors.Mobile)

	// Errors follow the draft as it is corrected.
	v, err = w.SetPatient(validPatient())
	require.NoError(t, err)
	assert.True(t, v.PatientErrors.Empty())
	assert.True(t, v.CanAdvance)

	v, err = w.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepDoctorSelection, v.State.CurrentStep)
}

func TestWizard_DoctorStepRequiresDoctor(t *testing.T) {
	fetcher := defaultFetcher()
	w := newTestWizard(fetcher, &fakeCreator{}, staticHospital{id: testHospitalID})
	_, _ = w.SetPatient(validPatient())
	_, err := w.Next(context.Background())
	require.NoError(t, err)

	v, err := w.Next(context.Background())
	assert.ErrorIs(t, err, ErrStepIncomplete)
	assert.Equal(t, StepDoctorSelection, v.State.CurrentStep)
	assert.Empty(t, fetcher.calls)
}

func TestWizard_EntersSlotStepWithGroupedSlots(t *testing.T) {
	w := newTestWizard(defaultFetcher(), &fakeCreator{}, staticHospital{id: testHospitalID})
	_, _ = w.SetPatient(validPatient())
	_, _ = w.Next(context.Background())
	_, _ = w.SelectDoctor(testDoctorA)

	v, err := w.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepSlotSelection, v.State.CurrentStep)
	assert.False(t, v.NoSlots)
	assert.Equal(t, "2025-01-10", v.SelectedDate)
	assert.Len(t, v.Slots.Slots("2025-01-10"), 2)
	assert.False(t, v.CanAdvance)
}

func TestWizard_NoSlotsStillAdvances(t *testing.T) {
	fetcher := &fakeFetcher{byDoc: map[string]DoctorAvailability{
		testDoctorA: {Days: map[string][]RawSlot{"today": {rawSlot("2025-01-10", "06:00", "07:00", 2, 0)}}},
	}}
	w := newTestWizard(fetcher, &fakeCreator{}, staticHospital{id: testHospitalID})
	_, _ = w.SetPatient(validPatient())
	_, _ = w.Next(context.Background())
	_, _ = w.SelectDoctor(testDoctorA)

	v, err := w.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepSlotSelection, v.State.CurrentStep)
	assert.True(t, v.NoSlots)
	assert.Empty(t, v.SelectedDate)
}

func TestWizard_FetchFailureStaysOnDoctorStep(t *testing.T) {
	fetcher := defaultFetcher()
	fetcher.err = errors.New("backend unavailable")
	w := newTestWizard(fetcher, &fakeCreator{}, staticHospital{id: testHospitalID})
	_, _ = w.SetPatient(validPatient())
	_, _ = w.Next(context.Background())
	_, _ = w.SelectDoctor(testDoctorA)

	v, err := w.Next(context.Background())
	assert.ErrorIs(t, err, ErrAvailabilityFetch)
	assert.Equal(t, StepDoctorSelection, v.State.CurrentStep)
	assert.Equal(t, "backend unavailable", v.State.LastError)
	assert.False(t, v.SlotsLoading)

	// Retry succeeds once the backend recovers.
	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.mu.Unlock()
	v, err = w.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StepSlotSelection, v.State.CurrentStep)
	assert.Empty(t, v.State.LastError)
}

func TestWizard_SelectSlotRules(t *testing.T) {
	w := newTestWizard(defaultFetcher(), &fakeCreator{}, staticHospital{id: testHospitalID})
	_, _ = w.SetPatient(validPatient())
	_, _ = w.Next(context.Background())
	_, _ = w.SelectDoctor(testDoctorA)
	_, err := w.Next(context.Background())
	require.NoError(t, err)

	_, err = w.SelectSlot("2025-01-10_10:00")
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	_, err = w.SelectSlot("2025-01-10_12:00")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	v, err := w.SelectSlot("2025-01-10_09:00")
	require.NoError(t, err)
	require.NotNil(t, v.Draft.SelectedSlot)
	assert.Equal(t, "09:00", v.Draft.SelectedSlot.Start)
	assert.True(t, v.CanAdvance)
}

func TestWizard_StaleAvailabilityIsDiscarded(t *testing.T) {
	fetcher := defaultFetcher()
	gateA := make(chan struct{})
	fetcher.gates = map[string]chan struct{}{testDoctorA: gateA}
	fetcher.started = make(chan string, 4)

	w := newTestWizard(fetcher, &fakeCreator{}, staticHospital{id: testHospitalID})
	_, _ = w.SetPatient(validPatient())
	_, _ = w.Next(context.Background())
	_, _ = w.SelectDoctor(testDoctorA)

	type result struct {
		v   View
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := w.Next(context.Background())
		done <- result{v, err}
	}()

	require.Equal(t, testDoctorA, <-fetcher.started)
	assert.True(t, w.View().SlotsLoading)

	// The user switches doctor while the first response is pending.
	_, err := w.SelectDoctor(testDoctorB)
	require.NoError(t, err)
	close(gateA)

	res := <-done
	assert.ErrorIs(t, res.err, ErrStaleAvailability)
	assert.Equal(t, StepDoctorSelection, res.v.State.CurrentStep)
	assert.Equal(t, testDoctorB, res.v.Draft.DoctorID)

	v, err := w.Next(context.Background())
	require.NoError(t, err)
	<-fetcher.started
	assert.Equal(t, StepSlotSelection, v.State.CurrentStep)
	assert.Equal(t, []string{"2025-01-11"}, v.Slots.Dates)
}

func TestWizard_NewerLoadWins(t *testing.T) {
	fetcher := defaultFetcher()
	gateA := make(chan struct{})
	fetcher.gates = map[string]chan struct{}{testDoctorA: gateA}
	fetcher.started = make(chan string, 4)

	w := newTestWizard(fetcher, &fakeCreator{}, staticHospital{id: testHospitalID})
	_, _ = w.SetPatient(validPatient())
	_, _ = w.Next(context.Background())
	_, _ = w.SelectDoctor(testDoctorA)

	errs := make(chan error, 1)
	go func() {
		_, err := w.Next(context.Background())
		errs <- err
	}()
	<-fetcher.started

	// A second request for the same doctor is issued; the first must not apply.
	fetcher.mu.Lock()
	fetcher.gates = nil
	fetcher.mu.Unlock()
	v, err := w.Next(context.Background())
	require.NoError(t, err)
	<-fetcher.started
	assert.Equal(t, StepSlotSelection, v.State.CurrentStep)

	close(gateA)
	assert.ErrorIs(t, <-errs, ErrStaleAvailability)
	assert.Equal(t, StepSlotSelection, w.View().State.CurrentStep)
}

func TestWizard_BackClearsDownstreamState(t *testing.T) {
	w := newTestWizard(defaultFetcher(), &fakeCreator{}, staticHospital{id: testHospitalID})
	toConfirmation(t, w)

	v, err := w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepSlotSelection, v.State.CurrentStep)
	assert.Nil(t, v.Draft.SelectedSlot, "slot must be re-selected")
	assert.Equal(t, testDoctorA, v.Draft.DoctorID)
	assert.False(t, v.Slots.Empty())

	v, err = w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepDoctorSelection, v.State.CurrentStep)
	assert.Empty(t, v.Draft.DoctorID)
	assert.True(t, v.Slots.Empty())

	v, err = w.Back()
	require.NoError(t, err)
	assert.Equal(t, StepPatientDetails, v.State.CurrentStep)
	assert.Equal(t, validPatient(), v.Draft.Patient)

	_, err = w.Back()
	assert.ErrorIs(t, err, ErrNoPreviousStep)
}

func TestWizard_ActionsOnWrongStep(t *testing.T) {
	w := newTestWizard(defaultFetcher(), &fakeCreator{}, staticHospital{id: testHospitalID})

	_, err := w.SelectDoctor(testDoctorA)
	assert.ErrorIs(t, err, ErrWrongStep)
	_, err = w.SelectSlot("2025-01-10_09:00")
	assert.ErrorIs(t, err, ErrWrongStep)
	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrStepIncomplete)
}

func TestWizard_SubmitSuccessIsSticky(t *testing.T) {
	creator := &fakeCreator{resp: json.RawMessage(`{"success":true,"data":{"bookingCode":"AP-20250110-ABC123"}}`)}
	w := newTestWizard(defaultFetcher(), creator, staticHospital{id: testHospitalID})
	toConfirmation(t, w)

	resp, err := w.Submit(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, string(creator.resp), string(resp))

	assert.Equal(t, AppointmentRequest{
		HospitalID:      testHospitalID,
		DoctorID:        testDoctorA,
		PatientName:     "Jane Doe",
		Mobile:          "9876543210",
		Age:             34,
		AppointmentDate: "2025-01-10",
		StartTime:       "09:00",
		EndTime:         "10:00",
	}, creator.last)

	v := w.View()
	assert.True(t, v.State.IsSuccess)
	assert.False(t, v.State.IsSubmitting)
	assert.True(t, v.SubmitDisabled)
	assert.JSONEq(t, string(creator.resp), string(v.Result))

	_, err = w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
	assert.True(t, w.View().State.IsSuccess)
	assert.Equal(t, 1, creator.calls)

	_, err = w.Back()
	assert.ErrorIs(t, err, ErrWizardLocked)
	_, err = w.Next(context.Background())
	assert.ErrorIs(t, err, ErrWizardLocked)
}

func TestWizard_ConcurrentSubmitCallsBackendOnce(t *testing.T) {
	creator := &fakeCreator{
		resp:    json.RawMessage(`{"id":"x"}`),
		gate:    make(chan struct{}),
		started: make(chan struct{}, 2),
	}
	w := newTestWizard(defaultFetcher(), creator, staticHospital{id: testHospitalID})
	toConfirmation(t, w)

	errs := make(chan error, 1)
	go func() {
		_, err := w.Submit(context.Background())
		errs <- err
	}()
	<-creator.started

	v := w.View()
	assert.True(t, v.State.IsSubmitting)
	assert.True(t, v.SubmitDisabled)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrDuplicateSubmission)
	_, err = w.Back()
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(creator.gate)
	require.NoError(t, <-errs)
	assert.Equal(t, 1, creator.calls)
}

func TestWizard_SubmitFailureKeepsDraft(t *testing.T) {
	creator := &fakeCreator{err: errors.New("Schedule slot is full")}
	w := newTestWizard(defaultFetcher(), creator, staticHospital{id: testHospitalID})
	toConfirmation(t, w)
	before := w.View().Draft

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmissionFailed)

	v := w.View()
	assert.False(t, v.State.IsSubmitting)
	assert.False(t, v.State.IsSuccess)
	assert.False(t, v.SubmitDisabled)
	assert.Equal(t, "Schedule slot is full", v.State.LastError)
	assert.Equal(t, before, v.Draft)
	assert.Equal(t, StepConfirmation, v.State.CurrentStep)

	// User-initiated retry reaches the backend again.
	creator.err = nil
	creator.resp = json.RawMessage(`{}`)
	_, err = w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, creator.calls)
}

func TestWizard_SubmitWithoutHospitalSkipsBackend(t *testing.T) {
	creator := &fakeCreator{}
	hospitals := &switchableHospital{id: testHospitalID}
	w := newTestWizard(defaultFetcher(), creator, hospitals)
	toConfirmation(t, w)

	hospitals.set("")
	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrHospitalUnresolved)
	assert.Equal(t, 0, creator.calls)

	v := w.View()
	assert.Equal(t, msgHospitalUnresolved, v.State.LastError)
	assert.False(t, v.State.IsSubmitting)
}

func TestWizard_SubmitRejectsInvalidPayload(t *testing.T) {
	creator := &fakeCreator{}
	w := newTestWizard(defaultFetcher(), creator, staticHospital{id: "not-a-uuid"})

	// The availability fetch does not care about the hospital id format.
	toConfirmation(t, w)

	_, err := w.Submit(context.Background())
	assert.ErrorIs(t, err, ErrInvalidAppointment)
	assert.Equal(t, 0, creator.calls)
	assert.Equal(t, "hospitalId must be a valid identifier", w.View().State.LastError)
}

func TestWizard_SingleDigitHourSlotIsBookable(t *testing.T) {
	fetcher := &fakeFetcher{byDoc: map[string]DoctorAvailability{
		testDoctorA: {Days: map[string][]RawSlot{"today": {
			rawSlot("2025-01-10", "10:00", "10:30", 2, 0),
			rawSlot("2025-01-10", "9:00", "9:30", 2, 0),
		}}},
	}}
	creator := &fakeCreator{resp: json.RawMessage(`{}`)}
	w := newTestWizard(fetcher, creator, staticHospital{id: testHospitalID})

	_, _ = w.SetPatient(validPatient())
	_, _ = w.Next(context.Background())
	_, _ = w.SelectDoctor(testDoctorA)
	v, err := w.Next(context.Background())
	require.NoError(t, err)

	list := v.Slots.Slots("2025-01-10")
	require.Len(t, list, 2)
	assert.Equal(t, "2025-01-10_09:00", list[0].Identity)

	_, err = w.SelectSlot("2025-01-10_9:00")
	assert.ErrorIs(t, err, ErrSlotNotFound)
	_, err = w.SelectSlot("2025-01-10_09:00")
	require.NoError(t, err)
	_, err = w.Next(context.Background())
	require.NoError(t, err)

	_, err = w.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, creator.calls)
	assert.Equal(t, "09:00", creator.last.StartTime)
	assert.Equal(t, "09:30", creator.last.EndTime)
}

type switchableHospital struct {
	mu sync.Mutex
	id string
}

func (h *switchableHospital) set(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.id = id
}

func (h *switchableHospital) HospitalID(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.id, nil
}
