package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hospital-booking/internal/booking"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func TestBackendClient_FetchAvailability(t *testing.T) {
	router := mux.NewRouter()
	router.HandleFunc("/api/v1/hospitals/{hospitalId}/doctors/{doctorId}/availability", func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		assert.Equal(t, "h1", vars["hospitalId"])
		assert.Equal(t, "d1", vars["doctorId"])
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"days": map[string]interface{}{
					"today": []map[string]interface{}{
						{"date": "2025-01-10", "start": "09:00", "end": "10:00", "available": true, "maxCapacity": 2, "patientCount": 1},
					},
				},
			},
		})
	}).Methods(http.MethodGet)
	srv := httptest.NewServer(router)
	defer srv.Close()

	c := NewBackendClient(srv.URL+"/", time.Second, testLogger())
	av, err := c.FetchAvailability(context.Background(), "h1", "d1")
	require.NoError(t, err)

	require.Len(t, av.Days["today"], 1)
	assert.Equal(t, booking.RawSlot{Date: "2025-01-10", Start: "09:00", End: "10:00", Available: true, MaxCapacity: 2, PatientCount: 1}, av.Days["today"][0])
}

func TestBackendClient_CreateAppointmentForwardsPayloadAndResponse(t *testing.T) {
	var received booking.AppointmentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/appointments", r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"booking_code": "AP-20250110-ABCDEF"},
		})
	}))
	defer srv.Close()

	c := NewBackendClient(srv.URL, time.Second, testLogger()).WithTokenSource(func(context.Context) (string, bool) {
		return "tkn", true
	})
	req := booking.AppointmentRequest{
		HospitalID: "h1", DoctorID: "d1", PatientName: "Jane Doe", Mobile: "9876543210", Age: 34,
		AppointmentDate: "2025-01-10", StartTime: "09:00", EndTime: "10:00",
	}

	resp, err := c.CreateAppointment(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req, received)
	assert.JSONEq(t, `{"booking_code":"AP-20250110-ABCDEF"}`, string(resp))
}

func TestBackendClient_ErrorCarriesEnvelopeMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"success": false,
			"message": "Slot is fully booked",
		})
	}))
	defer srv.Close()

	c := NewBackendClient(srv.URL, time.Second, testLogger())
	_, err := c.CreateAppointment(context.Background(), booking.AppointmentRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "Slot is fully booked", err.Error())
}

func TestBackendClient_ErrorWithoutBodyUsesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewBackendClient(srv.URL, time.Second, testLogger())
	_, err := c.GetHospital(context.Background(), "h1")
	require.Error(t, err)
	assert.Equal(t, "booking backend returned 502 Bad Gateway", err.Error())
}

func TestBackendClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewBackendClient(srv.URL, 50*time.Millisecond, testLogger())
	_, err := c.FetchAvailability(context.Background(), "h1", "d1")
	assert.Error(t, err)
}
