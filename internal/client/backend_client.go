package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hospital-booking/internal/booking"
	"hospital-booking/internal/delivery/dto"

	"github.com/sirupsen/logrus"
)

// maxErrorBody caps how much of a failed response is read for its message
const maxErrorBody = 64 << 10

// APIError is a non-2xx answer from the booking backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("booking backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// envelope mirrors pkg/response.Response with the payload kept raw
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// BackendClient talks to a remote booking backend over its REST API.
type BackendClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	log        *logrus.Logger
}

func NewBackendClient(baseURL string, timeout time.Duration, log *logrus.Logger) *BackendClient {
	return &BackendClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// TokenSource returns the bearer token to forward for the request in ctx.
type TokenSource func(ctx context.Context) (string, bool)

// WithTokenSource returns a copy that forwards bearer tokens to the backend.
func (c *BackendClient) WithTokenSource(tokens TokenSource) *BackendClient {
	cp := *c
	cp.tokens = tokens
	return &cp
}

func (c *BackendClient) GetHospital(ctx context.Context, hospitalID string) (*dto.HospitalResponse, error) {
	var hospital dto.HospitalResponse
	path := "/api/v1/hospitals/" + url.PathEscape(hospitalID)
	if err := c.getJSON(ctx, path, &hospital); err != nil {
		return nil, err
	}
	return &hospital, nil
}

func (c *BackendClient) FetchAvailability(ctx context.Context, hospitalID, doctorID string) (booking.DoctorAvailability, error) {
	var av booking.DoctorAvailability
	path := fmt.Sprintf("/api/v1/hospitals/%s/doctors/%s/availability", url.PathEscape(hospitalID), url.PathEscape(doctorID))
	if err := c.getJSON(ctx, path, &av); err != nil {
		return booking.DoctorAvailability{}, err
	}
	return av, nil
}

// CreateAppointment posts the request and returns the response payload untouched.
func (c *BackendClient) CreateAppointment(ctx context.Context, req booking.AppointmentRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode appointment request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/api/v1/appointments", body)
}

func (c *BackendClient) getJSON(ctx context.Context, path string, out interface{}) error {
	data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// do sends one request and returns the data field of a successful envelope.
// Non-JSON success bodies are returned as-is.
func (c *BackendClient) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warnf("Failed to call booking backend %s %s: %+v", method, path, err)
		return nil, fmt.Errorf("call booking backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		c.log.Warnf("Booking backend %s %s failed: status=%d message=%q", method, path, resp.StatusCode, apiErr.Message)
		return nil, apiErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read booking backend response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Data == nil {
		return json.RawMessage(raw), nil
	}
	return env.Data, nil
}

// errorMessage extracts a human-readable message from an error body
func errorMessage(raw []byte) string {
	var body struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	var text string
	if err := json.Unmarshal(body.Error, &text); err == nil {
		return text
	}
	return ""
}
