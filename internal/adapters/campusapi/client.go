package campusapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"campusevents/internal/adapters/http/perf"
	"campusevents/internal/domain/event"
	"campusevents/internal/domain/feedback"
	"campusevents/internal/domain/registration"
	"campusevents/internal/domain/report"
)

// Endpoint names used in logs, metrics and errors.
const (
	EndpointLogin                = "login"
	EndpointLogout               = "logout"
	EndpointListEvents           = "list_events"
	EndpointCreateEvent          = "create_event"
	EndpointEventPopularity      = "event_popularity"
	EndpointStudentParticipation = "student_participation"
	EndpointMyRegistrations      = "my_registrations"
	EndpointRegister             = "register"
	EndpointFeedback             = "feedback"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// Client calls the campus event REST API.
// Every authenticated call sends the session token as the "token" query parameter.
type Client struct {
	BaseURL string
	HTTP    *http.Client

	duration  *prometheus.HistogramVec
	collector *perf.Collector
}

// Option configures a Client.
type Option func(*Client)

// WithRegisterer registers the client's request histogram on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) {
		if reg == nil {
			return
		}
		hist := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "campusapi",
			Name:      "request_duration_seconds",
			Help:      "Duration of calls to the campus event API by endpoint and outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "outcome"})
		if err := reg.Register(hist); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				hist = already.ExistingCollector.(*prometheus.HistogramVec)
			} else {
				slog.Warn("campusapi_metrics_register_failed", "error", err)
				return
			}
		}
		c.duration = hist
	}
}

// WithCollector records every call in the perf collector.
func WithCollector(collector *perf.Collector) Option {
	return func(c *Client) { c.collector = collector }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.HTTP = h }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoginResult is the campus API's answer to a login attempt.
// Exactly one of Error or (Token, Role, UserID) is set.
type LoginResult struct {
	Token  string
	Role   string
	UserID string
	Error  string
}

// Login exchanges credentials for a session token.
// Bad credentials are NOT a Go error: they come back in LoginResult.Error.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	params := url.Values{"email": {email}, "password": {password}}
	raw, err := c.call(ctx, EndpointLogin, http.MethodPost, "/api/login/", params, nil)
	if err != nil {
		return LoginResult{}, err
	}

	var out struct {
		Token  string     `json:"token"`
		Role   string     `json:"role"`
		UserID flexString `json:"user_id"`
		Error  string     `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return LoginResult{}, &Error{Endpoint: EndpointLogin, Kind: ErrDecode, Err: err}
	}
	if out.Error != "" {
		return LoginResult{Error: out.Error}, nil
	}
	if out.Token == "" || out.Role == "" {
		return LoginResult{}, &Error{Endpoint: EndpointLogin, Kind: ErrDecode, Message: "response missing token or role"}
	}
	return LoginResult{Token: out.Token, Role: out.Role, UserID: string(out.UserID)}, nil
}

// Logout revokes the token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.call(ctx, EndpointLogout, http.MethodPost, "/api/logout/", tokenParams(token), nil)
	return err
}

// ListEvents returns every event visible to the token.
func (c *Client) ListEvents(ctx context.Context, token string) ([]event.Event, error) {
	var events []event.Event
	if err := c.getJSON(ctx, EndpointListEvents, "/api/events/", token, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// CreateEvent creates an event and returns the server's copy.
func (c *Client) CreateEvent(ctx context.Context, token string, fields event.Fields) (event.Event, error) {
	var created event.Event
	if err := c.postJSON(ctx, EndpointCreateEvent, "/api/events/", token, fields, &created); err != nil {
		return event.Event{}, err
	}
	return created, nil
}

// EventPopularity fetches the registrations-per-event report.
func (c *Client) EventPopularity(ctx context.Context, token string) ([]report.EventPopularity, error) {
	var rows []report.EventPopularity
	if err := c.getJSON(ctx, EndpointEventPopularity, "/api/reports/event-popularity/", token, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// StudentParticipation fetches the attended-events-per-student report.
func (c *Client) StudentParticipation(ctx context.Context, token string) ([]report.StudentParticipation, error) {
	var rows []report.StudentParticipation
	if err := c.getJSON(ctx, EndpointStudentParticipation, "/api/reports/student-participation/", token, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListReports fetches both reports concurrently and waits for both.
// A failure in one report does not suppress the other: the successful panel is
// returned alongside a *ReportsError naming the failed one.
func (c *Client) ListReports(ctx context.Context, token string) (report.Reports, error) {
	var (
		wg      sync.WaitGroup
		out     report.Reports
		popErr  error
		partErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		out.Popularity, popErr = c.EventPopularity(ctx, token)
	}()
	go func() {
		defer wg.Done()
		out.Participation, partErr = c.StudentParticipation(ctx, token)
	}()
	wg.Wait()

	if popErr != nil || partErr != nil {
		return out, &ReportsError{Popularity: popErr, Participation: partErr}
	}
	return out, nil
}

// ListMyRegistrations returns the token owner's registrations.
func (c *Client) ListMyRegistrations(ctx context.Context, token string) ([]registration.Registration, error) {
	var regs []registration.Registration
	if err := c.getJSON(ctx, EndpointMyRegistrations, "/api/my-registrations/", token, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// Register registers the token owner for eventID.
func (c *Client) Register(ctx context.Context, token string, eventID int64) (registration.Registration, error) {
	body := struct {
		EventID int64 `json:"event_id"`
	}{eventID}
	var reg registration.Registration
	if err := c.postJSON(ctx, EndpointRegister, "/api/registrations/", token, body, &reg); err != nil {
		return registration.Registration{}, err
	}
	return reg, nil
}

// SubmitFeedback sends feedback for a registration. The response body is discarded.
func (c *Client) SubmitFeedback(ctx context.Context, token string, s feedback.Submission) error {
	return c.postJSON(ctx, EndpointFeedback, "/api/feedback/", token, s, nil)
}

func tokenParams(token string) url.Values {
	return url.Values{"token": {token}}
}

func (c *Client) getJSON(ctx context.Context, endpoint, path, token string, out any) error {
	raw, err := c.call(ctx, endpoint, http.MethodGet, path, tokenParams(token), nil)
	if err != nil {
		return err
	}
	return decode(endpoint, raw, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint, path, token string, body, out any) error {
	raw, err := c.call(ctx, endpoint, http.MethodPost, path, tokenParams(token), body)
	if err != nil {
		return err
	}
	return decode(endpoint, raw, out)
}

// call performs one HTTP round trip and returns the body of a 2xx response.
func (c *Client) call(ctx context.Context, endpoint, method, path string, params url.Values, body any) (raw []byte, err error) {
	start := time.Now()
	status := 0
	defer func() {
		elapsed := time.Since(start)
		if c.duration != nil {
			c.duration.WithLabelValues(endpoint, outcome(err)).Observe(elapsed.Seconds())
		}
		c.collector.Record(perf.Entry{
			Kind:       perf.KindUpstream,
			Path:       "campusapi." + endpoint,
			StatusCode: status,
			Failed:     err != nil,
			DurationMs: float64(elapsed.Microseconds()) / 1000.0,
			Timestamp:  start,
		})
		if err != nil {
			slog.Warn("api_call", "endpoint", endpoint, "status", status, "duration_ms", elapsed.Milliseconds(), "error", err)
		} else {
			slog.Debug("api_call", "endpoint", endpoint, "status", status, "duration_ms", elapsed.Milliseconds())
		}
	}()

	target := c.BaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, merr := json.Marshal(body)
		if merr != nil {
			return nil, fmt.Errorf("%s: encode request: %w", endpoint, merr)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Kind: ErrTransport, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Kind: ErrTransport, Err: err}
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	raw, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Endpoint: endpoint, Kind: ErrTransport, StatusCode: status, Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &Error{Endpoint: endpoint, Kind: ErrStatus, StatusCode: status, Message: errorMessage(raw)}
	}
	return raw, nil
}

// decode unmarshals a 2xx body into out, turning {"error": ...} bodies into ErrRejected.
// A nil out only checks for a data-level error.
func decode(endpoint string, raw []byte, out any) error {
	if msg, ok := dataError(raw); ok {
		return &Error{Endpoint: endpoint, Kind: ErrRejected, Message: msg}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Endpoint: endpoint, Kind: ErrDecode, Err: err}
	}
	return nil
}

// dataError reports whether raw is a JSON object carrying a non-empty "error" field.
func dataError(raw []byte) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil || len(envelope.Error) == 0 || string(envelope.Error) == "null" {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(envelope.Error, &msg); err != nil {
		return string(envelope.Error), true
	}
	return msg, msg != ""
}

// errorMessage extracts a human message from an error-status body.
func errorMessage(raw []byte) string {
	if msg, ok := dataError(raw); ok {
		return msg
	}
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &detail) == nil && detail.Detail != "" {
		return detail.Detail
	}
	return ""
}

// flexString accepts a JSON string or number.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
