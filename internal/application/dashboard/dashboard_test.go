package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"campusevents/internal/adapters/campusapi"
	"campusevents/internal/domain/event"
	"campusevents/internal/domain/feedback"
	"campusevents/internal/domain/registration"
	"campusevents/internal/domain/report"
)

// fakeAPI is a scriptable campus API. Server state lives in events/regs so
// re-fetches observe what mutations did.
type fakeAPI struct {
	mu        sync.Mutex
	calls     []string
	tokens    []string
	events    []event.Event
	regs      []registration.Registration
	popErr    error
	partErr   error
	listErr   error
	createErr error
	regErr    error
	fbErr     error
	feedback  []feedback.Submission
}

func (f *fakeAPI) record(call, token string) {
	f.calls = append(f.calls, call)
	f.tokens = append(f.tokens, token)
}

func (f *fakeAPI) ListEvents(_ context.Context, token string) ([]event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_events", token)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]event.Event(nil), f.events...), nil
}

func (f *fakeAPI) CreateEvent(_ context.Context, token string, fields event.Fields) (event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create_event", token)
	if f.createErr != nil {
		return event.Event{}, f.createErr
	}
	e := event.Event{ID: int64(len(f.events) + 1), Title: fields.Title, Type: fields.Type}
	f.events = append(f.events, e)
	return e, nil
}

func (f *fakeAPI) ListReports(_ context.Context, token string) (report.Reports, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list_reports", token)
	var r report.Reports
	if f.popErr == nil {
		for _, e := range f.events {
			r.Popularity = append(r.Popularity, report.EventPopularity{Event: e.Title})
		}
	}
	if f.partErr == nil {
		r.Participation = []report.StudentParticipation{{Student: "ana", Attended: len(f.events)}}
	}
	if f.popErr != nil || f.partErr != nil {
		return r, &campusapi.ReportsError{Popularity: f.popErr, Participation: f.partErr}
	}
	return r, nil
}

func (f *fakeAPI) ListMyRegistrations(_ context.Context, token string) ([]registration.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("my_registrations", token)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]registration.Registration(nil), f.regs...), nil
}

func (f *fakeAPI) Register(_ context.Context, token string, eventID int64) (registration.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("register", token)
	if f.regErr != nil {
		return registration.Registration{}, f.regErr
	}
	r := registration.Registration{RegistrationID: int64(len(f.regs) + 1), Event: "event", Status: "registered"}
	f.regs = append(f.regs, r)
	return r, nil
}

func (f *fakeAPI) SubmitFeedback(_ context.Context, token string, s feedback.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("feedback", token)
	if f.fbErr != nil {
		return f.fbErr
	}
	f.feedback = append(f.feedback, s)
	return nil
}

func (f *fakeAPI) callsAfter(n int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls[n:]...)
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

var transportErr = &campusapi.Error{Endpoint: "list_events", Kind: campusapi.ErrTransport, Err: errors.New("connection refused")}

func validForm() event.Form {
	return event.Form{Title: "Go Workshop", Type: event.TypeTalk, Start: "2026-05-01T10:00", End: "2026-05-01T12:00", Capacity: "30"}
}

// TestAdmin_MountLoadsEverything tests that mount fetches events and both reports.
func TestAdmin_MountLoadsEverything(t *testing.T) {
	api := &fakeAPI{events: []event.Event{{ID: 1, Title: "Fest"}}}
	a := NewAdmin(api, "tok")
	a.Mount(context.Background())

	v := a.View()
	if len(v.Events.Rows) != 1 || !v.Events.Loaded {
		t.Errorf("Events = %+v, want one loaded row", v.Events)
	}
	if len(v.Popularity.Rows) != 1 || len(v.Participation.Rows) != 1 {
		t.Errorf("reports = %+v / %+v, want one row each", v.Popularity, v.Participation)
	}
	for _, tok := range api.tokens {
		if tok != "tok" {
			t.Errorf("call made with token %q, want tok", tok)
		}
	}
	if v.Form != event.DefaultForm() {
		t.Errorf("Form = %+v, want defaults", v.Form)
	}
}

// TestAdmin_CreateEventResetsAndRefetches tests that a successful create resets the
// form and shows the server's re-fetched list rather than a locally merged one.
func TestAdmin_CreateEventResetsAndRefetches(t *testing.T) {
	api := &fakeAPI{events: []event.Event{{ID: 1, Title: "Fest"}}}
	a := NewAdmin(api, "tok")
	a.Mount(context.Background())
	before := api.callCount()

	if err := a.CreateEvent(context.Background(), validForm()); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	calls := api.callsAfter(before)
	if len(calls) != 3 || calls[0] != "create_event" || calls[1] != "list_events" || calls[2] != "list_reports" {
		t.Errorf("calls = %v, want [create_event list_events list_reports]", calls)
	}
	v := a.View()
	if v.Form != event.DefaultForm() {
		t.Errorf("Form = %+v, want defaults", v.Form)
	}
	if len(v.Events.Rows) != 2 || v.Events.Rows[1].Title != "Go Workshop" {
		t.Errorf("Events = %+v, want server list with new event", v.Events.Rows)
	}
	if len(v.Popularity.Rows) != 2 {
		t.Errorf("Popularity = %+v, want refreshed report", v.Popularity.Rows)
	}
	if v.Notice != NoticeEventCreated {
		t.Errorf("Notice = %q, want %q", v.Notice, NoticeEventCreated)
	}
	if again := a.View(); again.Notice != "" {
		t.Errorf("notice shown twice: %q", again.Notice)
	}
}

// TestAdmin_CreateEventServerOwnsList tests that the list shows what the server
// returns even if it differs from what was submitted.
func TestAdmin_CreateEventServerOwnsList(t *testing.T) {
	api := &fakeAPI{}
	a := NewAdmin(api, "tok")
	api.events = []event.Event{{ID: 9, Title: "Other admin's event"}}

	a.CreateEvent(context.Background(), validForm())

	rows := a.View().Events.Rows
	if len(rows) != 2 || rows[0].ID != 9 {
		t.Errorf("Events = %+v, want server's two events", rows)
	}
}

// TestAdmin_CreateEventFailureKeepsValues tests that a failed mutation keeps the entered values.
func TestAdmin_CreateEventFailureKeepsValues(t *testing.T) {
	api := &fakeAPI{createErr: &campusapi.Error{Endpoint: "create_event", Kind: campusapi.ErrRejected, Message: "Admin only"}}
	a := NewAdmin(api, "tok")
	form := validForm()

	if err := a.CreateEvent(context.Background(), form); err == nil {
		t.Fatal("expected error")
	}
	v := a.View()
	if v.Form != form {
		t.Errorf("Form = %+v, want entered values %+v", v.Form, form)
	}
	if v.FormError != "Admin only" {
		t.Errorf("FormError = %q, want server message", v.FormError)
	}
	if v.Notice != "" {
		t.Errorf("Notice = %q, want none", v.Notice)
	}
}

// TestAdmin_CreateEventInvalidFormSendsNothing tests that local validation stops the request.
func TestAdmin_CreateEventInvalidFormSendsNothing(t *testing.T) {
	api := &fakeAPI{}
	a := NewAdmin(api, "tok")
	form := validForm()
	form.Capacity = "lots"

	err := a.CreateEvent(context.Background(), form)
	if !errors.Is(err, event.ErrInvalidCapacity) {
		t.Errorf("err = %v, want ErrInvalidCapacity", err)
	}
	if api.callCount() != 0 {
		t.Errorf("calls = %v, want none", api.calls)
	}
	if a.Mounted() {
		t.Error("Mounted = true after a form that never reached the server")
	}
	v := a.View()
	if v.Form.Capacity != "lots" || v.FormError != event.ErrInvalidCapacity.Error() {
		t.Errorf("view = %+v, want retained capacity and validation message", v)
	}
}

// TestAdmin_Mounted tests that Mount and a sent mutation both count as having fetched.
func TestAdmin_Mounted(t *testing.T) {
	a := NewAdmin(&fakeAPI{}, "tok")
	if a.Mounted() {
		t.Fatal("Mounted = true before any fetch")
	}
	a.Mount(context.Background())
	if !a.Mounted() {
		t.Error("Mounted = false after Mount")
	}

	b := NewAdmin(&fakeAPI{}, "tok")
	b.CreateEvent(context.Background(), validForm())
	if !b.Mounted() {
		t.Error("Mounted = false after a sent mutation")
	}
}

// TestAdmin_FetchFailureKeepsStaleData tests that a failed re-fetch keeps the previous rows visible with an error.
func TestAdmin_FetchFailureKeepsStaleData(t *testing.T) {
	api := &fakeAPI{events: []event.Event{{ID: 1, Title: "Fest"}}}
	a := NewAdmin(api, "tok")
	a.Mount(context.Background())

	api.mu.Lock()
	api.listErr = transportErr
	api.mu.Unlock()
	a.Mount(context.Background())

	v := a.View()
	if len(v.Events.Rows) != 1 || !v.Events.Stale {
		t.Errorf("Events = %+v, want stale single row", v.Events)
	}
	if v.Events.Error != MsgUnreachable {
		t.Errorf("Events.Error = %q, want %q", v.Events.Error, MsgUnreachable)
	}
}

// TestAdmin_ReportPanelsFailIndependently tests that one failing report leaves the other current.
func TestAdmin_ReportPanelsFailIndependently(t *testing.T) {
	api := &fakeAPI{events: []event.Event{{ID: 1, Title: "Fest"}}}
	a := NewAdmin(api, "tok")
	a.Mount(context.Background())

	api.mu.Lock()
	api.popErr = &campusapi.Error{Endpoint: "event_popularity", Kind: campusapi.ErrStatus, StatusCode: 500}
	api.events = append(api.events, event.Event{ID: 2, Title: "Talk"})
	api.mu.Unlock()
	a.Mount(context.Background())

	v := a.View()
	if v.Popularity.Error != MsgServerError || len(v.Popularity.Rows) != 1 {
		t.Errorf("Popularity = %+v, want stale row with server error", v.Popularity)
	}
	if v.Participation.Error != "" || v.Participation.Rows[0].Attended != 2 {
		t.Errorf("Participation = %+v, want fresh data", v.Participation)
	}
}

// TestStudent_RegisterRefetchesRegistrations tests register then re-fetch of registrations only.
func TestStudent_RegisterRefetchesRegistrations(t *testing.T) {
	api := &fakeAPI{events: []event.Event{{ID: 3, Title: "Seminar"}}}
	s := NewStudent(api, "x")
	s.Mount(context.Background())
	before := api.callCount()

	if err := s.Register(context.Background(), 3); err != nil {
		t.Fatalf("Register: %v", err)
	}
	calls := api.callsAfter(before)
	if len(calls) != 2 || calls[0] != "register" || calls[1] != "my_registrations" {
		t.Errorf("calls = %v, want [register my_registrations]", calls)
	}
	v := s.View()
	if len(v.Registrations.Rows) != 1 {
		t.Errorf("Registrations = %+v, want one", v.Registrations.Rows)
	}
	if v.Notice != NoticeRegistered {
		t.Errorf("Notice = %q, want %q", v.Notice, NoticeRegistered)
	}
}

// TestMount_AfterMutationSkipsRefetchedLists tests that the render following a
// mutation does not fetch the lists the mutation just re-fetched.
func TestMount_AfterMutationSkipsRefetchedLists(t *testing.T) {
	ctx := context.Background()

	api := &fakeAPI{}
	a := NewAdmin(api, "tok")
	a.CreateEvent(ctx, validForm())
	before := api.callCount()
	a.Mount(ctx)
	if calls := api.callsAfter(before); len(calls) != 0 {
		t.Errorf("admin mount after create: calls = %v, want none", calls)
	}
	a.Mount(ctx)
	if calls := api.callsAfter(before); len(calls) != 2 {
		t.Errorf("second admin mount: calls = %v, want a full fetch", calls)
	}

	s := NewStudent(api, "x")
	s.Register(ctx, 3)
	before = api.callCount()
	s.Mount(ctx)
	if calls := api.callsAfter(before); len(calls) != 1 || calls[0] != "list_events" {
		t.Errorf("student mount after register: calls = %v, want [list_events]", calls)
	}
}

// TestStudent_RegisterFailureShowsMessage tests that a rejected registration surfaces the server message.
func TestStudent_RegisterFailureShowsMessage(t *testing.T) {
	api := &fakeAPI{regErr: &campusapi.Error{Endpoint: "register", Kind: campusapi.ErrRejected, Message: "Event is full"}}
	s := NewStudent(api, "x")

	if err := s.Register(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	v := s.View()
	if v.Error != "Event is full" || v.Notice != "" {
		t.Errorf("view = %+v, want error message and no notice", v)
	}
}

// TestStudent_SubmitFeedback tests form reset on success and retention on failure.
func TestStudent_SubmitFeedback(t *testing.T) {
	api := &fakeAPI{}
	s := NewStudent(api, "x")

	form := feedback.Form{Comment: "Great talk", Rating: "4"}
	api.fbErr = transportErr
	if err := s.SubmitFeedback(context.Background(), 7, form); err == nil {
		t.Fatal("expected error")
	}
	v := s.View()
	if v.Feedback != form || v.FeedbackFor != 7 || v.Error != MsgUnreachable {
		t.Errorf("after failure view = %+v, want retained form for 7 and retry message", v)
	}

	api.fbErr = nil
	if err := s.SubmitFeedback(context.Background(), 7, form); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	v = s.View()
	if v.Feedback != feedback.DefaultForm() || v.FeedbackFor != 0 {
		t.Errorf("Feedback = %+v for %d, want defaults", v.Feedback, v.FeedbackFor)
	}
	if v.Notice != NoticeFeedback {
		t.Errorf("Notice = %q, want %q", v.Notice, NoticeFeedback)
	}
	if len(api.feedback) != 1 || api.feedback[0] != (feedback.Submission{RegistrationID: 7, Rating: 4, Comment: "Great talk"}) {
		t.Errorf("sent = %+v", api.feedback)
	}
}

// TestStudent_SubmitFeedbackInvalidRating tests that an out-of-range rating is refused locally.
func TestStudent_SubmitFeedbackInvalidRating(t *testing.T) {
	api := &fakeAPI{}
	s := NewStudent(api, "x")
	err := s.SubmitFeedback(context.Background(), 7, feedback.Form{Rating: "9"})
	if !errors.Is(err, feedback.ErrInvalidRating) {
		t.Errorf("err = %v, want ErrInvalidRating", err)
	}
	if api.callCount() != 0 {
		t.Errorf("calls = %v, want none", api.calls)
	}
}

// TestMessage tests user-facing error text.
func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"server message", &campusapi.Error{Kind: campusapi.ErrRejected, Message: "Not allowed"}, "Not allowed"},
		{"transport", transportErr, MsgUnreachable},
		{"timeout", context.DeadlineExceeded, MsgUnreachable},
		{"status", &campusapi.Error{Kind: campusapi.ErrStatus, StatusCode: 502}, MsgServerError},
		{"decode", &campusapi.Error{Kind: campusapi.ErrDecode}, MsgBadResponse},
		{"other", errors.New("x"), MsgGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.err); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRegistry tests controller reuse per browser, replacement on new token, and drop.
func TestRegistry(t *testing.T) {
	r := NewRegistry(&fakeAPI{})
	a1 := r.Admin("sid-1", "tok")
	if r.Admin("sid-1", "tok") != a1 {
		t.Error("same sid and token should reuse the controller")
	}
	if r.Admin("sid-2", "tok") == a1 {
		t.Error("different sid must not share a controller")
	}
	if r.Admin("sid-1", "new-tok") == a1 {
		t.Error("new token should replace the controller")
	}
	r.Student("sid-1", "tok")
	if r.Len() != 3 {
		t.Errorf("Len = %d, want 3", r.Len())
	}

	r.Drop("sid-1")
	if r.Len() != 1 {
		t.Errorf("after Drop Len = %d, want 1", r.Len())
	}
}

// TestRegistry_Sweep tests idle eviction.
func TestRegistry_Sweep(t *testing.T) {
	r := NewRegistry(&fakeAPI{})
	clock := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	r.Admin("old", "t")
	clock = clock.Add(2 * time.Hour)
	r.Student("fresh", "t")

	if n := r.Sweep(time.Hour); n != 1 {
		t.Errorf("Sweep = %d, want 1", n)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}
