package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"campusevents/internal/application/lifecycle"
	"campusevents/internal/domain/event"
	"campusevents/internal/domain/feedback"
	"campusevents/internal/domain/registration"
)

// Student is the student dashboard controller for one browser.
// It owns the events list, the registrations list and the feedback form.
type Student struct {
	mu    sync.Mutex
	api   StudentAPI
	token string

	events        *lifecycle.List[[]event.Event]
	registrations *lifecycle.List[[]registration.Registration]

	feedback    feedback.Form
	feedbackFor int64
	errMsg      string
	notice      string
	refetched   bool
}

// NewStudent creates a student controller acting with token.
func NewStudent(api StudentAPI, token string) *Student {
	s := &Student{api: api, token: token, feedback: feedback.DefaultForm()}
	s.events = lifecycle.NewList("events", func(ctx context.Context) ([]event.Event, error) {
		return s.api.ListEvents(ctx, s.token)
	})
	s.registrations = lifecycle.NewList("my_registrations", func(ctx context.Context) ([]registration.Registration, error) {
		return s.api.ListMyRegistrations(ctx, s.token)
	})
	return s
}

// Mount fetches events and registrations concurrently.
// Only events are fetched when a registration has just re-fetched the registrations list.
func (s *Student) Mount(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refetched {
		s.refetched = false
		if err := s.events.Refresh(ctx); err != nil {
			slog.Warn("dashboard_fetch_failed", "dashboard", "student", "error", err)
		}
		return
	}
	for _, err := range lifecycle.LoadAll(ctx, s.events, s.registrations) {
		if err != nil {
			slog.Warn("dashboard_fetch_failed", "dashboard", "student", "error", err)
		}
	}
}

// Register registers for eventID, then re-fetches the registrations list.
func (s *Student) Register(ctx context.Context, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errMsg = ""
	err := lifecycle.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.api.Register(ctx, s.token, eventID)
		return err
	}, s.registrations)
	s.refetched = true
	if err != nil {
		s.errMsg = Message(err)
		slog.Warn("dashboard_mutation_failed", "dashboard", "student", "action", "register", "event_id", eventID, "error", err)
		return err
	}
	s.notice = NoticeRegistered
	return nil
}

// SubmitFeedback sends form as feedback for registrationID.
// POST: on success the form is reset to its defaults; on failure the entered values are kept
func (s *Student) SubmitFeedback(ctx context.Context, registrationID int64, form feedback.Form) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.feedback = form
	s.feedbackFor = registrationID
	s.errMsg = ""
	sub, err := form.Submission(registrationID)
	if err != nil {
		s.errMsg = err.Error()
		return err
	}

	err = lifecycle.Mutate(ctx, func(ctx context.Context) error {
		return s.api.SubmitFeedback(ctx, s.token, sub)
	})
	if err != nil {
		s.errMsg = Message(err)
		slog.Warn("dashboard_mutation_failed", "dashboard", "student", "action", "feedback", "registration_id", registrationID, "error", err)
		return err
	}
	s.feedback = feedback.DefaultForm()
	s.feedbackFor = 0
	s.notice = NoticeFeedback
	return nil
}

// StudentView is a render-ready snapshot of the student dashboard.
type StudentView struct {
	Events        Panel[[]event.Event]
	Registrations Panel[[]registration.Registration]
	Feedback      feedback.Form
	FeedbackFor   int64 // registration the retained feedback values belong to, 0 if none
	Error         string
	Notice        string
}

// View returns the current state. Notice and error are shown once.
func (s *Student) View() StudentView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := StudentView{
		Events:        panelOf(s.events),
		Registrations: panelOf(s.registrations),
		Feedback:      s.feedback,
		FeedbackFor:   s.feedbackFor,
		Error:         s.errMsg,
		Notice:        s.notice,
	}
	s.notice = ""
	s.errMsg = ""
	return v
}
