package dashboard

import (
	"context"
	"errors"

	"campusevents/internal/adapters/campusapi"
	"campusevents/internal/application/lifecycle"
	"campusevents/internal/domain/event"
	"campusevents/internal/domain/feedback"
	"campusevents/internal/domain/registration"
	"campusevents/internal/domain/report"
)

// AdminAPI is the campus API surface the admin dashboard needs.
type AdminAPI interface {
	ListEvents(ctx context.Context, token string) ([]event.Event, error)
	CreateEvent(ctx context.Context, token string, fields event.Fields) (event.Event, error)
	ListReports(ctx context.Context, token string) (report.Reports, error)
}

// StudentAPI is the campus API surface the student dashboard needs.
type StudentAPI interface {
	ListEvents(ctx context.Context, token string) ([]event.Event, error)
	ListMyRegistrations(ctx context.Context, token string) ([]registration.Registration, error)
	Register(ctx context.Context, token string, eventID int64) (registration.Registration, error)
	SubmitFeedback(ctx context.Context, token string, s feedback.Submission) error
}

// User-facing messages.
const (
	MsgUnreachable     = "Could not reach the campus server. Please try again."
	MsgServerError     = "The campus server returned an error. Please try again."
	MsgBadResponse     = "The campus server sent an unexpected response. Please try again."
	MsgGeneric         = "Something went wrong. Please try again."
	NoticeEventCreated = "Event created."
	NoticeRegistered   = "Registered successfully!"
	NoticeFeedback     = "Feedback submitted!"
)

// Message turns a campus API failure into text safe to show the user.
// Server-supplied messages are shown as they are.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := campusapi.ServerMessage(err); msg != "" {
		return msg
	}
	switch {
	case errors.Is(err, campusapi.ErrTransport), errors.Is(err, context.DeadlineExceeded):
		return MsgUnreachable
	case errors.Is(err, campusapi.ErrStatus):
		return MsgServerError
	case errors.Is(err, campusapi.ErrDecode):
		return MsgBadResponse
	}
	return MsgGeneric
}

// Panel is the render-ready state of one list.
type Panel[T any] struct {
	Rows   T
	Loaded bool
	Stale  bool   // Rows predate a failed fetch
	Error  string // message for the most recent failed fetch
}

func panelOf[T any](l *lifecycle.List[T]) Panel[T] {
	return Panel[T]{
		Rows:   l.Data(),
		Loaded: l.Loaded(),
		Stale:  l.Stale(),
		Error:  Message(l.Err()),
	}
}
