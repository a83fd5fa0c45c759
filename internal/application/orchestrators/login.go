package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"campusevents/internal/adapters/campusapi"
	"campusevents/internal/domain/access"
	"campusevents/internal/domain/session"
)

// LoginAPI defines the campus API call needed by Login.
type LoginAPI interface {
	Login(ctx context.Context, email, password string) (campusapi.LoginResult, error)
}

// SessionWriter defines the session store operations needed by Login and Logout.
type SessionWriter interface {
	Get(ctx context.Context, sid string) (session.Session, error)
	Set(ctx context.Context, sid string, value session.Session) error
	Clear(ctx context.Context, sid string) error
}

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	// SID is the browser's current session id. It stops working once login succeeds.
	SID      string
	Email    string
	Password string
}

// LoginResult carries the result of a successful login.
type LoginResult struct {
	// SID is the fresh session id the browser must carry from now on.
	SID         string
	Session     session.Session
	Destination string
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	API      LoginAPI
	Sessions SessionWriter
	// NewSID mints session ids. Defaults to uuid.NewString.
	NewSID func() string
}

// MsgLoginFailed is shown when the campus API could not answer a login attempt.
const MsgLoginFailed = "Login failed. Please try again."

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrUnknownRole        = errors.New("account has no dashboard for its role")
)

// LoginRejectedError carries the campus API's own reason for refusing credentials.
type LoginRejectedError struct {
	Message string
}

// Error implements error.
func (e *LoginRejectedError) Error() string {
	return e.Message
}

// LoginFailedError wraps a transport or protocol failure during login.
type LoginFailedError struct {
	Err error
}

// Error implements error.
func (e *LoginFailedError) Error() string {
	return MsgLoginFailed
}

// Unwrap returns the underlying failure.
func (e *LoginFailedError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text the login page shows for err.
func UserMessage(err error) string {
	var rejected *LoginRejectedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.Is(err, ErrMissingCredentials), errors.Is(err, ErrUnknownRole):
		return err.Error()
	}
	return MsgLoginFailed
}

// ExecuteLogin exchanges credentials with the campus API and stores the session for the browser.
// PRE: SID identifies the browser
// POST: on success the session store holds {token, role, user id} under a new sid,
// the old SID holds nothing and the destination is the role's dashboard;
// on any failure the session of SID is untouched
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (LoginResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	res, err := deps.API.Login(ctx, email, input.Password)
	if err != nil {
		slog.Warn("auth_event", "event", "login_failed", "email", email, "reason", "upstream", "error", err)
		return LoginResult{}, &LoginFailedError{Err: err}
	}
	if res.Error != "" {
		slog.Info("auth_event", "event", "login_failed", "email", email, "reason", "rejected")
		return LoginResult{}, &LoginRejectedError{Message: res.Error}
	}

	dest, ok := access.Destination(res.Role)
	if !ok {
		slog.Warn("auth_event", "event", "login_blocked", "email", email, "reason", "unknown_role", "role", res.Role)
		return LoginResult{}, ErrUnknownRole
	}

	newSID := uuid.NewString
	if deps.NewSID != nil {
		newSID = deps.NewSID
	}
	sid := newSID()
	sess := session.Session{Token: res.Token, Role: res.Role, UserID: res.UserID}
	if err := deps.Sessions.Set(ctx, sid, sess); err != nil {
		return LoginResult{}, err
	}
	if err := deps.Sessions.Clear(ctx, input.SID); err != nil {
		if cerr := deps.Sessions.Clear(ctx, sid); cerr != nil {
			slog.Error("session_store_error", "op", "clear", "error", cerr)
		}
		return LoginResult{}, err
	}

	slog.Info("auth_event", "event", "login_success", "email", email, "role", res.Role, "user_id", res.UserID)
	return LoginResult{SID: sid, Session: sess, Destination: dest}, nil
}
