package orchestrators

import (
	"context"
	"log/slog"
)

// LogoutAPI defines the campus API call needed by Logout.
type LogoutAPI interface {
	Logout(ctx context.Context, token string) error
}

// LogoutInput carries input for the logout orchestrator.
type LogoutInput struct {
	SID string
}

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	API      LogoutAPI
	Sessions SessionWriter
	// Forget drops per-browser state held outside the session store. Optional.
	Forget func(sid string)
}

// ExecuteLogout revokes the token on the server and clears the browser's session.
// The remote call is best effort: its failure is logged and local cleanup proceeds.
// POST: the session store holds nothing for SID unless Clear itself failed
func ExecuteLogout(ctx context.Context, input LogoutInput, deps LogoutDeps) error {
	sess, err := deps.Sessions.Get(ctx, input.SID)
	if err != nil {
		slog.Warn("auth_event", "event", "logout_session_read_failed", "error", err)
	}
	if sess.Token != "" {
		if err := deps.API.Logout(ctx, sess.Token); err != nil {
			slog.Warn("auth_event", "event", "logout_remote_failed", "user_id", sess.UserID, "error", err)
		}
	}

	if deps.Forget != nil {
		deps.Forget(input.SID)
	}
	if err := deps.Sessions.Clear(ctx, input.SID); err != nil {
		return err
	}
	slog.Info("auth_event", "event", "logout", "user_id", sess.UserID, "role", sess.Role)
	return nil
}
