package access

import "campusevents/internal/domain/session"

// Decision is the outcome of evaluating the route guard.
type Decision int

const (
	// Redirect sends the client back to the login screen.
	Redirect Decision = iota
	// Allow lets the client view the destination.
	Allow
)

// String returns the decision name.
func (d Decision) String() string {
	if d == Allow {
		return "ALLOW"
	}
	return "REDIRECT"
}

// Route paths for the login screen and the role dashboards.
const (
	LoginPath            = "/"
	AdminDashboardPath   = "/admin-dashboard"
	StudentDashboardPath = "/student-dashboard"
)

// Decide evaluates whether a client may view a destination that requires requiredRole.
// An empty requiredRole means any authenticated client is allowed.
// PRE: none
// POST: Returns Redirect when token is absent, when role is absent, or when
// requiredRole is set and differs from role; Allow otherwise
func Decide(token, role, requiredRole string) Decision {
	if token == "" {
		return Redirect
	}
	if role == "" {
		return Redirect
	}
	if requiredRole != "" && role != requiredRole {
		return Redirect
	}
	return Allow
}

// DecideSession evaluates Decide against a stored session.
func DecideSession(s session.Session, requiredRole string) Decision {
	return Decide(s.Token, s.Role, requiredRole)
}

// Destination returns the dashboard path for a role.
// Only admin and student have a destination.
func Destination(role string) (string, bool) {
	switch role {
	case session.RoleAdmin:
		return AdminDashboardPath, true
	case session.RoleStudent:
		return StudentDashboardPath, true
	}
	return "", false
}
