package session

// Role constants
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// ValidRoles contains all roles the campus API hands out.
var ValidRoles = []string{RoleAdmin, RoleStudent}

// Session is the authenticated identity held for one browser.
// Every field is either present (non-empty) or absent (empty).
type Session struct {
	Token  string
	Role   string
	UserID string
}

// IsAuthenticated reports whether both the token and the role are present.
// A partial session (token without role, or role without token) is treated as unauthenticated.
// INVARIANT: Session fields are not mutated
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.Role != ""
}

// IsZero reports whether all three fields are absent.
func (s Session) IsZero() bool {
	return s.Token == "" && s.Role == "" && s.UserID == ""
}

// IsValidRole reports whether role is one of ValidRoles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
