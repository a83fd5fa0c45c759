package registration

// Attendance labels. A registration has three attendance states, not two.
const (
	LabelPresent   = "Present"
	LabelAbsent    = "Absent"
	LabelNotMarked = "Not Marked"
)

// Registration is a student's registration as returned by the campus API.
// Attendance is nil until an admin marks it.
type Registration struct {
	RegistrationID int64  `json:"registration_id"`
	Event          string `json:"event"`
	Status         string `json:"status"`
	RegisteredAt   string `json:"registered_at,omitempty"`
	Attendance     *bool  `json:"attendance"`
}

// AttendanceLabel returns the display label for the registration's attendance.
func (r Registration) AttendanceLabel() string {
	return AttendanceLabel(r.Attendance)
}

// AttendanceLabel maps nil to "Not Marked", false to "Absent" and true to "Present".
func AttendanceLabel(attendance *bool) string {
	if attendance == nil {
		return LabelNotMarked
	}
	if *attendance {
		return LabelPresent
	}
	return LabelAbsent
}
