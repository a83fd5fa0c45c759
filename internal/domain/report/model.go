package report

// EventPopularity is one row of the event popularity report.
type EventPopularity struct {
	Event         string `json:"event"`
	Registrations int    `json:"registrations"`
}

// StudentParticipation is one row of the student participation report.
type StudentParticipation struct {
	Student  string `json:"student"`
	Attended int    `json:"attended"`
}

// Reports holds both admin reports. Rows are recomputed by the server on every fetch.
type Reports struct {
	Popularity    []EventPopularity
	Participation []StudentParticipation
}
