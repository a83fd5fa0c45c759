package feedback

import (
	"errors"
	"strconv"
	"strings"
)

// Rating bounds.
const (
	MinRating     = 1
	MaxRating     = 5
	DefaultRating = 5
)

// ErrInvalidRating is returned when the rating is outside MinRating..MaxRating.
var ErrInvalidRating = errors.New("rating must be a whole number from 1 to 5")

// ErrMissingRegistration is returned when no registration is selected.
var ErrMissingRegistration = errors.New("registration is required")

// Submission is the feedback payload sent to the campus API. It is not retained after sending.
type Submission struct {
	RegistrationID int64  `json:"registration_id"`
	Rating         int    `json:"rating"`
	Comment        string `json:"comment"`
}

// Validate checks the submission's invariants.
func (s Submission) Validate() error {
	if s.RegistrationID <= 0 {
		return ErrMissingRegistration
	}
	if s.Rating < MinRating || s.Rating > MaxRating {
		return ErrInvalidRating
	}
	return nil
}

// Form holds the feedback form as typed.
type Form struct {
	Comment string
	Rating  string
}

// DefaultForm returns the reset feedback form: empty comment, rating 5.
func DefaultForm() Form {
	return Form{Rating: strconv.Itoa(DefaultRating)}
}

// Submission converts the form into a payload for registrationID.
// PRE: none
// POST: Returns a valid Submission or the first validation error
func (f Form) Submission(registrationID int64) (Submission, error) {
	rating, err := strconv.Atoi(strings.TrimSpace(f.Rating))
	if err != nil {
		return Submission{}, ErrInvalidRating
	}
	s := Submission{RegistrationID: registrationID, Rating: rating, Comment: f.Comment}
	if err := s.Validate(); err != nil {
		return Submission{}, err
	}
	return s, nil
}
