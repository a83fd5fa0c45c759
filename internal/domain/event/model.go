package event

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Event type constants.
const (
	TypeWorkshop = "workshop"
	TypeFest     = "fest"
	TypeSeminar  = "seminar"
	TypeTalk     = "talk"
	TypeOther    = "other"
)

// ValidTypes lists event types in form display order.
var ValidTypes = []string{TypeWorkshop, TypeFest, TypeSeminar, TypeTalk, TypeOther}

// TypeLabels maps an event type to its display label.
var TypeLabels = map[string]string{
	TypeWorkshop: "Workshop",
	TypeFest:     "Fest",
	TypeSeminar:  "Seminar",
	TypeTalk:     "Tech Talk",
	TypeOther:    "Other",
}

// Max length constants mirror the campus API's column sizes.
const (
	MaxTitleLength    = 200
	MaxLocationLength = 200
)

// Domain errors
var (
	ErrEmptyTitle      = errors.New("title is required")
	ErrTitleTooLong    = errors.New("title cannot exceed 200 characters")
	ErrInvalidType     = errors.New("type must be one of: workshop, fest, seminar, talk, other")
	ErrMissingStart    = errors.New("start date and time is required")
	ErrMissingEnd      = errors.New("end date and time is required")
	ErrLocationTooLong = errors.New("location cannot exceed 200 characters")
	ErrInvalidCapacity = errors.New("capacity must be a whole number of zero or more")
)

// Event is the server's view of a campus event. The client only ever holds a read-only copy.
type Event struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Type          string  `json:"type"`
	StartDatetime string  `json:"start_datetime"`
	EndDatetime   string  `json:"end_datetime"`
	Location      *string `json:"location"`
	Capacity      *int    `json:"capacity,omitempty"`
	Description   string  `json:"description,omitempty"`
	CreatedBy     string  `json:"created_by,omitempty"`
}

// TypeLabel returns the display label for the event type.
func (e Event) TypeLabel() string {
	return TypeLabel(e.Type)
}

// LocationOrEmpty returns the location or "" when the server sent null.
func (e Event) LocationOrEmpty() string {
	if e.Location == nil {
		return ""
	}
	return *e.Location
}

// StartDisplay returns the start time formatted for people, or the raw value if it cannot be parsed.
func (e Event) StartDisplay() string {
	return displayTime(e.StartDatetime)
}

// EndDisplay returns the end time formatted for people, or the raw value if it cannot be parsed.
func (e Event) EndDisplay() string {
	return displayTime(e.EndDatetime)
}

// TypeLabel returns the display label for an event type, falling back to the raw value.
func TypeLabel(t string) string {
	if l, ok := TypeLabels[t]; ok {
		return l
	}
	return t
}

// IsValidType reports whether t is a known event type.
func IsValidType(t string) bool {
	_, ok := TypeLabels[t]
	return ok
}

// serverLayouts are the datetime shapes the campus API and datetime-local inputs produce.
var serverLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTime parses a datetime string sent by the campus API.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range serverLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func displayTime(raw string) string {
	t, err := ParseTime(raw)
	if err != nil {
		return raw
	}
	return t.Format("Mon 2 Jan 2006, 3:04 PM")
}

// Fields is the create-event payload sent to the campus API.
// Capacity is either an integer or JSON null, never an empty string.
type Fields struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Type          string `json:"type"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
	Location      string `json:"location"`
	Capacity      *int   `json:"capacity"`
}

// Form holds the create-event form exactly as the user typed it.
type Form struct {
	Title       string
	Description string
	Type        string
	Start       string
	End         string
	Location    string
	Capacity    string
}

// DefaultForm returns the empty create-event form.
func DefaultForm() Form {
	return Form{Type: TypeWorkshop}
}

// Fields converts the form into an API payload.
// PRE: none
// POST: Returns the payload, or the first validation error; the form is not modified
func (f Form) Fields() (Fields, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return Fields{}, ErrEmptyTitle
	}
	if len(title) > MaxTitleLength {
		return Fields{}, ErrTitleTooLong
	}
	typ := f.Type
	if typ == "" {
		typ = TypeWorkshop
	}
	if !IsValidType(typ) {
		return Fields{}, ErrInvalidType
	}
	if strings.TrimSpace(f.Start) == "" {
		return Fields{}, ErrMissingStart
	}
	if strings.TrimSpace(f.End) == "" {
		return Fields{}, ErrMissingEnd
	}
	if len(f.Location) > MaxLocationLength {
		return Fields{}, ErrLocationTooLong
	}
	capacity, err := parseCapacity(f.Capacity)
	if err != nil {
		return Fields{}, err
	}
	return Fields{
		Title:         title,
		Description:   f.Description,
		Type:          typ,
		StartDatetime: strings.TrimSpace(f.Start),
		EndDatetime:   strings.TrimSpace(f.End),
		Location:      f.Location,
		Capacity:      capacity,
	}, nil
}

func parseCapacity(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, ErrInvalidCapacity
	}
	return &n, nil
}
