package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"campusevents/internal/adapters/campusapi"
	"campusevents/internal/application/lifecycle"
	"campusevents/internal/domain/event"
	"campusevents/internal/domain/report"
)

// Admin is the admin dashboard controller for one browser.
// It owns the events list, both report panels and the create-event form.
type Admin struct {
	mu    sync.Mutex
	api   AdminAPI
	token string

	events        *lifecycle.List[[]event.Event]
	popularity    *lifecycle.List[[]report.EventPopularity]
	participation *lifecycle.List[[]report.StudentParticipation]
	reports       lifecycle.Loader

	form      event.Form
	formError string
	notice    string
	// refetched is set when a mutation just re-fetched every list, so the
	// render that follows it does not fetch the same data twice.
	refetched bool
	// mounted is set once any fetch has run.
	mounted bool
}

// NewAdmin creates an admin controller acting with token.
func NewAdmin(api AdminAPI, token string) *Admin {
	a := &Admin{api: api, token: token, form: event.DefaultForm()}
	a.events = lifecycle.NewList("events", func(ctx context.Context) ([]event.Event, error) {
		return a.api.ListEvents(ctx, a.token)
	})
	a.popularity = lifecycle.NewList[[]report.EventPopularity]("event_popularity", nil)
	a.participation = lifecycle.NewList[[]report.StudentParticipation]("student_participation", nil)
	a.reports = lifecycle.LoaderFunc(a.loadReports)
	return a
}

// loadReports fetches both reports together and applies each panel's own outcome,
// so one failing report leaves the other current.
func (a *Admin) loadReports(ctx context.Context) error {
	r, err := a.api.ListReports(ctx, a.token)
	var perr *campusapi.ReportsError
	if errors.As(err, &perr) {
		a.popularity.Set(r.Popularity, perr.Popularity)
		a.participation.Set(r.Participation, perr.Participation)
		return err
	}
	a.popularity.Set(r.Popularity, err)
	a.participation.Set(r.Participation, err)
	return err
}

// Mount fetches the events list and both reports concurrently, unless a
// mutation has just re-fetched them.
// POST: failed fetches keep previous data and carry an error message
func (a *Admin) Mount(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.refetched {
		a.refetched = false
		return
	}
	a.mounted = true
	for _, err := range lifecycle.LoadAll(ctx, a.events, a.reports) {
		if err != nil {
			slog.Warn("dashboard_fetch_failed", "dashboard", "admin", "error", err)
		}
	}
}

// Mounted reports whether the lists have been fetched at least once.
func (a *Admin) Mounted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mounted
}

// CreateEvent submits form to the server, then re-fetches events and reports.
// PRE: form holds the values the user entered
// POST: on success the form is reset to defaults; on failure the entered values are kept
func (a *Admin) CreateEvent(ctx context.Context, form event.Form) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.form = form
	a.formError = ""
	fields, err := form.Fields()
	if err != nil {
		a.formError = err.Error()
		return err
	}

	var created event.Event
	a.mounted = true
	err = lifecycle.Mutate(ctx, func(ctx context.Context) error {
		var err error
		created, err = a.api.CreateEvent(ctx, a.token, fields)
		return err
	}, a.events, a.reports)
	if err != nil {
		a.formError = Message(err)
		slog.Warn("dashboard_mutation_failed", "dashboard", "admin", "action", "create_event", "error", err)
		return err
	}

	slog.Info("event_created", "event_id", created.ID, "type", created.Type)
	a.form = event.DefaultForm()
	a.notice = NoticeEventCreated
	a.refetched = true
	return nil
}

// AdminView is a render-ready snapshot of the admin dashboard.
type AdminView struct {
	Events        Panel[[]event.Event]
	Popularity    Panel[[]report.EventPopularity]
	Participation Panel[[]report.StudentParticipation]
	Form          event.Form
	FormError     string
	Notice        string
	EventTypes    []string
}

// View returns the current state. Notice and form error are shown once.
func (a *Admin) View() AdminView {
	a.mu.Lock()
	defer a.mu.Unlock()
	v := AdminView{
		Events:        panelOf(a.events),
		Popularity:    panelOf(a.popularity),
		Participation: panelOf(a.participation),
		Form:          a.form,
		FormError:     a.formError,
		Notice:        a.notice,
		EventTypes:    event.ValidTypes,
	}
	a.notice = ""
	a.formError = ""
	return v
}
