package web

import (
	"net/http"
	"strconv"
	"time"

	"campusevents/internal/adapters/http/perf"
	"campusevents/internal/domain/access"
	"campusevents/internal/domain/event"
	"campusevents/internal/domain/feedback"
)

// handleAdminDashboard handles GET /admin-dashboard
func handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	b := browser(r)
	ctrl := dashboards.Admin(b.SID, b.Session.Token)
	ctrl.Mount(r.Context())
	renderTemplate(w, r, "admin_dashboard.html", map[string]any{
		"View": ctrl.View(),
	})
}

// handleCreateEvent handles POST /admin-dashboard/events
// POST: redirects back to the dashboard on success; re-renders with the entered values on failure
func handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	form := event.Form{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Type:        r.PostFormValue("type"),
		Start:       r.PostFormValue("start_datetime"),
		End:         r.PostFormValue("end_datetime"),
		Location:    r.PostFormValue("location"),
		Capacity:    r.PostFormValue("capacity"),
	}

	b := browser(r)
	ctrl := dashboards.Admin(b.SID, b.Session.Token)
	if err := ctrl.CreateEvent(r.Context(), form); err != nil {
		if !ctrl.Mounted() {
			ctrl.Mount(r.Context())
		}
		renderTemplate(w, r, "admin_dashboard.html", map[string]any{
			"View": ctrl.View(),
		})
		return
	}
	http.Redirect(w, r, access.AdminDashboardPath, http.StatusSeeOther)
}

// handlePerf handles GET /admin-dashboard/perf?minutes=N
func handlePerf(w http.ResponseWriter, r *http.Request) {
	minutes := 60
	if v := r.URL.Query().Get("minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "minutes must be a positive integer", http.StatusBadRequest)
			return
		}
		minutes = n
	}
	if perfCollector == nil {
		writeJSON(w, http.StatusOK, perf.Snapshot{})
		return
	}
	since := time.Now().Add(-time.Duration(minutes) * time.Minute)
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(since, 10))
}

// handleStudentDashboard handles GET /student-dashboard
func handleStudentDashboard(w http.ResponseWriter, r *http.Request) {
	b := browser(r)
	ctrl := dashboards.Student(b.SID, b.Session.Token)
	ctrl.Mount(r.Context())
	renderTemplate(w, r, "student_dashboard.html", map[string]any{
		"View": ctrl.View(),
	})
}

// handleRegister handles POST /student-dashboard/registrations
// The outcome is shown on the dashboard the client is redirected to.
func handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	eventID, err := strconv.ParseInt(r.PostFormValue("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		http.Error(w, "event_id must be a positive integer", http.StatusBadRequest)
		return
	}

	b := browser(r)
	dashboards.Student(b.SID, b.Session.Token).Register(r.Context(), eventID)
	http.Redirect(w, r, access.StudentDashboardPath, http.StatusSeeOther)
}

// handleFeedback handles POST /student-dashboard/feedback
func handleFeedback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	// A missing or malformed id is reported by the form validation as "registration is required".
	regID, _ := strconv.ParseInt(r.PostFormValue("registration_id"), 10, 64)
	form := feedback.Form{
		Rating:  r.PostFormValue("rating"),
		Comment: r.PostFormValue("comment"),
	}

	b := browser(r)
	dashboards.Student(b.SID, b.Session.Token).SubmitFeedback(r.Context(), regID, form)
	http.Redirect(w, r, access.StudentDashboardPath, http.StatusSeeOther)
}
