package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"campusevents/internal/adapters/http/middleware"
	"campusevents/internal/application/orchestrators"
	"campusevents/internal/domain/access"
	"campusevents/internal/domain/event"
)

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode_response_failed", "error", err)
	}
}

// browser returns the browser identified by the Auth middleware.
func browser(r *http.Request) middleware.Browser {
	b, _ := middleware.BrowserFromContext(r.Context())
	return b
}

func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	sess := browser(r).Session

	funcMap := template.FuncMap{
		"currentRole":    func() string { return sess.Role },
		"isLoggedIn":     func() bool { return sess.IsAuthenticated() },
		"csrfToken":      func() string { return csrf.Token(r) },
		"renderMarkdown": renderMarkdown,
		"typeLabel":      event.TypeLabel,
		"list":           func(items ...string) []string { return items },
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(assets, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	// Render into a buffer so a failing template never sends half a page.
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		http.Error(w, "Render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

// handleLoginPage handles GET /
func handleLoginPage(w http.ResponseWriter, r *http.Request) {
	sess := browser(r).Session
	if access.DecideSession(sess, "") == access.Allow {
		if dest, ok := access.Destination(sess.Role); ok {
			http.Redirect(w, r, dest, http.StatusSeeOther)
			return
		}
	}
	renderTemplate(w, r, "login.html", map[string]any{
		"Email": "",
		"Error": "",
	})
}

// handleLogin handles POST /login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	oldSID := browser(r).SID
	input := orchestrators.LoginInput{
		SID:      oldSID,
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	deps := orchestrators.LoginDeps{
		API:      api,
		Sessions: sessions,
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), input, deps)
	if err != nil {
		renderTemplate(w, r, "login.html", map[string]any{
			"Email": input.Email,
			"Error": orchestrators.UserMessage(err),
		})
		return
	}
	// The pre-login sid must not reach the new session.
	if err := sidCookie.Rotate(w, result.SID); err != nil {
		sessions.Clear(r.Context(), result.SID)
		internalError(w, err)
		return
	}
	dashboards.Drop(oldSID)
	http.Redirect(w, r, result.Destination, http.StatusSeeOther)
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	input := orchestrators.LogoutInput{SID: browser(r).SID}
	deps := orchestrators.LogoutDeps{
		API:      api,
		Sessions: sessions,
		Forget:   dashboards.Drop,
	}
	if err := orchestrators.ExecuteLogout(r.Context(), input, deps); err != nil {
		internalError(w, err)
		return
	}
	http.Redirect(w, r, access.LoginPath, http.StatusSeeOther)
}
