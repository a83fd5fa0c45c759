//go:build browser

package browser_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"

	"campusevents/internal/adapters/campusapi"
	web "campusevents/internal/adapters/http"
	"campusevents/internal/adapters/http/middleware"
	"campusevents/internal/adapters/http/perf"
	"campusevents/internal/adapters/storage"
	"campusevents/internal/adapters/storage/session"
)

// testApp holds the running test server and Playwright handles.
type testApp struct {
	BaseURL string
	Server  *http.Server
	PW      *playwright.Playwright
	Browser playwright.Browser
	Campus  *campusServer
}

// campusServer is a small in-memory stand-in for the campus event API.
type campusServer struct {
	mu            sync.Mutex
	events        []map[string]any
	registrations []map[string]any
}

func (c *campusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	q := r.URL.Query()
	if r.URL.Path == "/api/login/" {
		switch q.Get("email") {
		case "admin@test.com":
			io.WriteString(w, `{"token":"t-admin","role":"admin","user_id":1}`)
		case "student@test.com":
			io.WriteString(w, `{"token":"t-student","role":"student","user_id":2}`)
		default:
			io.WriteString(w, `{"error":"Invalid credentials"}`)
		}
		return
	}
	if q.Get("token") == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch r.Method + " " + r.URL.Path {
	case "POST /api/logout/":
		io.WriteString(w, `{}`)
	case "GET /api/events/":
		json.NewEncoder(w).Encode(c.events)
	case "POST /api/events/":
		var ev map[string]any
		json.NewDecoder(r.Body).Decode(&ev)
		ev["id"] = len(c.events) + 1
		c.events = append(c.events, ev)
		json.NewEncoder(w).Encode(ev)
	case "GET /api/reports/event-popularity/", "GET /api/reports/student-participation/":
		io.WriteString(w, `[]`)
	case "GET /api/my-registrations/":
		json.NewEncoder(w).Encode(c.registrations)
	case "POST /api/registrations/":
		var body struct {
			EventID int `json:"event_id"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		title := ""
		for _, ev := range c.events {
			if fmt.Sprint(ev["id"]) == fmt.Sprint(body.EventID) {
				title, _ = ev["title"].(string)
			}
		}
		reg := map[string]any{"registration_id": len(c.registrations) + 1, "event": title, "status": "registered", "attendance": nil}
		c.registrations = append(c.registrations, reg)
		json.NewEncoder(w).Encode(reg)
	case "POST /api/feedback/":
		io.WriteString(w, `{}`)
	default:
		http.NotFound(w, r)
	}
}

// newTestApp creates a fully wired app with a temp SQLite session store and starts an HTTP server.
func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.DialectSQLite, filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}
	if err := storage.InitDB(ctx, db); err != nil {
		t.Fatalf("failed to init test DB: %v", err)
	}

	campus := &campusServer{}
	apiSrv := httptest.NewServer(campus)

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	key := []byte("browser-test-key-0123456789abcdef")[:32]
	collector := perf.NewCollector(1000)
	web.RateLimitPerSecond = 1000
	mux := web.NewMux(web.Deps{
		API:            campusapi.New(apiSrv.URL, 5*time.Second, campusapi.WithCollector(collector)),
		Sessions:       session.NewSQLStore(storage.NewTimedDB(db, collector), storage.DialectSQLite, time.Hour),
		Cookie:         middleware.NewSIDCookie(key, false, time.Hour),
		CSRFKey:        key,
		TrustedOrigins: []string{fmt.Sprintf("127.0.0.1:%d", port)},
		Collector:      collector,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("test server error: %v", err)
		}
	}()

	// Wait for server to be ready
	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	for i := 0; i < 50; i++ {
		resp, err := http.Get(baseURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Fatalf("failed to start Playwright: %v", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("failed to launch browser: %v", err)
	}

	app := &testApp{
		BaseURL: baseURL,
		Server:  srv,
		PW:      pw,
		Browser: browser,
		Campus:  campus,
	}
	t.Cleanup(func() {
		browser.Close()
		pw.Stop()
		srv.Close()
		apiSrv.Close()
		db.Close()
	})
	return app
}

// newPage creates a new browser page (tab).
func (a *testApp) newPage(t *testing.T) playwright.Page {
	t.Helper()
	page, err := a.Browser.NewPage()
	if err != nil {
		t.Fatalf("failed to create page: %v", err)
	}
	t.Cleanup(func() { page.Close() })
	return page
}

// login logs in with email and waits for the dashboard at wantPath.
func (a *testApp) login(t *testing.T, page playwright.Page, email, wantPath string) {
	t.Helper()
	if _, err := page.Goto(a.BaseURL + "/"); err != nil {
		t.Fatalf("failed to navigate to login: %v", err)
	}
	if err := page.Locator("input[name=email]").Fill(email); err != nil {
		t.Fatalf("failed to fill email: %v", err)
	}
	if err := page.Locator("input[name=password]").Fill("pw"); err != nil {
		t.Fatalf("failed to fill password: %v", err)
	}
	if err := page.Locator("form[action='/login'] button[type=submit]").Click(); err != nil {
		t.Fatalf("failed to click login: %v", err)
	}
	if err := page.WaitForURL(a.BaseURL+wantPath, playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(10000),
	}); err != nil {
		t.Fatalf("login did not redirect to %s: %v", wantPath, err)
	}
}
