package dashboard

import (
	"sync"
	"time"
)

// API is the full campus API surface used by both dashboards.
type API interface {
	AdminAPI
	StudentAPI
}

type adminEntry struct {
	ctrl     *Admin
	lastUsed time.Time
}

type studentEntry struct {
	ctrl     *Student
	lastUsed time.Time
}

// Registry keeps one controller per browser and role so that list data and
// retained form values survive between page renders.
type Registry struct {
	api API
	now func() time.Time

	mu       sync.Mutex
	admins   map[string]*adminEntry
	students map[string]*studentEntry
}

// NewRegistry creates an empty registry whose controllers call api.
func NewRegistry(api API) *Registry {
	return &Registry{
		api:      api,
		now:      time.Now,
		admins:   make(map[string]*adminEntry),
		students: make(map[string]*studentEntry),
	}
}

// Admin returns the admin controller for sid, creating it on first use.
// A different token means a different login, so the old controller is replaced.
func (r *Registry) Admin(sid, token string) *Admin {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.admins[sid]
	if !ok || e.ctrl.token != token {
		e = &adminEntry{ctrl: NewAdmin(r.api, token)}
		r.admins[sid] = e
	}
	e.lastUsed = r.now()
	return e.ctrl
}

// Student returns the student controller for sid, creating it on first use.
func (r *Registry) Student(sid, token string) *Student {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.students[sid]
	if !ok || e.ctrl.token != token {
		e = &studentEntry{ctrl: NewStudent(r.api, token)}
		r.students[sid] = e
	}
	e.lastUsed = r.now()
	return e.ctrl
}

// Drop forgets every controller held for sid. Called on logout and guard rejection.
func (r *Registry) Drop(sid string) {
	r.mu.Lock()
	delete(r.admins, sid)
	delete(r.students, sid)
	r.mu.Unlock()
}

// Sweep drops controllers unused for longer than maxIdle and returns how many were dropped.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-maxIdle)
	n := 0
	for sid, e := range r.admins {
		if e.lastUsed.Before(cutoff) {
			delete(r.admins, sid)
			n++
		}
	}
	for sid, e := range r.students {
		if e.lastUsed.Before(cutoff) {
			delete(r.students, sid)
			n++
		}
	}
	return n
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.admins) + len(r.students)
}
