package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"campusevents/internal/domain/access"
	"campusevents/internal/domain/session"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

const browserContextKey contextKey = "browser"

const (
	sidCookieName = "campus_sid"
	sidIssuer     = "campusevents"
)

// SessionStore is the subset of the session store the middleware needs.
type SessionStore interface {
	Get(ctx context.Context, sid string) (session.Session, error)
	Clear(ctx context.Context, sid string) error
}

// Browser is the per-request view of one browser: its session id and the
// session read from the store for this request.
type Browser struct {
	SID     string
	Session session.Session
}

// SIDCookie issues and verifies the signed cookie carrying the browser session id.
type SIDCookie struct {
	key    []byte
	secure bool
	ttl    time.Duration
	now    func() time.Time
}

// NewSIDCookie creates a cookie codec.
// PRE: len(key) >= 32, ttl > 0
func NewSIDCookie(key []byte, secure bool, ttl time.Duration) *SIDCookie {
	return &SIDCookie{key: key, secure: secure, ttl: ttl, now: time.Now}
}

type sidClaims struct {
	jwt.RegisteredClaims
}

// Sign returns an HS256 token whose subject is sid.
func (c *SIDCookie) Sign(sid string) (string, error) {
	now := c.now()
	claims := sidClaims{jwt.RegisteredClaims{
		Issuer:    sidIssuer,
		Subject:   sid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
}

// Verify validates a token and returns the sid and when it was issued.
func (c *SIDCookie) Verify(token string) (string, time.Time, error) {
	var claims sidClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sidIssuer),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", time.Time{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", time.Time{}, errors.New("invalid sid token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", time.Time{}, err
	}
	var issued time.Time
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time
	}
	return claims.Subject, issued, nil
}

// Rotate replaces the browser's cookie with one carrying sid.
// The old sid is no longer sent by the browser after this response.
func (c *SIDCookie) Rotate(w http.ResponseWriter, sid string) error {
	return c.write(w, sid)
}

// write sets the cookie for sid on the response.
func (c *SIDCookie) write(w http.ResponseWriter, sid string) error {
	value, err := c.Sign(sid)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sidCookieName,
		Value:    value,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
	})
	return nil
}

// Auth returns middleware that identifies the browser and loads its session.
// A missing or invalid cookie gets a fresh sid. The session is read from the
// store on every request. It does NOT block unauthenticated requests; use Guard for that.
func Auth(cookie *SIDCookie, store SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid, issued := "", time.Time{}
			if ck, err := r.Cookie(sidCookieName); err == nil && ck.Value != "" {
				sid, issued, err = cookie.Verify(ck.Value)
				if err != nil {
					slog.Info("auth_event", "event", "sid_rejected", "error", err)
				}
			}
			if sid == "" {
				sid = uuid.NewString()
			}
			// Re-issue once half the lifetime has passed so active browsers keep their sid.
			if issued.IsZero() || cookie.now().Sub(issued) > cookie.ttl/2 {
				if err := cookie.write(w, sid); err != nil {
					internalError(w, err)
					return
				}
			}

			sess, err := store.Get(r.Context(), sid)
			if err != nil {
				slog.Error("session_store_error", "op", "get", "error", err)
				http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
				return
			}
			ctx := ContextWithBrowser(r.Context(), Browser{SID: sid, Session: sess})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Guard returns middleware that evaluates the route guard for requiredRole on every request.
// On REDIRECT the stored session is cleared, onReject is called with the sid,
// and the client is sent to the login screen with no message.
// PRE: Auth runs before Guard
func Guard(store SessionStore, requiredRole string, onReject func(sid string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := BrowserFromContext(r.Context())
			if access.DecideSession(b.Session, requiredRole) == access.Allow {
				next.ServeHTTP(w, r)
				return
			}

			slog.Info("auth_event",
				"event", "guard_redirect",
				"path", r.URL.Path,
				"required_role", requiredRole,
				"role", b.Session.Role,
			)
			if b.SID != "" {
				if err := store.Clear(r.Context(), b.SID); err != nil {
					slog.Error("session_store_error", "op", "clear", "error", err)
				}
				if onReject != nil {
					onReject(b.SID)
				}
			}
			http.Redirect(w, r, access.LoginPath, http.StatusSeeOther)
		})
	}
}

// BrowserFromContext extracts the browser from the request context.
func BrowserFromContext(ctx context.Context) (Browser, bool) {
	b, ok := ctx.Value(browserContextKey).(Browser)
	return b, ok
}

// ContextWithBrowser returns a context carrying b.
func ContextWithBrowser(ctx context.Context, b Browser) context.Context {
	return context.WithValue(ctx, browserContextKey, b)
}

// internalError logs err and writes a generic 500.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
