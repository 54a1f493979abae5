package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ficore.org/internal/identity"
	"ficore.org/internal/obs"
	"ficore.org/internal/session"
)

// SessionCookie is the browser cookie carrying the session id.
const SessionCookie = "ficore_sid"

type ctxKey int

const (
	ctxSession ctxKey = iota
	ctxUser
)

// sessionFrom returns the request's session; withSession is always run first
// so the zero value never escapes.
func sessionFrom(r *http.Request) session.Session {
	s, _ := r.Context().Value(ctxSession).(session.Session)
	return s
}

// userFrom returns the authenticated user, or nil for guests.
func userFrom(r *http.Request) *identity.User {
	u, _ := r.Context().Value(ctxUser).(*identity.User)
	return u
}

// withSession ensures every request carries a session, loading the bound user
// for authenticated ones, and refreshes the cookie.
func (a *API) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Probes and scrapes never allocate sessions.
		switch r.URL.Path {
		case "/health", "/readyz", "/metrics":
			next.ServeHTTP(w, r)
			return
		}
		sid := ""
		if c, err := r.Cookie(SessionCookie); err == nil {
			sid = c.Value
		}
		s := a.sessions.Ensure(r.Context(), sid)

		ctx := context.WithValue(r.Context(), ctxSession, s)
		if !s.IsAnonymous && s.UserID != "" {
			if u, err := a.users.FindUser(r.Context(), s.UserID); err == nil {
				ctx = context.WithValue(ctx, ctxUser, u)
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.SID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
			Secure:   a.secureCookies,
			Expires:  s.Expiration,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Logging emits one structured line per request with session context.
func (a *API) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: 200}
		start := time.Now()
		next.ServeHTTP(sw, r)

		s := sessionFrom(r)
		role := s.Role
		if role == "" {
			role = "anonymous"
		}
		obs.Info("request", obs.RequestContext{
			SessionID: s.SID,
			UserRole:  role,
			IPAddress: clientIP(r),
		}, obs.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.code,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// noCache marks responses that must never be served from a browser cache
// (logout and other auth state changes).
func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}

// limiter is a per-IP token bucket with idle eviction.
type limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLimiter(every rate.Limit, burst int) *limiter {
	l := &limiter{buckets: map[string]*bucket{}, every: every, burst: burst}
	go l.reap()
	return l
}

func (l *limiter) reap() {
	for range time.Tick(time.Minute) {
		l.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for k, b := range l.buckets {
			if b.seen.Before(cutoff) {
				delete(l.buckets, k)
			}
		}
		l.mu.Unlock()
	}
}

func (l *limiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.every, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = time.Now()
	return b.lim.Allow()
}

// rateLimit guards a handler group with the given per-IP limiter.
func rateLimit(l *limiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
