// Package session manages authenticated and anonymous (guest) sessions.
// Guest sessions are created lazily on the first request without one.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"ficore.org/internal/obs"
)

// TTL is the server-side session lifetime.
const TTL = 30 * 24 * time.Hour

// Languages supported for the UI.
const (
	LangEnglish = "en"
	LangHausa   = "ha"
)

// ValidLanguage reports whether lang is a supported language code.
func ValidLanguage(lang string) bool {
	return lang == LangEnglish || lang == LangHausa
}

// Session is the server-side session document. Authenticated sessions carry
// the user id and a role snapshot; anonymous ones only a sid.
type Session struct {
	SID         string    `bson:"_id" json:"sid"`
	IsAnonymous bool      `bson:"is_anonymous" json:"is_anonymous"`
	UserID      string    `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Role        string    `bson:"role,omitempty" json:"role,omitempty"`
	Language    string    `bson:"language" json:"language"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	Expiration  time.Time `bson:"expiration" json:"expiration"`

	// RealityCheckScore is the self-assessment quiz score; it lives on the
	// session rather than on any course progress.
	RealityCheckScore *int `bson:"reality_check_score,omitempty" json:"reality_check_score,omitempty"`

	// RoleFilter narrows the learning-hub catalog view
	// (all, civil_servant, nysc, agent).
	RoleFilter string `bson:"role_filter,omitempty" json:"role_filter,omitempty"`
}

var (
	ErrNotFound      = errors.New("session: not found")
	ErrInvalidLang   = errors.New("session: unsupported language")
	ErrInvalidFilter = errors.New("session: unsupported role filter")
)

// Store persists sessions. Expired documents are reaped by a TTL index on the
// expiration field.
type Store interface {
	InsertSession(ctx context.Context, s Session) error
	FindSession(ctx context.Context, sid string) (*Session, error)
	UpdateSession(ctx context.Context, s Session) error
	DeleteSession(ctx context.Context, sid string) error
}

// UserLanguageMirror mirrors an authenticated caller's language preference to
// the user record. The identity store satisfies it.
type UserLanguageMirror interface {
	MirrorLanguage(ctx context.Context, userID, lang string) error
}

// Manager creates and resolves sessions with retry on transient store errors.
type Manager struct {
	store  Store
	mirror UserLanguageMirror
	now    func() time.Time
	sleep  func(time.Duration)

	retries int
	backoff time.Duration
}

// NewManager constructs a Manager. mirror may be nil when language mirroring
// is not wanted (tests).
func NewManager(store Store, mirror UserLanguageMirror) *Manager {
	return &Manager{
		store:   store,
		mirror:  mirror,
		now:     time.Now,
		sleep:   time.Sleep,
		retries: 3,
		backoff: 500 * time.Millisecond,
	}
}

// Ensure resolves the session for sid, creating a guest session when sid is
// empty or unknown. Transient store failures, on lookup and on guest creation,
// are retried up to 3 times with a 0.5 s backoff; only a definitive
// ErrNotFound demotes the caller to a fresh guest. If guest creation keeps
// failing a synthetic "error-<uuid8>" session is returned
// that still functions for the lifetime of the request.
func (m *Manager) Ensure(ctx context.Context, sid string) Session {
	if sid != "" {
		var lastErr error
		for attempt := 0; attempt < m.retries; attempt++ {
			if attempt > 0 {
				m.sleep(m.backoff)
			}
			s, err := m.store.FindSession(ctx, sid)
			if err == nil {
				if s != nil && s.Expiration.After(m.now()) {
					return *s
				}
				lastErr = nil
				break
			}
			if errors.Is(err, ErrNotFound) {
				lastErr = nil
				break
			}
			lastErr = err
		}
		if lastErr != nil {
			obs.Warn("session lookup failing, issuing guest session", obs.RequestContext{SessionID: sid}, obs.Fields{
				"error": lastErr.Error(),
			})
		}
	}

	var lastErr error
	for attempt := 0; attempt < m.retries; attempt++ {
		if attempt > 0 {
			m.sleep(m.backoff)
		}
		s := m.newGuest()
		if err := m.store.InsertSession(ctx, s); err != nil {
			lastErr = err
			continue
		}
		return s
	}

	obs.Error("guest session creation failed, using synthetic sid", obs.RequestContext{}, obs.Fields{
		"error": errString(lastErr),
	})
	s := m.newGuest()
	s.SID = "error-" + uuid.NewString()[:8]
	return s
}

func (m *Manager) newGuest() Session {
	now := m.now().UTC()
	return Session{
		SID:         uuid.NewString(),
		IsAnonymous: true,
		Language:    LangEnglish,
		CreatedAt:   now,
		Expiration:  now.Add(TTL),
	}
}

// SetLanguage updates the session language. Unknown values are rejected and do
// not mutate state. For authenticated sessions the preference is mirrored to
// the user record.
func (m *Manager) SetLanguage(ctx context.Context, s Session, lang string) (Session, error) {
	lang = strings.TrimSpace(strings.ToLower(lang))
	if !ValidLanguage(lang) {
		return s, ErrInvalidLang
	}
	s.Language = lang
	if err := m.store.UpdateSession(ctx, s); err != nil {
		return s, err
	}
	if !s.IsAnonymous && s.UserID != "" && m.mirror != nil {
		if err := m.mirror.MirrorLanguage(ctx, s.UserID, lang); err != nil {
			obs.Warn("language mirror failed", obs.RequestContext{SessionID: s.SID}, obs.Fields{
				"user_id": s.UserID, "error": err.Error(),
			})
		}
	}
	return s, nil
}

// Authenticate binds a user to the session, replacing the anonymous identity.
func (m *Manager) Authenticate(ctx context.Context, s Session, userID, role, lang string) (Session, error) {
	s.IsAnonymous = false
	s.UserID = userID
	s.Role = role
	if ValidLanguage(lang) {
		s.Language = lang
	}
	s.Expiration = m.now().UTC().Add(TTL)
	if err := m.store.UpdateSession(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// RoleFilters accepted by SetRoleFilter.
var roleFilters = map[string]bool{
	"all": true, "civil_servant": true, "nysc": true, "agent": true,
}

// ValidRoleFilter reports whether the value is an accepted catalog filter.
func ValidRoleFilter(v string) bool {
	return roleFilters[v]
}

// SetRoleFilter stores the learning-hub catalog filter on the session.
func (m *Manager) SetRoleFilter(ctx context.Context, s Session, filter string) (Session, error) {
	if !ValidRoleFilter(filter) {
		return s, ErrInvalidFilter
	}
	s.RoleFilter = filter
	if err := m.store.UpdateSession(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// SetRealityCheckScore stores the self-assessment score on the session.
func (m *Manager) SetRealityCheckScore(ctx context.Context, s Session, score int) (Session, error) {
	s.RealityCheckScore = &score
	if err := m.store.UpdateSession(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// Logout clears the server-side record. The caller starts over as anonymous;
// language preference is preserved on the replacement session.
func (m *Manager) Logout(ctx context.Context, s Session) Session {
	if err := m.store.DeleteSession(ctx, s.SID); err != nil && !errors.Is(err, ErrNotFound) {
		obs.Warn("session delete failed", obs.RequestContext{SessionID: s.SID}, obs.Fields{
			"error": err.Error(),
		})
	}
	fresh := m.newGuest()
	fresh.Language = s.Language
	if err := m.store.InsertSession(ctx, fresh); err != nil {
		fresh.SID = "error-" + uuid.NewString()[:8]
	}
	return fresh
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
