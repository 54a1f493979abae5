package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	sessions   map[string]Session
	failInsert int // fail this many inserts before succeeding
	failFind   int // fail this many lookups before succeeding
	inserts    int
	finds      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]Session{}}
}

func (f *fakeStore) InsertSession(_ context.Context, s Session) error {
	f.inserts++
	if f.failInsert > 0 {
		f.failInsert--
		return errors.New("store down")
	}
	f.sessions[s.SID] = s
	return nil
}

func (f *fakeStore) FindSession(_ context.Context, sid string) (*Session, error) {
	f.finds++
	if f.failFind > 0 {
		f.failFind--
		return nil, errors.New("store down")
	}
	s, ok := f.sessions[sid]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) UpdateSession(_ context.Context, s Session) error {
	if _, ok := f.sessions[s.SID]; !ok {
		return ErrNotFound
	}
	f.sessions[s.SID] = s
	return nil
}

func (f *fakeStore) DeleteSession(_ context.Context, sid string) error {
	if _, ok := f.sessions[sid]; !ok {
		return ErrNotFound
	}
	delete(f.sessions, sid)
	return nil
}

type fakeMirror struct {
	userID string
	lang   string
}

func (f *fakeMirror) MirrorLanguage(_ context.Context, userID, lang string) error {
	f.userID = userID
	f.lang = lang
	return nil
}

func newTestManager(store Store, mirror UserLanguageMirror) *Manager {
	m := NewManager(store, mirror)
	m.sleep = func(time.Duration) {}
	return m
}

func TestEnsureCreatesGuest(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(st, nil)

	s := m.Ensure(context.Background(), "")
	if !s.IsAnonymous {
		t.Fatal("new session not anonymous")
	}
	if s.Language != LangEnglish {
		t.Fatalf("language = %q", s.Language)
	}
	if _, ok := st.sessions[s.SID]; !ok {
		t.Fatal("session not persisted")
	}
	if got := s.Expiration.Sub(s.CreatedAt); got != TTL {
		t.Fatalf("ttl = %v", got)
	}
}

func TestEnsureReturnsExisting(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(st, nil)

	first := m.Ensure(context.Background(), "")
	second := m.Ensure(context.Background(), first.SID)
	if second.SID != first.SID {
		t.Fatalf("sid changed: %q != %q", second.SID, first.SID)
	}
}

func TestEnsureRetriesThenRecovers(t *testing.T) {
	st := newFakeStore()
	st.failInsert = 2
	m := newTestManager(st, nil)

	s := m.Ensure(context.Background(), "")
	if strings.HasPrefix(s.SID, "error-") {
		t.Fatal("fell back to synthetic sid despite a later success")
	}
	if st.inserts != 3 {
		t.Fatalf("inserts = %d, want 3", st.inserts)
	}
}

func TestEnsureRetriesFlakyLookup(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(st, nil)

	s := m.Ensure(context.Background(), "")
	s, err := m.Authenticate(context.Background(), s, "amina", "personal", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	st.failFind = 1
	got := m.Ensure(context.Background(), s.SID)
	if got.SID != s.SID {
		t.Fatalf("sid = %q, want %q", got.SID, s.SID)
	}
	if got.IsAnonymous || got.UserID != "amina" {
		t.Fatal("transient lookup failure demoted the caller to a guest")
	}
}

func TestEnsureLookupExhaustedFallsBackToGuest(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(st, nil)

	s := m.Ensure(context.Background(), "")
	st.failFind = 100
	st.finds = 0

	got := m.Ensure(context.Background(), s.SID)
	if !got.IsAnonymous {
		t.Fatal("expected a guest session after lookup retries were exhausted")
	}
	if st.finds != 3 {
		t.Fatalf("finds = %d, want 3", st.finds)
	}
}

func TestEnsureUnknownSidDoesNotRetry(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(st, nil)

	s := m.Ensure(context.Background(), "no-such-sid")
	if !s.IsAnonymous {
		t.Fatal("unknown sid did not yield a guest session")
	}
	if st.finds != 1 {
		t.Fatalf("finds = %d, want 1", st.finds)
	}
}

func TestEnsureSyntheticFallback(t *testing.T) {
	st := newFakeStore()
	st.failInsert = 100
	m := newTestManager(st, nil)

	s := m.Ensure(context.Background(), "")
	if !strings.HasPrefix(s.SID, "error-") {
		t.Fatalf("sid = %q, want error- prefix", s.SID)
	}
	if len(s.SID) != len("error-")+8 {
		t.Fatalf("sid = %q, want 8 random chars", s.SID)
	}
}

func TestSetLanguage(t *testing.T) {
	st := newFakeStore()
	mirror := &fakeMirror{}
	m := newTestManager(st, mirror)

	s := m.Ensure(context.Background(), "")

	if _, err := m.SetLanguage(context.Background(), s, "fr"); !errors.Is(err, ErrInvalidLang) {
		t.Fatalf("unknown language accepted: %v", err)
	}

	s2, err := m.SetLanguage(context.Background(), s, "HA")
	if err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	if s2.Language != LangHausa {
		t.Fatalf("language = %q", s2.Language)
	}
	if mirror.userID != "" {
		t.Fatal("anonymous session mirrored language to a user")
	}

	// Authenticated sessions mirror the preference.
	s3, err := m.Authenticate(context.Background(), s2, "amina", "personal", "")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if _, err := m.SetLanguage(context.Background(), s3, "en"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	if mirror.userID != "amina" || mirror.lang != "en" {
		t.Fatalf("mirror = %q/%q", mirror.userID, mirror.lang)
	}
}

func TestLogoutPreservesLanguage(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(st, nil)

	s := m.Ensure(context.Background(), "")
	s, _ = m.SetLanguage(context.Background(), s, "ha")
	s, _ = m.Authenticate(context.Background(), s, "amina", "personal", "ha")

	fresh := m.Logout(context.Background(), s)
	if fresh.SID == s.SID {
		t.Fatal("logout kept the same sid")
	}
	if !fresh.IsAnonymous || fresh.UserID != "" {
		t.Fatal("logout session still authenticated")
	}
	if fresh.Language != "ha" {
		t.Fatalf("language = %q, want ha", fresh.Language)
	}
	if _, ok := st.sessions[s.SID]; ok {
		t.Fatal("old session record not deleted")
	}
}

func TestSetRoleFilter(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(st, nil)
	s := m.Ensure(context.Background(), "")

	if _, err := m.SetRoleFilter(context.Background(), s, "banker"); !errors.Is(err, ErrInvalidFilter) {
		t.Fatalf("unknown filter accepted: %v", err)
	}
	s2, err := m.SetRoleFilter(context.Background(), s, "nysc")
	if err != nil {
		t.Fatalf("SetRoleFilter: %v", err)
	}
	if s2.RoleFilter != "nysc" {
		t.Fatalf("filter = %q", s2.RoleFilter)
	}
}

func TestSetRealityCheckScore(t *testing.T) {
	st := newFakeStore()
	m := newTestManager(st, nil)
	s := m.Ensure(context.Background(), "")

	s2, err := m.SetRealityCheckScore(context.Background(), s, 4)
	if err != nil {
		t.Fatalf("SetRealityCheckScore: %v", err)
	}
	if s2.RealityCheckScore == nil || *s2.RealityCheckScore != 4 {
		t.Fatalf("score = %v", s2.RealityCheckScore)
	}
	stored := st.sessions[s.SID]
	if stored.RealityCheckScore == nil || *stored.RealityCheckScore != 4 {
		t.Fatal("score not persisted")
	}
}
