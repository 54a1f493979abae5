// Package memstore is an in-memory implementation of every persistence
// interface in the application. It backs unit tests and local development
// without a MongoDB instance; semantics mirror the mongo store, including
// conditional decrements and unique-key conflicts.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"ficore.org/internal/audit"
	"ficore.org/internal/credits"
	"ficore.org/internal/identity"
	"ficore.org/internal/ids"
	"ficore.org/internal/learning"
	"ficore.org/internal/session"
	"ficore.org/internal/tax"
)

// Store holds all collections behind one mutex.
type Store struct {
	mu sync.Mutex

	users  map[string]*identity.User
	agents map[string]*identity.Agent

	transactions []credits.Transaction
	txRefs       map[string]bool

	sessions map[string]*session.Session

	auditLog []audit.Entry

	courses  map[string]*learning.Course
	quizzes  map[string]*learning.Quiz
	progress map[string]*learning.Progress // key: userID + "/" + courseID
	webinars map[string]*learning.WebinarRegistration

	taxSeeded bool
	rates     map[string]tax.Rate
	vatRules  map[string]tax.VATRule
	locations map[string]tax.PaymentLocation
	reminders     map[string]tax.Reminder
	userReminders map[string]tax.UserReminder
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     map[string]*identity.User{},
		agents:    map[string]*identity.Agent{},
		txRefs:    map[string]bool{},
		sessions:  map[string]*session.Session{},
		courses:   map[string]*learning.Course{},
		quizzes:   map[string]*learning.Quiz{},
		progress:  map[string]*learning.Progress{},
		webinars:  map[string]*learning.WebinarRegistration{},
		rates:     map[string]tax.Rate{},
		vatRules:  map[string]tax.VATRule{},
		locations: map[string]tax.PaymentLocation{},
		reminders:     map[string]tax.Reminder{},
		userReminders: map[string]tax.UserReminder{},
	}
}

// ---- identity.Store ----

func (s *Store) CreateUser(_ context.Context, u *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.ToLower(u.ID)
	if _, ok := s.users[id]; ok {
		return identity.ErrDuplicateUser
	}
	for _, other := range s.users {
		if strings.EqualFold(other.Email, u.Email) {
			return identity.ErrDuplicateUser
		}
	}
	cp := *u
	cp.ID = id
	s.users[id] = &cp
	if u.CoinBalance > 0 {
		tx := credits.Transaction{
			ID:     ids.New(),
			UserID: id,
			Amount: u.CoinBalance,
			Type:   credits.TypeSignupBonus,
			Ref:    ids.Ref("signup_bonus", id),
			Date:   time.Now().UTC(),
		}
		s.transactions = append(s.transactions, tx)
		s.txRefs[tx.Ref] = true
	}
	return nil
}

func (s *Store) FindUser(_ context.Context, id string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(id)]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, id string, upd identity.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(id)]
	if !ok {
		return identity.ErrNotFound
	}
	if upd.Language != nil {
		u.Language = *upd.Language
	}
	if upd.SetupComplete != nil {
		u.SetupComplete = *upd.SetupComplete
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	if upd.BusinessDetails != nil {
		u.BusinessDetails = upd.BusinessDetails
	}
	if upd.PersonalDetails != nil {
		u.PersonalDetails = upd.PersonalDetails
	}
	if upd.AgentDetails != nil {
		u.AgentDetails = upd.AgentDetails
	}
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id = strings.ToLower(id)
	if _, ok := s.users[id]; !ok {
		return identity.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *Store) SetOTP(_ context.Context, id, otp string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(id)]
	if !ok {
		return identity.ErrNotFound
	}
	u.OTP = otp
	u.OTPExpiry = &expiresAt
	return nil
}

func (s *Store) ClearOTP(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(id)]
	if !ok {
		return identity.ErrNotFound
	}
	u.OTP = ""
	u.OTPExpiry = nil
	return nil
}

func (s *Store) SetResetToken(_ context.Context, id, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(id)]
	if !ok {
		return identity.ErrNotFound
	}
	u.ResetToken = token
	u.ResetTokenExpiry = &expiresAt
	return nil
}

func (s *Store) ClearResetToken(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(id)]
	if !ok {
		return identity.ErrNotFound
	}
	u.ResetToken = ""
	u.ResetTokenExpiry = nil
	return nil
}

func (s *Store) CreateAgent(_ context.Context, a *identity.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; ok {
		return identity.ErrDuplicateUser
	}
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (s *Store) FindAgent(_ context.Context, id string) (*identity.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) ListAgents(_ context.Context) ([]identity.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]identity.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) SetAgentStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return identity.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) AgentBound(_ context.Context, agentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.AgentDetails != nil && u.AgentDetails.AgentID == agentID {
			return true, nil
		}
	}
	return false, nil
}

// MirrorLanguage satisfies session.UserLanguageMirror.
func (s *Store) MirrorLanguage(ctx context.Context, userID, lang string) error {
	return s.UpdateUser(ctx, userID, identity.UserUpdate{Language: &lang})
}

// ---- credits.BalanceStore ----

func (s *Store) Balance(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(userID)]
	if !ok {
		return 0, credits.ErrNotFound
	}
	return u.CoinBalance, nil
}

func (s *Store) TryDecrement(_ context.Context, userID string, n int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(userID)]
	if !ok {
		return false, credits.ErrNotFound
	}
	if u.CoinBalance < n {
		return false, nil
	}
	u.CoinBalance -= n
	return true, nil
}

func (s *Store) Increment(_ context.Context, userID string, n int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(userID)]
	if !ok {
		return credits.ErrNotFound
	}
	u.CoinBalance += n
	return nil
}

func (s *Store) InsertTransaction(_ context.Context, tx credits.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txRefs[tx.Ref] {
		return credits.ErrDuplicateRef
	}
	s.transactions = append(s.transactions, tx)
	s.txRefs[tx.Ref] = true
	return nil
}

func (s *Store) Transactions(_ context.Context, userID string, limit int) ([]credits.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID = strings.ToLower(userID)
	out := []credits.Transaction{}
	for i := len(s.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

func (s *Store) IsAdmin(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(userID)]
	if !ok {
		return false, nil
	}
	return u.IsAdmin || u.Role == identity.RoleAdmin, nil
}

// ---- session.Store ----

func (s *Store) InsertSession(_ context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sess
	s.sessions[sess.SID] = &cp
	return nil
}

func (s *Store) FindSession(_ context.Context, sid string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, session.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) UpdateSession(_ context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.SID]; !ok {
		return session.ErrNotFound
	}
	cp := sess
	s.sessions[sess.SID] = &cp
	return nil
}

func (s *Store) DeleteSession(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sid]; !ok {
		return session.ErrNotFound
	}
	delete(s.sessions, sid)
	return nil
}

// ---- audit.Store ----

func (s *Store) AppendEntry(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLog = append(s.auditLog, e)
	return nil
}

func (s *Store) ListEntries(_ context.Context, limit int) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []audit.Entry{}
	for i := len(s.auditLog) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.auditLog[i])
	}
	return out, nil
}

// ---- learning stores ----

func (s *Store) UpsertCourse(_ context.Context, c learning.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.courses[c.ID] = &cp
	return nil
}

func (s *Store) InsertCourseIfMissing(_ context.Context, c learning.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[c.ID]; ok {
		return nil
	}
	cp := c
	s.courses[c.ID] = &cp
	return nil
}

func (s *Store) FindCourse(_ context.Context, id string) (*learning.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return nil, learning.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCourses(_ context.Context) ([]learning.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]learning.Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertQuizIfMissing(_ context.Context, q learning.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[q.ID]; ok {
		return nil
	}
	cp := q
	s.quizzes[q.ID] = &cp
	return nil
}

func (s *Store) FindQuiz(_ context.Context, id string) (*learning.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return nil, learning.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (s *Store) FindProgress(_ context.Context, userID, courseID string) (*learning.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[userID+"/"+courseID]
	if !ok {
		return nil, learning.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) SaveProgress(_ context.Context, p *learning.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.progress[p.UserID+"/"+p.CourseID] = &cp
	return nil
}

func (s *Store) DeleteProgress(_ context.Context, userID, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + "/" + courseID
	if _, ok := s.progress[key]; !ok {
		return learning.ErrNotFound
	}
	delete(s.progress, key)
	return nil
}

func (s *Store) ListProgress(_ context.Context, userID string) ([]learning.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []learning.Progress{}
	for _, p := range s.progress {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (s *Store) UpsertRegistration(_ context.Context, r learning.WebinarRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	s.webinars[r.Email] = &cp
	return nil
}

func (s *Store) FindRegistration(_ context.Context, email string) (*learning.WebinarRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.webinars[email]
	if !ok {
		return nil, learning.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ---- tax.RuleStore ----

func (s *Store) TaxDataSeeded(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taxSeeded, nil
}

func (s *Store) MarkTaxDataSeeded(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxSeeded = true
	return nil
}

func (s *Store) ReplaceTaxData(_ context.Context, rates []tax.Rate, rules []tax.VATRule, locations []tax.PaymentLocation, reminders []tax.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates = map[string]tax.Rate{}
	s.vatRules = map[string]tax.VATRule{}
	s.locations = map[string]tax.PaymentLocation{}
	s.reminders = map[string]tax.Reminder{}
	for _, r := range rates {
		s.rates[r.ID] = r
	}
	for _, r := range rules {
		s.vatRules[r.Category] = r
	}
	for _, l := range locations {
		s.locations[l.ID] = l
	}
	for _, r := range reminders {
		s.reminders[r.ID] = r
	}
	return nil
}

func (s *Store) ListRates(_ context.Context, regime string, year int) ([]tax.Rate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []tax.Rate{}
	for _, r := range s.rates {
		if regime != "" && r.Regime != regime {
			continue
		}
		if year != 0 && r.Year != year {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListVATRules(_ context.Context) ([]tax.VATRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tax.VATRule, 0, len(s.vatRules))
	for _, r := range s.vatRules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) ListPaymentLocations(_ context.Context, state string) ([]tax.PaymentLocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []tax.PaymentLocation{}
	for _, l := range s.locations {
		if state != "" && !strings.EqualFold(l.State, state) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListReminders(_ context.Context, after time.Time) ([]tax.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []tax.Reminder{}
	for _, r := range s.reminders {
		if r.DueDate.Before(after) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (s *Store) UpsertRate(_ context.Context, r tax.Rate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[r.ID] = r
	return nil
}

func (s *Store) UpsertPaymentLocation(_ context.Context, l tax.PaymentLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[l.ID] = l
	return nil
}

func (s *Store) UpsertReminder(_ context.Context, r tax.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reminders[r.ID] = r
	return nil
}

func (s *Store) DeleteReminder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reminders[id]; !ok {
		return tax.ErrNotFound
	}
	delete(s.reminders, id)
	return nil
}

func (s *Store) InsertUserReminder(_ context.Context, r tax.UserReminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userReminders[r.ID] = r
	return nil
}

func (s *Store) ListUserReminders(_ context.Context, userID string) ([]tax.UserReminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []tax.UserReminder{}
	for _, r := range s.userReminders {
		if r.UserID != userID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReminderDate.Before(out[j].ReminderDate) })
	return out, nil
}

func (s *Store) DeleteUserReminder(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.userReminders[id]
	if !ok || r.UserID != userID {
		return tax.ErrNotFound
	}
	delete(s.userReminders, id)
	return nil
}
