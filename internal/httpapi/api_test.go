package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ficore.org/internal/audit"
	"ficore.org/internal/auth"
	"ficore.org/internal/credits"
	"ficore.org/internal/httpapi"
	"ficore.org/internal/identity"
	"ficore.org/internal/learning"
	"ficore.org/internal/session"
	"ficore.org/internal/store/memstore"
	"ficore.org/internal/tax"
)

type nullMailer struct{}

func (nullMailer) SendEmail(context.Context, string, string, string) error { return nil }

type fakeNotifier struct {
	calls chan [4]string
}

func (f *fakeNotifier) Broadcast(_ context.Context, email, phone, subject, message string) {
	f.calls <- [4]string{email, phone, subject, message}
}

type env struct {
	srv      *httptest.Server
	store    *memstore.Store
	notifier *fakeNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	auditLog := audit.New(st)
	hub := learning.NewEngine(st, st, st, auditLog)
	rules := tax.NewRules(st)
	ctx := context.Background()
	if err := hub.SeedIfMissing(ctx); err != nil {
		t.Fatalf("seed hub: %v", err)
	}
	if err := rules.SeedIfMissing(ctx); err != nil {
		t.Fatalf("seed tax: %v", err)
	}

	notifier := &fakeNotifier{calls: make(chan [4]string, 4)}
	api := httpapi.New(httpapi.Deps{
		Users:    st,
		Sessions: session.NewManager(st, st),
		Notify:   notifier,
		Flows: auth.NewFlows(st, auditLog, nullMailer{}, auth.FlowsConfig{
			Secret:  "test-secret",
			BaseURL: "http://localhost:8080",
		}),
		Ledger:  credits.NewLedger(st, auditLog),
		Rules:   rules,
		Hub:     hub,
		Audit:   auditLog,
		Ready:    func(context.Context) error { return nil },
		Version:  "test",
		SetupKey: "test-setup-key",
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: st, notifier: notifier}
}

type envelope struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Redirect string         `json:"redirect"`
	Errors   map[string]any `json:"errors"`
	Balance  int64          `json:"balance"`
}

// do sends a JSON request, reattaching the session cookie when one is held.
func (e *env) do(t *testing.T, method, path string, body any, cookie *http.Cookie) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var ev envelope
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp, ev
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == httpapi.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestAgentSignupJourney(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	now := time.Now().UTC()
	if err := e.store.CreateAgent(ctx, &identity.Agent{
		ID: "AG123456", Status: identity.AgentActive, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed agent: %v", err)
	}

	resp, ev := e.do(t, http.MethodPost, "/users/signup", map[string]string{
		"username": "musa01",
		"email":    "musa@example.com",
		"password": "123456",
		"role":     "agent",
		"agent_id": "AG123456",
	}, nil)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("signup: %d %+v", resp.StatusCode, ev)
	}
	if ev.Redirect != "/users/agent_setup_wizard" {
		t.Fatalf("redirect = %q", ev.Redirect)
	}
	cookie := sessionCookie(t, resp)

	// The signup bonus is immediately visible through the ledger.
	resp, ev = e.do(t, http.MethodGet, "/credits/balance", nil, cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance: %d %+v", resp.StatusCode, ev)
	}
	if ev.Balance != identity.SignupBonus {
		t.Fatalf("balance = %d, want %d", ev.Balance, identity.SignupBonus)
	}

	txs, err := e.store.Transactions(ctx, "musa01", 10)
	if err != nil || len(txs) != 1 || txs[0].Type != "signup_bonus" {
		t.Fatalf("transactions = %v, %v", txs, err)
	}

	entries, err := e.store.ListEntries(ctx, 50)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	found := false
	for _, en := range entries {
		if en.Action == "signup" && en.Actor == "musa01" {
			found = true
		}
	}
	if !found {
		t.Fatal("signup not audited")
	}

	// Wizard completion flips setup and unlocks the dashboard redirect.
	resp, ev = e.do(t, http.MethodPost, "/users/agent_setup_wizard", map[string]string{
		"area": "Kano Central",
	}, cookie)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("wizard: %d %+v", resp.StatusCode, ev)
	}
	u, _ := e.store.FindUser(ctx, "musa01")
	if !u.SetupComplete {
		t.Fatal("setup not complete")
	}
}

func TestSignupValidationErrors(t *testing.T) {
	e := newEnv(t)

	resp, ev := e.do(t, http.MethodPost, "/users/signup", map[string]string{
		"username": "ab",
		"email":    "bad",
		"password": "12345",
		"role":     "personal",
	}, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ev.Success || len(ev.Errors) == 0 {
		t.Fatalf("envelope = %+v", ev)
	}
}

func TestLoginAndLogout(t *testing.T) {
	e := newEnv(t)
	signupPersonal(t, e, "amina01", "amina@example.com")

	resp, ev := e.do(t, http.MethodPost, "/users/login", map[string]string{
		"username": "amina01", "password": "123456",
	}, nil)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("login: %d %+v", resp.StatusCode, ev)
	}
	cookie := sessionCookie(t, resp)

	resp, ev = e.do(t, http.MethodPost, "/users/login", map[string]string{
		"username": "amina01", "password": "wrong",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: %d", resp.StatusCode)
	}

	resp, ev = e.do(t, http.MethodPost, "/users/logout", nil, cookie)
	if resp.StatusCode != http.StatusOK || ev.Redirect != "/users/login" {
		t.Fatalf("logout: %d %+v", resp.StatusCode, ev)
	}

	// Logout is also reachable as a plain link.
	resp, _ = e.do(t, http.MethodPost, "/users/login", map[string]string{
		"username": "amina01", "password": "123456",
	}, nil)
	cookie = sessionCookie(t, resp)
	resp, ev = e.do(t, http.MethodGet, "/users/logout", nil, cookie)
	if resp.StatusCode != http.StatusOK || ev.Redirect != "/users/login" {
		t.Fatalf("get logout: %d %+v", resp.StatusCode, ev)
	}
}

func TestProtectedRouteDenials(t *testing.T) {
	e := newEnv(t)

	// Anonymous callers get 401 with a login redirect.
	resp, ev := e.do(t, http.MethodGet, "/credits/balance", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", resp.StatusCode)
	}
	if ev.Redirect != "/users/login" {
		t.Fatalf("redirect = %q", ev.Redirect)
	}

	// Non-admin callers get 403 on admin surfaces.
	cookie := signupPersonal(t, e, "amina01", "amina@example.com")
	resp, _ = e.do(t, http.MethodGet, "/admin/audit", nil, cookie)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("admin surface: %d", resp.StatusCode)
	}
}

func TestTaxCalculateEndpoint(t *testing.T) {
	e := newEnv(t)
	cookie := signupPersonal(t, e, "amina01", "amina@example.com")

	var out struct {
		Success bool `json:"success"`
		Summary struct {
			AnnualPAYE  float64 `json:"annual_paye"`
			MonthlyPAYE float64 `json:"monthly_paye"`
			VATTax      float64 `json:"vat_tax"`
		} `json:"summary"`
	}
	body := map[string]any{
		"year":         2026,
		"gross_income": "₦5,000,000",
		"pension":      "200000",
		"rent_relief":  "NGN 500,000",
		"sme_turnover": "40000000",
		"vat_amount":   "10000",
		"vat_category": "other",
	}
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/taxation/calculate", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success {
		t.Fatal("calculate failed")
	}
	if out.Summary.AnnualPAYE != 564000 || out.Summary.MonthlyPAYE != 47000 {
		t.Fatalf("paye = %v / %v", out.Summary.AnnualPAYE, out.Summary.MonthlyPAYE)
	}
	if out.Summary.VATTax != 750 {
		t.Fatalf("vat = %v", out.Summary.VATTax)
	}

	// The calculation cost one credit.
	_, ev := e.do(t, http.MethodGet, "/credits/balance", nil, cookie)
	if ev.Balance != identity.SignupBonus-1 {
		t.Fatalf("balance = %d, want %d", ev.Balance, identity.SignupBonus-1)
	}
}

func TestTaxCalculateInsufficientCredits(t *testing.T) {
	e := newEnv(t)
	cookie := signupPersonal(t, e, "amina01", "amina@example.com")

	body := map[string]any{"year": 2026, "gross_income": "1000000"}
	for i := int64(0); i < identity.SignupBonus; i++ {
		resp, ev := e.do(t, http.MethodPost, "/taxation/calculate", body, cookie)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("calculation %d: %d %+v", i, resp.StatusCode, ev)
		}
	}
	resp, ev := e.do(t, http.MethodPost, "/taxation/calculate", body, cookie)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ev.Redirect != "/credits/request" {
		t.Fatalf("redirect = %q", ev.Redirect)
	}
}

func TestLearningHubGuestFlow(t *testing.T) {
	e := newEnv(t)

	// The hub serves guests: the first request mints an anonymous session.
	resp, ev := e.do(t, http.MethodGet, "/learning_hub/main", nil, nil)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("hub main: %d %+v", resp.StatusCode, ev)
	}
	cookie := sessionCookie(t, resp)

	resp, ev = e.do(t, http.MethodPost, "/learning_hub/api/lesson/action", map[string]string{
		"action":    "mark_complete",
		"course_id": "tax_reforms_2025",
		"lesson_id": "module-1-lesson-1",
	}, cookie)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("lesson action: %d %+v", resp.StatusCode, ev)
	}

	// Guest progress keys on the session id.
	p, err := e.store.FindProgress(context.Background(), cookie.Value, "tax_reforms_2025")
	if err != nil {
		t.Fatalf("FindProgress: %v", err)
	}
	if p.CoinsEarned != 3 {
		t.Fatalf("coins = %d", p.CoinsEarned)
	}
}

func TestChangeLanguage(t *testing.T) {
	e := newEnv(t)
	cookie := signupPersonal(t, e, "amina01", "amina@example.com")

	resp, ev := e.do(t, http.MethodPost, "/change-language", map[string]string{
		"language": "ha",
	}, cookie)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("change language: %d %+v", resp.StatusCode, ev)
	}
	u, _ := e.store.FindUser(context.Background(), "amina01")
	if u.Language != "ha" {
		t.Fatalf("language not mirrored: %q", u.Language)
	}

	resp, _ = e.do(t, http.MethodPost, "/change-language", map[string]string{
		"language": "fr",
	}, cookie)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unsupported language: %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newEnv(t)

	resp, err := e.srv.Client().Get(e.srv.URL + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	// Probes never mint sessions.
	for _, c := range resp.Cookies() {
		if c.Name == httpapi.SessionCookie {
			t.Fatal("probe set a session cookie")
		}
	}
}

func TestTaxNotifyEndpoint(t *testing.T) {
	e := newEnv(t)
	cookie := adminCookie(t, e)
	signupPersonal(t, e, "amina01", "amina@example.com")

	resp, ev := e.do(t, http.MethodPost, "/taxation/admin/notify", map[string]string{
		"user_id": "amina01",
		"phone":   "08012345678",
		"message": "VAT filing due on 30 September.",
	}, cookie)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("notify: %d %+v", resp.StatusCode, ev)
	}

	select {
	case call := <-e.notifier.calls:
		if call[0] != "amina@example.com" || call[1] != "08012345678" {
			t.Fatalf("broadcast = %v", call)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast never dispatched")
	}

	// Unknown target is a 404.
	resp, _ = e.do(t, http.MethodPost, "/taxation/admin/notify", map[string]string{
		"user_id": "ghost", "message": "x",
	}, cookie)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown user: %d", resp.StatusCode)
	}
}

func adminCookie(t *testing.T, e *env) *http.Cookie {
	t.Helper()
	hash, err := auth.HashPassword("admin-pass-1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := e.store.CreateUser(context.Background(), &identity.User{
		ID:            "root",
		Email:         "root@ficore.example",
		PasswordHash:  hash,
		Role:          identity.RoleAdmin,
		IsAdmin:       true,
		SetupComplete: true,
		Language:      "en",
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create admin: %v", err)
	}
	resp, ev := e.do(t, http.MethodPost, "/users/login", map[string]string{
		"username": "root", "password": "admin-pass-1",
	}, nil)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("admin login: %d %+v", resp.StatusCode, ev)
	}
	return sessionCookie(t, resp)
}

func TestSetupEndpoint(t *testing.T) {
	e := newEnv(t)

	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/admin/setup", nil)
	req.Header.Set("X-Setup-Key", "wrong")
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("wrong key: %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodPost, e.srv.URL+"/admin/setup", nil)
	req.Header.Set("X-Setup-Key", "test-setup-key")
	resp, err = e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func signupPersonal(t *testing.T, e *env, username, email string) *http.Cookie {
	t.Helper()
	resp, ev := e.do(t, http.MethodPost, "/users/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": "123456",
		"role":     "personal",
	}, nil)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("signup %s: %d %+v", username, resp.StatusCode, ev)
	}
	return sessionCookie(t, resp)
}

func TestTaxReminderLifecycle(t *testing.T) {
	e := newEnv(t)

	// Guests only get a login prompt on create.
	resp, ev := e.do(t, http.MethodPost, "/taxation/reminders", map[string]string{
		"message": "File VAT return", "reminder_date": "2026-03-21T09:00:00Z",
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized || ev.Redirect != "/users/login" {
		t.Fatalf("anonymous create: %d %+v", resp.StatusCode, ev)
	}

	cookie := signupPersonal(t, e, "amina01", "amina@example.com")

	resp, _ = e.do(t, http.MethodPost, "/taxation/reminders", map[string]string{
		"message": "   ",
	}, cookie)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank reminder: %d", resp.StatusCode)
	}

	var created struct {
		Success  bool `json:"success"`
		Reminder struct {
			ID      string `json:"id"`
			UserID  string `json:"user_id"`
			Message string `json:"message"`
		} `json:"reminder"`
	}
	raw, _ := json.Marshal(map[string]string{
		"message": "File VAT return", "reminder_date": "2026-03-21T09:00:00Z",
	})
	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/taxation/reminders", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Reminder.ID == "" || created.Reminder.UserID != "amina01" {
		t.Fatalf("reminder = %+v", created.Reminder)
	}

	var listed struct {
		Reminders []struct {
			Title string `json:"title"`
		} `json:"reminders"`
		Personal []struct {
			ID      string `json:"id"`
			Message string `json:"message"`
		} `json:"personal"`
	}
	req, _ = http.NewRequest(http.MethodGet, e.srv.URL+"/taxation/reminders", nil)
	req.AddCookie(cookie)
	resp, err = e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed.Personal) != 1 || listed.Personal[0].Message != "File VAT return" {
		t.Fatalf("personal = %+v", listed.Personal)
	}
	if len(listed.Reminders) == 0 {
		t.Fatal("global deadlines missing")
	}

	// Guests still see the deadlines but no personal block.
	var guest struct {
		Personal []any `json:"personal"`
	}
	resp, err = e.srv.Client().Get(e.srv.URL + "/taxation/reminders")
	if err != nil {
		t.Fatalf("guest list: %v", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&guest); err != nil {
		t.Fatalf("decode guest list: %v", err)
	}
	if guest.Personal != nil {
		t.Fatalf("guest personal = %+v", guest.Personal)
	}

	resp, _ = e.do(t, http.MethodDelete, "/taxation/reminders/"+created.Reminder.ID, nil, cookie)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodDelete, "/taxation/reminders/"+created.Reminder.ID, nil, cookie)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: %d", resp.StatusCode)
	}
}

func TestRealityCheckScoreStaysOnSession(t *testing.T) {
	e := newEnv(t)

	resp, ev := e.do(t, http.MethodGet, "/learning_hub/main", nil, nil)
	if resp.StatusCode != http.StatusOK || !ev.Success {
		t.Fatalf("hub main: %d %+v", resp.StatusCode, ev)
	}
	cookie := sessionCookie(t, resp)

	submit := func() (int64, string) {
		t.Helper()
		raw, _ := json.Marshal(map[string]any{
			"quiz_id": "reality_check_quiz",
			"answers": []string{"Yes", "Yes", "No", "Yes", "No"},
		})
		req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/learning_hub/api/quiz/action", bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		resp, err := e.srv.Client().Do(req)
		if err != nil {
			t.Fatalf("quiz action: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("quiz action status = %d", resp.StatusCode)
		}
		var out struct {
			Result struct {
				Passed       bool   `json:"passed"`
				CoinsAwarded int64  `json:"coins_awarded"`
				Badge        string `json:"badge"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !out.Result.Passed {
			t.Fatal("reality check failed a participant")
		}
		return out.Result.CoinsAwarded, out.Result.Badge
	}

	coins, badge := submit()
	if coins != 3 || badge != learning.BadgeRealityCheck {
		t.Fatalf("first take = %d coins, badge %q", coins, badge)
	}

	// The score lands on the session, not on any progress record.
	s, err := e.store.FindSession(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("FindSession: %v", err)
	}
	if s.RealityCheckScore == nil || *s.RealityCheckScore != 3 {
		t.Fatalf("session score = %v", s.RealityCheckScore)
	}
	if _, err := e.store.FindProgress(context.Background(), cookie.Value, "reality_check_quiz"); err == nil {
		t.Fatal("reality check wrote a progress record")
	}

	// Retakes record a score without repeating the rewards.
	coins, badge = submit()
	if coins != 0 || badge != "" {
		t.Fatalf("retake = %d coins, badge %q", coins, badge)
	}
}
