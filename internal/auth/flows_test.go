package auth_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"ficore.org/internal/audit"
	"ficore.org/internal/auth"
	"ficore.org/internal/identity"
	"ficore.org/internal/store/memstore"
)

type fakeMailer struct {
	sent []string // bodies
	fail bool
}

func (f *fakeMailer) SendEmail(_ context.Context, to, subject, body string) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, body)
	return nil
}

func newFlows(t *testing.T, mailer *fakeMailer, enable2FA, bypass bool) (*auth.Flows, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	f := auth.NewFlows(st, audit.New(st), mailer, auth.FlowsConfig{
		Secret:         "test-secret",
		BaseURL:        "http://localhost:8080",
		Enable2FA:      enable2FA,
		OTPEmailBypass: bypass,
	})
	return f, st
}

func seedAgent(t *testing.T, st *memstore.Store, id, status string) {
	t.Helper()
	now := time.Now().UTC()
	if err := st.CreateAgent(context.Background(), &identity.Agent{
		ID: id, Status: status, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed agent: %v", err)
	}
}

func TestSignupPersonal(t *testing.T) {
	f, st := newFlows(t, &fakeMailer{}, false, false)

	u, fields, err := f.Signup(context.Background(), auth.SignupForm{
		Username: "Amina_1",
		Email:    "Amina@Example.com",
		Password: "123456",
		Role:     "personal",
	})
	if err != nil {
		t.Fatalf("Signup: %v (%v)", err, fields)
	}
	if u.ID != "amina_1" {
		t.Fatalf("id = %q, want lower-cased", u.ID)
	}
	if u.Email != "amina@example.com" {
		t.Fatalf("email = %q", u.Email)
	}
	if u.CoinBalance != identity.SignupBonus {
		t.Fatalf("balance = %d, want %d", u.CoinBalance, identity.SignupBonus)
	}

	// The signup bonus transaction must exist alongside the user.
	txs, err := st.Transactions(context.Background(), "amina_1", 10)
	if err != nil || len(txs) != 1 {
		t.Fatalf("transactions = %v, %v", txs, err)
	}
	if txs[0].Type != "signup_bonus" || txs[0].Amount != identity.SignupBonus {
		t.Fatalf("bonus tx = %+v", txs[0])
	}
}

func TestSignupValidation(t *testing.T) {
	f, _ := newFlows(t, &fakeMailer{}, false, false)

	_, fields, err := f.Signup(context.Background(), auth.SignupForm{
		Username: "ab", // too short
		Email:    "not-an-email",
		Password: "12345", // too short
		Role:     "personal",
	})
	if !errors.Is(err, auth.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	for _, field := range []string{"username", "email", "password"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("missing field error for %q: %v", field, fields)
		}
	}
}

func TestSignupDuplicate(t *testing.T) {
	f, _ := newFlows(t, &fakeMailer{}, false, false)
	form := auth.SignupForm{
		Username: "musa01", Email: "musa@example.com",
		Password: "123456", Role: "personal",
	}
	if _, _, err := f.Signup(context.Background(), form); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, fields, err := f.Signup(context.Background(), form)
	if !errors.Is(err, auth.ErrValidation) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, ok := fields["username"]; !ok {
		t.Fatalf("fields = %v", fields)
	}
}

func TestSignupAgent(t *testing.T) {
	f, st := newFlows(t, &fakeMailer{}, false, false)
	seedAgent(t, st, "AG123456", identity.AgentActive)
	seedAgent(t, st, "XX999999", identity.AgentInactive)

	form := auth.SignupForm{
		Username: "musa01", Email: "musa@example.com",
		Password: "123456", Role: "agent", AgentID: "AG123456",
	}
	u, fields, err := f.Signup(context.Background(), form)
	if err != nil {
		t.Fatalf("Signup: %v (%v)", err, fields)
	}
	if u.AgentDetails == nil || u.AgentDetails.AgentID != "AG123456" {
		t.Fatalf("agent details = %+v", u.AgentDetails)
	}

	// The bound agent id is now unavailable.
	form.Username, form.Email = "tunde02", "tunde@example.com"
	if _, fields, err = f.Signup(context.Background(), form); !errors.Is(err, auth.ErrValidation) {
		t.Fatalf("rebind err = %v", err)
	} else if _, ok := fields["agent_id"]; !ok {
		t.Fatalf("fields = %v", fields)
	}

	// Inactive agents are rejected.
	form.AgentID = "XX999999"
	if _, fields, _ := f.Signup(context.Background(), form); fields["agent_id"] == "" {
		t.Fatalf("inactive agent accepted: %v", fields)
	}
}

func TestLoginWithout2FA(t *testing.T) {
	f, _ := newFlows(t, &fakeMailer{}, false, false)
	mustSignup(t, f, "musa01", "musa@example.com", "123456")

	res, err := f.Login(context.Background(), "MUSA01", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.OTPPending {
		t.Fatal("otp pending with 2FA disabled")
	}
	if res.User.ID != "musa01" {
		t.Fatalf("user = %q", res.User.ID)
	}

	if _, err := f.Login(context.Background(), "musa01", "wrong-pass"); !errors.Is(err, auth.ErrAuthFailure) {
		t.Fatalf("bad password err = %v", err)
	}
	if _, err := f.Login(context.Background(), "nobody", "123456"); !errors.Is(err, auth.ErrAuthFailure) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestLoginWith2FA(t *testing.T) {
	mailer := &fakeMailer{}
	f, st := newFlows(t, mailer, true, false)
	mustSignup(t, f, "musa01", "musa@example.com", "123456")

	res, err := f.Login(context.Background(), "musa01", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !res.OTPPending {
		t.Fatal("otp not pending")
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("emails sent = %d", len(mailer.sent))
	}
	otp := extractOTP(t, mailer.sent[0])

	if _, err := f.Verify2FA(context.Background(), "musa01", "000000"); !errors.Is(err, auth.ErrAuthFailure) {
		t.Fatalf("wrong otp err = %v", err)
	}
	u, err := f.Verify2FA(context.Background(), "musa01", otp)
	if err != nil {
		t.Fatalf("Verify2FA: %v", err)
	}
	if u.ID != "musa01" {
		t.Fatalf("user = %q", u.ID)
	}

	// The OTP is single-use.
	stored, _ := st.FindUser(context.Background(), "musa01")
	if stored.OTP != "" || stored.OTPExpiry != nil {
		t.Fatal("otp not cleared after verification")
	}
}

func TestLoginOTPBypassOnEmailFailure(t *testing.T) {
	mailer := &fakeMailer{fail: true}
	f, _ := newFlows(t, mailer, true, true)
	mustSignup(t, f, "musa01", "musa@example.com", "123456")

	res, err := f.Login(context.Background(), "musa01", "123456")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.OTPPending {
		t.Fatal("otp still pending despite bypass")
	}
	if res.User == nil {
		t.Fatal("no user on bypassed login")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	mailer := &fakeMailer{}
	f, st := newFlows(t, mailer, false, false)
	mustSignup(t, f, "musa01", "musa@example.com", "123456")

	// Unknown email reports success and sends nothing.
	if err := f.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("email sent for unknown address")
	}

	if err := f.ForgotPassword(context.Background(), "musa@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("emails sent = %d", len(mailer.sent))
	}
	u, _ := st.FindUser(context.Background(), "musa01")
	token := u.ResetToken
	if token == "" {
		t.Fatal("reset token not persisted")
	}

	if err := f.ResetPassword(context.Background(), token, "12345"); !errors.Is(err, auth.ErrValidation) {
		t.Fatalf("short password err = %v", err)
	}
	if err := f.ResetPassword(context.Background(), token, "newpass99"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}

	// Old password dead, new one works, token single-use.
	if _, err := f.Login(context.Background(), "musa01", "123456"); err == nil {
		t.Fatal("old password still valid")
	}
	if _, err := f.Login(context.Background(), "musa01", "newpass99"); err != nil {
		t.Fatalf("new password rejected: %v", err)
	}
	if err := f.ResetPassword(context.Background(), token, "another1"); !errors.Is(err, auth.ErrAuthFailure) {
		t.Fatalf("token reuse err = %v", err)
	}
}

func TestSetupWizards(t *testing.T) {
	f, st := newFlows(t, &fakeMailer{}, false, false)
	seedAgent(t, st, "AG123456", identity.AgentActive)

	_, _, err := f.Signup(context.Background(), auth.SignupForm{
		Username: "musa01", Email: "musa@example.com",
		Password: "123456", Role: "agent", AgentID: "AG123456",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if err := f.CompleteAgentSetup(context.Background(), "musa01", "Kano Central"); err != nil {
		t.Fatalf("CompleteAgentSetup: %v", err)
	}
	u, _ := st.FindUser(context.Background(), "musa01")
	if !u.SetupComplete {
		t.Fatal("setup_complete not flipped")
	}
	// Binding survives the wizard.
	if u.AgentDetails == nil || u.AgentDetails.AgentID != "AG123456" {
		t.Fatalf("agent binding lost: %+v", u.AgentDetails)
	}
	if u.AgentDetails.Area != "Kano Central" {
		t.Fatalf("area = %q", u.AgentDetails.Area)
	}
}

func mustSignup(t *testing.T, f *auth.Flows, username, email, password string) {
	t.Helper()
	_, fields, err := f.Signup(context.Background(), auth.SignupForm{
		Username: username, Email: email, Password: password, Role: "personal",
	})
	if err != nil {
		t.Fatalf("signup %s: %v (%v)", username, err, fields)
	}
}

var otpPattern = regexp.MustCompile(`\d{6}`)

func extractOTP(t *testing.T, body string) string {
	t.Helper()
	otp := otpPattern.FindString(body)
	if otp == "" {
		t.Fatalf("no otp in %q", body)
	}
	return otp
}
