package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ficore.org/internal/audit"
	"ficore.org/internal/identity"
	"ficore.org/internal/obs"
)

// Flow errors. Credential failures are deliberately generic so callers cannot
// learn which field was wrong.
var (
	ErrValidation  = errors.New("auth: validation failed")
	ErrAuthFailure = errors.New("auth: authentication failed")
)

// Mailer is the slice of the notification dispatcher the auth flows need.
type Mailer interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Flows implements signup, login, OTP verification, password reset and the
// role-specific setup wizards.
type Flows struct {
	store  identity.Store
	audit  *audit.Log
	mailer Mailer

	secret    string
	baseURL   string
	enable2FA bool
	otpBypass bool

	now func() time.Time
}

// FlowsConfig carries the configuration Flows needs.
type FlowsConfig struct {
	Secret         string
	BaseURL        string
	Enable2FA      bool
	OTPEmailBypass bool
}

// NewFlows constructs the auth flow service.
func NewFlows(store identity.Store, auditLog *audit.Log, mailer Mailer, cfg FlowsConfig) *Flows {
	return &Flows{
		store:     store,
		audit:     auditLog,
		mailer:    mailer,
		secret:    cfg.Secret,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		enable2FA: cfg.Enable2FA,
		otpBypass: cfg.OTPEmailBypass,
		now:       time.Now,
	}
}

// Secret exposes the signing secret for token pre-checks in the HTTP layer.
func (f *Flows) Secret() string {
	return f.secret
}

// Signup validates the form, creates the user (with its signup bonus), binds
// the agent id for agent signups and returns the created user.
func (f *Flows) Signup(ctx context.Context, form SignupForm) (*identity.User, map[string]string, error) {
	form.Username = strings.ToLower(strings.TrimSpace(form.Username))
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.AgentID = strings.TrimSpace(form.AgentID)
	if form.Language == "" {
		form.Language = "en"
	}

	if err := ValidateStruct(form); err != nil {
		return nil, FormatValidationError(err), ErrValidation
	}
	fields := map[string]string{}
	if !ValidUsername(form.Username) {
		fields["username"] = "username must be 3-50 letters, digits or underscores"
	}
	if !ValidEmail(form.Email) {
		fields["email"] = "invalid email format"
	}
	if form.Role == identity.RoleAgent {
		if form.AgentID == "" {
			fields["agent_id"] = "agent id is required for the agent role"
		} else if !ValidAgentID(form.AgentID) {
			fields["agent_id"] = "agent id must be 8 upper-case alphanumeric characters"
		} else if err := f.checkAgentAvailable(ctx, form.AgentID); err != nil {
			fields["agent_id"] = "invalid or already used agent id"
		}
	}
	if len(fields) > 0 {
		return nil, fields, ErrValidation
	}

	hash, err := HashPassword(form.Password)
	if err != nil {
		return nil, nil, err
	}
	u := &identity.User{
		ID:           form.Username,
		Email:        form.Email,
		PasswordHash: hash,
		Role:         form.Role,
		CoinBalance:  identity.SignupBonus,
		Language:     form.Language,
		CreatedAt:    f.now().UTC(),
	}
	if form.Role == identity.RoleAgent {
		u.AgentDetails = &identity.AgentDetails{AgentID: form.AgentID}
	}
	if err := f.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, identity.ErrDuplicateUser) {
			return nil, map[string]string{"username": "username or email already registered"}, ErrValidation
		}
		return nil, nil, err
	}

	details := map[string]any{"user_id": u.ID, "role": u.Role}
	if u.AgentDetails != nil {
		details["agent_id"] = u.AgentDetails.AgentID
	}
	f.audit.Append(ctx, u.ID, "signup", details)
	return u, nil, nil
}

func (f *Flows) checkAgentAvailable(ctx context.Context, agentID string) error {
	agent, err := f.store.FindAgent(ctx, agentID)
	if err != nil {
		return identity.ErrAgentInvalid
	}
	if agent.Status != identity.AgentActive {
		return identity.ErrAgentInvalid
	}
	bound, err := f.store.AgentBound(ctx, agentID)
	if err != nil || bound {
		return identity.ErrAgentInvalid
	}
	return nil
}

// LoginResult tells the HTTP layer whether the caller is fully authenticated
// or must still pass OTP verification.
type LoginResult struct {
	User       *identity.User
	OTPPending bool
}

// Login checks credentials by case-insensitive username lookup and bcrypt
// compare. When 2FA is enabled a six-digit OTP is generated, persisted with a
// five-minute expiry and emailed; if the email cannot be sent the OTP step MAY
// be bypassed (test-mode fallback) — an explicit, audited decision.
func (f *Flows) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if !ValidUsername(username) {
		return LoginResult{}, ErrAuthFailure
	}
	u, err := f.store.FindUser(ctx, username)
	if err != nil {
		return LoginResult{}, ErrAuthFailure
	}
	if VerifyPassword(u.PasswordHash, password) != nil {
		return LoginResult{}, ErrAuthFailure
	}

	if !f.enable2FA {
		f.audit.Append(ctx, u.ID, "login", map[string]any{"user_id": u.ID})
		return LoginResult{User: u}, nil
	}

	otp, err := GenerateOTP()
	if err != nil {
		return LoginResult{}, err
	}
	expiry := f.now().UTC().Add(OTPTTL)
	if err := f.store.SetOTP(ctx, u.ID, otp, expiry); err != nil {
		return LoginResult{}, err
	}

	body := fmt.Sprintf("Your OTP is %s. It expires in 5 minutes.", otp)
	if err := f.mailer.SendEmail(ctx, u.Email, "Your One-Time Password", body); err != nil {
		obs.Warn("otp email failed", obs.RequestContext{UserRole: u.Role}, obs.Fields{
			"user_id": u.ID, "error": err.Error(),
		})
		if f.otpBypass {
			_ = f.store.ClearOTP(ctx, u.ID)
			f.audit.Append(ctx, u.ID, "login_otp_bypassed", map[string]any{
				"user_id": u.ID, "reason": "email delivery failed",
			})
			return LoginResult{User: u}, nil
		}
	}
	f.audit.Append(ctx, u.ID, "login_otp_sent", map[string]any{"user_id": u.ID})
	return LoginResult{User: u, OTPPending: true}, nil
}

// Verify2FA completes an OTP-gated login. The OTP fields are cleared on
// success.
func (f *Flows) Verify2FA(ctx context.Context, username, otp string) (*identity.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	u, err := f.store.FindUser(ctx, username)
	if err != nil {
		return nil, ErrAuthFailure
	}
	if !OTPValid(u.OTP, strings.TrimSpace(otp), u.OTPExpiry, f.now().UTC()) {
		return nil, ErrAuthFailure
	}
	if err := f.store.ClearOTP(ctx, u.ID); err != nil {
		return nil, err
	}
	f.audit.Append(ctx, u.ID, "login", map[string]any{"user_id": u.ID, "otp": true})
	return u, nil
}

// ForgotPassword issues a signed reset token and emails the reset link. To
// avoid account enumeration an unknown email is reported as success.
func (f *Flows) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if !ValidEmail(email) {
		return nil
	}
	u, err := f.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil
	}
	token, err := GenerateResetToken(f.secret, email, f.now())
	if err != nil {
		return err
	}
	expiry := f.now().UTC().Add(ResetTokenTTL)
	if err := f.store.SetResetToken(ctx, u.ID, token, expiry); err != nil {
		return err
	}
	resetURL := fmt.Sprintf("%s/users/reset_password?token=%s", f.baseURL, token)
	body := fmt.Sprintf("Click the link to reset your password: %s\nThe link expires in 15 minutes.", resetURL)
	if err := f.mailer.SendEmail(ctx, email, "Reset your password", body); err != nil {
		obs.Warn("reset email failed", obs.RequestContext{}, obs.Fields{
			"user_id": u.ID, "error": err.Error(),
		})
	}
	f.audit.Append(ctx, u.ID, "forgot_password", map[string]any{"user_id": u.ID})
	return nil
}

// ResetPassword verifies the token, checks the password policy and replaces
// the stored hash. The reset-token fields are cleared afterwards.
func (f *Flows) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := ParseResetToken(f.secret, token)
	if err != nil {
		return ErrAuthFailure
	}
	if len(newPassword) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	u, err := f.store.FindUserByEmail(ctx, email)
	if err != nil {
		return ErrAuthFailure
	}
	// Both the token signature and the persisted expiry must agree.
	if u.ResetToken != token || u.ResetTokenExpiry == nil || f.now().UTC().After(*u.ResetTokenExpiry) {
		return ErrAuthFailure
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := f.store.UpdateUser(ctx, u.ID, identity.UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}
	if err := f.store.ClearResetToken(ctx, u.ID); err != nil {
		return err
	}
	f.audit.Append(ctx, u.ID, "reset_password", map[string]any{"user_id": u.ID})
	return nil
}

// CompleteBusinessSetup finishes the trader setup wizard.
func (f *Flows) CompleteBusinessSetup(ctx context.Context, userID string, details identity.BusinessDetails) error {
	return f.completeSetup(ctx, userID, identity.UserUpdate{BusinessDetails: &details}, "complete_setup_wizard")
}

// CompletePersonalSetup finishes the personal setup wizard.
func (f *Flows) CompletePersonalSetup(ctx context.Context, userID string, details identity.PersonalDetails) error {
	return f.completeSetup(ctx, userID, identity.UserUpdate{PersonalDetails: &details}, "complete_personal_setup_wizard")
}

// CompleteAgentSetup finishes the agent setup wizard. The agent id itself was
// bound at signup and is not changed here.
func (f *Flows) CompleteAgentSetup(ctx context.Context, userID string, area string) error {
	u, err := f.store.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	details := identity.AgentDetails{Area: area}
	if u.AgentDetails != nil {
		details.AgentID = u.AgentDetails.AgentID
	}
	return f.completeSetup(ctx, userID, identity.UserUpdate{AgentDetails: &details}, "complete_agent_setup_wizard")
}

func (f *Flows) completeSetup(ctx context.Context, userID string, upd identity.UserUpdate, action string) error {
	done := true
	upd.SetupComplete = &done
	if err := f.store.UpdateUser(ctx, userID, upd); err != nil {
		return err
	}
	f.audit.Append(ctx, userID, action, map[string]any{"user_id": userID})
	return nil
}
