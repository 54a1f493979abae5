package httpapi

import (
	"errors"
	"net/http"

	"ficore.org/internal/auth"
	"ficore.org/internal/identity"
)

func (a *API) handleSignup(w http.ResponseWriter, r *http.Request) {
	var form auth.SignupForm
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, fields, err := a.flows.Signup(r.Context(), form)
	if err != nil {
		if errors.Is(err, auth.ErrValidation) {
			writeFieldErrors(w, fields)
			return
		}
		writeError(w, http.StatusInternalServerError, "signup failed")
		return
	}

	s, err := a.sessions.Authenticate(r.Context(), sessionFrom(r), u.ID, u.Role, u.Language)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	a.setSessionCookie(w, s)
	writeOK(w, "Account created.", map[string]any{
		"user_id":  u.ID,
		"role":     u.Role,
		"redirect": auth.PostLoginTarget(u),
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.flows.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAuthFailure) {
			writeError(w, http.StatusUnauthorized, "Invalid username or password.")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if res.OTPPending {
		writeOK(w, "A one-time code has been sent to your email.", map[string]any{
			"otp_pending": true,
			"username":    res.User.ID,
		})
		return
	}
	a.finishLogin(w, r, res.User)
}

type verify2FARequest struct {
	Username string `json:"username"`
	OTP      string `json:"otp"`
}

func (a *API) handleVerify2FA(w http.ResponseWriter, r *http.Request) {
	var req verify2FARequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.flows.Verify2FA(r.Context(), req.Username, req.OTP)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "That code is invalid or has expired.")
		return
	}
	a.finishLogin(w, r, u)
}

func (a *API) finishLogin(w http.ResponseWriter, r *http.Request, u *identity.User) {
	s, err := a.sessions.Authenticate(r.Context(), sessionFrom(r), u.ID, u.Role, u.Language)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session error")
		return
	}
	a.setSessionCookie(w, s)
	writeOK(w, "Logged in.", map[string]any{
		"user_id":  u.ID,
		"role":     u.Role,
		"redirect": auth.PostLoginTarget(u),
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.flows.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, http.StatusInternalServerError, "request failed")
		return
	}
	// Same response for known and unknown addresses.
	writeOK(w, "If that email exists, a reset link has been sent.", nil)
}

// handleResetPasswordCheck validates a token from the emailed link before the
// client shows the new-password form.
func (a *API) handleResetPasswordCheck(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}
	if _, err := auth.ParseResetToken(a.flows.Secret(), token); err != nil {
		writeError(w, http.StatusUnauthorized, "This reset link is invalid or has expired.")
		return
	}
	writeOK(w, "", map[string]any{"token_valid": true})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.flows.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, auth.ErrValidation):
			writeError(w, http.StatusBadRequest, "Password must be at least 6 characters.")
		case errors.Is(err, auth.ErrAuthFailure):
			writeError(w, http.StatusUnauthorized, "This reset link is invalid or has expired.")
		default:
			writeError(w, http.StatusInternalServerError, "reset failed")
		}
		return
	}
	writeOK(w, "Your password has been changed.", nil)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	noCache(w)
	fresh := a.sessions.Logout(r.Context(), sessionFrom(r))
	a.setSessionCookie(w, fresh)
	writeOK(w, "Logged out.", map[string]any{"redirect": "/users/login"})
}

func (a *API) handleBusinessSetup(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RoleTrader)
	if !ok {
		return
	}
	var details identity.BusinessDetails
	if err := decodeJSON(r, &details); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if details.Name == "" || details.Address == "" || details.Industry == "" {
		writeError(w, http.StatusBadRequest, "name, address and industry are required")
		return
	}
	if err := a.flows.CompleteBusinessSetup(r.Context(), u.ID, details); err != nil {
		writeError(w, http.StatusInternalServerError, "setup failed")
		return
	}
	writeOK(w, "Setup complete.", map[string]any{"redirect": auth.RoleHomeTarget(u.Role)})
}

func (a *API) handlePersonalSetup(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RolePersonal)
	if !ok {
		return
	}
	var details identity.PersonalDetails
	if err := decodeJSON(r, &details); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if details.FirstName == "" || details.LastName == "" {
		writeError(w, http.StatusBadRequest, "first and last name are required")
		return
	}
	if err := a.flows.CompletePersonalSetup(r.Context(), u.ID, details); err != nil {
		writeError(w, http.StatusInternalServerError, "setup failed")
		return
	}
	writeOK(w, "Setup complete.", map[string]any{"redirect": auth.RoleHomeTarget(u.Role)})
}

type agentSetupRequest struct {
	Area string `json:"area"`
}

func (a *API) handleAgentSetup(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false, identity.RoleAgent)
	if !ok {
		return
	}
	var req agentSetupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.flows.CompleteAgentSetup(r.Context(), u.ID, req.Area); err != nil {
		writeError(w, http.StatusInternalServerError, "setup failed")
		return
	}
	writeOK(w, "Setup complete.", map[string]any{"redirect": auth.RoleHomeTarget(u.Role)})
}

func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := a.require(w, r, false,
		identity.RolePersonal, identity.RoleTrader, identity.RoleAgent)
	if !ok {
		return
	}
	writeOK(w, "", map[string]any{"user": u})
}
