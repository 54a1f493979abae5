// Package httpapi is the HTTP layer: route assembly, middleware and the
// JSON handlers for every user-facing surface.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"ficore.org/internal/audit"
	"ficore.org/internal/auth"
	"ficore.org/internal/credits"
	"ficore.org/internal/identity"
	"ficore.org/internal/learning"
	"ficore.org/internal/obs"
	"ficore.org/internal/session"
	"ficore.org/internal/tax"
)

// ReadyProbe verifies downstream readiness (database ping).
type ReadyProbe func(ctx context.Context) error

// Notifier fans a message out over every configured outbound channel.
type Notifier interface {
	Broadcast(ctx context.Context, email, phone, subject, message string)
}

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Users    identity.Store
	Sessions *session.Manager
	Flows    *auth.Flows
	Ledger   *credits.Ledger
	Rules    *tax.Rules
	Hub      *learning.Engine
	Audit    *audit.Log
	Notify   Notifier

	Ready         ReadyProbe
	Version       string
	SecureCookies bool
	SetupKey      string
}

// API is the HTTP layer.
type API struct {
	router *mux.Router

	users    identity.Store
	sessions *session.Manager
	flows    *auth.Flows
	ledger   *credits.Ledger
	rules    *tax.Rules
	hub      *learning.Engine
	audit    *audit.Log
	notify   Notifier

	ready         ReadyProbe
	version       string
	secureCookies bool
	setupKey      string

	authLimit     *limiter
	languageLimit *limiter
	generalLimit  *limiter
}

// New assembles the router.
func New(d Deps) *API {
	a := &API{
		router:        mux.NewRouter(),
		users:         d.Users,
		sessions:      d.Sessions,
		flows:         d.Flows,
		ledger:        d.Ledger,
		rules:         d.Rules,
		hub:           d.Hub,
		audit:         d.Audit,
		notify:        d.Notify,
		ready:         d.Ready,
		version:       d.Version,
		secureCookies: d.SecureCookies,
		setupKey:      d.SetupKey,

		// 50/hour on credential endpoints, 10/min on language switching,
		// 100/min elsewhere.
		authLimit:     newLimiter(rate.Every(time.Hour/50), 10),
		languageLimit: newLimiter(rate.Every(time.Minute/10), 5),
		generalLimit:  newLimiter(rate.Every(time.Minute/100), 25),
	}
	a.routes()
	return a
}

func (a *API) routes() {
	r := a.router

	// Probes and metrics; the session middleware skips these paths.
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReady).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	// users
	u := r.PathPrefix("/users").Subrouter()
	u.HandleFunc("/signup", rateLimit(a.authLimit, a.handleSignup)).Methods(http.MethodPost)
	u.HandleFunc("/login", rateLimit(a.authLimit, a.handleLogin)).Methods(http.MethodPost)
	u.HandleFunc("/verify_2fa", rateLimit(a.authLimit, a.handleVerify2FA)).Methods(http.MethodPost)
	u.HandleFunc("/forgot_password", rateLimit(a.authLimit, a.handleForgotPassword)).Methods(http.MethodPost)
	u.HandleFunc("/reset_password", a.handleResetPasswordCheck).Methods(http.MethodGet)
	u.HandleFunc("/reset_password", rateLimit(a.authLimit, a.handleResetPassword)).Methods(http.MethodPost)
	u.HandleFunc("/logout", a.handleLogout).Methods(http.MethodGet, http.MethodPost)
	u.HandleFunc("/setup_wizard", a.handleBusinessSetup).Methods(http.MethodPost)
	u.HandleFunc("/personal_setup_wizard", a.handlePersonalSetup).Methods(http.MethodPost)
	u.HandleFunc("/agent_setup_wizard", a.handleAgentSetup).Methods(http.MethodPost)
	u.HandleFunc("/profile", a.handleProfile).Methods(http.MethodGet)

	// taxation
	t := r.PathPrefix("/taxation").Subrouter()
	t.HandleFunc("/calculate", rateLimit(a.generalLimit, a.handleTaxCalculate)).Methods(http.MethodPost)
	t.HandleFunc("/payment_info", a.handlePaymentInfo).Methods(http.MethodGet)
	t.HandleFunc("/reminders", a.handleTaxReminders).Methods(http.MethodGet)
	t.HandleFunc("/reminders", rateLimit(a.generalLimit, a.handleCreateUserReminder)).Methods(http.MethodPost)
	t.HandleFunc("/reminders/{id}", a.handleDeleteUserReminder).Methods(http.MethodDelete)
	t.HandleFunc("/rates", a.handleTaxRates).Methods(http.MethodGet)
	t.HandleFunc("/vat_rules", a.handleVATRules).Methods(http.MethodGet)
	t.HandleFunc("/admin/reseed", a.handleTaxReseed).Methods(http.MethodPost)
	t.HandleFunc("/admin/rates", a.handleUpsertRate).Methods(http.MethodPost)
	t.HandleFunc("/admin/locations", a.handleUpsertLocation).Methods(http.MethodPost)
	t.HandleFunc("/admin/deadlines", a.handleUpsertReminder).Methods(http.MethodPost)
	t.HandleFunc("/admin/deadlines/{id}", a.handleDeleteReminder).Methods(http.MethodDelete)
	t.HandleFunc("/admin/notify", a.handleTaxNotify).Methods(http.MethodPost)

	// learning hub (anonymous access allowed)
	l := r.PathPrefix("/learning_hub").Subrouter()
	l.HandleFunc("/main", a.handleHubMain).Methods(http.MethodGet)
	l.HandleFunc("/api/course/{id}", a.handleHubCourse).Methods(http.MethodGet)
	l.HandleFunc("/api/lesson", a.handleHubLesson).Methods(http.MethodGet)
	l.HandleFunc("/api/quiz", a.handleHubQuiz).Methods(http.MethodGet)
	l.HandleFunc("/api/lesson/action", rateLimit(a.generalLimit, a.handleLessonAction)).Methods(http.MethodPost)
	l.HandleFunc("/api/quiz/action", rateLimit(a.generalLimit, a.handleQuizAction)).Methods(http.MethodPost)
	l.HandleFunc("/api/set_role_filter", a.handleSetRoleFilter).Methods(http.MethodPost)
	l.HandleFunc("/api/summary", a.handleHubSummary).Methods(http.MethodGet)
	l.HandleFunc("/admin/course", a.handleUploadCourse).Methods(http.MethodPost)
	l.HandleFunc("/admin/progress", a.handleDeleteProgress).Methods(http.MethodDelete)
	l.HandleFunc("/register_webinar", rateLimit(a.generalLimit, a.handleRegisterWebinar)).Methods(http.MethodPost)
	l.HandleFunc("/unsubscribe/{email}", a.handleUnsubscribeWebinar).Methods(http.MethodGet)

	// credits
	c := r.PathPrefix("/credits").Subrouter()
	c.HandleFunc("/balance", a.handleCreditsBalance).Methods(http.MethodGet)
	c.HandleFunc("/history", a.handleCreditsHistory).Methods(http.MethodGet)
	c.HandleFunc("/admin/credit", a.handleAdminCredit).Methods(http.MethodPost)

	// admin
	ad := r.PathPrefix("/admin").Subrouter()
	ad.HandleFunc("/agents", a.handleListAgents).Methods(http.MethodGet)
	ad.HandleFunc("/agents", a.handleCreateAgent).Methods(http.MethodPost)
	ad.HandleFunc("/agents/{id}/status", a.handleAgentStatus).Methods(http.MethodPut)
	ad.HandleFunc("/audit", a.handleAuditLog).Methods(http.MethodGet)
	ad.HandleFunc("/setup", rateLimit(a.authLimit, a.handleSetup)).Methods(http.MethodPost)

	// misc
	r.HandleFunc("/change-language", rateLimit(a.languageLimit, a.handleChangeLanguage)).Methods(http.MethodPost)
	r.HandleFunc("/api/translations/{lang}", a.handleTranslations).Methods(http.MethodGet)
	r.HandleFunc("/api/translate", a.handleTranslate).Methods(http.MethodGet)
}

// Handler returns the full middleware-wrapped handler.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = a.withSession(h)
	h = a.logging(h)
	h = securityHeaders(h)
	h = obs.Instrument(h)
	return h
}

// require runs the gate and writes the denial when the caller fails it.
func (a *API) require(w http.ResponseWriter, r *http.Request, allowAnonymous bool, roles ...string) (*identity.User, bool) {
	s := sessionFrom(r)
	u := userFrom(r)
	d := auth.Require(s, u, allowAnonymous, roles...)
	if d.Allowed {
		return u, true
	}
	code := http.StatusForbidden
	if u == nil {
		code = http.StatusUnauthorized
	}
	writeDenial(w, code, d.Message, d.Redirect)
	return nil, false
}

// owner is the progress key: the user id when authenticated, the sid for
// guests.
func owner(r *http.Request) string {
	if u := userFrom(r); u != nil {
		return u.ID
	}
	return sessionFrom(r).SID
}

func (a *API) setSessionCookie(w http.ResponseWriter, s session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.SID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.secureCookies,
		Expires:  s.Expiration,
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "ficore-api",
		"version": a.version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		if err := a.ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
