package auth

import (
	"errors"

	"ficore.org/internal/identity"
	"ficore.org/internal/session"
)

// Gate errors map to the two denial shapes the HTTP layer emits: a login
// redirect for anonymous callers and a role-home redirect otherwise.
var (
	ErrLoginRequired = errors.New("auth: login required")
	ErrDenied        = errors.New("auth: access denied")
)

// Decision is the outcome of a gate check.
type Decision struct {
	Allowed bool
	// Redirect is where to send a denied caller.
	Redirect string
	// Message is the human-readable denial reason.
	Message string
}

// Require checks the caller against the allowed roles. Admins always pass.
// When allowAnonymous is set, an anonymous session is admitted (used by the
// learning hub, which serves guests).
func Require(s session.Session, u *identity.User, allowAnonymous bool, roles ...string) Decision {
	if u == nil {
		if allowAnonymous && s.IsAnonymous {
			return Decision{Allowed: true}
		}
		return Decision{
			Redirect: "/users/login",
			Message:  "Please log in to access this page.",
		}
	}
	if u.IsAdmin || u.Role == identity.RoleAdmin {
		return Decision{Allowed: true}
	}
	for _, role := range roles {
		if u.Role == role {
			return Decision{Allowed: true}
		}
	}
	return Decision{
		Redirect: RoleHomeTarget(u.Role),
		Message:  "You do not have permission to access this page.",
	}
}
