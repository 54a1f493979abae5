package auth

import "ficore.org/internal/identity"

// Route targets are endpoint names resolved to paths at startup; nothing is
// hard-coded into handlers.
type roleRoutes struct {
	PostLogin    string
	ExploreTools string
	SetupWizard  string
}

var routesByRole = map[string]roleRoutes{
	identity.RolePersonal: {
		PostLogin:    "/personal/home",
		ExploreTools: "/personal/home",
		SetupWizard:  "/users/personal_setup_wizard",
	},
	identity.RoleTrader: {
		PostLogin:    "/business/home",
		ExploreTools: "/business/home",
		SetupWizard:  "/users/setup_wizard",
	},
	identity.RoleAgent: {
		PostLogin:    "/agents/dashboard",
		ExploreTools: "/agents/dashboard",
		SetupWizard:  "/users/agent_setup_wizard",
	},
	identity.RoleAdmin: {
		PostLogin:    "/admin/dashboard",
		ExploreTools: "/admin/dashboard",
		SetupWizard:  "/users/setup_wizard",
	},
}

func lookupRoutes(role string) roleRoutes {
	if r, ok := routesByRole[role]; ok {
		return r
	}
	// Unknown roles land on the personal surface.
	return routesByRole[identity.RolePersonal]
}

// PostLoginTarget resolves where a user lands after login. A user whose setup
// is incomplete is sent to the role's setup wizard instead.
func PostLoginTarget(u *identity.User) string {
	r := lookupRoutes(u.Role)
	if !u.SetupComplete {
		return r.SetupWizard
	}
	return r.PostLogin
}

// ExploreToolsTarget resolves the "explore tools" destination for a role.
func ExploreToolsTarget(role string) string {
	return lookupRoutes(role).ExploreTools
}

// RoleHomeTarget resolves the role-appropriate home used on authorization
// denials.
func RoleHomeTarget(role string) string {
	return lookupRoutes(role).PostLogin
}

// SetupWizardTarget resolves the role's setup wizard path.
func SetupWizardTarget(role string) string {
	return lookupRoutes(role).SetupWizard
}
