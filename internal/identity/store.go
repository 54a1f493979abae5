package identity

import (
	"context"
	"time"
)

// UserUpdate carries optional field changes; nil means leave untouched.
type UserUpdate struct {
	Language        *string
	SetupComplete   *bool
	PasswordHash    *string
	BusinessDetails *BusinessDetails
	PersonalDetails *PersonalDetails
	AgentDetails    *AgentDetails
}

// Store describes persistence for users and agents.
//
// CreateUser must be atomic with the signup-bonus coin transaction it implies:
// either the user document (balance = SignupBonus) and the matching
// signup_bonus transaction are both visible, or neither is.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	FindUser(ctx context.Context, id string) (*User, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) error
	DeleteUser(ctx context.Context, id string) error

	SetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error

	CreateAgent(ctx context.Context, a *Agent) error
	FindAgent(ctx context.Context, id string) (*Agent, error)
	ListAgents(ctx context.Context) ([]Agent, error)
	SetAgentStatus(ctx context.Context, id, status string) error
	// AgentBound reports whether any user already carries the agent id.
	AgentBound(ctx context.Context, agentID string) (bool, error)
}
