package identity

import (
	"errors"
	"time"
)

// Roles supported by the platform.
const (
	RolePersonal = "personal"
	RoleTrader   = "trader"
	RoleAgent    = "agent"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the four platform roles.
func ValidRole(role string) bool {
	switch role {
	case RolePersonal, RoleTrader, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// SignupBonus is the coin balance granted to every new user.
const SignupBonus int64 = 10

// User is the platform account document. The id is the lower-cased username.
type User struct {
	ID            string    `bson:"_id" json:"id"`
	Email         string    `bson:"email" json:"email"`
	PasswordHash  string    `bson:"password_hash" json:"-"`
	Role          string    `bson:"role" json:"role"`
	CoinBalance   int64     `bson:"coin_balance" json:"coin_balance"`
	Language      string    `bson:"language" json:"language"`
	IsAdmin       bool      `bson:"is_admin" json:"is_admin"`
	SetupComplete bool      `bson:"setup_complete" json:"setup_complete"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`

	OTP       string     `bson:"otp,omitempty" json:"-"`
	OTPExpiry *time.Time `bson:"otp_expiry,omitempty" json:"-"`

	ResetToken       string     `bson:"reset_token,omitempty" json:"-"`
	ResetTokenExpiry *time.Time `bson:"reset_token_expiry,omitempty" json:"-"`

	BusinessDetails *BusinessDetails `bson:"business_details,omitempty" json:"business_details,omitempty"`
	PersonalDetails *PersonalDetails `bson:"personal_details,omitempty" json:"personal_details,omitempty"`
	AgentDetails    *AgentDetails    `bson:"agent_details,omitempty" json:"agent_details,omitempty"`
}

// BusinessDetails is the trader role sub-record.
type BusinessDetails struct {
	Name         string `bson:"name" json:"name"`
	Address      string `bson:"address" json:"address"`
	Industry     string `bson:"industry" json:"industry"`
	ProductsSold string `bson:"products_sold,omitempty" json:"products_sold,omitempty"`
	PhoneNumber  string `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
}

// PersonalDetails is the personal role sub-record.
type PersonalDetails struct {
	FirstName   string `bson:"first_name" json:"first_name"`
	LastName    string `bson:"last_name" json:"last_name"`
	PhoneNumber string `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Address     string `bson:"address,omitempty" json:"address,omitempty"`
}

// AgentDetails is the agent role sub-record. AgentID must reference an active,
// unbound Agent at signup time.
type AgentDetails struct {
	AgentID string `bson:"agent_id" json:"agent_id"`
	Area    string `bson:"area,omitempty" json:"area,omitempty"`
}

// Agent statuses.
const (
	AgentActive   = "active"
	AgentInactive = "inactive"
)

// Agent is a pre-issued field-operator identity. The id is 8 upper-case
// alphanumeric characters; at most one user may bind to it.
type Agent struct {
	ID        string    `bson:"_id" json:"agent_id"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

var (
	ErrNotFound      = errors.New("identity: not found")
	ErrDuplicateUser = errors.New("identity: user already exists")
	ErrAgentInvalid  = errors.New("identity: agent id invalid, inactive or already bound")
)
