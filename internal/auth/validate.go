package auth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)
	agentIDRegex  = regexp.MustCompile(`^[A-Z0-9]{8}$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

var validate = validator.New()

// SignupForm is the signup payload. Tags drive struct validation; the
// username/agent-id formats are checked separately because validator has no
// tag for them.
type SignupForm struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=personal trader agent"`
	Language string `json:"language" validate:"omitempty,oneof=en ha"`
	AgentID  string `json:"agent_id" validate:"omitempty"`
}

// ValidateStruct runs tag validation on any form struct.
func ValidateStruct(s any) error {
	return validate.Struct(s)
}

// FormatValidationError flattens validator errors into a field→message map.
func FormatValidationError(err error) map[string]string {
	out := make(map[string]string)
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["form"] = "invalid input"
		return out
	}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			out[field] = fmt.Sprintf("%s is required", field)
		case "email":
			out[field] = "invalid email format"
		case "min":
			out[field] = fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		case "max":
			out[field] = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		case "oneof":
			out[field] = fmt.Sprintf("%s must be one of: %s", field, fe.Param())
		default:
			out[field] = fmt.Sprintf("%s is invalid", field)
		}
	}
	return out
}

// ValidUsername reports whether the username is 3-50 word characters.
func ValidUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// ValidAgentID reports whether the id is 8 upper-case alphanumerics.
func ValidAgentID(id string) bool {
	return agentIDRegex.MatchString(id)
}

// ValidEmail reports whether the address has plausible syntax and a domain.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(strings.TrimSpace(email))
}
