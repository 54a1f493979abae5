package credits

import (
	"errors"
	"time"
)

// Transaction types recognised by the ledger.
const (
	TypeCredit      = "credit"
	TypeSpend       = "spend"
	TypePurchase    = "purchase"
	TypeAdminCredit = "admin_credit"
	TypeSignupBonus = "signup_bonus"
)

// Transaction is one signed movement on a user's coin balance. The ref is a
// unique human-readable string embedding the action and the object it applied
// to. The sum of a user's transactions equals the user's coin_balance at all
// times.
type Transaction struct {
	ID     string    `bson:"_id" json:"id"`
	UserID string    `bson:"user_id" json:"user_id"`
	Amount int64     `bson:"amount" json:"amount"`
	Type   string    `bson:"type" json:"type"`
	Ref    string    `bson:"ref" json:"ref"`
	Date   time.Time `bson:"date" json:"date"`
}

// DebitOutcome is the tri-state result of a debit attempt.
type DebitOutcome int

const (
	DebitOK DebitOutcome = iota
	DebitInsufficient
	DebitError
)

func (o DebitOutcome) String() string {
	switch o {
	case DebitOK:
		return "ok"
	case DebitInsufficient:
		return "insufficient"
	default:
		return "error"
	}
}

var (
	ErrNotFound     = errors.New("credits: user not found")
	ErrDuplicateRef = errors.New("credits: duplicate transaction ref")
	ErrInvalidInput = errors.New("credits: invalid input")
)
