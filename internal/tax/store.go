package tax

import (
	"context"
	"errors"
	"strings"
	"time"

	"ficore.org/internal/ids"
)

// ErrNotFound is returned when a rate, rule, location or reminder is missing.
var ErrNotFound = errors.New("tax: not found")

// Rate is one row of the published rate tables shown on the information pages.
type Rate struct {
	ID          string  `bson:"_id" json:"id"`
	Regime      string  `bson:"regime" json:"regime"` // paye, cit, vat
	Year        int     `bson:"year" json:"year"`
	Band        string  `bson:"band" json:"band"`
	RatePercent float64 `bson:"rate_percent" json:"rate_percent"`
	Description string  `bson:"description" json:"description"`
}

// VATRule records one category's VAT treatment.
type VATRule struct {
	Category    string  `bson:"category" json:"category"`
	Exempt      bool    `bson:"exempt" json:"exempt"`
	RatePercent float64 `bson:"rate_percent" json:"rate_percent"`
	Note        string  `bson:"note" json:"note"`
}

// PaymentLocation is a physical tax office a filer can pay at.
type PaymentLocation struct {
	ID      string `bson:"_id" json:"id"`
	Name    string `bson:"name" json:"name"`
	Address string `bson:"address" json:"address"`
	City    string `bson:"city" json:"city"`
	State   string `bson:"state" json:"state"`
	Phone   string `bson:"phone" json:"phone"`
	Hours   string `bson:"hours" json:"hours"`
}

// Reminder is a filing deadline surfaced on the dashboard.
type Reminder struct {
	ID      string    `bson:"_id" json:"id"`
	Title   string    `bson:"title" json:"title"`
	Body    string    `bson:"body" json:"body"`
	DueDate time.Time `bson:"due_date" json:"due_date"`
	Regime  string    `bson:"regime" json:"regime"`
}

// UserReminder is a personal reminder a filer sets for themselves, as opposed
// to the global filing deadlines in Reminder.
type UserReminder struct {
	ID           string    `bson:"_id" json:"id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	Message      string    `bson:"message" json:"message"`
	ReminderDate time.Time `bson:"reminder_date" json:"reminder_date"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

// RuleStore persists the reference data backing the information pages.
type RuleStore interface {
	TaxDataSeeded(ctx context.Context) (bool, error)
	MarkTaxDataSeeded(ctx context.Context) error
	ReplaceTaxData(ctx context.Context, rates []Rate, rules []VATRule, locations []PaymentLocation, reminders []Reminder) error

	ListRates(ctx context.Context, regime string, year int) ([]Rate, error)
	ListVATRules(ctx context.Context) ([]VATRule, error)
	ListPaymentLocations(ctx context.Context, state string) ([]PaymentLocation, error)
	ListReminders(ctx context.Context, after time.Time) ([]Reminder, error)

	InsertUserReminder(ctx context.Context, r UserReminder) error
	ListUserReminders(ctx context.Context, userID string) ([]UserReminder, error)
	DeleteUserReminder(ctx context.Context, userID, id string) error

	UpsertRate(ctx context.Context, r Rate) error
	UpsertPaymentLocation(ctx context.Context, l PaymentLocation) error
	UpsertReminder(ctx context.Context, r Reminder) error
	DeleteReminder(ctx context.Context, id string) error
}

// Rules serves the reference data and owns first-boot seeding.
type Rules struct {
	store RuleStore
}

// NewRules returns a Rules service over the given store.
func NewRules(store RuleStore) *Rules {
	return &Rules{store: store}
}

// SeedIfMissing loads the canonical rate tables once. A seeded flag in the
// config collection keeps restarts from rewriting admin edits; an empty
// vat_rules collection forces a reseed even when the flag is set.
func (r *Rules) SeedIfMissing(ctx context.Context) error {
	seeded, err := r.store.TaxDataSeeded(ctx)
	if err != nil {
		return err
	}
	if seeded {
		rules, err := r.store.ListVATRules(ctx)
		if err != nil {
			return err
		}
		if len(rules) > 0 {
			return nil
		}
	}
	if err := r.store.ReplaceTaxData(ctx, SeedRates(), SeedVATRules(), SeedPaymentLocations(), SeedReminders()); err != nil {
		return err
	}
	return r.store.MarkTaxDataSeeded(ctx)
}

// ForceReseed rebuilds all four reference collections from the canonical
// tables, discarding admin edits. Admin-only.
func (r *Rules) ForceReseed(ctx context.Context) error {
	if err := r.store.ReplaceTaxData(ctx, SeedRates(), SeedVATRules(), SeedPaymentLocations(), SeedReminders()); err != nil {
		return err
	}
	return r.store.MarkTaxDataSeeded(ctx)
}

// Rates lists published rates, optionally filtered by regime and year
// (zero year means all years).
func (r *Rules) Rates(ctx context.Context, regime string, year int) ([]Rate, error) {
	return r.store.ListRates(ctx, regime, year)
}

// VATRules lists the per-category VAT treatment table.
func (r *Rules) VATRules(ctx context.Context) ([]VATRule, error) {
	return r.store.ListVATRules(ctx)
}

// PaymentLocations lists offices, optionally filtered by state.
func (r *Rules) PaymentLocations(ctx context.Context, state string) ([]PaymentLocation, error) {
	return r.store.ListPaymentLocations(ctx, state)
}

// UpcomingReminders lists deadlines due on or after now.
func (r *Rules) UpcomingReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	return r.store.ListReminders(ctx, now)
}

// CreateUserReminder stores a personal reminder owned by userID. Message and
// date are required.
func (r *Rules) CreateUserReminder(ctx context.Context, userID, message string, date time.Time) (UserReminder, error) {
	message = strings.TrimSpace(message)
	if userID == "" || message == "" || date.IsZero() {
		return UserReminder{}, ErrInvalidInput
	}
	rem := UserReminder{
		ID:           ids.New(),
		UserID:       userID,
		Message:      message,
		ReminderDate: date.UTC(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.store.InsertUserReminder(ctx, rem); err != nil {
		return UserReminder{}, err
	}
	return rem, nil
}

// UserReminders lists the reminders owned by userID, oldest date first.
func (r *Rules) UserReminders(ctx context.Context, userID string) ([]UserReminder, error) {
	return r.store.ListUserReminders(ctx, userID)
}

// DeleteUserReminder removes one of userID's own reminders. The owner filter
// keeps callers from deleting other users' reminders by id.
func (r *Rules) DeleteUserReminder(ctx context.Context, userID, id string) error {
	return r.store.DeleteUserReminder(ctx, userID, id)
}

// Admin edits. Authorization happens at the HTTP layer.

func (r *Rules) UpsertRateAsAdmin(ctx context.Context, rate Rate) error {
	return r.store.UpsertRate(ctx, rate)
}

func (r *Rules) UpsertLocationAsAdmin(ctx context.Context, l PaymentLocation) error {
	return r.store.UpsertPaymentLocation(ctx, l)
}

func (r *Rules) UpsertReminderAsAdmin(ctx context.Context, rem Reminder) error {
	return r.store.UpsertReminder(ctx, rem)
}

func (r *Rules) DeleteReminderAsAdmin(ctx context.Context, id string) error {
	return r.store.DeleteReminder(ctx, id)
}
