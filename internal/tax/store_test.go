package tax_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ficore.org/internal/store/memstore"
	"ficore.org/internal/tax"
)

func seededRules(t *testing.T) *tax.Rules {
	t.Helper()
	r := tax.NewRules(memstore.New())
	if err := r.SeedIfMissing(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return r
}

func TestSeedIfMissingIsGuarded(t *testing.T) {
	r := seededRules(t)
	ctx := context.Background()

	// An admin edit must survive a restart's SeedIfMissing call.
	edit := tax.Rate{ID: "paye-2026-1", Regime: "paye", Year: 2026, Band: "First ₦900,000", RatePercent: 0}
	if err := r.UpsertRateAsAdmin(ctx, edit); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := r.SeedIfMissing(ctx); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	rates, err := r.Rates(ctx, "paye", 2026)
	if err != nil {
		t.Fatalf("Rates: %v", err)
	}
	for _, rate := range rates {
		if rate.ID == "paye-2026-1" && rate.Band != edit.Band {
			t.Fatalf("admin edit clobbered: %+v", rate)
		}
	}
}

func TestForceReseedRestoresCanonical(t *testing.T) {
	r := seededRules(t)
	ctx := context.Background()

	edit := tax.Rate{ID: "paye-2026-1", Regime: "paye", Year: 2026, Band: "tampered", RatePercent: 99}
	if err := r.UpsertRateAsAdmin(ctx, edit); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := r.ForceReseed(ctx); err != nil {
		t.Fatalf("ForceReseed: %v", err)
	}
	rates, _ := r.Rates(ctx, "paye", 2026)
	for _, rate := range rates {
		if rate.Band == "tampered" {
			t.Fatal("force reseed kept the tampered row")
		}
	}
	if len(rates) != 6 {
		t.Fatalf("paye 2026 rates = %d, want 6", len(rates))
	}
}

func TestRateFilters(t *testing.T) {
	r := seededRules(t)
	ctx := context.Background()

	paye2025, err := r.Rates(ctx, "paye", 2025)
	if err != nil {
		t.Fatalf("Rates: %v", err)
	}
	if len(paye2025) != 5 {
		t.Fatalf("paye 2025 rates = %d, want 5", len(paye2025))
	}
	for _, rate := range paye2025 {
		if rate.Regime != "paye" || rate.Year != 2025 {
			t.Fatalf("filter leaked %+v", rate)
		}
	}

	all, err := r.Rates(ctx, "", 0)
	if err != nil {
		t.Fatalf("Rates(all): %v", err)
	}
	if len(all) <= len(paye2025) {
		t.Fatalf("unfiltered rates = %d", len(all))
	}
}

func TestVATRulesCoverExemptCategories(t *testing.T) {
	r := seededRules(t)

	rules, err := r.VATRules(context.Background())
	if err != nil {
		t.Fatalf("VATRules: %v", err)
	}
	byCategory := map[string]tax.VATRule{}
	for _, rule := range rules {
		byCategory[rule.Category] = rule
	}
	for _, cat := range tax.ExemptCategories() {
		rule, ok := byCategory[cat]
		if !ok {
			t.Errorf("category %q missing from the published table", cat)
			continue
		}
		if !rule.Exempt || rule.RatePercent != 0 {
			t.Errorf("category %q published as taxable: %+v", cat, rule)
		}
	}
}

func TestPaymentLocationStateFilter(t *testing.T) {
	r := seededRules(t)
	ctx := context.Background()

	lagos, err := r.PaymentLocations(ctx, "Lagos")
	if err != nil {
		t.Fatalf("PaymentLocations: %v", err)
	}
	if len(lagos) != 2 {
		t.Fatalf("lagos offices = %d, want 2", len(lagos))
	}
	for _, l := range lagos {
		if l.State != "Lagos" {
			t.Fatalf("filter leaked %+v", l)
		}
	}

	// The filter ignores case, "lagos" finds "Lagos".
	lower, err := r.PaymentLocations(ctx, "lagos")
	if err != nil {
		t.Fatalf("PaymentLocations(lagos): %v", err)
	}
	if len(lower) != len(lagos) {
		t.Fatalf("lowercase filter = %d offices, want %d", len(lower), len(lagos))
	}

	all, err := r.PaymentLocations(ctx, "")
	if err != nil {
		t.Fatalf("PaymentLocations(all): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("all offices = %d, want 3", len(all))
	}
}

func TestRemindersAreUpcoming(t *testing.T) {
	r := seededRules(t)
	now := time.Now()

	upcoming, err := r.UpcomingReminders(context.Background(), now)
	if err != nil {
		t.Fatalf("UpcomingReminders: %v", err)
	}
	if len(upcoming) == 0 {
		t.Fatal("no upcoming deadlines seeded")
	}
	for _, rem := range upcoming {
		if rem.DueDate.Before(now) {
			t.Fatalf("past deadline returned: %+v", rem)
		}
	}
}

func TestDeleteReminder(t *testing.T) {
	r := seededRules(t)
	ctx := context.Background()

	if err := r.UpsertReminderAsAdmin(ctx, tax.Reminder{
		ID: "test-deadline", Title: "Test", DueDate: time.Now().Add(48 * time.Hour), Regime: "vat",
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := r.DeleteReminderAsAdmin(ctx, "test-deadline"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := r.DeleteReminderAsAdmin(ctx, "test-deadline"); !errors.Is(err, tax.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestUserReminders(t *testing.T) {
	r := seededRules(t)
	ctx := context.Background()

	if _, err := r.CreateUserReminder(ctx, "amina01", "  ", time.Now()); !errors.Is(err, tax.ErrInvalidInput) {
		t.Fatalf("blank message accepted: %v", err)
	}
	if _, err := r.CreateUserReminder(ctx, "amina01", "File VAT return", time.Time{}); !errors.Is(err, tax.ErrInvalidInput) {
		t.Fatalf("zero date accepted: %v", err)
	}

	later := time.Date(2026, 3, 21, 9, 0, 0, 0, time.UTC)
	sooner := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	if _, err := r.CreateUserReminder(ctx, "amina01", "File VAT return", later); err != nil {
		t.Fatalf("create: %v", err)
	}
	mine, err := r.CreateUserReminder(ctx, "amina01", "Renew TIN", sooner)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := r.CreateUserReminder(ctx, "musa01", "PAYE remittance", sooner); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := r.UserReminders(ctx, "amina01")
	if err != nil {
		t.Fatalf("UserReminders: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("reminders = %d, want 2", len(got))
	}
	// Soonest date first, and never another user's rows.
	if got[0].Message != "Renew TIN" || got[1].Message != "File VAT return" {
		t.Fatalf("order = %q, %q", got[0].Message, got[1].Message)
	}
	for _, rem := range got {
		if rem.UserID != "amina01" {
			t.Fatalf("leaked reminder: %+v", rem)
		}
		if rem.CreatedAt.IsZero() {
			t.Fatal("created_at not set")
		}
	}

	// Owners can only delete their own reminders.
	if err := r.DeleteUserReminder(ctx, "musa01", mine.ID); !errors.Is(err, tax.ErrNotFound) {
		t.Fatalf("cross-user delete: %v", err)
	}
	if err := r.DeleteUserReminder(ctx, "amina01", mine.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = r.UserReminders(ctx, "amina01")
	if len(got) != 1 {
		t.Fatalf("reminders after delete = %d, want 1", len(got))
	}
}
