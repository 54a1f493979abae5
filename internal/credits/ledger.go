package credits

import (
	"context"
	"fmt"
	"time"

	"ficore.org/internal/audit"
	"ficore.org/internal/ids"
	"ficore.org/internal/obs"
)

// BalanceStore is the persistence boundary of the ledger. TryDecrement must be
// conditional: it succeeds only while the stored balance is at least n, so
// that of two concurrent debits seeing the same balance at most one wins.
type BalanceStore interface {
	Balance(ctx context.Context, userID string) (int64, error)
	TryDecrement(ctx context.Context, userID string, n int64) (bool, error)
	Increment(ctx context.Context, userID string, n int64) error
	InsertTransaction(ctx context.Context, tx Transaction) error
	Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Ledger charges Ficore Credits per privileged action. Admins are exempt.
type Ledger struct {
	store BalanceStore
	audit *audit.Log
	now   func() time.Time
}

// NewLedger constructs a Ledger over the given store.
func NewLedger(store BalanceStore, auditLog *audit.Log) *Ledger {
	return &Ledger{store: store, audit: auditLog, now: time.Now}
}

// Balance returns the user's current coin balance.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	return l.store.Balance(ctx, userID)
}

// HasAtLeast reports whether the user can afford n coins. Admins always can.
func (l *Ledger) HasAtLeast(ctx context.Context, userID string, n int64) (bool, error) {
	if admin, err := l.store.IsAdmin(ctx, userID); err == nil && admin {
		return true, nil
	}
	bal, err := l.store.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return bal >= n, nil
}

// Debit attempts to charge n coins for an action. On success exactly one
// balance decrement and one matching spend transaction become visible. If the
// downstream action later fails the caller must Compensate. Admin callers are
// exempt and always get DebitOK without a decrement.
func (l *Ledger) Debit(ctx context.Context, userID string, n int64, action, objectID string) (DebitOutcome, error) {
	if n <= 0 {
		return DebitError, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if admin, err := l.store.IsAdmin(ctx, userID); err == nil && admin {
		return DebitOK, nil
	}

	bal, err := l.store.Balance(ctx, userID)
	if err != nil {
		obs.ObserveDebit("error")
		return DebitError, err
	}
	if bal < n {
		obs.ObserveDebit("insufficient")
		return DebitInsufficient, nil
	}

	ok, err := l.store.TryDecrement(ctx, userID, n)
	if err != nil {
		obs.ObserveDebit("error")
		return DebitError, err
	}
	if !ok {
		// Lost the race: another request spent the balance first.
		obs.ObserveDebit("insufficient")
		return DebitInsufficient, nil
	}

	tx := Transaction{
		ID:     ids.New(),
		UserID: userID,
		Amount: -n,
		Type:   TypeSpend,
		Ref:    ids.Ref(action, objectID),
		Date:   l.now().UTC(),
	}
	if err := l.store.InsertTransaction(ctx, tx); err != nil {
		// The decrement is visible without its transaction; undo it so the
		// balance/transaction-sum invariant holds.
		if incErr := l.store.Increment(ctx, userID, n); incErr != nil {
			obs.Error("debit rollback failed", obs.RequestContext{}, obs.Fields{
				"user_id": userID, "amount": n, "error": incErr.Error(),
			})
		}
		obs.ObserveDebit("error")
		return DebitError, err
	}

	l.audit.Append(ctx, userID, "debit_coins", map[string]any{
		"amount": n, "action": action, "object_id": objectID, "ref": tx.Ref,
	})
	obs.ObserveDebit("ok")
	return DebitOK, nil
}

// Compensate reverses a previously accepted debit after the downstream action
// failed: it increments the balance and inserts the offsetting positive
// transaction.
func (l *Ledger) Compensate(ctx context.Context, userID string, n int64, action string) error {
	if n <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if admin, err := l.store.IsAdmin(ctx, userID); err == nil && admin {
		return nil
	}
	if err := l.store.Increment(ctx, userID, n); err != nil {
		return err
	}
	tx := Transaction{
		ID:     ids.New(),
		UserID: userID,
		Amount: n,
		Type:   TypeCredit,
		Ref:    ids.Ref(action+"_compensation", ""),
		Date:   l.now().UTC(),
	}
	if err := l.store.InsertTransaction(ctx, tx); err != nil {
		return err
	}
	l.audit.Append(ctx, userID, "compensate_coins", map[string]any{
		"amount": n, "action": action, "ref": tx.Ref,
	})
	return nil
}

// Credit adds coins to a user's balance (purchase or admin grant).
func (l *Ledger) Credit(ctx context.Context, userID string, n int64, txType, ref string) error {
	if n <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	switch txType {
	case TypeCredit, TypePurchase, TypeAdminCredit, TypeSignupBonus:
	default:
		return fmt.Errorf("%w: unknown transaction type %q", ErrInvalidInput, txType)
	}
	if err := l.store.Increment(ctx, userID, n); err != nil {
		return err
	}
	tx := Transaction{
		ID:     ids.New(),
		UserID: userID,
		Amount: n,
		Type:   txType,
		Ref:    ref,
		Date:   l.now().UTC(),
	}
	if err := l.store.InsertTransaction(ctx, tx); err != nil {
		return err
	}
	l.audit.Append(ctx, userID, "credit_coins", map[string]any{
		"amount": n, "type": txType, "ref": ref,
	})
	return nil
}

// History returns the user's most recent transactions, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return l.store.Transactions(ctx, userID, limit)
}
