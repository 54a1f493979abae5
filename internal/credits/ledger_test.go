package credits_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"ficore.org/internal/audit"
	"ficore.org/internal/credits"
	"ficore.org/internal/identity"
	"ficore.org/internal/store/memstore"
)

func newLedger(t *testing.T) (*credits.Ledger, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	return credits.NewLedger(st, audit.New(st)), st
}

func seedUser(t *testing.T, st *memstore.Store, id string, balance int64, admin bool) {
	t.Helper()
	err := st.CreateUser(context.Background(), &identity.User{
		ID:          id,
		Email:       id + "@example.com",
		Role:        identity.RolePersonal,
		CoinBalance: balance,
		IsAdmin:     admin,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

// sumTransactions folds a user's history; it must always equal the balance.
func sumTransactions(t *testing.T, st *memstore.Store, id string) int64 {
	t.Helper()
	txs, err := st.Transactions(context.Background(), id, 1000)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	var sum int64
	for _, tx := range txs {
		sum += tx.Amount
	}
	return sum
}

func TestDebitHappyPath(t *testing.T) {
	ledger, st := newLedger(t)
	seedUser(t, st, "amina", 10, false)
	ctx := context.Background()

	outcome, err := ledger.Debit(ctx, "amina", 1, "add_record", "rec-1")
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if outcome != credits.DebitOK {
		t.Fatalf("outcome = %v", outcome)
	}

	bal, _ := ledger.Balance(ctx, "amina")
	if bal != 9 {
		t.Fatalf("balance = %d, want 9", bal)
	}
	if sum := sumTransactions(t, st, "amina"); sum != bal {
		t.Fatalf("transaction sum %d != balance %d", sum, bal)
	}

	txs, _ := ledger.History(ctx, "amina", 10)
	if len(txs) != 2 {
		t.Fatalf("history length = %d, want 2", len(txs))
	}
	if txs[0].Type != credits.TypeSpend || txs[0].Amount != -1 {
		t.Fatalf("latest tx = %+v", txs[0])
	}
}

func TestDebitInsufficient(t *testing.T) {
	ledger, st := newLedger(t)
	seedUser(t, st, "bala", 2, false)
	ctx := context.Background()

	outcome, err := ledger.Debit(ctx, "bala", 5, "add_record", "rec-1")
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if outcome != credits.DebitInsufficient {
		t.Fatalf("outcome = %v, want insufficient", outcome)
	}
	bal, _ := ledger.Balance(ctx, "bala")
	if bal != 2 {
		t.Fatalf("balance mutated to %d", bal)
	}
}

func TestDebitAdminExempt(t *testing.T) {
	ledger, st := newLedger(t)
	seedUser(t, st, "root", 0, true)
	ctx := context.Background()

	outcome, err := ledger.Debit(ctx, "root", 100, "add_record", "rec-1")
	if err != nil || outcome != credits.DebitOK {
		t.Fatalf("admin debit = %v, %v", outcome, err)
	}
	bal, _ := ledger.Balance(ctx, "root")
	if bal != 0 {
		t.Fatalf("admin balance changed to %d", bal)
	}
}

func TestCompensateRestoresInvariant(t *testing.T) {
	ledger, st := newLedger(t)
	seedUser(t, st, "chidi", 10, false)
	ctx := context.Background()

	if outcome, _ := ledger.Debit(ctx, "chidi", 3, "generate_report", "rep-1"); outcome != credits.DebitOK {
		t.Fatalf("debit outcome = %v", outcome)
	}
	if err := ledger.Compensate(ctx, "chidi", 3, "generate_report"); err != nil {
		t.Fatalf("Compensate: %v", err)
	}

	bal, _ := ledger.Balance(ctx, "chidi")
	if bal != 10 {
		t.Fatalf("balance = %d, want 10", bal)
	}
	if sum := sumTransactions(t, st, "chidi"); sum != bal {
		t.Fatalf("transaction sum %d != balance %d", sum, bal)
	}
}

func TestConcurrentDebitsConserveBalance(t *testing.T) {
	ledger, st := newLedger(t)
	seedUser(t, st, "dayo", 5, false)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	outcomes := make([]credits.DebitOutcome, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], _ = ledger.Debit(ctx, "dayo", 1, "add_record", "rec")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, o := range outcomes {
		if o == credits.DebitOK {
			wins++
		}
	}
	if wins != 5 {
		t.Fatalf("wins = %d, want exactly 5", wins)
	}
	bal, _ := ledger.Balance(ctx, "dayo")
	if bal != 0 {
		t.Fatalf("balance = %d, want 0", bal)
	}
	if sum := sumTransactions(t, st, "dayo"); sum != 0 {
		t.Fatalf("transaction sum = %d, want 0", sum)
	}
}

func TestCreditValidatesType(t *testing.T) {
	ledger, st := newLedger(t)
	seedUser(t, st, "efe", 0, false)
	ctx := context.Background()

	if err := ledger.Credit(ctx, "efe", 10, "gift", "ref-1"); err == nil {
		t.Fatal("unknown transaction type accepted")
	}
	if err := ledger.Credit(ctx, "efe", 10, credits.TypePurchase, "purchase:efe:1"); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	bal, _ := ledger.Balance(ctx, "efe")
	if bal != 10 {
		t.Fatalf("balance = %d, want 10", bal)
	}
}
