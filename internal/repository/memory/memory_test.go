package memory

import (
	"context"
	"errors"
	"testing"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/repository"

	"github.com/shopspring/decimal"
)

func pendingTx(reference string) *domain.Transaction {
	return &domain.Transaction{
		Reference:   reference,
		PhoneNumber: "0771234567",
		Amount:      decimal.NewFromInt(50),
		Method:      domain.MethodEcocash,
		Type:        domain.TypeGeneral,
		Status:      domain.StatusPending,
	}
}

func TestTransactionStoreCreateDuplicate(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()

	if err := store.Create(ctx, pendingTx("LP-1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create(ctx, pendingTx("LP-1")); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestTransactionStoreGetUnknown(t *testing.T) {
	store := NewTransactionStore()

	if _, err := store.GetByReference(context.Background(), "LP-X"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTransitionStatusGuards(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()
	store.Create(ctx, pendingTx("LP-1"))

	transitioned, err := store.TransitionStatus(ctx, "LP-1", domain.StatusPaid)
	if err != nil || !transitioned {
		t.Fatalf("first transition = (%v, %v), want (true, nil)", transitioned, err)
	}

	// Once terminal, no edge out.
	for _, next := range []domain.TransactionStatus{domain.StatusPaid, domain.StatusCancelled, domain.StatusFailed, domain.StatusPending} {
		transitioned, err := store.TransitionStatus(ctx, "LP-1", next)
		if err != nil {
			t.Fatalf("TransitionStatus(%s): %v", next, err)
		}
		if transitioned {
			t.Errorf("transition to %s succeeded on a paid transaction", next)
		}
	}

	tx, _ := store.GetByReference(ctx, "LP-1")
	if tx.Status != domain.StatusPaid {
		t.Errorf("status = %s, want paid", tx.Status)
	}
	if tx.PaidAt == nil || tx.CompletedAt == nil {
		t.Error("paid/completed timestamps not set")
	}
}

func TestLateWritesIgnoredOnTerminal(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()
	store.Create(ctx, pendingTx("LP-1"))
	store.TransitionStatus(ctx, "LP-1", domain.StatusCancelled)

	if err := store.SetGatewayStatus(ctx, "LP-1", "Paid", "PN-9"); err != nil {
		t.Fatalf("SetGatewayStatus: %v", err)
	}
	if err := store.SetError(ctx, "LP-1", "late error"); err != nil {
		t.Fatalf("SetError: %v", err)
	}
	if err := store.SetOtpOutcome(ctx, "LP-1", "https://late", "PN-9"); err != nil {
		t.Fatalf("SetOtpOutcome: %v", err)
	}

	tx, _ := store.GetByReference(ctx, "LP-1")
	if tx.Status != domain.StatusCancelled {
		t.Errorf("status = %s, want cancelled", tx.Status)
	}
	if tx.ErrorMessage != "" || tx.PollURL == "https://late" {
		t.Error("late writes mutated a terminal transaction")
	}
}

func TestListOrderingAndPaging(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()
	for _, ref := range []string{"LP-1", "LP-2", "LP-3"} {
		store.Create(ctx, pendingTx(ref))
	}

	txs, err := store.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d, want 2", len(txs))
	}
	// Newest first.
	if txs[0].Reference != "LP-3" || txs[1].Reference != "LP-2" {
		t.Errorf("order = %s, %s", txs[0].Reference, txs[1].Reference)
	}

	rest, _ := store.List(ctx, 10, 2)
	if len(rest) != 1 || rest[0].Reference != "LP-1" {
		t.Errorf("page 2 = %+v", rest)
	}

	none, _ := store.List(ctx, 10, 99)
	if len(none) != 0 {
		t.Errorf("got %d past the end, want 0", len(none))
	}
}

func TestClonesAreIsolated(t *testing.T) {
	store := NewTransactionStore()
	ctx := context.Background()
	store.Create(ctx, pendingTx("LP-1"))

	tx, _ := store.GetByReference(ctx, "LP-1")
	tx.Status = domain.StatusPaid

	again, _ := store.GetByReference(ctx, "LP-1")
	if again.Status != domain.StatusPending {
		t.Error("mutating a returned transaction leaked into the store")
	}
}

func TestLoanStoreApplyPayment(t *testing.T) {
	store := NewLoanStore()
	ctx := context.Background()
	store.Create(ctx, &domain.Loan{
		LoanID:             "LN-1",
		UserID:             1,
		OriginalAmount:     decimal.NewFromInt(500),
		OutstandingBalance: decimal.NewFromInt(100),
		Status:             domain.LoanStatusActive,
	})

	loan, err := store.ApplyPayment(ctx, "LN-1", decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if !loan.OutstandingBalance.Equal(decimal.NewFromInt(60)) {
		t.Errorf("balance = %s, want 60", loan.OutstandingBalance)
	}

	loan, _ = store.ApplyPayment(ctx, "LN-1", decimal.NewFromInt(100))
	if !loan.OutstandingBalance.IsZero() {
		t.Errorf("balance = %s, want 0", loan.OutstandingBalance)
	}
	if loan.Status != domain.LoanStatusCompleted {
		t.Errorf("status = %s, want completed", loan.Status)
	}

	if _, err := store.ApplyPayment(ctx, "LN-X", decimal.NewFromInt(1)); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLoanSummaryStats(t *testing.T) {
	store := NewLoanStore()
	ctx := context.Background()
	store.Create(ctx, &domain.Loan{
		LoanID:             "LN-1",
		UserID:             1,
		OriginalAmount:     decimal.NewFromInt(500),
		OutstandingBalance: decimal.NewFromInt(350),
		Status:             domain.LoanStatusActive,
	})
	store.Create(ctx, &domain.Loan{
		LoanID:             "LN-2",
		UserID:             2,
		OriginalAmount:     decimal.NewFromInt(200),
		OutstandingBalance: decimal.Zero,
		Status:             domain.LoanStatusCompleted,
	})

	summary, err := store.SummaryStats(ctx)
	if err != nil {
		t.Fatalf("SummaryStats: %v", err)
	}
	if summary.TotalLoans != 2 || summary.ActiveLoans != 1 || summary.CompletedLoans != 1 {
		t.Errorf("counts = %+v", summary)
	}
	if !summary.TotalDisbursed.Equal(decimal.NewFromInt(700)) {
		t.Errorf("disbursed = %s, want 700", summary.TotalDisbursed)
	}
	if !summary.TotalOutstanding.Equal(decimal.NewFromInt(350)) {
		t.Errorf("outstanding = %s, want 350", summary.TotalOutstanding)
	}
	if !summary.TotalCollected.Equal(decimal.NewFromInt(350)) {
		t.Errorf("collected = %s, want 350", summary.TotalCollected)
	}
}

func TestAttemptCounter(t *testing.T) {
	counter := NewAttemptCounter()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := counter.Increment(ctx, "ref-1")
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if got != want {
			t.Errorf("count = %d, want %d", got, want)
		}
	}

	if got, _ := counter.Increment(ctx, "ref-2"); got != 1 {
		t.Errorf("independent key count = %d, want 1", got)
	}

	if err := counter.Reset(ctx, "ref-1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got, _ := counter.Increment(ctx, "ref-1"); got != 1 {
		t.Errorf("count after reset = %d, want 1", got)
	}
}
