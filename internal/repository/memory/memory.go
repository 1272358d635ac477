// internal/repository/memory/memory.go
//
// In-memory implementations of the repository contracts. Used by tests and as
// the storage fallback when no database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/repository"

	"github.com/shopspring/decimal"
)

type TransactionStore struct {
	mu  sync.RWMutex
	seq int64
	txs map[string]*domain.Transaction
}

var _ repository.TransactionRepository = (*TransactionStore)(nil)

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{txs: make(map[string]*domain.Transaction)}
}

func (s *TransactionStore) Create(_ context.Context, tx *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.txs[tx.Reference]; exists {
		return repository.ErrDuplicate
	}

	s.seq++
	tx.ID = s.seq
	now := time.Now().UTC()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	s.txs[tx.Reference] = cloneTransaction(tx)
	return nil
}

func (s *TransactionStore) GetByReference(_ context.Context, reference string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.txs[reference]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *TransactionStore) SetDispatchResult(_ context.Context, reference string, res *repository.DispatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[reference]
	if !ok {
		return repository.ErrNotFound
	}
	tx.PollURL = res.PollURL
	tx.RedirectURL = res.RedirectURL
	tx.Instructions = res.Instructions
	tx.GatewayRef = res.GatewayRef
	tx.OtpURL = res.OtpURL
	tx.OtpReference = res.OtpReference
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *TransactionStore) SetGatewayStatus(_ context.Context, reference, rawStatus, gatewayRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[reference]
	if !ok {
		return repository.ErrNotFound
	}
	if tx.Status != domain.StatusPending {
		return nil
	}
	tx.GatewayStatus = rawStatus
	if gatewayRef != "" {
		tx.GatewayRef = gatewayRef
	}
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *TransactionStore) TransitionStatus(_ context.Context, reference string, next domain.TransactionStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[reference]
	if !ok {
		return false, nil
	}
	if !tx.Status.CanTransitionTo(next) {
		return false, nil
	}

	now := time.Now().UTC()
	tx.Status = next
	tx.GatewayStatus = string(next)
	if next == domain.StatusPaid {
		tx.PaidAt = &now
	}
	tx.CompletedAt = &now
	tx.UpdatedAt = now
	return true, nil
}

func (s *TransactionStore) SetError(_ context.Context, reference, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[reference]
	if !ok {
		return repository.ErrNotFound
	}
	if tx.Status != domain.StatusPending {
		return nil
	}

	now := time.Now().UTC()
	tx.Status = domain.StatusFailed
	tx.ErrorMessage = message
	tx.CompletedAt = &now
	tx.UpdatedAt = now
	return nil
}

func (s *TransactionStore) SetOtpOutcome(_ context.Context, reference, pollURL, gatewayRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[reference]
	if !ok {
		return repository.ErrNotFound
	}
	if tx.Status != domain.StatusPending {
		return nil
	}
	if pollURL != "" {
		tx.PollURL = pollURL
	}
	if gatewayRef != "" {
		tx.GatewayRef = gatewayRef
	}
	tx.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *TransactionStore) List(_ context.Context, limit, offset int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		all = append(all, cloneTransaction(tx))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *TransactionStore) ListByLoan(_ context.Context, loanID string) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var txs []*domain.Transaction
	for _, tx := range s.txs {
		if tx.LoanID != nil && *tx.LoanID == loanID {
			txs = append(txs, cloneTransaction(tx))
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID > txs[j].ID })
	return txs, nil
}

type LoanStore struct {
	mu    sync.RWMutex
	seq   int64
	loans map[string]*domain.Loan
}

var _ repository.LoanRepository = (*LoanStore)(nil)

func NewLoanStore() *LoanStore {
	return &LoanStore{loans: make(map[string]*domain.Loan)}
}

func (s *LoanStore) Create(_ context.Context, loan *domain.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.loans[loan.LoanID]; exists {
		return repository.ErrDuplicate
	}

	s.seq++
	loan.ID = s.seq
	now := time.Now().UTC()
	loan.CreatedAt = now
	loan.UpdatedAt = now
	s.loans[loan.LoanID] = cloneLoan(loan)
	return nil
}

func (s *LoanStore) GetByLoanID(_ context.Context, loanID string) (*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneLoan(loan), nil
}

func (s *LoanStore) ListByUser(_ context.Context, userID int64) ([]*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var loans []*domain.Loan
	for _, loan := range s.loans {
		if loan.UserID == userID {
			loans = append(loans, cloneLoan(loan))
		}
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID > loans[j].ID })
	return loans, nil
}

func (s *LoanStore) List(_ context.Context, limit, offset int) ([]*domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.Loan, 0, len(s.loans))
	for _, loan := range s.loans {
		all = append(all, cloneLoan(loan))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *LoanStore) ApplyPayment(_ context.Context, loanID string, amount decimal.Decimal) (*domain.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loan, ok := s.loans[loanID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	loan.ApplyPayment(amount)
	return cloneLoan(loan), nil
}

func (s *LoanStore) SummaryStats(_ context.Context) (*domain.LoanSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &domain.LoanSummary{
		TotalDisbursed:   decimal.Zero,
		TotalOutstanding: decimal.Zero,
		TotalCollected:   decimal.Zero,
	}
	for _, loan := range s.loans {
		summary.TotalLoans++
		switch loan.Status {
		case domain.LoanStatusActive:
			summary.ActiveLoans++
		case domain.LoanStatusCompleted:
			summary.CompletedLoans++
		}
		summary.TotalDisbursed = summary.TotalDisbursed.Add(loan.OriginalAmount)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(loan.OutstandingBalance)
		summary.TotalCollected = summary.TotalCollected.Add(loan.PaidAmount())
	}
	return summary, nil
}

// AttemptCounter is the in-memory stand-in for the Redis OTP attempt counter.
type AttemptCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewAttemptCounter() *AttemptCounter {
	return &AttemptCounter{counts: make(map[string]int)}
}

func (c *AttemptCounter) Increment(_ context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

func (c *AttemptCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, key)
	return nil
}

func cloneTransaction(tx *domain.Transaction) *domain.Transaction {
	out := *tx
	if tx.UserID != nil {
		v := *tx.UserID
		out.UserID = &v
	}
	if tx.LoanID != nil {
		v := *tx.LoanID
		out.LoanID = &v
	}
	if tx.PaidAt != nil {
		v := *tx.PaidAt
		out.PaidAt = &v
	}
	if tx.CompletedAt != nil {
		v := *tx.CompletedAt
		out.CompletedAt = &v
	}
	return &out
}

func cloneLoan(loan *domain.Loan) *domain.Loan {
	out := *loan
	if loan.CompletedAt != nil {
		v := *loan.CompletedAt
		out.CompletedAt = &v
	}
	return &out
}
