// internal/usecase/loan_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/repository"

	"go.uber.org/zap"
)

type LoanUsecase struct {
	loanRepo repository.LoanRepository
	txRepo   repository.TransactionRepository
	logger   *zap.Logger
}

func NewLoanUsecase(
	loanRepo repository.LoanRepository,
	txRepo repository.TransactionRepository,
	logger *zap.Logger,
) *LoanUsecase {
	return &LoanUsecase{
		loanRepo: loanRepo,
		txRepo:   txRepo,
		logger:   logger,
	}
}

// LoanDetail is a loan together with its repayment history.
type LoanDetail struct {
	Loan         *domain.Loan          `json:"loan"`
	Transactions []*domain.Transaction `json:"transactions"`
}

// LoanListing is the admin view: loans plus portfolio totals.
type LoanListing struct {
	Loans   []*domain.Loan      `json:"loans"`
	Summary *domain.LoanSummary `json:"summary"`
}

func (uc *LoanUsecase) GetLoan(ctx context.Context, loanID string) (*LoanDetail, error) {
	loan, err := uc.loanRepo.GetByLoanID(ctx, loanID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load loan: %w", err)
	}

	txs, err := uc.txRepo.ListByLoan(ctx, loan.LoanID)
	if err != nil {
		return nil, fmt.Errorf("load loan transactions: %w", err)
	}

	return &LoanDetail{Loan: loan, Transactions: txs}, nil
}

func (uc *LoanUsecase) ListLoans(ctx context.Context, limit, offset int) (*LoanListing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	loans, err := uc.loanRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}

	summary, err := uc.loanRepo.SummaryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("loan summary: %w", err)
	}

	return &LoanListing{Loans: loans, Summary: summary}, nil
}

func (uc *LoanUsecase) ListUserLoans(ctx context.Context, userID int64) ([]*domain.Loan, error) {
	loans, err := uc.loanRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user loans: %w", err)
	}
	return loans, nil
}
