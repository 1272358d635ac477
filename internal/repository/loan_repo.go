// internal/repository/loan_repo.go
package repository

import (
	"context"
	"errors"

	"loanpay-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type LoanRepository interface {
	Create(ctx context.Context, loan *domain.Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Loan, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Loan, error)
	// ApplyPayment decrements the outstanding balance in one statement,
	// clamping at zero and completing the loan when fully repaid.
	ApplyPayment(ctx context.Context, loanID string, amount decimal.Decimal) (*domain.Loan, error)
	SummaryStats(ctx context.Context) (*domain.LoanSummary, error)
}

type loanRepo struct {
	db *pgxpool.Pool
}

func NewLoanRepository(db *pgxpool.Pool) LoanRepository {
	return &loanRepo{db: db}
}

const loanColumns = `
	id, loan_id, user_id, original_amount::text, outstanding_balance::text,
	interest_rate::text, term_months, status, created_at, updated_at, completed_at
`

func (r *loanRepo) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (
			loan_id, user_id, original_amount, outstanding_balance,
			interest_rate, term_months, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRow(ctx, query,
		loan.LoanID,
		loan.UserID,
		loan.OriginalAmount.StringFixed(2),
		loan.OutstandingBalance.StringFixed(2),
		loan.InterestRate.String(),
		loan.TermMonths,
		loan.Status,
	).Scan(&loan.ID, &loan.CreatedAt, &loan.UpdatedAt)
}

func (r *loanRepo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1`
	loan, err := scanLoan(r.db.QueryRow(ctx, query, loanID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return loan, err
}

func (r *loanRepo) ListByUser(ctx context.Context, userID int64) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLoans(rows)
}

func (r *loanRepo) List(ctx context.Context, limit, offset int) ([]*domain.Loan, error) {
	query := `
		SELECT ` + loanColumns + `
		FROM loans
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLoans(rows)
}

func (r *loanRepo) ApplyPayment(ctx context.Context, loanID string, amount decimal.Decimal) (*domain.Loan, error) {
	query := `
		UPDATE loans
		SET
			outstanding_balance = GREATEST(outstanding_balance - $2, 0),
			status = CASE WHEN outstanding_balance - $2 <= 0 THEN 'completed' ELSE status END,
			completed_at = CASE WHEN outstanding_balance - $2 <= 0 THEN NOW() ELSE completed_at END,
			updated_at = NOW()
		WHERE loan_id = $1
		RETURNING ` + loanColumns

	loan, err := scanLoan(r.db.QueryRow(ctx, query, loanID, amount.StringFixed(2)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return loan, err
}

func (r *loanRepo) SummaryStats(ctx context.Context) (*domain.LoanSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COALESCE(SUM(original_amount), 0)::text,
			COALESCE(SUM(outstanding_balance), 0)::text,
			COALESCE(SUM(original_amount - outstanding_balance), 0)::text
		FROM loans
	`

	var s domain.LoanSummary
	var disbursed, outstanding, collected string
	err := r.db.QueryRow(ctx, query).Scan(
		&s.TotalLoans,
		&s.ActiveLoans,
		&s.CompletedLoans,
		&disbursed,
		&outstanding,
		&collected,
	)
	if err != nil {
		return nil, err
	}

	s.TotalDisbursed, _ = decimal.NewFromString(disbursed)
	s.TotalOutstanding, _ = decimal.NewFromString(outstanding)
	s.TotalCollected, _ = decimal.NewFromString(collected)
	return &s, nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var loan domain.Loan
	var original, outstanding, rate string
	err := row.Scan(
		&loan.ID,
		&loan.LoanID,
		&loan.UserID,
		&original,
		&outstanding,
		&rate,
		&loan.TermMonths,
		&loan.Status,
		&loan.CreatedAt,
		&loan.UpdatedAt,
		&loan.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	loan.OriginalAmount, _ = decimal.NewFromString(original)
	loan.OutstandingBalance, _ = decimal.NewFromString(outstanding)
	loan.InterestRate, _ = decimal.NewFromString(rate)
	return &loan, nil
}

func collectLoans(rows pgx.Rows) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}
