// internal/domain/loan.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "active"
	LoanStatusCompleted LoanStatus = "completed"
)

// Loan tracks the outstanding balance for a disbursed loan. The balance only
// moves through ApplyPayment.
type Loan struct {
	ID                 int64           `json:"id"`
	LoanID             string          `json:"loan_id"`
	UserID             int64           `json:"user_id"`
	OriginalAmount     decimal.Decimal `json:"original_amount"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	InterestRate       decimal.Decimal `json:"interest_rate"`
	TermMonths         int             `json:"term_months"`
	Status             LoanStatus      `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	CompletedAt        *time.Time      `json:"completed_at,omitempty"`
}

func (l *Loan) Active() bool {
	return l.Status == LoanStatusActive && l.OutstandingBalance.GreaterThan(decimal.Zero)
}

// ApplyPayment decrements the outstanding balance. The balance clamps at zero
// and the loan completes when fully repaid; an over-payment never drives the
// balance negative.
func (l *Loan) ApplyPayment(amount decimal.Decimal) {
	now := time.Now().UTC()
	l.OutstandingBalance = l.OutstandingBalance.Sub(amount)
	if l.OutstandingBalance.LessThanOrEqual(decimal.Zero) {
		l.OutstandingBalance = decimal.Zero
		l.Status = LoanStatusCompleted
		l.CompletedAt = &now
	}
	l.UpdatedAt = now
}

// PaidAmount is the portion of the original amount repaid so far.
func (l *Loan) PaidAmount() decimal.Decimal {
	return l.OriginalAmount.Sub(l.OutstandingBalance)
}

// ProgressPercent is the repayment progress as 0-100.
func (l *Loan) ProgressPercent() float64 {
	if !l.OriginalAmount.GreaterThan(decimal.Zero) {
		return 0
	}
	pct, _ := l.PaidAmount().Div(l.OriginalAmount).Mul(decimal.NewFromInt(100)).Float64()
	if pct > 100 {
		return 100
	}
	return pct
}

// LoanSummary aggregates portfolio totals for the admin listing.
type LoanSummary struct {
	TotalLoans       int             `json:"total_loans"`
	ActiveLoans      int             `json:"active_loans"`
	CompletedLoans   int             `json:"completed_loans"`
	TotalDisbursed   decimal.Decimal `json:"total_disbursed"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalCollected   decimal.Decimal `json:"total_collected"`
}
