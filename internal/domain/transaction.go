// internal/domain/transaction.go
package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string
type TransactionType string
type TransactionStatus string

const (
	MethodEcocash  PaymentMethod = "ecocash"
	MethodOnemoney PaymentMethod = "onemoney"
	MethodInnbucks PaymentMethod = "innbucks"
	MethodOmari    PaymentMethod = "omari"
)

const (
	TypeLoanPayment TransactionType = "loan_payment"
	TypeGeneral     TransactionType = "general"
)

const (
	StatusPending   TransactionStatus = "pending"
	StatusPaid      TransactionStatus = "paid"
	StatusCancelled TransactionStatus = "cancelled"
	StatusFailed    TransactionStatus = "failed"
)

// allowedTransitions is the full status machine. Terminal statuses have no
// outgoing edges, so a late "pending" update can never regress a settled
// transaction.
var allowedTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:   {StatusPaid, StatusCancelled, StatusFailed},
	StatusPaid:      {},
	StatusCancelled: {},
	StatusFailed:    {},
}

func (s TransactionStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0 && s != StatusPending
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToLower(strings.TrimSpace(s))) {
	case MethodEcocash:
		return MethodEcocash, nil
	case MethodOnemoney:
		return MethodOnemoney, nil
	case MethodInnbucks:
		return MethodInnbucks, nil
	case MethodOmari:
		return MethodOmari, nil
	default:
		return "", fmt.Errorf("unsupported payment method: %q", s)
	}
}

// RequiresOtp reports whether the method settles through the OTP flow.
func (m PaymentMethod) RequiresOtp() bool {
	return m == MethodOmari
}

// Transaction is one payment attempt against the gateway. It is created at
// initiation time, mutated only by status updates, never deleted.
type Transaction struct {
	ID            int64             `json:"id"`
	Reference     string            `json:"reference"`
	UserID        *int64            `json:"user_id,omitempty"`
	LoanID        *string           `json:"loan_id,omitempty"`
	PhoneNumber   string            `json:"phone_number"`
	Amount        decimal.Decimal   `json:"amount"`
	Method        PaymentMethod     `json:"method"`
	Type          TransactionType   `json:"transaction_type"`
	Status        TransactionStatus `json:"status"`
	GatewayStatus string            `json:"gateway_status,omitempty"`
	PollURL       string            `json:"poll_url,omitempty"`
	OtpURL        string            `json:"otp_url,omitempty"`
	OtpReference  string            `json:"otp_reference,omitempty"`
	GatewayRef    string            `json:"gateway_reference,omitempty"`
	RedirectURL   string            `json:"redirect_url,omitempty"`
	Instructions  string            `json:"instructions,omitempty"`
	ErrorMessage  string            `json:"error_message,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// Paid reports whether the transaction has settled.
func (t *Transaction) Paid() bool {
	return t.Status == StatusPaid
}

var (
	phonePattern = regexp.MustCompile(`^(\+263|0)[0-9]{9}$`)
	otpPattern   = regexp.MustCompile(`^[0-9]{6}$`)
)

// maxPaymentAmount is the per-transaction cap carried over from the
// request validation rules.
var maxPaymentAmount = decimal.NewFromInt(10000)

// PaymentRequest is the client-facing payment initiation payload. Validate
// normalizes the raw fields into ParsedAmount and ParsedMethod.
type PaymentRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Amount      string `json:"amount"`
	Method      string `json:"method"`
	LoanID      string `json:"loanId,omitempty"`
	UserID      *int64 `json:"userId,omitempty"`
	Email       string `json:"email,omitempty"`

	ParsedAmount decimal.Decimal `json:"-"`
	ParsedMethod PaymentMethod   `json:"-"`
}

func (r *PaymentRequest) Validate() error {
	r.PhoneNumber = strings.TrimSpace(r.PhoneNumber)
	if r.PhoneNumber == "" {
		return errors.New("phoneNumber is required")
	}
	if !phonePattern.MatchString(r.PhoneNumber) {
		return errors.New("invalid phone number format, expected +263XXXXXXXXX or 0XXXXXXXXX")
	}

	if strings.TrimSpace(r.Amount) == "" {
		return errors.New("amount is required")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return fmt.Errorf("invalid amount format: %q", r.Amount)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("amount must be greater than 0")
	}
	if amount.GreaterThan(maxPaymentAmount) {
		return errors.New("amount cannot exceed 10000")
	}

	method, err := ParseMethod(r.Method)
	if err != nil {
		return err
	}

	r.ParsedAmount = amount
	r.ParsedMethod = method
	return nil
}

// OtpRequest is the one-time-code submission payload for multistage methods.
type OtpRequest struct {
	Reference string `json:"reference"`
	Otp       string `json:"otp"`
}

func (r *OtpRequest) Validate() error {
	r.Reference = strings.TrimSpace(r.Reference)
	if r.Reference == "" {
		return errors.New("reference is required")
	}
	r.Otp = strings.TrimSpace(r.Otp)
	if !otpPattern.MatchString(r.Otp) {
		return errors.New("otp must be a 6-digit number")
	}
	return nil
}
