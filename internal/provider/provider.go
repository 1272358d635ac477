// internal/provider/provider.go
package provider

import (
	"context"

	"loanpay-service/internal/domain"

	"github.com/shopspring/decimal"
)

// Gateway is the port to the mobile-money payment processor. Implementations
// convert provider-side rejections into non-success results; returned errors
// are transport failures only.
type Gateway interface {
	// CreatePayment dispatches a new payment to the gateway.
	CreatePayment(ctx context.Context, req *PaymentRequest) (*CreateResult, error)

	// PollStatus reads the current gateway status. Side-effect free and safe
	// to call repeatedly.
	PollStatus(ctx context.Context, pollURL string) (*StatusResult, error)

	// SubmitOtp forwards a one-time code for a multistage payment. Retries
	// are the caller's responsibility.
	SubmitOtp(ctx context.Context, otpURL, otp string) (*OtpResult, error)

	// ParseResult parses an asynchronous result callback from the gateway,
	// verifying its integrity.
	ParseResult(payload []byte) (*ResultUpdate, error)
}

type PaymentRequest struct {
	Reference   string
	Amount      decimal.Decimal
	PhoneNumber string
	Method      domain.PaymentMethod
	Email       string
}

type CreateResult struct {
	Success      bool
	PollURL      string
	RedirectURL  string
	Instructions string
	GatewayRef   string
	OtpURL       string
	OtpReference string
	Error        string
}

type StatusResult struct {
	Reference  string
	GatewayRef string
	Amount     decimal.Decimal
	Status     domain.TransactionStatus
	RawStatus  string
	Paid       bool
}

type OtpResult struct {
	Success    bool
	Status     string
	GatewayRef string
	PollURL    string
	Error      string
}

type ResultUpdate struct {
	Reference  string
	GatewayRef string
	Amount     decimal.Decimal
	Status     domain.TransactionStatus
	RawStatus  string
}
