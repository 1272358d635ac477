// internal/usecase/otp_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider"
	"loanpay-service/internal/rate"
	"loanpay-service/internal/repository"

	"go.uber.org/zap"
)

// maxOtpAttempts bounds OTP retries per transaction; exhaustion closes the
// transaction as failed.
const maxOtpAttempts = 5

type OtpUsecase struct {
	txRepo   repository.TransactionRepository
	gateway  provider.Gateway
	attempts rate.Counter
	logger   *zap.Logger
}

func NewOtpUsecase(
	txRepo repository.TransactionRepository,
	gateway provider.Gateway,
	attempts rate.Counter,
	logger *zap.Logger,
) *OtpUsecase {
	return &OtpUsecase{
		txRepo:   txRepo,
		gateway:  gateway,
		attempts: attempts,
		logger:   logger,
	}
}

type OtpOutcome struct {
	Reference     string `json:"reference"`
	PaymentStatus string `json:"payment_status"`
}

// SubmitOtp forwards a one-time code for a multistage payment. Attempts are
// counted per reference; the fifth failed code marks the transaction failed
// with no ledger effect.
func (uc *OtpUsecase) SubmitOtp(ctx context.Context, req *domain.OtpRequest) (*OtpOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	tx, err := uc.txRepo.GetByReference(ctx, req.Reference)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}

	if !tx.Method.RequiresOtp() {
		return nil, ErrOtpNotSupported
	}
	if tx.Status.Terminal() {
		return nil, ErrTransactionClosed
	}
	if tx.OtpURL == "" {
		return nil, ErrNoOtpURL
	}

	attempt, err := uc.attempts.Increment(ctx, tx.Reference)
	if err != nil {
		return nil, fmt.Errorf("count otp attempt: %w", err)
	}
	if attempt > maxOtpAttempts {
		uc.failExhausted(ctx, tx)
		return nil, ErrOtpAttemptsExhausted
	}

	res, err := uc.gateway.SubmitOtp(ctx, tx.OtpURL, req.Otp)
	if err != nil {
		uc.logger.Error("otp submission failed",
			zap.String("reference", tx.Reference),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrGateway, err)
	}

	if !res.Success {
		remaining := maxOtpAttempts - attempt
		uc.logger.Warn("gateway rejected otp",
			zap.String("reference", tx.Reference),
			zap.Int("attempt", attempt),
			zap.Int("remaining", remaining))
		if remaining <= 0 {
			uc.failExhausted(ctx, tx)
			return nil, ErrOtpAttemptsExhausted
		}
		return nil, fmt.Errorf("%w: %s (%d attempts remaining)", ErrInvalidOtp, res.Error, remaining)
	}

	_ = uc.attempts.Reset(ctx, tx.Reference)
	if err := uc.txRepo.SetOtpOutcome(ctx, tx.Reference, res.PollURL, res.GatewayRef); err != nil {
		return nil, fmt.Errorf("store otp outcome: %w", err)
	}

	uc.logger.Info("otp accepted",
		zap.String("reference", tx.Reference),
		zap.String("payment_status", res.Status))

	return &OtpOutcome{Reference: tx.Reference, PaymentStatus: res.Status}, nil
}

func (uc *OtpUsecase) failExhausted(ctx context.Context, tx *domain.Transaction) {
	transitioned, err := uc.txRepo.TransitionStatus(ctx, tx.Reference, domain.StatusFailed)
	if err != nil {
		uc.logger.Error("failed to close transaction after otp exhaustion",
			zap.String("reference", tx.Reference),
			zap.Error(err))
		return
	}
	if transitioned {
		uc.logger.Warn("otp attempts exhausted, transaction failed",
			zap.String("reference", tx.Reference))
	}
}
