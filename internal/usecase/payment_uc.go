// internal/usecase/payment_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider"
	"loanpay-service/internal/repository"
	"loanpay-service/pkg/id"

	"go.uber.org/zap"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrLoanNotFound         = errors.New("loan not found")
	ErrLoanNotActive        = errors.New("loan is not active")
	ErrAmountExceedsBalance = errors.New("amount exceeds outstanding balance")
	ErrDuplicateReference   = errors.New("duplicate transaction reference")
	ErrGateway              = errors.New("gateway request failed")
	ErrTransactionClosed    = errors.New("transaction already in a terminal state")
	ErrOtpNotSupported      = errors.New("otp submission is only available for omari payments")
	ErrNoOtpURL             = errors.New("no otp url available for this transaction")
	ErrInvalidOtp           = errors.New("invalid otp")
	ErrOtpAttemptsExhausted = errors.New("otp attempts exhausted")
)

const referencePrefix = "LP"

type PaymentUsecase struct {
	txRepo   repository.TransactionRepository
	loanRepo repository.LoanRepository
	gateway  provider.Gateway
	logger   *zap.Logger
}

func NewPaymentUsecase(
	txRepo repository.TransactionRepository,
	loanRepo repository.LoanRepository,
	gateway provider.Gateway,
	logger *zap.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		txRepo:   txRepo,
		loanRepo: loanRepo,
		gateway:  gateway,
		logger:   logger,
	}
}

// CreatePayment records a pending transaction and dispatches it to the
// gateway. A dispatch failure leaves the transaction failed, terminal; it is
// surfaced as a gateway error, never a panic.
func (uc *PaymentUsecase) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.Transaction, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	tx := &domain.Transaction{
		Reference:   id.NewReference(referencePrefix),
		UserID:      req.UserID,
		PhoneNumber: req.PhoneNumber,
		Amount:      req.ParsedAmount,
		Method:      req.ParsedMethod,
		Type:        domain.TypeGeneral,
		Status:      domain.StatusPending,
	}

	if req.LoanID != "" {
		loan, err := uc.loanRepo.GetByLoanID(ctx, req.LoanID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrLoanNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("load loan: %w", err)
		}
		if !loan.Active() {
			return nil, ErrLoanNotActive
		}
		if req.ParsedAmount.GreaterThan(loan.OutstandingBalance) {
			return nil, fmt.Errorf("%w: %s > %s",
				ErrAmountExceedsBalance, req.ParsedAmount.StringFixed(2), loan.OutstandingBalance.StringFixed(2))
		}

		loanID := loan.LoanID
		tx.LoanID = &loanID
		tx.Type = domain.TypeLoanPayment
	}

	if err := uc.txRepo.Create(ctx, tx); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateReference
		}
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	uc.logger.Info("payment initiated",
		zap.String("reference", tx.Reference),
		zap.String("method", string(tx.Method)),
		zap.String("amount", tx.Amount.StringFixed(2)),
		zap.String("type", string(tx.Type)))

	res, err := uc.gateway.CreatePayment(ctx, &provider.PaymentRequest{
		Reference:   tx.Reference,
		Amount:      tx.Amount,
		PhoneNumber: tx.PhoneNumber,
		Method:      tx.Method,
		Email:       req.Email,
	})
	if err != nil {
		uc.logger.Error("gateway dispatch failed",
			zap.String("reference", tx.Reference),
			zap.Error(err))
		_ = uc.txRepo.SetError(ctx, tx.Reference, err.Error())
		return nil, fmt.Errorf("%w: %s", ErrGateway, err)
	}
	if !res.Success {
		uc.logger.Warn("gateway rejected payment",
			zap.String("reference", tx.Reference),
			zap.String("error", res.Error))
		_ = uc.txRepo.SetError(ctx, tx.Reference, res.Error)
		return nil, fmt.Errorf("%w: %s", ErrGateway, res.Error)
	}

	dispatch := &repository.DispatchResult{
		PollURL:      res.PollURL,
		RedirectURL:  res.RedirectURL,
		Instructions: res.Instructions,
		GatewayRef:   res.GatewayRef,
		OtpURL:       res.OtpURL,
		OtpReference: res.OtpReference,
	}
	if err := uc.txRepo.SetDispatchResult(ctx, tx.Reference, dispatch); err != nil {
		return nil, fmt.Errorf("store dispatch result: %w", err)
	}

	tx.PollURL = res.PollURL
	tx.RedirectURL = res.RedirectURL
	tx.Instructions = res.Instructions
	tx.GatewayRef = res.GatewayRef
	tx.OtpURL = res.OtpURL
	tx.OtpReference = res.OtpReference

	uc.logger.Info("payment dispatched",
		zap.String("reference", tx.Reference),
		zap.Bool("requires_otp", tx.OtpURL != ""))

	return tx, nil
}

// ListTransactions returns recent transactions for the admin listing.
func (uc *PaymentUsecase) ListTransactions(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return uc.txRepo.List(ctx, limit, offset)
}
