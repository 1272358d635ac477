// internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider"
	"loanpay-service/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconcileUsecase converges client polls and gateway result callbacks onto
// one guarded status-update path, and applies completed loan payments to the
// ledger exactly once.
type ReconcileUsecase struct {
	txRepo   repository.TransactionRepository
	loanRepo repository.LoanRepository
	gateway  provider.Gateway
	logger   *zap.Logger
}

func NewReconcileUsecase(
	txRepo repository.TransactionRepository,
	loanRepo repository.LoanRepository,
	gateway provider.Gateway,
	logger *zap.Logger,
) *ReconcileUsecase {
	return &ReconcileUsecase{
		txRepo:   txRepo,
		loanRepo: loanRepo,
		gateway:  gateway,
		logger:   logger,
	}
}

type StatusView struct {
	Reference     string                   `json:"reference"`
	Status        domain.TransactionStatus `json:"status"`
	GatewayStatus string                   `json:"gateway_status,omitempty"`
	Paid          bool                     `json:"paid"`
	Amount        decimal.Decimal          `json:"amount"`
	Method        domain.PaymentMethod     `json:"method"`
	CreatedAt     time.Time                `json:"created_at"`
}

// CheckStatus polls the gateway for a pending transaction and applies the
// result. A transaction already in a terminal state is returned as stored;
// the gateway is not consulted, so a late poll can never regress it.
func (uc *ReconcileUsecase) CheckStatus(ctx context.Context, reference string) (*StatusView, error) {
	tx, err := uc.txRepo.GetByReference(ctx, reference)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTransactionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load transaction: %w", err)
	}

	if tx.Status.Terminal() || tx.PollURL == "" {
		return statusView(tx), nil
	}

	poll, err := uc.gateway.PollStatus(ctx, tx.PollURL)
	if err != nil {
		uc.logger.Error("status poll failed",
			zap.String("reference", reference),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrGateway, err)
	}

	uc.logger.Info("status poll result",
		zap.String("reference", reference),
		zap.String("gateway_status", poll.RawStatus),
		zap.Bool("paid", poll.Paid))

	updated, err := uc.applyGatewayStatus(ctx, tx, poll.Status, poll.RawStatus, poll.GatewayRef)
	if err != nil {
		return nil, err
	}
	return statusView(updated), nil
}

// HandleGatewayResult processes an asynchronous result callback. It converges
// on the same guarded update path as CheckStatus; a duplicate callback for an
// already settled transaction is acknowledged without any state change.
func (uc *ReconcileUsecase) HandleGatewayResult(ctx context.Context, payload []byte) error {
	update, err := uc.gateway.ParseResult(payload)
	if err != nil {
		uc.logger.Warn("rejected gateway result callback", zap.Error(err))
		return fmt.Errorf("%w: %s", ErrGateway, err)
	}

	uc.logger.Info("gateway result received",
		zap.String("reference", update.Reference),
		zap.String("gateway_status", update.RawStatus))

	tx, err := uc.txRepo.GetByReference(ctx, update.Reference)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTransactionNotFound
	}
	if err != nil {
		return fmt.Errorf("load transaction: %w", err)
	}

	if tx.Status.Terminal() {
		return nil
	}

	_, err = uc.applyGatewayStatus(ctx, tx, update.Status, update.RawStatus, update.GatewayRef)
	return err
}

// applyGatewayStatus advances the transaction per the transition table. The
// paid transition and the ledger mutation form one logical step: the ledger
// is touched only when the conditional write actually moved the status.
func (uc *ReconcileUsecase) applyGatewayStatus(
	ctx context.Context,
	tx *domain.Transaction,
	next domain.TransactionStatus,
	rawStatus, gatewayRef string,
) (*domain.Transaction, error) {
	switch {
	case next == domain.StatusPaid:
		transitioned, err := uc.txRepo.TransitionStatus(ctx, tx.Reference, domain.StatusPaid)
		if err != nil {
			return nil, fmt.Errorf("mark paid: %w", err)
		}
		if transitioned {
			uc.logger.Info("transaction paid",
				zap.String("reference", tx.Reference),
				zap.String("amount", tx.Amount.StringFixed(2)))
			uc.settleLoan(ctx, tx)
		}

	case next.Terminal():
		transitioned, err := uc.txRepo.TransitionStatus(ctx, tx.Reference, next)
		if err != nil {
			return nil, fmt.Errorf("transition to %s: %w", next, err)
		}
		if transitioned {
			uc.logger.Info("transaction closed",
				zap.String("reference", tx.Reference),
				zap.String("status", string(next)))
		}

	default:
		if err := uc.txRepo.SetGatewayStatus(ctx, tx.Reference, rawStatus, gatewayRef); err != nil {
			return nil, fmt.Errorf("record gateway status: %w", err)
		}
	}

	return uc.txRepo.GetByReference(ctx, tx.Reference)
}

// settleLoan applies a completed loan payment. Callers guarantee it runs at
// most once per transaction (only after a successful paid transition).
func (uc *ReconcileUsecase) settleLoan(ctx context.Context, tx *domain.Transaction) {
	if tx.Type != domain.TypeLoanPayment || tx.LoanID == nil {
		return
	}

	loan, err := uc.loanRepo.ApplyPayment(ctx, *tx.LoanID, tx.Amount)
	if err != nil {
		// The transaction is paid either way; the ledger needs manual review.
		uc.logger.Error("failed to apply loan payment",
			zap.String("reference", tx.Reference),
			zap.String("loan_id", *tx.LoanID),
			zap.Error(err))
		return
	}

	uc.logger.Info("loan payment applied",
		zap.String("reference", tx.Reference),
		zap.String("loan_id", loan.LoanID),
		zap.String("outstanding_balance", loan.OutstandingBalance.StringFixed(2)),
		zap.String("loan_status", string(loan.Status)))
}

func statusView(tx *domain.Transaction) *StatusView {
	return &StatusView{
		Reference:     tx.Reference,
		Status:        tx.Status,
		GatewayStatus: tx.GatewayStatus,
		Paid:          tx.Paid(),
		Amount:        tx.Amount,
		Method:        tx.Method,
		CreatedAt:     tx.CreatedAt,
	}
}
