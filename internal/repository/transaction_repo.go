// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"errors"

	"loanpay-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate reference")
)

// DispatchResult carries the gateway-issued locators stored after a
// successful dispatch.
type DispatchResult struct {
	PollURL      string
	RedirectURL  string
	Instructions string
	GatewayRef   string
	OtpURL       string
	OtpReference string
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	SetDispatchResult(ctx context.Context, reference string, res *DispatchResult) error
	// SetGatewayStatus records the raw gateway status string for a still
	// pending transaction without moving the local status machine.
	SetGatewayStatus(ctx context.Context, reference, rawStatus, gatewayRef string) error
	// TransitionStatus advances a pending transaction to a terminal status.
	// It reports whether the transition happened; a transaction already in a
	// terminal state is left untouched.
	TransitionStatus(ctx context.Context, reference string, next domain.TransactionStatus) (bool, error)
	// SetError marks a pending transaction failed with an error message.
	SetError(ctx context.Context, reference, message string) error
	SetOtpOutcome(ctx context.Context, reference, pollURL, gatewayRef string) error
	List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error)
	ListByLoan(ctx context.Context, loanID string) ([]*domain.Transaction, error)
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

const transactionColumns = `
	id, reference, user_id, loan_id, phone_number, amount::text, method,
	transaction_type, status, gateway_status, poll_url, otp_url, otp_reference,
	gateway_reference, redirect_url, instructions, error_message,
	created_at, updated_at, paid_at, completed_at
`

func (r *transactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			reference, user_id, loan_id, phone_number, amount, method,
			transaction_type, status, gateway_status, poll_url, otp_url,
			otp_reference, gateway_reference, redirect_url, instructions, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		tx.Reference,
		tx.UserID,
		tx.LoanID,
		tx.PhoneNumber,
		tx.Amount.StringFixed(2),
		tx.Method,
		tx.Type,
		tx.Status,
		tx.GatewayStatus,
		tx.PollURL,
		tx.OtpURL,
		tx.OtpReference,
		tx.GatewayRef,
		tx.RedirectURL,
		tx.Instructions,
		tx.ErrorMessage,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

func (r *transactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	tx, err := scanTransaction(r.db.QueryRow(ctx, query, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return tx, err
}

func (r *transactionRepo) SetDispatchResult(ctx context.Context, reference string, res *DispatchResult) error {
	query := `
		UPDATE transactions
		SET
			poll_url = $2,
			redirect_url = $3,
			instructions = $4,
			gateway_reference = $5,
			otp_url = $6,
			otp_reference = $7,
			updated_at = NOW()
		WHERE reference = $1
	`

	_, err := r.db.Exec(ctx, query, reference,
		res.PollURL, res.RedirectURL, res.Instructions,
		res.GatewayRef, res.OtpURL, res.OtpReference)
	return err
}

func (r *transactionRepo) SetGatewayStatus(ctx context.Context, reference, rawStatus, gatewayRef string) error {
	query := `
		UPDATE transactions
		SET
			gateway_status = $2,
			gateway_reference = COALESCE(NULLIF($3, ''), gateway_reference),
			updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
	`

	_, err := r.db.Exec(ctx, query, reference, rawStatus, gatewayRef)
	return err
}

func (r *transactionRepo) TransitionStatus(ctx context.Context, reference string, next domain.TransactionStatus) (bool, error) {
	if !domain.StatusPending.CanTransitionTo(next) {
		return false, nil
	}

	query := `
		UPDATE transactions
		SET
			status = $2,
			gateway_status = $2,
			paid_at = CASE WHEN $2::text = 'paid' THEN NOW() ELSE paid_at END,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, reference, next)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *transactionRepo) SetError(ctx context.Context, reference, message string) error {
	query := `
		UPDATE transactions
		SET
			status = 'failed',
			error_message = $2,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
	`

	_, err := r.db.Exec(ctx, query, reference, message)
	return err
}

func (r *transactionRepo) SetOtpOutcome(ctx context.Context, reference, pollURL, gatewayRef string) error {
	query := `
		UPDATE transactions
		SET
			poll_url = COALESCE(NULLIF($2, ''), poll_url),
			gateway_reference = COALESCE(NULLIF($3, ''), gateway_reference),
			updated_at = NOW()
		WHERE reference = $1 AND status = 'pending'
	`

	_, err := r.db.Exec(ctx, query, reference, pollURL, gatewayRef)
	return err
}

func (r *transactionRepo) List(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func (r *transactionRepo) ListByLoan(ctx context.Context, loanID string) ([]*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE loan_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	var amount string
	err := row.Scan(
		&tx.ID,
		&tx.Reference,
		&tx.UserID,
		&tx.LoanID,
		&tx.PhoneNumber,
		&amount,
		&tx.Method,
		&tx.Type,
		&tx.Status,
		&tx.GatewayStatus,
		&tx.PollURL,
		&tx.OtpURL,
		&tx.OtpReference,
		&tx.GatewayRef,
		&tx.RedirectURL,
		&tx.Instructions,
		&tx.ErrorMessage,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&tx.PaidAt,
		&tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	tx.Amount, _ = decimal.NewFromString(amount)
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}
