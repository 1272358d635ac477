// internal/handler/payment_handler.go
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"loanpay-service/internal/domain"
	"loanpay-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	paymentUC   *usecase.PaymentUsecase
	reconcileUC *usecase.ReconcileUsecase
	otpUC       *usecase.OtpUsecase
	logger      *zap.Logger
}

func NewPaymentHandler(
	paymentUC *usecase.PaymentUsecase,
	reconcileUC *usecase.ReconcileUsecase,
	otpUC *usecase.OtpUsecase,
	logger *zap.Logger,
) *PaymentHandler {
	return &PaymentHandler{
		paymentUC:   paymentUC,
		reconcileUC: reconcileUC,
		otpUC:       otpUC,
		logger:      logger,
	}
}

// HandleCreatePayment initiates a mobile money payment.
func (h *PaymentHandler) HandleCreatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode payment request", zap.Error(err))
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	tx, err := h.paymentUC.CreatePayment(ctx, &req)
	if err != nil {
		h.logger.Warn("payment creation rejected",
			zap.String("method", req.Method),
			zap.Error(err))
		sendError(w, statusFor(err), "failed to create payment", err)
		return
	}

	data := map[string]interface{}{
		"reference":    tx.Reference,
		"status":       tx.Status,
		"method":       tx.Method,
		"amount":       tx.Amount,
		"requires_otp": tx.OtpURL != "",
	}
	if tx.RedirectURL != "" {
		data["redirect_url"] = tx.RedirectURL
	}
	if tx.Instructions != "" {
		data["instructions"] = tx.Instructions
	}
	if tx.LoanID != nil {
		data["loan_id"] = *tx.LoanID
	}

	sendSuccess(w, http.StatusCreated, "payment initiated", data)
}

// HandleCheckStatus polls the gateway and returns the reconciled status.
func (h *PaymentHandler) HandleCheckStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reference := chi.URLParam(r, "reference")

	view, err := h.reconcileUC.CheckStatus(ctx, reference)
	if err != nil {
		sendError(w, statusFor(err), "failed to check payment status", err)
		return
	}

	sendSuccess(w, http.StatusOK, "payment status", view)
}

// HandleSubmitOtp submits a one-time code for a pending omari payment.
func (h *PaymentHandler) HandleSubmitOtp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.OtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode otp request", zap.Error(err))
		sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	outcome, err := h.otpUC.SubmitOtp(ctx, &req)
	if err != nil {
		sendError(w, statusFor(err), "otp submission failed", err)
		return
	}

	sendSuccess(w, http.StatusOK, "otp accepted", outcome)
}

// HandleListTransactions returns recent transactions, newest first.
func (h *PaymentHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	txs, err := h.paymentUC.ListTransactions(ctx, limit, offset)
	if err != nil {
		h.logger.Error("failed to list transactions", zap.Error(err))
		sendError(w, http.StatusInternalServerError, "failed to list transactions", err)
		return
	}

	sendSuccess(w, http.StatusOK, "transactions", map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}
