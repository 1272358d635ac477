// internal/handler/loan_handler.go
package handler

import (
	"net/http"
	"strconv"

	"loanpay-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type LoanHandler struct {
	loanUC *usecase.LoanUsecase
	logger *zap.Logger
}

func NewLoanHandler(loanUC *usecase.LoanUsecase, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{
		loanUC: loanUC,
		logger: logger,
	}
}

// HandleListLoans returns the loan portfolio with summary totals.
func (h *LoanHandler) HandleListLoans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	listing, err := h.loanUC.ListLoans(ctx, limit, offset)
	if err != nil {
		h.logger.Error("failed to list loans", zap.Error(err))
		sendError(w, http.StatusInternalServerError, "failed to list loans", err)
		return
	}

	sendSuccess(w, http.StatusOK, "loans", listing)
}

// HandleGetLoan returns one loan with its repayment history.
func (h *LoanHandler) HandleGetLoan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	loanID := chi.URLParam(r, "loanID")

	detail, err := h.loanUC.GetLoan(ctx, loanID)
	if err != nil {
		sendError(w, statusFor(err), "failed to load loan", err)
		return
	}

	sendSuccess(w, http.StatusOK, "loan", detail)
}

// HandleListUserLoans returns the loans belonging to one user.
func (h *LoanHandler) HandleListUserLoans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "invalid user id", err)
		return
	}

	loans, err := h.loanUC.ListUserLoans(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list user loans",
			zap.Int64("user_id", userID),
			zap.Error(err))
		sendError(w, http.StatusInternalServerError, "failed to list user loans", err)
		return
	}

	sendSuccess(w, http.StatusOK, "user loans", map[string]interface{}{
		"loans": loans,
		"count": len(loans),
	})
}
