// internal/handler/webhook_handler.go
package handler

import (
	"errors"
	"io"
	"net/http"

	"loanpay-service/internal/usecase"

	"go.uber.org/zap"
)

type WebhookHandler struct {
	reconcileUC *usecase.ReconcileUsecase
	logger      *zap.Logger
}

func NewWebhookHandler(reconcileUC *usecase.ReconcileUsecase, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconcileUC: reconcileUC,
		logger:      logger,
	}
}

// HandlePaynowResult handles the asynchronous result callback from Paynow.
// Paynow expects a plain-text body; anything but OK triggers a retry on its
// side, so an unknown reference is still acknowledged.
func (h *WebhookHandler) HandlePaynowResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.logger.Info("received paynow result callback",
		zap.String("remote_addr", r.RemoteAddr))

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read result payload", zap.Error(err))
		h.sendPlain(w, http.StatusBadRequest, "ERROR")
		return
	}

	if err := h.reconcileUC.HandleGatewayResult(ctx, payload); err != nil {
		if errors.Is(err, usecase.ErrTransactionNotFound) {
			h.logger.Warn("result callback for unknown reference")
			h.sendPlain(w, http.StatusOK, "OK")
			return
		}
		h.logger.Error("failed to process result callback", zap.Error(err))
		h.sendPlain(w, http.StatusBadRequest, "ERROR")
		return
	}

	h.sendPlain(w, http.StatusOK, "OK")
}

func (h *WebhookHandler) sendPlain(w http.ResponseWriter, statusCode int, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(body)); err != nil {
		h.logger.Error("failed to write callback response", zap.Error(err))
	}
}
