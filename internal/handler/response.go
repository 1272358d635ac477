// internal/handler/response.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"loanpay-service/internal/usecase"
)

func sendSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"success": true,
		"message": message,
	}
	if data != nil {
		response["data"] = data
	}

	json.NewEncoder(w).Encode(response)
}

func sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := map[string]interface{}{
		"success": false,
		"message": message,
	}
	if err != nil {
		response["error"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}

// statusFor maps usecase errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, usecase.ErrInvalidOtp),
		errors.Is(err, usecase.ErrOtpNotSupported),
		errors.Is(err, usecase.ErrNoOtpURL),
		errors.Is(err, usecase.ErrOtpAttemptsExhausted),
		errors.Is(err, usecase.ErrLoanNotActive),
		errors.Is(err, usecase.ErrAmountExceedsBalance):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrTransactionNotFound),
		errors.Is(err, usecase.ErrLoanNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrDuplicateReference):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrTransactionClosed):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
