// internal/provider/paynow/paynow.go
package paynow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"loanpay-service/config"
	"loanpay-service/internal/domain"
	"loanpay-service/internal/provider"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://www.paynow.co.zw"
	remoteTxPath   = "/interface/remotetransaction"

	// Gateway calls use a short timeout; a timeout is an adapter failure,
	// not a retryable state.
	requestTimeout = 5 * time.Second
)

// ErrBadHash indicates a result callback whose hash does not verify against
// the integration key.
var ErrBadHash = errors.New("paynow: result hash verification failed")

// Client speaks the Paynow remote-transaction wire protocol: url-encoded form
// posts with an SHA-512 integrity hash over the field values.
type Client struct {
	integrationID  string
	integrationKey string
	returnURL      string
	resultURL      string
	baseURL        string
	httpClient     *http.Client
	logger         *zap.Logger
}

var _ provider.Gateway = (*Client)(nil)

func NewClient(cfg config.PaynowConfig, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		integrationID:  cfg.IntegrationID,
		integrationKey: cfg.IntegrationKey,
		returnURL:      cfg.ReturnURL,
		resultURL:      cfg.ResultURL,
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{Timeout: requestTimeout},
		logger:         logger,
	}
}

// CreatePayment dispatches a mobile-money payment. Provider-side rejections
// come back as a non-success result; only transport failures return an error.
func (c *Client) CreatePayment(ctx context.Context, req *provider.PaymentRequest) (*provider.CreateResult, error) {
	method := req.Method
	if method == domain.MethodInnbucks {
		// InnBucks payments ride the OneMoney channel.
		method = domain.MethodOnemoney
	}

	email := req.Email
	if email == "" {
		email = fmt.Sprintf("loan-user@%s", req.PhoneNumber)
	}

	fields := []field{
		{"resulturl", c.resultURL},
		{"returnurl", c.returnURL},
		{"reference", req.Reference},
		{"amount", req.Amount.StringFixed(2)},
		{"id", c.integrationID},
		{"additionalinfo", "Loan Repayment"},
		{"authemail", email},
		{"phone", req.PhoneNumber},
		{"method", string(method)},
		{"status", "Message"},
	}

	respFields, err := c.post(ctx, c.baseURL+remoteTxPath, encodeWithHash(fields, c.integrationKey))
	if err != nil {
		return nil, err
	}
	vals := valuesMap(respFields)

	if !strings.EqualFold(vals["status"], "ok") {
		errMsg := vals["error"]
		if errMsg == "" {
			errMsg = "payment rejected by gateway"
		}
		c.logger.Warn("paynow rejected payment",
			zap.String("reference", req.Reference),
			zap.String("method", string(req.Method)),
			zap.String("error", errMsg))
		return &provider.CreateResult{Success: false, Error: errMsg}, nil
	}

	res := &provider.CreateResult{
		Success:      true,
		PollURL:      vals["pollurl"],
		RedirectURL:  vals["browserurl"],
		GatewayRef:   vals["paynowreference"],
		OtpURL:       vals["remoteotpurl"],
		OtpReference: vals["otpreference"],
		Instructions: vals["instructions"],
	}
	if res.Instructions == "" {
		res.Instructions = defaultInstructions(req.Method, res)
	}

	c.logger.Info("paynow payment initiated",
		zap.String("reference", req.Reference),
		zap.String("method", string(req.Method)),
		zap.Bool("has_otp_url", res.OtpURL != ""))

	return res, nil
}

// PollStatus reads the gateway's current view of a transaction.
func (c *Client) PollStatus(ctx context.Context, pollURL string) (*provider.StatusResult, error) {
	respFields, err := c.post(ctx, pollURL, "")
	if err != nil {
		return nil, err
	}
	vals := valuesMap(respFields)

	raw := vals["status"]
	amount, _ := decimal.NewFromString(vals["amount"])
	status := MapStatus(raw)

	return &provider.StatusResult{
		Reference:  vals["reference"],
		GatewayRef: vals["paynowreference"],
		Amount:     amount,
		Status:     status,
		RawStatus:  raw,
		Paid:       status == domain.StatusPaid,
	}, nil
}

// SubmitOtp posts a one-time code to the gateway-issued OTP locator.
func (c *Client) SubmitOtp(ctx context.Context, otpURL, otp string) (*provider.OtpResult, error) {
	fields := []field{
		{"id", c.integrationID},
		{"otp", otp},
		{"status", "Message"},
	}

	respFields, err := c.post(ctx, otpURL, encodeWithHash(fields, c.integrationKey))
	if err != nil {
		return nil, err
	}
	vals := valuesMap(respFields)

	if strings.EqualFold(vals["status"], "error") {
		errMsg := vals["error"]
		if errMsg == "" {
			errMsg = "invalid otp"
		}
		return &provider.OtpResult{Success: false, Status: vals["status"], Error: errMsg}, nil
	}

	return &provider.OtpResult{
		Success:    true,
		Status:     vals["status"],
		GatewayRef: vals["paynowreference"],
		PollURL:    vals["pollurl"],
	}, nil
}

// ParseResult parses and verifies an asynchronous result callback posted to
// the result URL.
func (c *Client) ParseResult(payload []byte) (*provider.ResultUpdate, error) {
	fields, err := parseFields(string(payload))
	if err != nil {
		return nil, fmt.Errorf("parse result callback: %w", err)
	}
	if !verifyHash(fields, c.integrationKey) {
		return nil, ErrBadHash
	}
	vals := valuesMap(fields)

	reference := vals["reference"]
	if reference == "" {
		return nil, errors.New("result callback missing reference")
	}

	raw := vals["status"]
	amount, _ := decimal.NewFromString(vals["amount"])

	return &provider.ResultUpdate{
		Reference:  reference,
		GatewayRef: vals["paynowreference"],
		Amount:     amount,
		Status:     MapStatus(raw),
		RawStatus:  raw,
	}, nil
}

// MapStatus maps a raw Paynow status string onto the local status machine.
// Unknown and in-flight statuses stay pending.
func MapStatus(raw string) domain.TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid", "awaiting delivery", "delivered":
		return domain.StatusPaid
	case "cancelled":
		return domain.StatusCancelled
	case "failed", "disputed":
		return domain.StatusFailed
	default:
		return domain.StatusPending
	}
}

func (c *Client) post(ctx context.Context, url, body string) ([]field, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return parseFields(string(data))
}

func defaultInstructions(method domain.PaymentMethod, res *provider.CreateResult) string {
	switch method {
	case domain.MethodEcocash:
		return "Dial *151# on your EcoCash registered line and follow the prompts to complete payment."
	case domain.MethodOnemoney, domain.MethodInnbucks:
		return "Check your phone for payment instructions."
	case domain.MethodOmari:
		if res.RedirectURL != "" {
			return fmt.Sprintf("Complete your O'mari payment at: %s", res.RedirectURL)
		}
		if res.OtpURL != "" {
			return fmt.Sprintf("Enter the OTP sent to your phone to complete payment. OTP reference: %s", res.OtpReference)
		}
		return "Payment initiated via O'mari. Check your phone for payment instructions."
	default:
		return fmt.Sprintf("Payment initiated via %s. Check your phone for payment instructions.", strings.ToUpper(string(method)))
	}
}
