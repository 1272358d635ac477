package domain

import (
	"testing"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		from TransactionStatus
		to   TransactionStatus
		want bool
	}{
		{"pending to paid", StatusPending, StatusPaid, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"pending to pending", StatusPending, StatusPending, false},
		{"paid to failed", StatusPaid, StatusFailed, false},
		{"paid to pending", StatusPaid, StatusPending, false},
		{"paid to cancelled", StatusPaid, StatusCancelled, false},
		{"cancelled to paid", StatusCancelled, StatusPaid, false},
		{"failed to paid", StatusFailed, StatusPaid, false},
		{"failed to pending", StatusFailed, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status TransactionStatus
		want   bool
	}{
		{StatusPending, false},
		{StatusPaid, true},
		{StatusCancelled, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		input   string
		want    PaymentMethod
		wantErr bool
	}{
		{"ecocash", MethodEcocash, false},
		{"EcoCash", MethodEcocash, false},
		{" onemoney ", MethodOnemoney, false},
		{"innbucks", MethodInnbucks, false},
		{"OMARI", MethodOmari, false},
		{"mpesa", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMethod(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRequiresOtp(t *testing.T) {
	if !MethodOmari.RequiresOtp() {
		t.Error("omari should require otp")
	}
	for _, m := range []PaymentMethod{MethodEcocash, MethodOnemoney, MethodInnbucks} {
		if m.RequiresOtp() {
			t.Errorf("%s should not require otp", m)
		}
	}
}

func TestPaymentRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     PaymentRequest
		wantErr bool
	}{
		{
			name: "valid local phone",
			req:  PaymentRequest{PhoneNumber: "0771234567", Amount: "50.00", Method: "ecocash"},
		},
		{
			name: "valid international phone",
			req:  PaymentRequest{PhoneNumber: "+263771234567", Amount: "100", Method: "omari"},
		},
		{
			name:    "missing phone",
			req:     PaymentRequest{Amount: "50", Method: "ecocash"},
			wantErr: true,
		},
		{
			name:    "bad phone format",
			req:     PaymentRequest{PhoneNumber: "12345", Amount: "50", Method: "ecocash"},
			wantErr: true,
		},
		{
			name:    "missing amount",
			req:     PaymentRequest{PhoneNumber: "0771234567", Method: "ecocash"},
			wantErr: true,
		},
		{
			name:    "non-numeric amount",
			req:     PaymentRequest{PhoneNumber: "0771234567", Amount: "fifty", Method: "ecocash"},
			wantErr: true,
		},
		{
			name:    "zero amount",
			req:     PaymentRequest{PhoneNumber: "0771234567", Amount: "0", Method: "ecocash"},
			wantErr: true,
		},
		{
			name:    "negative amount",
			req:     PaymentRequest{PhoneNumber: "0771234567", Amount: "-10", Method: "ecocash"},
			wantErr: true,
		},
		{
			name:    "amount over cap",
			req:     PaymentRequest{PhoneNumber: "0771234567", Amount: "10000.01", Method: "ecocash"},
			wantErr: true,
		},
		{
			name: "amount exactly at cap",
			req:  PaymentRequest{PhoneNumber: "0771234567", Amount: "10000", Method: "ecocash"},
		},
		{
			name:    "unsupported method",
			req:     PaymentRequest{PhoneNumber: "0771234567", Amount: "50", Method: "paypal"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if tt.req.ParsedAmount.IsZero() {
					t.Error("ParsedAmount not set after successful validation")
				}
				if tt.req.ParsedMethod == "" {
					t.Error("ParsedMethod not set after successful validation")
				}
			}
		})
	}
}

func TestOtpRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     OtpRequest
		wantErr bool
	}{
		{"valid", OtpRequest{Reference: "LP-123", Otp: "123456"}, false},
		{"padded otp", OtpRequest{Reference: "LP-123", Otp: " 123456 "}, false},
		{"missing reference", OtpRequest{Otp: "123456"}, true},
		{"short otp", OtpRequest{Reference: "LP-123", Otp: "12345"}, true},
		{"long otp", OtpRequest{Reference: "LP-123", Otp: "1234567"}, true},
		{"alpha otp", OtpRequest{Reference: "LP-123", Otp: "12a456"}, true},
		{"empty otp", OtpRequest{Reference: "LP-123"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
