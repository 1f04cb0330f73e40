package gocardless

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Sentinel errors for conditions callers need to branch on. APIError
// implements Is so these match through errors.Is even when wrapped.
var (
	// ErrCustomerDataRemoved signals that the remote party purged the
	// customer's personal data. Callers degrade counterparty fields
	// instead of failing the refresh.
	ErrCustomerDataRemoved = errors.New("customer data removed")

	// ErrInvalidCredentials signals a rejected email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidOTP signals a rejected one-time code.
	ErrInvalidOTP = errors.New("invalid one-time code")
)

// FieldError is a single entry of the remote error payload's errors array.
type FieldError struct {
	Reason   string            `json:"reason"`
	Field    string            `json:"field,omitempty"`
	Message  string            `json:"message,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// APIError is the structured error reported by the GoCardless API:
//
//	{ "error": { "type", "message", "reason"?, "errors": [...], "documentation_url" } }
type APIError struct {
	StatusCode       int          `json:"-"`
	Type             string       `json:"type"`
	Message          string       `json:"message"`
	Reason           string       `json:"reason,omitempty"`
	Errors           []FieldError `json:"errors,omitempty"`
	DocumentationURL string       `json:"documentation_url,omitempty"`
}

// Error returns a human-readable message including the remote error type and
// a documentation link for diagnostics.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("gocardless: %s (%s)", e.Message, e.Type)
	if e.DocumentationURL != "" {
		msg += " - see " + e.DocumentationURL
	}
	return msg
}

// HasReason reports whether the error or any of its sub-errors carries the
// given reason code.
func (e *APIError) HasReason(reason string) bool {
	if e.Reason == reason {
		return true
	}
	for _, fe := range e.Errors {
		if fe.Reason == reason {
			return true
		}
	}
	return false
}

// Is maps remote reason codes onto the package's sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrCustomerDataRemoved:
		return e.HasReason("customer_data_removed")
	case ErrInvalidCredentials:
		return e.HasReason("invalid_credentials")
	case ErrInvalidOTP:
		return e.HasReason("invalid_otp_code")
	}
	return false
}

// RateLimited reports whether the request was rejected by the API's rate
// limiter. The client recovers from these internally; callers never see them.
func (e *APIError) RateLimited() bool {
	return e.StatusCode == 429 || e.Type == "rate_limit_exceeded"
}

// OTPChallengeError is returned by Login when the account requires a second
// factor. It carries the delivery context so the host can tell the user where
// the code was sent.
type OTPChallengeError struct {
	// DeliveryChannel is how the code was delivered, e.g. "sms" or "totp".
	DeliveryChannel string
	// Hint is a masked destination, e.g. "+49*****123".
	Hint string
}

func (e *OTPChallengeError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("one-time code required (sent via %s to %s)", e.DeliveryChannel, e.Hint)
	}
	return fmt.Sprintf("one-time code required (via %s)", e.DeliveryChannel)
}

// decodeAPIError parses a remote error payload. A body that does not match
// the documented shape still yields a usable APIError carrying the status.
func decodeAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return &APIError{
			StatusCode: status,
			Type:       "unknown",
			Message:    fmt.Sprintf("unexpected response (HTTP %d)", status),
		}
	}
	envelope.Error.StatusCode = status
	return envelope.Error
}
