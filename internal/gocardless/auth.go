package gocardless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Token is the result of a completed authentication handshake. The token and
// creditor id are the only state that survives a refresh.
type Token struct {
	AccessToken string `json:"token"`
	CreditorID  string `json:"creditor"`
}

// loginRequest is the token-issuance payload. OTPCode is set only on the
// second step of the handshake.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTPCode  string `json:"otp_code,omitempty"`
}

// Login performs the credential step of the two-step handshake. Outcomes:
//
//   - success: the bearer token and creditor id are returned
//   - ErrInvalidCredentials: the host should re-prompt
//   - *OTPChallengeError: a second factor is required; call LoginOTP with
//     the code the user received via the challenge's delivery channel
//   - any other error: hard failure
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	return c.issueToken(ctx, loginRequest{Email: email, Password: password})
}

// LoginOTP performs the second-factor step of the handshake. A rejected code
// is returned as ErrInvalidOTP.
func (c *Client) LoginOTP(ctx context.Context, email, password, otpCode string) (*Token, error) {
	return c.issueToken(ctx, loginRequest{Email: email, Password: password, OTPCode: otpCode})
}

func (c *Client) issueToken(ctx context.Context, req loginRequest) (*Token, error) {
	body, err := c.post(ctx, "/access_tokens", map[string]loginRequest{"access_tokens": req})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.HasReason("otp_required") {
			return nil, otpChallenge(apiErr)
		}
		return nil, err
	}

	var envelope struct {
		AccessTokens *Token `json:"access_tokens"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.AccessTokens == nil {
		return nil, fmt.Errorf("decode access token response: %w", err)
	}
	if envelope.AccessTokens.AccessToken == "" {
		return nil, errors.New("access token response carries no token")
	}

	c.logger.Info("authenticated", "creditor_id", envelope.AccessTokens.CreditorID)
	return envelope.AccessTokens, nil
}

// otpChallenge extracts the delivery context of a second-factor challenge.
func otpChallenge(apiErr *APIError) *OTPChallengeError {
	challenge := &OTPChallengeError{DeliveryChannel: "unknown"}
	for _, fe := range apiErr.Errors {
		if fe.Reason != "otp_required" {
			continue
		}
		if ch := fe.Metadata["delivery_channel"]; ch != "" {
			challenge.DeliveryChannel = ch
		}
		challenge.Hint = fe.Metadata["hint"]
	}
	return challenge
}
