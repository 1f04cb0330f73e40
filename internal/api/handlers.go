// Package api exposes the host-facing HTTP contract: session management,
// account listing, and the refresh trigger returning synthesized balances
// and transactions.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lukasbestle/moneymoney-gocardless/internal/common/api"
	"github.com/lukasbestle/moneymoney-gocardless/internal/gocardless"
	"github.com/lukasbestle/moneymoney-gocardless/internal/ledger"
	"github.com/lukasbestle/moneymoney-gocardless/internal/session"
)

// Handler handles host-facing HTTP requests.
type Handler struct {
	gcConfig  gocardless.Config
	sessions  *session.Store
	publisher ledger.EventPublisher
	locale    string
	logger    *slog.Logger
}

// NewHandler creates a handler. publisher may be nil.
func NewHandler(gcConfig gocardless.Config, sessions *session.Store, publisher ledger.EventPublisher, locale string, logger *slog.Logger) *Handler {
	return &Handler{
		gcConfig:  gcConfig,
		sessions:  sessions,
		publisher: publisher,
		locale:    locale,
		logger:    logger,
	}
}

// Routes returns the host-facing routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/session", h.CreateSession)
	r.Get("/accounts", h.ListAccounts)
	r.Delete("/accounts/{accountID}/session", h.DeleteSession)
	r.Post("/accounts/{accountID}/refresh", h.Refresh)

	return r
}

// CreateSessionRequest is the login payload. OTPCode is set only on the
// second step of the handshake.
type CreateSessionRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	OTPCode  string `json:"otp_code"`
}

// AccountResponse is the host's view of the creditor account.
type AccountResponse struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// CreateSession handles POST /session: the two-step credential/OTP
// handshake. Each authentication outcome maps to a distinct response so the
// host can re-prompt, show a second-factor challenge, or fail hard.
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	client := gocardless.NewClient(h.gcConfig, "", h.logger)

	var token *gocardless.Token
	var err error
	if req.OTPCode != "" {
		token, err = client.LoginOTP(r.Context(), req.Email, req.Password, req.OTPCode)
	} else {
		token, err = client.Login(r.Context(), req.Email, req.Password)
	}
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	if err := h.sessions.Save(token.CreditorID, session.Session{
		Token:      token.AccessToken,
		CreditorID: token.CreditorID,
		Email:      req.Email,
	}); err != nil {
		api.InternalError(w, "failed to store session")
		return
	}

	account, err := h.describeAccount(r, token.AccessToken, token.CreditorID)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	api.WriteData(w, http.StatusCreated, account)
}

// ListAccounts handles GET /accounts: one account per stored session.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List()
	if err != nil {
		api.InternalError(w, "failed to list sessions")
		return
	}

	accounts := make([]AccountResponse, 0, len(sessions))
	for accountID, sess := range sessions {
		account, err := h.describeAccount(r, sess.Token, accountID)
		if err != nil {
			h.writeUpstreamError(w, err)
			return
		}
		accounts = append(accounts, account)
	}
	api.WriteData(w, http.StatusOK, accounts)
}

// DeleteSession handles DELETE /accounts/{accountID}/session.
func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if err := h.sessions.Delete(accountID); err != nil {
		api.InternalError(w, "failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshRequest is the refresh trigger payload. Since accepts an ISO 8601
// datetime or date.
type RefreshRequest struct {
	Since string `json:"since" validate:"required"`
}

// Refresh handles POST /accounts/{accountID}/refresh: runs one synchronous
// refresh cycle and returns the synthesized balances and transactions.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req RefreshRequest
	if err := api.DecodeAndValidate(r, &req); err != nil {
		api.ValidationError(w, err)
		return
	}

	since, err := gocardless.ParseTimestamp(req.Since)
	if err != nil {
		if since, err = gocardless.ParseDate(req.Since); err != nil {
			api.BadRequest(w, err.Error())
			return
		}
	}

	sess, err := h.sessions.Load(accountID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			api.Unauthorized(w, "no session for account, log in first")
			return
		}
		api.InternalError(w, "failed to load session")
		return
	}

	client := gocardless.NewClient(h.gcConfig, sess.Token, h.logger)
	service := ledger.NewService(client, accountID, h.locale, h.publisher, h.logger)

	result, err := service.Refresh(r.Context(), since)
	if err != nil {
		h.writeUpstreamError(w, err)
		return
	}
	api.WriteData(w, http.StatusOK, result)
}

func (h *Handler) describeAccount(r *http.Request, token, creditorID string) (AccountResponse, error) {
	client := gocardless.NewClient(h.gcConfig, token, h.logger)
	resolver := gocardless.NewResolver(client, gocardless.NewCache())

	creditor, err := resolver.Creditor(r.Context(), creditorID)
	if err != nil {
		return AccountResponse{}, err
	}
	return AccountResponse{
		AccountID: creditor.ID,
		Name:      creditor.Name,
		Currency:  creditor.FallbackCurrency,
	}, nil
}

// writeAuthError maps authentication outcomes onto distinct responses.
func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	var challenge *gocardless.OTPChallengeError
	switch {
	case errors.As(err, &challenge):
		api.WriteErrorWithDetails(w, http.StatusUnauthorized, api.ErrCodeOTPRequired, challenge.Error(), map[string]string{
			"delivery_channel": challenge.DeliveryChannel,
			"hint":             challenge.Hint,
		})
	case errors.Is(err, gocardless.ErrInvalidCredentials):
		api.Unauthorized(w, "invalid email or password")
	case errors.Is(err, gocardless.ErrInvalidOTP):
		api.Unauthorized(w, "invalid one-time code")
	default:
		h.writeUpstreamError(w, err)
	}
}

// writeUpstreamError surfaces a remote API failure with its type and
// documentation link for diagnostics.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error) {
	h.logger.Error("upstream request failed", "error", err)

	var apiErr *gocardless.APIError
	if errors.As(err, &apiErr) {
		api.WriteError(w, http.StatusBadGateway, api.ErrCodeUpstream, apiErr.Error())
		return
	}
	api.WriteError(w, http.StatusBadGateway, api.ErrCodeUpstream, err.Error())
}
