package restapi

import (
	"errors"
	"io"
	"net/http"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// SessionHandler exposes the session controller over HTTP.
type SessionHandler struct {
	controller port.SessionController
	logger     port.Logger
}

// NewSessionHandler creates a new instance of SessionHandler.
func NewSessionHandler(sc port.SessionController, l port.Logger) *SessionHandler {
	return &SessionHandler{
		controller: sc,
		logger:     l,
	}
}

// GetSessionHandler returns the current wallet session snapshot.
func (h *SessionHandler) GetSessionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, newSessionResponse(h.controller.Session(), h.controller.Network()))
}

// ConnectHandler asks the signing provider for access. The body is optional.
func (h *SessionHandler) ConnectHandler(c *gin.Context) {
	var req ConnectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.badRequest(c, "request body must be a JSON object")
			return
		}
	}

	if err := h.controller.ConnectWithKey(c.Request.Context(), req.Account); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(h.controller.Session(), h.controller.Network()))
}

// ListTokensHandler returns the tracked tokens in insertion order.
func (h *SessionHandler) ListTokensHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tokens": newTokenResponses(h.controller.Tokens())})
}

// AddTokenHandler tracks a new token contract.
func (h *SessionHandler) AddTokenHandler(c *gin.Context) {
	var req AddTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "request body must be a JSON object with an address field")
		return
	}

	token, err := h.controller.AddToken(c.Request.Context(), req.Address)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTokenResponse(token))
}

// RefreshTokensHandler re-reads all token balances.
func (h *SessionHandler) RefreshTokensHandler(c *gin.Context) {
	if err := h.controller.RefreshTokens(c.Request.Context()); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": newTokenResponses(h.controller.Tokens())})
}

// ListHistoryHandler returns the last fetched transaction history.
func (h *SessionHandler) ListHistoryHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"transactions": newHistoryResponses(h.controller.History(), h.controller.Network())})
}

// RefreshHistoryHandler refetches the history of the connected account.
func (h *SessionHandler) RefreshHistoryHandler(c *gin.Context) {
	if err := h.controller.RefreshHistory(c.Request.Context()); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": newHistoryResponses(h.controller.History(), h.controller.Network())})
}

func (h *SessionHandler) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, APIErrorResponse{Error: APIError{Code: "bad_request", Message: msg}})
}

func (h *SessionHandler) renderError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	} else {
		h.logger.Debug("Request rejected", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, APIErrorResponse{Error: newAPIError(err)})
}

// statusFor maps error codes to HTTP statuses.
func statusFor(err error) int {
	switch entity.ErrorCode(err) {
	case "token_invalid_address", "invalid_address", "key_material_rejected":
		return http.StatusBadRequest
	case "access_rejected":
		return http.StatusForbidden
	case "duplicate_token", "no_account", "superseded":
		return http.StatusConflict
	case "not_a_token", "not_a_contract", "revert":
		return http.StatusUnprocessableEntity
	case "network_unreachable":
		return http.StatusBadGateway
	case "provider_not_found", "session_closed":
		return http.StatusServiceUnavailable
	case "timeout":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
