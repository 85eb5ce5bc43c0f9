package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"stock_pro/internal/auth"
)

const identityKey = "identity"

type authHandler struct {
	authenticator auth.Authenticator
	tokens        *auth.TokenIssuer
	logger        *zap.Logger
}

func newAuthHandler(authenticator auth.Authenticator, tokens *auth.TokenIssuer, logger *zap.Logger) *authHandler {
	return &authHandler{
		authenticator: authenticator,
		tokens:        tokens,
		logger:        logger,
	}
}

type sessionResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Identity  auth.Identity `json:"identity"`
}

func (h *authHandler) handleLogin(c *gin.Context) {
	var creds auth.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	id, err := h.authenticator.SignIn(c.Request.Context(), creds)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	h.issue(c, http.StatusOK, id)
}

func (h *authHandler) handleProvider(c *gin.Context) {
	id, err := h.authenticator.SignInWithProvider(c.Request.Context())
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	h.issue(c, http.StatusOK, id)
}

func (h *authHandler) handleRegister(c *gin.Context) {
	var creds auth.Credentials
	if err := c.ShouldBindJSON(&creds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	id, err := h.authenticator.Register(c.Request.Context(), creds)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	h.issue(c, http.StatusCreated, id)
}

func (h *authHandler) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, c.MustGet(identityKey))
}

func (h *authHandler) issue(c *gin.Context, status int, id auth.Identity) {
	token, expires, err := h.tokens.Issue(id)
	if err != nil {
		h.logger.Error("failed to issue token", zap.String("email", id.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, sessionResponse{Token: token, ExpiresAt: expires, Identity: id})
}

func (h *authHandler) writeAuthError(c *gin.Context, err error) {
	reason := auth.Reason(err)
	switch {
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, auth.ErrWrongCredential):
		c.JSON(http.StatusUnauthorized, gin.H{"error": reason})
	case errors.Is(err, auth.ErrAlreadyRegistered):
		c.JSON(http.StatusConflict, gin.H{"error": reason})
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": reason, "detail": err.Error()})
	case errors.Is(err, auth.ErrProviderDisabled):
		c.JSON(http.StatusForbidden, gin.H{"error": reason, "detail": err.Error()})
	default:
		h.logger.Error("authentication failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": reason})
	}
}

// requireToken rejects requests without a valid bearer token.
func requireToken(tokens *auth.TokenIssuer, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := tokens.Verify(raw)
		if err != nil {
			logger.Debug("rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(identityKey, auth.Identity{Email: claims.Email, Provider: claims.Provider})
		c.Next()
	}
}
