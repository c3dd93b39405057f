package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/service"
)

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	authService *service.AuthService
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
	}
}

// Challenge handles the challenge request
func (h *AuthHandlers) Challenge(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, challenge, err := h.authService.CreateChallenge(req.Address)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create challenge"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"nonce":      challenge.Nonce,
		"expires_at": challenge.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		ChallengeToken string `json:"challenge_token" binding:"required"`
		Message        string `json:"message" binding:"required"`
		Signature      string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	accessToken, session, err := h.authService.Login(c.Request.Context(), req.ChallengeToken, req.Message, req.Signature)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errorMsg := "Authentication failed"

		switch {
		case errors.Is(err, core.ErrTokenExpired):
			statusCode = http.StatusBadRequest
			errorMsg = "Challenge token expired"
		case errors.Is(err, core.ErrInvalidToken):
			statusCode = http.StatusBadRequest
			errorMsg = "Invalid challenge token"
		case errors.Is(err, core.ErrInvalidChallenge):
			statusCode = http.StatusBadRequest
			errorMsg = "Message does not match challenge"
		case errors.Is(err, core.ErrTokenInvalidated):
			statusCode = http.StatusUnauthorized
			errorMsg = "Challenge already used"
		case errors.Is(err, core.ErrInvalidSignature):
			statusCode = http.StatusUnauthorized
			errorMsg = "Invalid signature"
		}

		c.JSON(statusCode, gin.H{"error": errorMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int(time.Until(session.AccessExpiry).Round(time.Second).Seconds()),
	})
}

// Me returns the address of the authenticated wallet
func (h *AuthHandlers) Me(c *gin.Context) {
	address, ok := sessionAddress(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address})
}

// SubnameHandlers contains HTTP handlers for subname claims
type SubnameHandlers struct {
	subnames *service.SubnameService
}

// NewSubnameHandlers creates new subname handlers
func NewSubnameHandlers(subnames *service.SubnameService) *SubnameHandlers {
	return &SubnameHandlers{subnames: subnames}
}

// Available reports whether a label can still be claimed
func (h *SubnameHandlers) Available(c *gin.Context) {
	label := c.Query("label")
	fullName, ok, err := h.subnames.Available(c.Request.Context(), label)
	if err != nil {
		if errors.Is(err, core.ErrInvalidLabel) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid label"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to check subname availability",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"label":     label,
		"full_name": fullName,
		"available": ok,
	})
}

// Create claims a subname for the signed in wallet
func (h *SubnameHandlers) Create(c *gin.Context) {
	var req struct {
		Label       string `json:"label"`
		Address     string `json:"address"`
		DisplayName string `json:"displayName"`
		PfpURL      string `json:"pfpUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Label == "" || req.Address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields: label and address are required"})
		return
	}

	// The body address must be the wallet that signed in.
	if sessionAddr, ok := sessionAddress(c); ok {
		addr, err := core.ParseAddress(req.Address)
		if err == nil && addr != sessionAddr {
			c.JSON(http.StatusForbidden, gin.H{"error": "Address does not match signed in wallet"})
			return
		}
	}

	subname, err := h.subnames.Claim(c.Request.Context(), service.ClaimRequest{
		Label:       req.Label,
		Address:     req.Address,
		DisplayName: req.DisplayName,
		AvatarURL:   req.PfpURL,
	})
	if err != nil {
		var conflict *core.ConflictError
		switch {
		case errors.As(err, &conflict):
			c.JSON(http.StatusConflict, gin.H{"error": conflictMessage(conflict), "existing": conflict.Existing})
		case errors.Is(err, core.ErrZeroAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot create subname for zero address"})
		case errors.Is(err, core.ErrInvalidAddress):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		case errors.Is(err, core.ErrInvalidLabel):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid label"})
		case errors.Is(err, core.ErrSubnameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "Subname with this label already exists"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subname", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    subname,
		"message": "Subname created successfully",
	})
}

func conflictMessage(err *core.ConflictError) string {
	switch {
	case errors.Is(err, core.ErrSubnameTaken):
		return "Subname with this label already exists"
	case errors.Is(err, core.ErrAddressHasSubname):
		return "Address already has a subname"
	default:
		return err.Error()
	}
}

// IdentityHandlers contains HTTP handlers for identity resolution
type IdentityHandlers struct {
	identities *service.IdentityService
}

// NewIdentityHandlers creates new identity handlers
func NewIdentityHandlers(identities *service.IdentityService) *IdentityHandlers {
	return &IdentityHandlers{identities: identities}
}

// Get resolves the display identity of an address
func (h *IdentityHandlers) Get(c *gin.Context) {
	h.resolve(c, h.identities.Resolve)
}

// Refresh drops the cached lookup of the signed in wallet and resolves again
func (h *IdentityHandlers) Refresh(c *gin.Context) {
	sessionAddr, ok := sessionAddress(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
		return
	}
	addr, err := core.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		return
	}
	if addr != sessionAddr {
		c.JSON(http.StatusForbidden, gin.H{"error": "Address does not match signed in wallet"})
		return
	}
	h.resolve(c, h.identities.Refresh)
}

func (h *IdentityHandlers) resolve(c *gin.Context, fn func(context.Context, service.IdentityQuery) (core.Identity, error)) {
	id, err := fn(c.Request.Context(), service.IdentityQuery{
		Address:        c.Param("address"),
		FallbackName:   c.Query("fallbackName"),
		FallbackAvatar: c.Query("fallbackAvatar"),
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidAddress) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve identity", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, id)
}
