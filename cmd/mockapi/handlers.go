package main

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/domain/user"
	"github.com/Livingbruce/nextstep-mentorship-sub001/internal/infrastructure/crypto"
	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/jwt"
	"github.com/Livingbruce/nextstep-mentorship-sub001/pkg/logger"
)

// account is a seeded mock credential.
type account struct {
	user         user.User
	passwordHash string
}

// seedCredentials mirrors the fixtures the frontend team develops against.
var seedCredentials = []struct {
	email    string
	password string
	name     string
	role     string
	admin    bool
	approved bool
}{
	{"counselor@nextstep.dev", "counselor123", "Dana Counselor", "counselor", false, true},
	{"admin@nextstep.dev", "admin123", "Avery Admin", "counselor", true, true},
	{"pending@nextstep.dev", "pending123", "Pat Pending", "counselor", false, false},
}

type authHandler struct {
	jwtManager *jwt.Manager
	tokenTTL   time.Duration
	hasher     *crypto.Argon2Hasher
	log        logger.Logger

	mu       sync.Mutex
	accounts map[string]*account // keyed by email
	revoked  map[string]bool     // token IDs revoked via /revoke
}

func newAuthHandler(jwtManager *jwt.Manager, tokenTTL time.Duration, log logger.Logger) (*authHandler, error) {
	hasher := crypto.DefaultArgon2Hasher()

	accounts := make(map[string]*account, len(seedCredentials))
	for _, seed := range seedCredentials {
		hash, err := hasher.Hash(seed.password)
		if err != nil {
			return nil, err
		}
		accounts[seed.email] = &account{
			user: user.User{
				ID:       uuid.New().String(),
				Email:    seed.email,
				Name:     seed.name,
				Role:     seed.role,
				IsAdmin:  seed.admin,
				Approved: seed.approved,
			},
			passwordHash: hash,
		}
	}

	return &authHandler{
		jwtManager: jwtManager,
		tokenTTL:   tokenTTL,
		hasher:     hasher,
		log:        log,
		accounts:   accounts,
		revoked:    make(map[string]bool),
	}, nil
}

type loginRequest struct {
	Identifier string `json:"identifier" binding:"required"`
	Secret     string `json:"secret" binding:"required"`
}

// Login handles POST /api/auth/login.
func (h *authHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "invalid_request",
			"error_description": "identifier and secret are required",
		})
		return
	}

	h.mu.Lock()
	acct, ok := h.accounts[strings.ToLower(strings.TrimSpace(req.Identifier))]
	h.mu.Unlock()

	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_credentials",
			"error_description": "invalid email or password",
		})
		return
	}

	valid, err := h.hasher.Verify(req.Secret, acct.passwordHash)
	if err != nil || !valid {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_credentials",
			"error_description": "invalid email or password",
		})
		return
	}

	if !acct.user.Approved {
		c.JSON(http.StatusForbidden, gin.H{
			"error":             "account_not_approved",
			"error_description": "your account is awaiting approval",
		})
		return
	}

	token, err := h.jwtManager.CreateAccessToken(
		acct.user.ID,
		acct.user.Email,
		acct.user.Name,
		acct.user.Role,
		acct.user.IsAdmin,
		h.tokenTTL,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":             "server_error",
			"error_description": "failed to issue token",
		})
		return
	}

	h.log.Info("issued token",
		logger.Component("mockapi"),
		logger.UserID(acct.user.ID),
	)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  acct.user,
	})
}

// Me handles GET /api/auth/me.
func (h *authHandler) Me(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	h.mu.Lock()
	var u *user.User
	for _, acct := range h.accounts {
		if acct.user.ID == claims.Subject {
			copied := acct.user
			u = &copied
			break
		}
	}
	h.mu.Unlock()

	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "unknown_user",
			"error_description": "token subject no longer exists",
		})
		return
	}

	c.JSON(http.StatusOK, u)
}

// Revoke handles POST /api/auth/revoke. It marks the presented token as
// revoked so subsequent /me calls return 401, which is how the client's
// revocation path gets exercised during development.
func (h *authHandler) Revoke(c *gin.Context) {
	claims, ok := h.authenticate(c)
	if !ok {
		return
	}

	h.mu.Lock()
	h.revoked[claims.ID] = true
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

// authenticate validates the bearer token and rejects revoked tokens.
func (h *authHandler) authenticate(c *gin.Context) (*jwt.AccessTokenClaims, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "missing_token",
			"error_description": "authorization header required",
		})
		return nil, false
	}

	claims, err := h.jwtManager.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "invalid_token",
			"error_description": "token is invalid or expired",
		})
		return nil, false
	}

	h.mu.Lock()
	revoked := h.revoked[claims.ID]
	h.mu.Unlock()

	if revoked {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":             "token_revoked",
			"error_description": "token has been revoked",
		})
		return nil, false
	}

	return claims, true
}
