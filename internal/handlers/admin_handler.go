package handlers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"zap-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// AdminAuthHandler issues admin tokens for the operator endpoints.
type AdminAuthHandler struct {
	jwtSecret []byte
	logger    *logrus.Logger
}

// AdminLoginRequest is the admin login body.
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminJWTClaims carries the admin identity inside the token.
type AdminJWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// NewAdminAuthHandler creates the admin auth handler. The JWT secret comes
// from config (ADMIN_JWT_SECRET overrides); without one the admin API
// refuses logins instead of falling back to a baked-in secret.
func NewAdminAuthHandler(logger *logrus.Logger) *AdminAuthHandler {
	secret := adminJWTSecret()
	if len(secret) == 0 {
		logger.Warn("Admin JWT secret not configured; admin API is disabled")
	}
	return &AdminAuthHandler{jwtSecret: secret, logger: logger}
}

// AdminLoginHandler verifies operator credentials and issues a JWT.
// POST /api/admin/login
func (h *AdminAuthHandler) AdminLoginHandler(c *gin.Context) {
	if len(h.jwtSecret) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Server misconfiguration: admin JWT secret not set",
		})
		return
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Server misconfiguration: ADMIN_PASSWORD not set",
		})
		return
	}

	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Invalid request: %v", err),
		})
		return
	}

	expectedUsername := os.Getenv("ADMIN_USERNAME")
	if expectedUsername == "" {
		expectedUsername = "admin"
	}

	// Generic message on any credential mismatch.
	if req.Username != expectedUsername || req.Password != adminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid credentials",
		})
		return
	}

	token, err := h.generateAdminJWTToken(req.Username)
	if err != nil {
		h.logger.WithError(err).Error("Failed to sign admin token")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
	})
}

func (h *AdminAuthHandler) generateAdminJWTToken(username string) (string, error) {
	claims := AdminJWTClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "zap-backend-admin",
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateAdminJWTToken parses and verifies an admin token.
func ValidateAdminJWTToken(tokenString string) (*AdminJWTClaims, error) {
	secret := adminJWTSecret()
	if len(secret) == 0 {
		return nil, fmt.Errorf("admin JWT secret not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &AdminJWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*AdminJWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func adminJWTSecret() []byte {
	if env := os.Getenv("ADMIN_JWT_SECRET"); env != "" {
		return []byte(env)
	}
	if config.AppConfig != nil && config.AppConfig.Admin.JWTSecret != "" {
		return []byte(config.AppConfig.Admin.JWTSecret)
	}
	return nil
}

// AdminZapHandler exposes operator tooling over the orchestration engine.
type AdminZapHandler struct {
	engine ZapEngine
	logger *logrus.Logger
}

// NewAdminZapHandler creates the admin operations handler.
func NewAdminZapHandler(engine ZapEngine, logger *logrus.Logger) *AdminZapHandler {
	return &AdminZapHandler{engine: engine, logger: logger}
}

// AttestationRequeryRequest is the attestation requery body.
type AttestationRequeryRequest struct {
	Network string `json:"network" binding:"required"`
	TxHash  string `json:"tx_hash" binding:"required"`
}

// AttestationRequeryHandler fetches the attestation for a burn transaction
// on demand, for diagnosing operations stuck mid handoff.
// POST /api/admin/attestation/requery
func (h *AdminZapHandler) AttestationRequeryHandler(c *gin.Context) {
	var req AttestationRequeryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	attestation, err := h.engine.RequeryAttestation(c.Request.Context(), req.Network, req.TxHash)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"network": req.Network,
			"tx_hash": req.TxHash,
		}).WithError(err).Warn("Attestation requery failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   err.Error(),
			"code":    "REQUERY_FAILED",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     attestation.Message,
		"attestation": attestation.Attestation,
	})
}
