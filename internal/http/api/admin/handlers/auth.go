package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/victorlau/liuren-quota/internal/security"
)

// AuthHandler exchanges the admin secret for a session token.
type AuthHandler struct {
	adminSecret string
	jwtSecret   string
	tokenTTL    time.Duration
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(adminSecret, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{adminSecret: adminSecret, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// loginRequest carries the configured admin secret.
type loginRequest struct {
	Password string `json:"password"`
}

// Login verifies the admin secret and issues a session JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if !security.CheckAdminSecret(h.adminSecret, body.Password) {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid admin password"})
		return
	}
	token, err := security.GenerateAdminToken(h.jwtSecret, h.tokenTTL)
	if err != nil {
		log.WithError(err).Error("sign admin token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(h.tokenTTL.Seconds())})
}
