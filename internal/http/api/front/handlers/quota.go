package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/victorlau/liuren-quota/internal/codegen"
	"github.com/victorlau/liuren-quota/internal/ledger"
)

// QuotaHandler serves the end-user code endpoints: balance check, quota
// consumption, and password change.
type QuotaHandler struct {
	ledger *ledger.Service
}

// NewQuotaHandler constructs a QuotaHandler.
func NewQuotaHandler(svc *ledger.Service) *QuotaHandler {
	return &QuotaHandler{ledger: svc}
}

// checkQuotaRequest carries a code and its redemption password.
type checkQuotaRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

// Check verifies the code and password and returns the balance. Read only.
func (h *QuotaHandler) Check(c *gin.Context) {
	var body checkQuotaRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code, password, ok := normalizeCredentials(c, body.Code, body.Password)
	if !ok {
		return
	}
	balance, err := h.ledger.Check(c.Request.Context(), code, password)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"code":       balance.Code,
		"remaining":  balance.Remaining,
		"total":      balance.Total,
		"used":       balance.Used,
		"contact":    balance.Contact,
		"created_at": balance.CreatedAt,
		"expires_at": balance.ExpiresAt,
	})
}

// Use spends one unit of quota. The password is re-checked inside the
// atomic consumption path.
func (h *QuotaHandler) Use(c *gin.Context) {
	var body checkQuotaRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code, password, ok := normalizeCredentials(c, body.Code, body.Password)
	if !ok {
		return
	}
	balance, err := h.ledger.Consume(c.Request.Context(), code, password)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"remaining": balance.Remaining,
		"total":     balance.Total,
		"used":      balance.Used,
	})
}

// updatePasswordRequest carries the re-authentication and the new password.
type updatePasswordRequest struct {
	Code        string `json:"code"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// UpdatePassword changes a code's redemption password.
func (h *QuotaHandler) UpdatePassword(c *gin.Context) {
	var body updatePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code, oldPassword, ok := normalizeCredentials(c, body.Code, body.OldPassword)
	if !ok {
		return
	}
	newPassword := strings.TrimSpace(body.NewPassword)
	if newPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing new_password"})
		return
	}
	if err := h.ledger.UpdatePassword(c.Request.Context(), code, oldPassword, newPassword); err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// normalizeCredentials validates the code format and password presence before
// the core is called, writing the 400 itself on failure.
func normalizeCredentials(c *gin.Context, code, password string) (string, string, bool) {
	canonical := codegen.Normalize(code)
	if !codegen.Valid(canonical) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code format, expected LR-XXXX-XXXX"})
		return "", "", false
	}
	password = strings.TrimSpace(password)
	if password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing password"})
		return "", "", false
	}
	return canonical, password, true
}
