package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/victorlau/liuren-quota/internal/billing"
	"github.com/victorlau/liuren-quota/internal/codegen"
	"github.com/victorlau/liuren-quota/internal/ledger"
	"github.com/victorlau/liuren-quota/internal/store"
)

// CodeHandler serves privileged code management: manual issuance, top-ups,
// and listing.
type CodeHandler struct {
	ledger *ledger.Service
	tiers  *billing.Table
}

// NewCodeHandler constructs a CodeHandler.
func NewCodeHandler(svc *ledger.Service, tiers *billing.Table) *CodeHandler {
	return &CodeHandler{ledger: svc, tiers: tiers}
}

// createCodeRequest either names a plan or gives an explicit quota.
type createCodeRequest struct {
	Plan       string `json:"plan"`
	Quota      int    `json:"quota"`
	Phone      string `json:"phone"`
	ExpiryDays int    `json:"expiry_days"`
}

// Create issues a code manually. Plan names take precedence over an explicit
// quota; admin-issued codes have no expiry unless one is requested.
func (h *CodeHandler) Create(c *gin.Context) {
	var body createCodeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	quota := body.Quota
	if plan := strings.TrimSpace(body.Plan); plan != "" {
		planQuota, ok := h.tiers.QuotaForPlan(plan)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
			return
		}
		quota = planQuota
	}
	if quota <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quota must be positive"})
		return
	}
	if body.ExpiryDays < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expiry_days cannot be negative"})
		return
	}

	issued, err := h.ledger.Issue(c.Request.Context(), ledger.IssueParams{
		Quota:        quota,
		OwnerContact: strings.TrimSpace(body.Phone),
		Expiry:       time.Duration(body.ExpiryDays) * 24 * time.Hour,
	})
	if err != nil {
		respondAdminError(c, err)
		return
	}
	log.Infof("admin issued code %s (quota=%d)", issued.Code, issued.Quota)
	c.JSON(http.StatusCreated, gin.H{
		"success":          true,
		"code":             issued.Code,
		"quota":            issued.Quota,
		"default_password": issued.InitialPassword,
		"expires_at":       issued.ExpiresAt,
	})
}

// addQuotaRequest tops up an existing code.
type addQuotaRequest struct {
	Code           string `json:"code"`
	AdditionalUses int    `json:"additional_uses"`
}

// AddQuota raises a code's total quota.
func (h *CodeHandler) AddQuota(c *gin.Context) {
	var body addQuotaRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := codegen.Normalize(body.Code)
	if !codegen.Valid(code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code format, expected LR-XXXX-XXXX"})
		return
	}
	if body.AdditionalUses <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "additional_uses must be positive"})
		return
	}
	balance, err := h.ledger.AddQuota(c.Request.Context(), code, body.AdditionalUses)
	if err != nil {
		respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"code":      balance.Code,
		"new_total": balance.Total,
		"remaining": balance.Remaining,
	})
}

// List returns all live codes with masked contacts, newest first.
func (h *CodeHandler) List(c *gin.Context) {
	balances, err := h.ledger.List(c.Request.Context())
	if err != nil {
		respondAdminError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": balances, "count": len(balances)})
}

// respondAdminError maps ledger outcomes for the admin surface.
func respondAdminError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput), errors.Is(err, ledger.ErrInvalidQuota):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "access code not found"})
	case errors.Is(err, ledger.ErrContention):
		c.JSON(http.StatusConflict, gin.H{"error": "busy, please retry"})
	case errors.Is(err, ledger.ErrGenerationExhausted):
		log.WithError(err).Error("code generation exhausted")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not allocate a code"})
	case errors.Is(err, store.ErrUnavailable):
		log.WithError(err).Error("ledger store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	default:
		log.WithError(err).Error("unexpected ledger error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
