package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/victorlau/liuren-quota/internal/billing"
	"github.com/victorlau/liuren-quota/internal/config"
	"github.com/victorlau/liuren-quota/internal/ledger"
	"github.com/victorlau/liuren-quota/internal/paypal"
)

// phonePattern is the purchase contact requirement: at least eight digits.
var phonePattern = regexp.MustCompile(`^\d{8,}$`)

// PayPalHandler drives the purchase flow: create an order, then capture it
// and issue the access code the payment funded.
type PayPalHandler struct {
	gateway *paypal.Client
	ledger  *ledger.Service
	tiers   *billing.Table
	cfg     config.Config
}

// NewPayPalHandler constructs a PayPalHandler.
func NewPayPalHandler(gateway *paypal.Client, svc *ledger.Service, tiers *billing.Table, cfg config.Config) *PayPalHandler {
	return &PayPalHandler{gateway: gateway, ledger: svc, tiers: tiers, cfg: cfg}
}

// createOrderRequest selects the plan being purchased.
type createOrderRequest struct {
	Plan string `json:"plan"`
}

// CreateOrder opens a PayPal order priced from the configured plan table.
func (h *PayPalHandler) CreateOrder(c *gin.Context) {
	var body createOrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	plan := strings.TrimSpace(body.Plan)
	if plan == "" {
		plan = billing.PlanTriple
	}
	price, ok := h.cfg.PlanPrice(plan)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}
	quota, _ := h.tiers.QuotaForPlan(plan)
	orderID, err := h.gateway.CreateOrder(c.Request.Context(), price, h.cfg.PayPal.Currency, planDescription(quota))
	if err != nil {
		log.WithError(err).Error("paypal create order failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order_id": orderID})
}

// captureOrderRequest carries the approved order and the buyer's phone.
type captureOrderRequest struct {
	OrderID string `json:"order_id"`
	Phone   string `json:"phone"`
}

// CaptureOrder captures the payment and, only on a COMPLETED capture, issues
// a code sized by the captured amount. The plaintext default password is
// returned here exactly once.
func (h *PayPalHandler) CaptureOrder(c *gin.Context) {
	var body captureOrderRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	orderID := strings.TrimSpace(body.OrderID)
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing order_id"})
		return
	}
	phone := strings.TrimSpace(body.Phone)
	if !phonePattern.MatchString(phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone must be at least 8 digits"})
		return
	}

	capture, err := h.gateway.CaptureOrder(c.Request.Context(), orderID)
	if err != nil {
		log.WithError(err).Errorf("paypal capture failed (order=%s)", orderID)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway error"})
		return
	}
	if !capture.Completed() {
		log.Warnf("paypal capture not completed (order=%s status=%s)", orderID, capture.Status)
		respondLedgerError(c, ledger.ErrPaymentNotCompleted)
		return
	}

	quota := h.tiers.QuotaForAmount(capture.Amount)
	issued, err := h.ledger.Issue(c.Request.Context(), ledger.IssueParams{
		Quota:        quota,
		OwnerContact: phone,
		Expiry:       h.cfg.PurchaseExpiry(),
		PayPalOrder:  orderID,
	})
	if err != nil {
		log.WithError(err).Errorf("issue after capture failed (order=%s)", orderID)
		respondLedgerError(c, err)
		return
	}

	log.Infof("code issued for order %s (quota=%d)", orderID, quota)
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"code":             issued.Code,
		"quota":            issued.Quota,
		"default_password": issued.InitialPassword,
		"expires_at":       issued.ExpiresAt,
	})
}

func planDescription(quota int) string {
	if quota == 1 {
		return "Da Liu Ren reading - single session"
	}
	return "Da Liu Ren reading - multi session pack"
}
