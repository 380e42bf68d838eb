package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/victorlau/liuren-quota/internal/ledger"
	"github.com/victorlau/liuren-quota/internal/store"
)

// respondLedgerError maps the ledger's expected outcomes to HTTP statuses.
// Anything unexpected is logged and returned as a 500 without leaking
// internals.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidInput), errors.Is(err, ledger.ErrInvalidQuota):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "access code not found"})
	case errors.Is(err, ledger.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "password mismatch", "password_error": true})
	case errors.Is(err, ledger.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "access code expired"})
	case errors.Is(err, ledger.ErrQuotaExhausted):
		c.JSON(http.StatusForbidden, gin.H{"error": "quota exhausted"})
	case errors.Is(err, ledger.ErrContention):
		c.JSON(http.StatusConflict, gin.H{"error": "busy, please retry"})
	case errors.Is(err, ledger.ErrPaymentNotCompleted):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "payment not completed"})
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
