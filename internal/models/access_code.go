package models

import "time"

// AccessCodeRecord represents a prepaid access code and its usage ledger.
// Records are stored as JSON values in the key-value store, keyed by code.
type AccessCodeRecord struct {
	Code         string     `json:"code"`                    // Canonical code, e.g. LR-AB3D-7F2K. Primary key.
	PasswordHash string     `json:"password_hash"`           // bcrypt digest of the redemption password.
	TotalUses    int        `json:"total_uses"`              // Quota ever granted; only ever increases.
	UsedCount    int        `json:"used_count"`              // Successful consumptions; never exceeds TotalUses.
	OwnerContact string     `json:"owner_contact,omitempty"` // Phone or email used to derive the default password.
	PayPalOrder  string     `json:"paypal_order,omitempty"`  // Originating PayPal order ID, if purchased.
	CreatedAt    time.Time  `json:"created_at"`              // Creation timestamp.
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`    // Expiry time; nil means no expiry.
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`  // Most recent successful consumption.
}

// Remaining returns the unconsumed balance.
func (r *AccessCodeRecord) Remaining() int {
	return r.TotalUses - r.UsedCount
}

// Expired reports whether the record is past its expiry at the given instant.
func (r *AccessCodeRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// Usage log actions.
const (
	ActionConsume        = "consume"
	ActionAddQuota       = "add_quota"
	ActionPasswordChange = "password_change"
)

// UsageLogEntry is an append-only audit record for a ledger event.
// Entries are written best effort with a bounded TTL and never read back
// by the service itself.
type UsageLogEntry struct {
	Code           string    `json:"code"`
	Action         string    `json:"action"`
	Timestamp      time.Time `json:"timestamp"`
	RemainingAfter int       `json:"remaining_after"`
}
