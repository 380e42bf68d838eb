// Package ledger implements the access-code quota ledger: issuance with
// collision-free code creation, read-only redemption checks, atomic quota
// consumption, and administrative top-ups.
package ledger

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/victorlau/liuren-quota/internal/codegen"
	"github.com/victorlau/liuren-quota/internal/models"
	"github.com/victorlau/liuren-quota/internal/security"
	"github.com/victorlau/liuren-quota/internal/store"
	"github.com/victorlau/liuren-quota/internal/util"
)

const (
	// maxGenerateAttempts bounds the generate-and-create loop during issuance.
	maxGenerateAttempts = 10
	// maxSwapAttempts bounds the compare-and-swap retry loop on mutations.
	maxSwapAttempts = 5
	// defaultLogTTL bounds how long audit entries stay in the store.
	defaultLogTTL = 90 * 24 * time.Hour
)

// passwordPattern is the accepted redemption password shape: at least six
// digits, matching the default derived from an owner contact.
var passwordPattern = regexp.MustCompile(`^\d{6,}$`)

// Service coordinates all ledger operations against the backing store.
// It holds no mutable state of its own; concurrency correctness comes from
// the store's atomic primitives.
type Service struct {
	store  store.LedgerStore
	logTTL time.Duration
	now    func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLogTTL overrides the audit entry retention.
func WithLogTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.logTTL = ttl
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a ledger service over the given store.
func New(ledgerStore store.LedgerStore, opts ...Option) *Service {
	s := &Service{
		store:  ledgerStore,
		logTTL: defaultLogTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueParams describes a new code grant.
type IssueParams struct {
	Quota        int           // Number of uses to grant. Must be positive.
	OwnerContact string        // Optional phone/email; derives the default password.
	Expiry       time.Duration // Optional validity window; zero means no expiry.
	PayPalOrder  string        // Originating order ID for purchased codes.
}

// Issued is the one-time issuance result. InitialPassword is plaintext and
// unrecoverable afterward.
type Issued struct {
	Code            string     `json:"code"`
	InitialPassword string     `json:"initial_password"`
	Quota           int        `json:"quota"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// Balance is the redeemable state of a code.
type Balance struct {
	Code      string     `json:"code"`
	Remaining int        `json:"remaining"`
	Total     int        `json:"total"`
	Used      int        `json:"used"`
	Contact   string     `json:"contact,omitempty"` // Masked owner contact.
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func balanceOf(record *models.AccessCodeRecord) *Balance {
	return &Balance{
		Code:      record.Code,
		Remaining: record.Remaining(),
		Total:     record.TotalUses,
		Used:      record.UsedCount,
		Contact:   util.MaskContact(record.OwnerContact),
		CreatedAt: record.CreatedAt,
		ExpiresAt: record.ExpiresAt,
	}
}

// Issue creates a new access code with the given quota. The code is unique by
// construction: the final write is a create-if-absent, so two concurrent
// issuances can never claim the same code.
func (s *Service) Issue(ctx context.Context, params IssueParams) (*Issued, error) {
	if params.Quota <= 0 {
		return nil, ErrInvalidQuota
	}

	password := security.DefaultPassword(params.OwnerContact)
	if password == "" {
		random, err := security.RandomPassword()
		if err != nil {
			return nil, err
		}
		password = random
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &models.AccessCodeRecord{
		PasswordHash: hash,
		TotalUses:    params.Quota,
		UsedCount:    0,
		OwnerContact: params.OwnerContact,
		PayPalOrder:  params.PayPalOrder,
		CreatedAt:    now,
	}
	var ttl time.Duration
	if params.Expiry > 0 {
		expires := now.Add(params.Expiry)
		record.ExpiresAt = &expires
		ttl = params.Expiry
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code, errGen := codegen.Generate()
		if errGen != nil {
			return nil, errGen
		}
		record.Code = code
		created, errPut := s.store.PutIfAbsent(ctx, record, ttl)
		if errPut != nil {
			return nil, errPut
		}
		if created {
			return &Issued{
				Code:            code,
				InitialPassword: password,
				Quota:           params.Quota,
				ExpiresAt:       record.ExpiresAt,
			}, nil
		}
	}
	return nil, ErrGenerationExhausted
}

// Check verifies a code and password and returns the current balance without
// mutating anything. Expiry and absence are distinct outcomes.
func (s *Service) Check(ctx context.Context, code, password string) (*Balance, error) {
	record, _, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	if !security.CheckPassword(record.PasswordHash, password) {
		return nil, ErrUnauthorized
	}
	if record.Expired(s.now()) {
		return nil, ErrExpired
	}
	return balanceOf(record), nil
}

// Consume atomically spends one unit of quota. The decrement is a
// compare-and-swap keyed on the record's stored serialization: if another
// consumer wins the race the swap fails and the loop re-reads, so a code can
// never be spent more times than its balance allows.
func (s *Service) Consume(ctx context.Context, code, password string) (*Balance, error) {
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		record, raw, err := s.load(ctx, code)
		if err != nil {
			return nil, err
		}
		if !security.CheckPassword(record.PasswordHash, password) {
			return nil, ErrUnauthorized
		}
		now := s.now().UTC()
		if record.Expired(now) {
			return nil, ErrExpired
		}
		if record.UsedCount >= record.TotalUses {
			return nil, ErrQuotaExhausted
		}

		record.UsedCount++
		record.LastUsedAt = &now
		swapped, errSwap := s.store.CompareAndSwap(ctx, record.Code, raw, record)
		if errSwap != nil {
			return nil, errSwap
		}
		if !swapped {
			continue
		}

		s.appendLog(record, models.ActionConsume, now)
		return balanceOf(record), nil
	}
	return nil, ErrContention
}

// AddQuota raises a code's total quota. Top-ups only ever increase TotalUses;
// the swap loop is kept so a concurrent consumption cannot be overwritten.
func (s *Service) AddQuota(ctx context.Context, code string, additional int) (*Balance, error) {
	if additional <= 0 {
		return nil, ErrInvalidQuota
	}
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		record, raw, err := s.load(ctx, code)
		if err != nil {
			return nil, err
		}
		record.TotalUses += additional
		swapped, errSwap := s.store.CompareAndSwap(ctx, record.Code, raw, record)
		if errSwap != nil {
			return nil, errSwap
		}
		if !swapped {
			continue
		}

		s.appendLog(record, models.ActionAddQuota, s.now().UTC())
		return balanceOf(record), nil
	}
	return nil, ErrContention
}

// UpdatePassword swaps the redemption password after re-authenticating with
// the old one. The new password must be at least six digits.
func (s *Service) UpdatePassword(ctx context.Context, code, oldPassword, newPassword string) error {
	if !passwordPattern.MatchString(newPassword) {
		return ErrInvalidInput
	}
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}
	for attempt := 0; attempt < maxSwapAttempts; attempt++ {
		record, raw, errLoad := s.load(ctx, code)
		if errLoad != nil {
			return errLoad
		}
		if !security.CheckPassword(record.PasswordHash, oldPassword) {
			return ErrUnauthorized
		}
		record.PasswordHash = hash
		swapped, errSwap := s.store.CompareAndSwap(ctx, record.Code, raw, record)
		if errSwap != nil {
			return errSwap
		}
		if swapped {
			s.appendLog(record, models.ActionPasswordChange, s.now().UTC())
			return nil
		}
	}
	return ErrContention
}

// List returns the balances of all live codes, newest first.
func (s *Service) List(ctx context.Context) ([]*Balance, error) {
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	balances := make([]*Balance, 0, len(records))
	for _, record := range records {
		balances = append(balances, balanceOf(record))
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].CreatedAt.After(balances[j].CreatedAt)
	})
	return balances, nil
}

// load normalizes and validates the code before hitting the store.
func (s *Service) load(ctx context.Context, code string) (*models.AccessCodeRecord, string, error) {
	canonical := codegen.Normalize(code)
	if !codegen.Valid(canonical) {
		return nil, "", ErrInvalidInput
	}
	record, raw, err := s.store.Get(ctx, canonical)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return record, raw, nil
}

// appendLog writes an audit entry; failures are logged and swallowed so they
// never fail the surrounding operation.
func (s *Service) appendLog(record *models.AccessCodeRecord, action string, ts time.Time) {
	entry := &models.UsageLogEntry{
		Code:           record.Code,
		Action:         action,
		Timestamp:      ts,
		RemainingAfter: record.Remaining(),
	}
	// Detached context: the audit write must not be cut short by the
	// request's cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.AppendLog(ctx, entry, s.logTTL); err != nil {
		log.WithError(err).Warnf("usage log write failed (code=%s action=%s)", record.Code, action)
	}
}
