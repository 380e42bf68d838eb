// Package store persists access-code records in an external key-value
// service. All shared state between concurrent requests lives here, so the
// interface surfaces the store's atomic primitives directly: create-if-absent
// for issuance and compare-and-swap for consumption.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/victorlau/liuren-quota/internal/models"
)

// Store errors.
var (
	// ErrNotFound indicates no record exists for the code.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = errors.New("store unavailable")
)

// LedgerStore is the persistence contract for access-code records.
//
// Get returns the record together with its raw serialized form; the raw bytes
// act as the version token for CompareAndSwap, so any concurrent mutation of
// the record invalidates a pending swap.
type LedgerStore interface {
	// Get fetches a record by canonical code. Returns ErrNotFound when absent.
	Get(ctx context.Context, code string) (*models.AccessCodeRecord, string, error)

	// PutIfAbsent creates a record only if the code is free. A zero ttl means
	// the record never expires from the store. Returns false when a record
	// already existed.
	PutIfAbsent(ctx context.Context, record *models.AccessCodeRecord, ttl time.Duration) (bool, error)

	// CompareAndSwap replaces the record only if its stored serialization still
	// equals expectedRaw, preserving any remaining TTL. Returns false on
	// conflict (including concurrent deletion).
	CompareAndSwap(ctx context.Context, code string, expectedRaw string, record *models.AccessCodeRecord) (bool, error)

	// AppendLog writes an audit entry with the given ttl. Best effort: callers
	// must not fail their operation on an AppendLog error.
	AppendLog(ctx context.Context, entry *models.UsageLogEntry, ttl time.Duration) error

	// List returns all live records. Admin use only.
	List(ctx context.Context) ([]*models.AccessCodeRecord, error)
}
