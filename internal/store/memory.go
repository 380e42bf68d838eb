package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/victorlau/liuren-quota/internal/models"
)

// MemoryStore is an in-process LedgerStore used by tests and local
// development. It mirrors the Redis adapter's semantics, including passive
// TTL expiry and raw-value compare-and-swap.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	logs    []string
	now     func() time.Time
}

type memoryEntry struct {
	raw       string
	expiresAt time.Time // zero means no store-level expiry
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) live(key string) (memoryEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

// Get fetches a record by code.
func (s *MemoryStore) Get(_ context.Context, code string) (*models.AccessCodeRecord, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(quotaKey(code))
	if !ok {
		return nil, "", ErrNotFound
	}
	var record models.AccessCodeRecord
	if err := json.Unmarshal([]byte(entry.raw), &record); err != nil {
		return nil, "", err
	}
	return &record, entry.raw, nil
}

// PutIfAbsent creates a record only if the code is free.
func (s *MemoryStore) PutIfAbsent(_ context.Context, record *models.AccessCodeRecord, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := quotaKey(record.Code)
	if _, exists := s.live(key); exists {
		return false, nil
	}
	entry := memoryEntry{raw: string(raw)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = entry
	return true, nil
}

// CompareAndSwap replaces the record only when the stored bytes still match.
func (s *MemoryStore) CompareAndSwap(_ context.Context, code string, expectedRaw string, record *models.AccessCodeRecord) (bool, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := quotaKey(code)
	entry, ok := s.live(key)
	if !ok || entry.raw != expectedRaw {
		return false, nil
	}
	entry.raw = string(raw)
	s.entries[key] = entry
	return true, nil
}

// AppendLog records the entry in memory.
func (s *MemoryStore) AppendLog(_ context.Context, entry *models.UsageLogEntry, _ time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, string(raw))
	return nil
}

// List returns all live records.
func (s *MemoryStore) List(_ context.Context) ([]*models.AccessCodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []*models.AccessCodeRecord
	for key := range s.entries {
		if !strings.HasPrefix(key, quotaKeyPrefix) {
			continue
		}
		entry, ok := s.live(key)
		if !ok {
			continue
		}
		var record models.AccessCodeRecord
		if err := json.Unmarshal([]byte(entry.raw), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

// LogCount reports the number of audit entries written. Test helper.
func (s *MemoryStore) LogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

// SetClock overrides the store's time source. Test helper.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
