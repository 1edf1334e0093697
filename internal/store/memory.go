package store

import (
	"context"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/nitesh/bill_monitor/pkg/models"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore is an in-process implementation of every store used by the
// pipelines. Values are kept encoded, as redis would keep them.
type MemoryStore struct {
	mu      sync.RWMutex
	now     func() time.Time
	token   []byte
	results map[string]memoryEntry
	seen    map[string]struct{}
	runs    []models.DigestRun
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		results: make(map[string]memoryEntry),
		seen:    make(map[string]struct{}),
	}
}

// SetClock replaces the clock used for result expiry.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) GetToken(ctx context.Context) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == nil {
		return nil, nil
	}
	return decodeToken(s.token)
}

func (s *MemoryStore) SetToken(ctx context.Context, cred models.Credential) error {
	b, err := encodeToken(cred)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = b
	return nil
}

func (s *MemoryStore) GetResult(ctx context.Context, key string) ([]models.ClassifiedBill, bool, error) {
	s.mu.RLock()
	e, ok := s.results[key]
	now := s.now()
	s.mu.RUnlock()
	if !ok || !now.Before(e.expiresAt) {
		return nil, false, nil
	}
	var bills []models.ClassifiedBill
	if err := json.Unmarshal(e.value, &bills); err != nil {
		return nil, false, err
	}
	return bills, true, nil
}

func (s *MemoryStore) SetResultIfAbsent(ctx context.Context, key string, bills []models.ClassifiedBill, ttl time.Duration) (bool, error) {
	b, err := json.Marshal(bills)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if e, ok := s.results[key]; ok && now.Before(e.expiresAt) {
		return false, nil
	}
	s.results[key] = memoryEntry{value: b, expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *MemoryStore) SeenIDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.seen))
	for id := range s.seen {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *MemoryStore) AddSeen(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.seen[id] = struct{}{}
	}
	return nil
}

// SeenList returns the seen set sorted, for inspection.
func (s *MemoryStore) SeenList() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.seen))
	for id := range s.seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *MemoryStore) SaveRun(ctx context.Context, run models.DigestRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	run.BillNumbers = append([]string(nil), run.BillNumbers...)
	s.runs = append(s.runs, run)
	return nil
}

// Runs returns the saved digest runs in insertion order.
func (s *MemoryStore) Runs() []models.DigestRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.DigestRun(nil), s.runs...)
}

func (s *MemoryStore) Close() error {
	// nothing to release
	return nil
}
