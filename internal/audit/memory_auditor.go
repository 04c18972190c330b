package audit

import (
	"sync"

	"github.com/kmkrofficial/signature/internal/core"
)

// DefaultMemoryCapacity bounds the in-memory audit log.
const DefaultMemoryCapacity = 10_000

var _ core.Auditor = (*InMemoryAuditor)(nil)

// InMemoryAuditor is an auditor that stores the most recent audit logs in memory.
type InMemoryAuditor struct {
	mu       sync.Mutex
	capacity int
	entries  []core.AuditEntry
}

func NewInMemoryAuditor() *InMemoryAuditor {
	return NewInMemoryAuditorWithCapacity(DefaultMemoryCapacity)
}

func NewInMemoryAuditorWithCapacity(capacity int) *InMemoryAuditor {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &InMemoryAuditor{
		capacity: capacity,
		entries:  make([]core.AuditEntry, 0),
	}
}

func (i *InMemoryAuditor) Log(entry core.AuditEntry) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.entries = append(i.entries, entry)
	if over := len(i.entries) - i.capacity; over > 0 {
		i.entries = i.entries[over:]
	}
	return nil
}

func (i *InMemoryAuditor) GetRecent(limit int) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if limit < 0 || limit > len(i.entries) {
		limit = len(i.entries)
	}
	start := len(i.entries) - limit
	entries := make([]core.AuditEntry, limit)
	copy(entries, i.entries[start:])

	return entries, nil
}

func (i *InMemoryAuditor) Find(filter func(entry core.AuditEntry) bool, limit int) ([]core.AuditEntry, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	var matches []core.AuditEntry
	for _, entry := range i.entries {
		if filter(entry) {
			matches = append(matches, entry)
		}
	}

	if limit >= 0 && len(matches) > limit {
		matches = matches[len(matches)-limit:]
	}

	return matches, nil
}

func (i *InMemoryAuditor) Close() error {
	return nil // nothing to close :)
}
