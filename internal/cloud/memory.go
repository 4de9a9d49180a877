package cloud

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryDatabase is an in-process Database
type MemoryDatabase struct {
	mu          sync.RWMutex
	records     map[string]map[string]*Record
	unavailable bool
	clock       *clock
	sequence    int64
}

// NewMemoryDatabase creates an empty in-memory record database
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		records: make(map[string]map[string]*Record),
		clock:   newClock(nil),
	}
}

// SetAvailable simulates losing or regaining connectivity
func (m *MemoryDatabase) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = !available
}

func (m *MemoryDatabase) Save(ctx context.Context, rec *Record) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return nil, ErrUnavailable
	}

	stored := rec.Clone()
	stored.ChangeTag = uuid.NewString()
	stored.ModifiedAt = m.clock.next()
	m.sequence++
	stored.Sequence = m.sequence

	byName, ok := m.records[rec.RecordType]
	if !ok {
		byName = make(map[string]*Record)
		m.records[rec.RecordType] = byName
	}
	byName[rec.RecordName] = stored
	return stored.Clone(), nil
}

func (m *MemoryDatabase) Fetch(ctx context.Context, recordType, name string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return nil, ErrUnavailable
	}

	rec, ok := m.records[recordType][name]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", recordType, name, ErrRecordNotFound)
	}
	return rec.Clone(), nil
}

func (m *MemoryDatabase) Delete(ctx context.Context, recordType, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrUnavailable
	}

	if _, ok := m.records[recordType][name]; !ok {
		return fmt.Errorf("%s/%s: %w", recordType, name, ErrRecordNotFound)
	}
	delete(m.records[recordType], name)
	return nil
}

func (m *MemoryDatabase) ChangesSince(ctx context.Context, recordType string, since int64) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return nil, ErrUnavailable
	}

	var changes []*Record
	for _, rec := range m.records[recordType] {
		if rec.Sequence > since {
			changes = append(changes, rec.Clone())
		}
	}
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Sequence < changes[j].Sequence
	})
	return changes, nil
}

func (m *MemoryDatabase) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.unavailable {
		return ErrUnavailable
	}
	return nil
}
