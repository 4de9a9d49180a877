package cloud

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnavailable    = errors.New("cloud database unavailable")
)

// Database is the remote record store entities sync against
type Database interface {
	// Save upserts a record keyed by (type, name) and returns the stored copy
	// with a fresh change tag and modification time.
	Save(ctx context.Context, rec *Record) (*Record, error)
	Fetch(ctx context.Context, recordType, name string) (*Record, error)
	Delete(ctx context.Context, recordType, name string) error
	// ChangesSince returns records whose Sequence is greater than since, in
	// sequence order. A since of 0 returns every record of the type.
	ChangesSince(ctx context.Context, recordType string, since int64) ([]*Record, error)
	Ping(ctx context.Context) error
}

// clock hands out strictly increasing modification times at microsecond
// precision, the finest every supported SQL backend stores.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *clock {
	if now == nil {
		now = time.Now
	}
	return &clock{now: now}
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
