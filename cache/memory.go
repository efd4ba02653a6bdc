package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultMaxBytes = 5 * 1024 * 1024

// defaultWaiterTimeout bounds how long a caller blocks on someone else's in-flight
// compute before falling back to computing independently, per spec.md §4.8/§5.
const defaultWaiterTimeout = 3 * time.Second

type memEntry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

// Memory is the default Adapter: an in-process map guarded by a mutex, a tag ->
// key-set secondary index, and a golang.org/x/sync/singleflight group for
// get_or_store coalescing. Expiration is lazy, per spec.md §4.8 ("expired entries are
// deleted on the next get; a background sweep is permitted but not required").
type Memory struct {
	mu            sync.Mutex
	entries       map[string]memEntry
	tagIndex      map[string]map[string]struct{}
	group         singleflight.Group
	maxBytes      int64
	waiterTimeout time.Duration
}

// NewMemory builds an empty Memory adapter. maxBytes of 0 uses the spec default (5 MB).
func NewMemory(maxBytes int64) *Memory {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Memory{
		entries:       map[string]memEntry{},
		tagIndex:      map[string]map[string]struct{}{},
		maxBytes:      maxBytes,
		waiterTimeout: defaultWaiterTimeout,
	}
}

// SetWaiterTimeout configures how long GetOrStore callers wait on an in-flight
// compute before falling back to computing independently. d <= 0 resets to the
// default (3s).
func (m *Memory) SetWaiterTimeout(d time.Duration) {
	if d <= 0 {
		d = defaultWaiterTimeout
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waiterTimeout = d
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(key)
}

// getLocked must be called with m.mu held.
func (m *Memory) getLocked(key string) ([]byte, bool, error) {
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.deleteLocked(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration, opts PutOptions) error {
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = m.maxBytes
	}
	if opts.Compress {
		value = compress(value)
	}
	if int64(len(value)) > maxBytes {
		// Silently skipped at put time, per spec.md §4.8; get still reports a miss.
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = memEntry{value: value, expiresAt: expiresAt, tags: opts.Tags}

	for _, tag := range opts.Tags {
		set, ok := m.tagIndex[tag]
		if !ok {
			set = map[string]struct{}{}
			m.tagIndex[tag] = set
		}
		set[key] = struct{}{}
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(key)
	return nil
}

// deleteLocked must be called with m.mu held.
func (m *Memory) deleteLocked(key string) {
	e, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	for _, tag := range e.tags {
		if set, ok := m.tagIndex[tag]; ok {
			delete(set, key)
			if len(set) == 0 {
				delete(m.tagIndex, tag)
			}
		}
	}
}

func (m *Memory) Touch(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) InvalidateTags(_ context.Context, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	union := map[string]struct{}{}
	for _, tag := range tags {
		for key := range m.tagIndex[tag] {
			union[key] = struct{}{}
		}
	}
	for key := range union {
		m.deleteLocked(key)
	}
	return nil
}

// GetOrStore coalesces concurrent misses on the same key through singleflight: only
// one caller's compute runs and the rest wait on its result. hit is true only when
// the initial Get found the value; every caller that reached the coalesced path
// (leader, waiter, or timed-out waiter) receives hit=false. A waiter blocked past waiterTimeout falls
// back to computing the value itself rather than waiting forever, per spec.md §4.8/
// §5's liveness guarantee against a stalled leader.
func (m *Memory) GetOrStore(ctx context.Context, key string, ttl time.Duration, opts PutOptions, compute func(ctx context.Context) ([]byte, error)) ([]byte, bool, error) {
	if value, ok, err := m.Get(ctx, key); err != nil || ok {
		return value, ok, err
	}

	resultCh := m.group.DoChan(key, func() (any, error) {
		if value, ok, _ := m.Get(ctx, key); ok {
			return value, nil
		}
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if putErr := m.Put(ctx, key, value, ttl, opts); putErr != nil {
			return nil, putErr
		}
		return value, nil
	})

	m.mu.Lock()
	timeout := m.waiterTimeout
	m.mu.Unlock()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]byte), false, nil
	case <-timer.C:
		// The in-flight leader stalled past our deadline. Compute independently
		// instead of joining the same stalled singleflight call again.
		value, err := compute(ctx)
		if err != nil {
			return nil, false, err
		}
		if putErr := m.Put(ctx, key, value, ttl, opts); putErr != nil {
			return nil, false, putErr
		}
		return value, false, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
