package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetPutRoundTrip(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Put(ctx, "k", []byte("v"), time.Minute, PutOptions{}))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestMemoryExpiresLazily(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "k", []byte("v"), time.Millisecond, PutOptions{}))
	time.Sleep(5 * time.Millisecond)
	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryRejectsOversizedEntries(t *testing.T) {
	m := NewMemory(4)
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "k", []byte("too big"), time.Minute, PutOptions{}))
	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryInvalidateTags(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "k1", []byte("v1"), time.Minute, PutOptions{Tags: []string{"table:public.users"}}))
	require.NoError(t, m.Put(ctx, "k2", []byte("v2"), time.Minute, PutOptions{Tags: []string{"repo:main"}}))

	require.NoError(t, m.InvalidateTags(ctx, []string{"table:public.users"}))

	_, ok, _ := m.Get(ctx, "k1")
	assert.False(t, ok)
	_, ok, _ = m.Get(ctx, "k2")
	assert.True(t, ok)
}

func TestMemoryGetOrStoreCoalescesConcurrentMisses(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	var calls int64

	compute := func(ctx context.Context) ([]byte, error) {
		atomic.AddInt64(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return []byte("computed"), nil
	}

	results := make(chan []byte, 5)
	for i := 0; i < 5; i++ {
		go func() {
			v, _, _ := m.GetOrStore(ctx, "shared", time.Minute, PutOptions{}, compute)
			results <- v
		}()
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, []byte("computed"), <-results)
	}
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestMemoryGetOrStoreFallsBackOnWaiterTimeout(t *testing.T) {
	m := NewMemory(0)
	m.SetWaiterTimeout(5 * time.Millisecond)
	ctx := context.Background()
	var calls int64

	stall := make(chan struct{})
	compute := func(ctx context.Context) ([]byte, error) {
		n := atomic.AddInt64(&calls, 1)
		if n == 1 {
			<-stall // first caller never returns on its own
			return []byte("leader"), nil
		}
		return []byte("fallback"), nil
	}

	go func() { _, _, _ = m.GetOrStore(ctx, "stalled", time.Minute, PutOptions{}, compute) }()
	time.Sleep(time.Millisecond) // let the leader start first

	v, hit, err := m.GetOrStore(ctx, "stalled", time.Minute, PutOptions{}, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []byte("fallback"), v)
	close(stall)
}

func TestMemoryTouchExtendsTTL(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, "k", []byte("v"), time.Millisecond, PutOptions{}))
	require.NoError(t, m.Touch(ctx, "k", time.Minute))
	time.Sleep(5 * time.Millisecond)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)
}

func TestKeyDiffersForMapVsListWithSameValues(t *testing.T) {
	listKey := Key("main", "", "SELECT 1", []any{"a", "b"})
	mapKey := Key("main", "", "SELECT 1", map[string]any{"0": "a", "1": "b"})
	assert.NotEqual(t, listKey, mapKey)
}

func TestKeyStableForIdenticalInputs(t *testing.T) {
	k1 := Key("main", "public", "SELECT 1", map[string]any{"a": 1})
	k2 := Key("main", "public", "SELECT 1", map[string]any{"a": 1})
	assert.Equal(t, k1, k2)
}

func TestKeyChangesWithAnyComponent(t *testing.T) {
	base := Key("main", "public", "SELECT 1", nil)
	assert.NotEqual(t, base, Key("other", "public", "SELECT 1", nil))
	assert.NotEqual(t, base, Key("main", "reporting", "SELECT 1", nil))
	assert.NotEqual(t, base, Key("main", "public", "SELECT 2", nil))
	assert.NotEqual(t, base, Key("main", "public", "SELECT 1", []any{1}))
}
