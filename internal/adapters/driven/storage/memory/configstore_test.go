package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("sync.pool_size", 3))
	require.NoError(t, store.Set("sync.pool_size", 4))

	val, ok := store.Get("sync.pool_size")
	assert.True(t, ok)
	assert.Equal(t, 4, val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("remote.base_url", "https://registry.example")
	_ = store.Set("sync.max_attempts", int64(5))
	_ = store.Set("remote.burst", float64(7))
	_ = store.Set("remote.rate_per_second", 2.5)
	_ = store.Set("scheduler.enabled", true)

	assert.Equal(t, "https://registry.example", store.GetString("remote.base_url"))
	assert.Equal(t, 5, store.GetInt("sync.max_attempts"))
	assert.Equal(t, 7, store.GetInt("remote.burst"))
	assert.InDelta(t, 2.5, store.GetFloat("remote.rate_per_second"), 0.0001)
	assert.InDelta(t, 5.0, store.GetFloat("sync.max_attempts"), 0.0001)
	assert.True(t, store.GetBool("scheduler.enabled"))

	// Wrong types read as zero values.
	assert.Empty(t, store.GetString("scheduler.enabled"))
	assert.Zero(t, store.GetInt("remote.base_url"))
	assert.Zero(t, store.GetFloat("remote.base_url"))
	assert.False(t, store.GetBool("remote.base_url"))
}

func TestConfigStore_Keys_Sorted(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("sync.pool_size", 3)
	_ = store.Set("device.id", "abc")
	_ = store.Set("remote.burst", 5)

	assert.Equal(t, []string{"device.id", "remote.burst", "sync.pool_size"}, store.Keys())
}

func TestConfigStore_Path(t *testing.T) {
	assert.Equal(t, ":memory:", NewConfigStore().Path())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key.%d", n), n)
		}(i)
		go func(n int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key.%d", n))
			_ = store.Keys()
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 50)
}
