package safeset

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSafeSet(t *testing.T) {
	s := NewSafeSet[string]()
	require.NotNil(t, s)
	assert.Equal(t, 0, s.Size())
	assert.False(t, s.Contains("x"))
	assert.Empty(t, s.Values())
}

func TestSafeSet_Add_Remove(t *testing.T) {
	s := NewSafeSet[string]()

	t.Run("duplicate add keeps one element", func(t *testing.T) {
		s.Add("bot")
		s.Add("bot")
		assert.True(t, s.Contains("bot"))
		assert.Equal(t, 1, s.Size())
	})

	t.Run("remove deletes element", func(t *testing.T) {
		s.Remove("bot")
		assert.False(t, s.Contains("bot"))
		s.Remove("ghost")
		assert.Equal(t, 0, s.Size())
	})
}

func TestSafeSet_TryAdd(t *testing.T) {
	s := NewSafeSet[string]()

	t.Run("first add wins", func(t *testing.T) {
		assert.True(t, s.TryAdd("bot"))
		assert.False(t, s.TryAdd("bot"))
		assert.ElementsMatch(t, []string{"bot"}, s.Values())
	})

	t.Run("re-add after remove", func(t *testing.T) {
		s.Remove("bot")
		assert.True(t, s.TryAdd("bot"))
	})

	t.Run("exactly one concurrent winner", func(t *testing.T) {
		fresh := NewSafeSet[string]()
		var wins atomic.Int32
		var wg sync.WaitGroup

		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if fresh.TryAdd("same") {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})
}
