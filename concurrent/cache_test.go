// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package concurrent

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetOr(t *testing.T) {
	t.Run("will create a value at most once", func(t *testing.T) {
		c := NewCache[string, int]()

		var (
			mu    sync.Mutex
			calls int
			wg    sync.WaitGroup
		)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				v, err := c.GetOr("a", func() (int, error) {
					mu.Lock()
					defer mu.Unlock()
					calls++
					return 1, nil
				})
				assert.Nil(t, err)
				assert.Equal(t, 1, v)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, calls)
	})

	t.Run("will not cache errors", func(t *testing.T) {
		c := NewCache[string, int]()

		_, err := c.GetOr("a", func() (int, error) {
			return 0, errors.New("failed")
		})
		require.NotNil(t, err)

		_, ok := c.Get("a")
		assert.False(t, ok)
	})
}

func TestCache_Reset(t *testing.T) {
	t.Run("will drop every value", func(t *testing.T) {
		c := NewCache[string, int]()
		_, err := c.GetOr("a", func() (int, error) { return 1, nil })
		require.Nil(t, err)
		require.Len(t, c.Values(), 1)

		c.Reset()

		assert.Empty(t, c.Values())
	})
}
