package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialKeys(t *testing.T) {
	g := NewSequentialKeys("")
	assert.Equal(t, "key-1", g.Generate())
	assert.Equal(t, "key-2", g.Generate())

	g.Reset()
	assert.Equal(t, "key-1", g.Generate())
}

func TestSequentialKeys_Prefix(t *testing.T) {
	g := NewSequentialKeys("k")
	assert.Equal(t, "k-1", g.Generate())
}

func TestSequentialKeys_ConcurrentUnique(t *testing.T) {
	g := NewSequentialKeys("")
	seen := sync.Map{}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, dup := seen.LoadOrStore(g.Generate(), true)
			assert.False(t, dup)
		}()
	}
	wg.Wait()
}
