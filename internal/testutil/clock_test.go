package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicClock_HoldsUntilMoved(t *testing.T) {
	clock := NewDeterministicClock(100)

	assert.Equal(t, uint64(100), clock.Now())
	assert.Equal(t, uint64(100), clock.Now())

	assert.Equal(t, uint64(105), clock.Advance(5))
	assert.Equal(t, uint64(105), clock.Now())
}

func TestDeterministicClock_SetIsMonotonic(t *testing.T) {
	clock := NewDeterministicClock(100)

	clock.Set(200)
	assert.Equal(t, uint64(200), clock.Now())

	clock.Set(150)
	assert.Equal(t, uint64(200), clock.Now(), "Set must not move the clock backwards")
}

func TestDeterministicClock_Reset(t *testing.T) {
	clock := NewDeterministicClock(42)
	clock.Reset()
	assert.Equal(t, uint64(0), clock.Now())
}

func TestDeterministicClock_ThreadSafe(t *testing.T) {
	clock := NewDeterministicClock(0)
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(1)
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(goroutines), clock.Now())
}
