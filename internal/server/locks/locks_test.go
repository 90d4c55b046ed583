package locks

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSharedHoldersOverlap(t *testing.T) {
	r := NewRegistry()

	rel1 := r.Shared("a")
	done := make(chan struct{})
	go func() {
		rel2 := r.Shared("a")
		rel2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second shared holder blocked")
	}
	rel1()
	assert.Zero(t, r.Len())
}

func TestExclusiveWaitsForShared(t *testing.T) {
	r := NewRegistry()

	relShared := r.Shared("a")
	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		rel := r.Exclusive("a")
		acquired.Store(true)
		rel()
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	require.False(t, acquired.Load(), "exclusive acquired while shared held")

	relShared()
	<-done
	assert.True(t, acquired.Load())
	assert.Zero(t, r.Len())
}

func TestDifferentIDsDoNotContend(t *testing.T) {
	r := NewRegistry()

	relA := r.Exclusive("a")
	defer relA()

	done := make(chan struct{})
	go func() {
		r.Exclusive("b")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked by a")
	}
}

func TestExclusiveSerializes(t *testing.T) {
	var (
		r       Registry
		wg      sync.WaitGroup
		inside  atomic.Int32
		maxSeen atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel := r.Exclusive("a")
			defer rel()
			n := inside.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen.Load())
	assert.Zero(t, r.Len())
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := NewRegistry()
	rel := r.Exclusive("a")
	rel()
	rel()
	assert.Zero(t, r.Len())

	r.Exclusive("a")()
}
