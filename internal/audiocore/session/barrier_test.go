package session

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBarrierReleasesAllParticipantsTogether(t *testing.T) {
	t.Parallel()

	const n = 5
	b := NewBarrier(n)

	var released atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			b.Wait()
			released.Add(1)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("barrier did not release all participants")
	}
	assert.EqualValues(t, n, released.Load())
}

func TestBarrierIsReusableAcrossGenerations(t *testing.T) {
	t.Parallel()

	const n = 3
	b := NewBarrier(n)

	for gen := 0; gen < 3; gen++ {
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				b.Wait()
			}()
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("generation %d did not release", gen)
		}
	}
}
