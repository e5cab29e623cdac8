package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueuePreallocatesIntoEmpty(t *testing.T) {
	t.Parallel()

	q := New(6)
	assert.Equal(t, 6, q.ConsLen())
	assert.Equal(t, 0, q.ProdLen())
	assert.Equal(t, 6, q.Allocated())
}

func TestProdConsRoundTrip(t *testing.T) {
	t.Parallel()

	q := New(2)

	c := q.ProdOwn()
	require.NotNil(t, c)
	c.Len = 128
	q.ProdFree()

	assert.Equal(t, 1, q.ProdLen())

	got := q.ConsOwn()
	require.NotNil(t, got)
	assert.Equal(t, 128, got.Len)
	q.ConsFree()

	assert.Equal(t, 0, q.ProdLen())
	assert.Equal(t, 2, q.ConsLen())
}

// TestConservationInvariant checks invariant 1: prod_len + cons_len +
// |producerOwned| + |consumerOwned| = buckets allocated, across a mixed
// sequence of operations including an auto-grow.
func TestConservationInvariant(t *testing.T) {
	t.Parallel()

	q := New(3)

	check := func() {
		p, c := q.Owned()
		total := q.ProdLen() + q.ConsLen()
		if p {
			total++
		}
		if c {
			total++
		}
		assert.Equal(t, q.Allocated(), total)
	}

	check()
	// The third ProdFree finds the empty FIFO dry and auto-grows it by one
	// chunk, so conservation is also checked across a growth.
	for range 3 {
		require.NotNil(t, q.ProdOwn())
		check()
		q.ProdFree()
		check()
	}

	// Drain every full bucket, one consumer-owned chunk at a time, back
	// into the empty FIFO.
	for range 3 {
		require.NotNil(t, q.ConsOwn())
		check()
		q.ConsFree()
		check()
	}
	require.NotNil(t, q.ProdOwn())
	check()
	q.ProdFree()
	check()
	assert.True(t, q.HasGrown())
	assert.False(t, q.HasGrown(), "has_grown must reset after being read")
}

func TestConsOwnOnEmptyFullIsNilNotFatal(t *testing.T) {
	t.Parallel()

	q := New(1)
	assert.Nil(t, q.ConsOwn())
}

func TestHasGrownFalseWithoutGrowth(t *testing.T) {
	t.Parallel()

	q := New(4)
	require.NotNil(t, q.ProdOwn())
	q.ProdFree()
	assert.False(t, q.HasGrown())
}
