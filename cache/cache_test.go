package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetValueCachesBothOrders(t *testing.T) {
	c := New(16)
	calls := 0
	compute := func(i, j uint32) float32 {
		calls++
		return float32(i + j)
	}

	d1 := c.GetValue(1, 2, compute)
	d2 := c.GetValue(2, 1, compute)

	assert.Equal(t, d1, d2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}

func TestHitRateMonotonic(t *testing.T) {
	c := New(4)
	compute := func(i, j uint32) float32 { return 0 }

	assert.Equal(t, 0.0, c.HitRate())

	c.GetValue(0, 1, compute) // miss
	r1 := c.HitRate()

	c.GetValue(0, 1, compute) // hit
	r2 := c.HitRate()

	c.GetValue(1, 0, compute) // hit (symmetric)
	r3 := c.HitRate()

	assert.GreaterOrEqual(t, r2, r1)
	assert.GreaterOrEqual(t, r3, r2)
	assert.LessOrEqual(t, r3, 1.0)
}

func TestResizeWithoutPreserveDrops(t *testing.T) {
	c := New(8)
	c.GetValue(0, 1, func(i, j uint32) float32 { return 1 })
	assert.Equal(t, 1, c.Len())

	c.Resize(32, false)
	assert.Equal(t, 0, c.Len())
}

func TestResizePreservePreservesEntries(t *testing.T) {
	c := New(2)
	c.GetValue(0, 1, func(i, j uint32) float32 { return 1 })
	c.GetValue(2, 3, func(i, j uint32) float32 { return 2 })

	c.Resize(100, true)
	assert.Equal(t, 2, c.Len())
}
