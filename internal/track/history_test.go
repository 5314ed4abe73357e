package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistoryPreviousOrdering(t *testing.T) {
	h := NewHistory[int](3)
	h.Add(1)
	h.Add(2)
	h.Add(3)

	v, ok := h.Previous(1)
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = h.Previous(2)
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = h.Previous(3)
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = h.Previous(4)
	assert.False(t, ok)
}

func TestHistoryOverwritesOldestAtCapacity(t *testing.T) {
	h := NewHistory[int](2)
	h.Add(1)
	h.Add(2)
	h.Add(3) // overwrites 1

	assert.Equal(t, 2, h.Size())
	v, ok := h.Previous(2)
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = h.Previous(3)
	assert.False(t, ok)
}

func TestHistoryCapacityClampedToOne(t *testing.T) {
	h := NewHistory[string](0)
	assert.Equal(t, 1, h.Capacity())
}
