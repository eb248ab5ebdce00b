package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestController(t *testing.T) {
	c := New(0, 10)
	assert.Equal(t, 10, c.Get())
	assert.Equal(t, Window{Start: 0, End: 10}, c.Window())

	assert.ErrorIs(t, c.Set(0), ErrInvalidPageSize)
	assert.ErrorIs(t, c.Set(-3), ErrInvalidPageSize)
	assert.Equal(t, 10, c.Get())

	assert.NoError(t, c.Set(25))
	assert.Equal(t, 25, c.Get())
	c.Goto(2)
	assert.Equal(t, Window{Start: 50, End: 75}, c.Window())
	c.Goto(-1)
	assert.Equal(t, Window{Start: 0, End: 25}, c.Window())
}

func TestNewDefaults(t *testing.T) {
	c := New(-5, 0)
	assert.Equal(t, DefaultPageSize, c.Get())
	assert.Equal(t, 0, c.Window().Start)
}

func TestSlice(t *testing.T) {
	list := []int{0, 1, 2, 3, 4}
	assert.Equal(t, []int{0, 1}, Slice(list, Window{0, 2}))
	assert.Equal(t, []int{3, 4}, Slice(list, Window{3, 10}))
	assert.Equal(t, []int{}, Slice(list, Window{7, 10}))
	assert.Equal(t, []int{}, Slice([]int(nil), Window{0, 10}))
}
