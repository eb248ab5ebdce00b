package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIfOr(t *testing.T) {
	assert.Equal(t, "a", IfOr(true, "a", "b"))
	assert.Equal(t, 2, IfOr(false, 1, 2))
}

func TestClone(t *testing.T) {
	src := []int{1, 2, 3}
	dst := Clone(src)
	dst[0] = 9
	assert.Equal(t, []int{1, 2, 3}, src)
	assert.Equal(t, []int{9, 2, 3}, dst)

	var nilSlice []string
	assert.NotNil(t, Clone(nilSlice))
	assert.Len(t, Clone(nilSlice), 0)
}

func TestIsFileExists(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "x")
	assert.False(t, IsFileExists(p))
	assert.NoError(t, os.WriteFile(p, []byte("1"), 0o600))
	assert.True(t, IsFileExists(p))
}

func TestGjsonGet(t *testing.T) {
	raw := []byte(`{"success":true,"data":{"monitors":[{"id":"1"}]}}`)
	r, err := GjsonGet(raw, "data.monitors.0.id")
	assert.NoError(t, err)
	assert.Equal(t, "1", r.String())

	_, err = GjsonGet(raw, "data.missing")
	assert.ErrorIs(t, err, ErrGjsonNotFound)
}

func TestGjsonParseStringMap(t *testing.T) {
	m, err := GjsonParseStringMap(`{"url":"url is required","port":"bad"}`)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"url": "url is required", "port": "bad"}, m)

	m, err = GjsonParseStringMap("")
	assert.NoError(t, err)
	assert.Nil(t, m)

	_, err = GjsonParseStringMap(`[1,2]`)
	assert.ErrorIs(t, err, ErrGjsonWrongType)
}
