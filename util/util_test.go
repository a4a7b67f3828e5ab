package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveJsonCreatesDirectories(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "config.json")
	in := map[string]int{"episodes": 10}

	require.NoError(t, SaveJson(p, in))

	out := make(map[string]int)
	require.NoError(t, ReadJson(p, &out))
	assert.Equal(t, in, out)
}

func TestJsonHashIsStable(t *testing.T) {
	a := JsonHash(map[string]interface{}{"x": 1, "y": "z"})
	b := JsonHash(map[string]interface{}{"y": "z", "x": 1})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, JsonHash(map[string]interface{}{"x": 2}))
}

func TestCopyIntSlice(t *testing.T) {
	in := []int{1, 2, 3}
	out := CopyIntSlice(in)
	out[0] = 9
	assert.Equal(t, []int{1, 2, 3}, in)
}
