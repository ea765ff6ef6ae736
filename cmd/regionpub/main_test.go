package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTerrain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hm.txt")
	require.NoError(t, os.WriteFile(path, []byte("1 2 3\n4 5 6\n"), 0o644))

	msg, err := readTerrain(path, "a", 3)
	require.NoError(t, err)
	assert.Equal(t, "a", msg.Name)
	assert.Equal(t, 3, msg.Width)
	assert.Equal(t, 2, msg.Length)
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, msg.Heights)

	_, err = readTerrain(path, "a", 4)
	assert.Error(t, err)
	_, err = readTerrain("", "a", 3)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("1 x"), 0o644))
	_, err = readTerrain(path, "a", 2)
	assert.Error(t, err)
}
