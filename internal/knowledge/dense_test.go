package knowledge

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenseIndex_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.index")
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}

	require.NoError(t, WriteDenseIndex(path, vectors))

	idx, err := LoadDenseIndex(path)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 3, idx.Dim())
}

func TestDenseIndex_Search(t *testing.T) {
	idx := &DenseIndex{
		vectors: [][]float32{
			{1, 0},
			{0, 1},
			{0.8, 0.6},
		},
		dim: 2,
	}

	t.Run("nearest first", func(t *testing.T) {
		results, err := idx.Search([]float32{1, 0}, 3)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 2, 1}, results)
	})

	t.Run("bounded by n", func(t *testing.T) {
		results, err := idx.Search([]float32{1, 0}, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("n larger than index", func(t *testing.T) {
		results, err := idx.Search([]float32{0, 1}, 100)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		_, err := idx.Search([]float32{1, 0, 0}, 3)
		assert.Error(t, err)
	})
}

func TestLoadDenseIndex_MissingFile(t *testing.T) {
	_, err := LoadDenseIndex(filepath.Join(t.TempDir(), "absent.index"))
	assert.Error(t, err)
}
