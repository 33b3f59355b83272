package fvecs_test

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vann/fvecs"
)

func writeFvecs(t *testing.T, path string, rows [][]float32) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	for _, row := range rows {
		var dimBuf [4]byte
		binary.LittleEndian.PutUint32(dimBuf[:], uint32(len(row)))
		_, err := f.Write(dimBuf[:])
		require.NoError(t, err)
		for _, v := range row {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
			_, err := f.Write(buf[:])
			require.NoError(t, err)
		}
	}
}

func writeIvecs(t *testing.T, path string, rows [][]int32) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	for _, row := range rows {
		var dimBuf [4]byte
		binary.LittleEndian.PutUint32(dimBuf[:], uint32(len(row)))
		_, err := f.Write(dimBuf[:])
		require.NoError(t, err)
		for _, v := range row {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], uint32(v))
			_, err := f.Write(buf[:])
			require.NoError(t, err)
		}
	}
}

func TestLoadFloat32RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "base.fvecs")

	rows := [][]float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
		{-1.5, 0, 2.25, 9},
	}
	writeFvecs(t, path, rows)

	data, n, dim, err := fvecs.LoadFloat32(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 4, dim)
	for i, row := range rows {
		assert.Equal(t, row, data[i*dim:(i+1)*dim])
	}
}

func TestLoadFloat32InconsistentDim(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.fvecs")
	// 16 + 32 = 48 bytes, a whole multiple of the first record's 16, so
	// the size check passes and the second record's dim (7, not 3) is
	// what fails.
	writeFvecs(t, path, [][]float32{{1, 2, 3}, {1, 2, 3, 4, 5, 6, 7}})

	_, _, _, err := fvecs.LoadFloat32(path)
	assert.ErrorIs(t, err, fvecs.ErrInconsistentDim)
}

func TestLoadFloat32Truncated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trunc.fvecs")
	writeFvecs(t, path, [][]float32{{1, 2, 3}})

	// Chop off the last byte so the file size is no longer a multiple
	// of the record size.
	require.NoError(t, os.Truncate(path, 15))

	_, _, _, err := fvecs.LoadFloat32(path)
	assert.Error(t, err)
}

func TestLoadInt32RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gt.ivecs")

	rows := [][]int32{{10, 20, 30}, {40, 50, 60}}
	writeIvecs(t, path, rows)

	data, n, dim, err := fvecs.LoadInt32(path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, dim)
	for i, row := range rows {
		assert.Equal(t, row, data[i*dim:(i+1)*dim])
	}
}
