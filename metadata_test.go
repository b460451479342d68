package zarr_test

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zarr "github.com/TuSKan/zarr-roi"
)

func TestParseDType(t *testing.T) {
	tests := []struct {
		input       string
		expectedStr string
		expectedSz  int
		expectErr   bool
	}{
		{"<f4", "float32", 4, false},
		{"<i8", "int64", 8, false},
		{"|u1", "uint8", 1, false},
		{"|b1", "bool", 1, false},
		{">f4", "", 0, true}, // big-endian should fail
		{"x2", "", 0, true},  // invalid encoding
		{"<x4", "", 0, true}, // unknown kind
		{"<i", "", 0, true},  // incomplete size
		{"=i4", "", 0, true}, // unknown byte order
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			str, sz, err := zarr.ParseDType(tt.input)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStr, str)
			assert.Equal(t, tt.expectedSz, sz)
		})
	}
}

func TestLoadMetadata(t *testing.T) {
	tempDir := t.TempDir()

	mockJSON := `{
		"zarr_format": 2,
		"shape": [128, 128],
		"chunks": [64, 64],
		"dtype": "<f4",
		"compressor": {"id": "zstd", "level": 1},
		"fill_value": "NaN",
		"order": "C",
		"filters": null
	}`

	zarrayPath := filepath.Join(tempDir, ".zarray")
	require.NoError(t, os.WriteFile(zarrayPath, []byte(mockJSON), 0644))

	f, err := os.Open(zarrayPath)
	require.NoError(t, err)
	defer f.Close()

	meta, err := zarr.LoadMetadata(f)
	require.NoError(t, err)

	assert.Equal(t, 2, meta.ZarrFormat)
	assert.Equal(t, []int{128, 128}, meta.Shape)
	assert.Equal(t, []int{64, 64}, meta.Chunks)
	assert.Equal(t, "<f4", meta.DType)
	require.NotNil(t, meta.Compressor)
	assert.Equal(t, "zstd", meta.Compressor.ID)

	fill, ok := meta.FillValue.Value()
	assert.True(t, ok)
	assert.True(t, math.IsNaN(fill))
}

func TestLoadMetadata_Invalid(t *testing.T) {
	tests := map[string]string{
		"format 3":      `{"zarr_format": 3, "shape": [4], "chunks": [2], "dtype": "<f4"}`,
		"chunk rank":    `{"zarr_format": 2, "shape": [4, 4], "chunks": [2], "dtype": "<f4"}`,
		"zero chunk":    `{"zarr_format": 2, "shape": [4], "chunks": [0], "dtype": "<f4"}`,
		"fortran order": `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<f4", "order": "F"}`,
		"separator":     `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<f4", "dimension_separator": "-"}`,
		"big endian":    `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": ">f4"}`,
		"fill value":    `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<f4", "fill_value": "zero"}`,
		"filters":       `{"zarr_format": 2, "shape": [4], "chunks": [2], "dtype": "<f4", "filters": [{"id": "delta"}]}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := zarr.LoadMetadata(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}

func TestFillValue_JSON(t *testing.T) {
	tests := []struct {
		fill zarr.FillValue
		text string
	}{
		{zarr.FillValue{}, "null"},
		{zarr.Fill(0), "0"},
		{zarr.Fill(-1.5), "-1.5"},
		{zarr.Fill(math.Inf(1)), `"Infinity"`},
		{zarr.Fill(math.Inf(-1)), `"-Infinity"`},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.fill)
		require.NoError(t, err)
		assert.Equal(t, tt.text, string(b))

		var back zarr.FillValue
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, tt.fill, back)
	}
}
