package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zarr "github.com/TuSKan/zarr-roi"
)

// writeSource stores a 6x8 int32 array holding 0..47 and returns its URL.
func writeSource(t *testing.T) string {
	t.Helper()
	url := "file:///" + filepath.ToSlash(t.TempDir())
	ctx := context.Background()

	w, err := zarr.Create(ctx, url, zarr.Metadata{
		Shape:      []int{6, 8},
		Chunks:     []int{4, 4},
		DType:      "<i4",
		Compressor: &zarr.CompressorConfig{ID: "zstd"},
	})
	require.NoError(t, err)
	data := make([]byte, 0, 6*8*4)
	for i := range 6 * 8 {
		data = binary.LittleEndian.AppendUint32(data, uint32(i))
	}
	require.NoError(t, w.WriteArray(ctx, data))
	require.NoError(t, w.Close())
	return url
}

func writePipeline(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	doc := "source: " + source + "\n" +
		"steps:\n" +
		"  - crop: \"slice(1, 5), slice(2, None)\"\n" +
		"  - bin: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	src := writeSource(t)
	out, err := run(t, "info", src)
	require.NoError(t, err)
	assert.Contains(t, out, "shape:      [6 8]")
	assert.Contains(t, out, "dtype:      <i4")
	assert.Contains(t, out, "compressor: zstd")
}

func TestPlan(t *testing.T) {
	src := writeSource(t)
	pipeline := writePipeline(t, t.TempDir(), "roi.yaml", src)

	out, err := run(t, "plan", pipeline)
	require.NoError(t, err)
	assert.Contains(t, out, "region: slice(1, 5, 1), slice(2, 8, 1)")
	assert.Contains(t, out, "bin:    2")
	assert.Contains(t, out, "shape:  [2 3]")
	assert.Contains(t, out, "chunks: 4")
}

func TestRead(t *testing.T) {
	src := writeSource(t)
	dir := t.TempDir()
	a := writePipeline(t, dir, "a.yaml", src)
	b := writePipeline(t, dir, "b.yaml", src)
	outDir := t.TempDir()
	outURL := "file:///" + filepath.ToSlash(outDir)

	out, err := run(t, "read", a, b, "--out", outURL, "--jobs", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "a.yaml -> a [2 3]")
	assert.Contains(t, out, "b.yaml -> b [2 3]")

	r, err := zarr.NewReader(context.Background(), "file:///"+filepath.ToSlash(filepath.Join(outDir, "a")))
	require.NoError(t, err)
	defer r.Close()
	data, err := r.ReadFull(context.Background())
	require.NoError(t, err)

	got := make([]int32, len(data)/4)
	for i := range got {
		got[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
	}
	// Rows 1..4 and columns 2..7 of 0..47, summed over 2x2 blocks.
	assert.Equal(t, []int32{
		10 + 11 + 18 + 19, 12 + 13 + 20 + 21, 14 + 15 + 22 + 23,
		26 + 27 + 34 + 35, 28 + 29 + 36 + 37, 30 + 31 + 38 + 39,
	}, got)
}

func TestRead_Errors(t *testing.T) {
	_, err := run(t, "read", "missing.yaml", "--out", "mem://")
	require.Error(t, err)

	_, err = run(t, "read", "missing.yaml")
	require.Error(t, err)

	_, err = run(t, "read", "missing.yaml", "--out", "mem://", "--jobs", "0")
	require.Error(t, err)
}
