package zarr_test

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	zarr "github.com/TuSKan/zarr-roi"
	"github.com/TuSKan/zarr-roi/ndarray"
)

// newArray writes data into a fresh in-memory bucket and returns the bucket.
func newArray(t *testing.T, meta zarr.Metadata, data []byte) *blob.Bucket {
	t.Helper()
	ctx := context.Background()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { bucket.Close() })

	w, err := zarr.NewWriter(ctx, bucket, meta)
	require.NoError(t, err)
	require.NoError(t, w.WriteArray(ctx, data))
	require.NoError(t, w.Close())
	return bucket
}

func openReader(t *testing.T, bucket *blob.Bucket) *zarr.Reader {
	t.Helper()
	r, err := zarr.OpenReader(context.Background(), bucket)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func float32Bytes(vs ...float32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out
}

func int32Bytes(a ndarray.Array[int32]) []byte {
	out := make([]byte, 4*len(a.Data()))
	for i, v := range a.Data() {
		binary.LittleEndian.PutUint32(out[4*i:], uint32(v))
	}
	return out
}

func int16Bytes(a ndarray.Array[int16]) []byte {
	out := make([]byte, 2*len(a.Data()))
	for i, v := range a.Data() {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
	}
	return out
}
