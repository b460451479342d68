package zarr_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	zarr "github.com/TuSKan/zarr-roi"
)

func TestChunkMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	ctx := context.Background()
	bucket := newArray(t, zarr.Metadata{Shape: []int{6}, Chunks: []int{2}, DType: "<f4"}, float32Bytes(1, 2, 3, 4, 5, 6))
	require.NoError(t, bucket.Delete(ctx, "1"))

	r := openReader(t, bucket)
	data, err := r.ReadFull(ctx)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 0, 0, 5, 6}, bytesToFloat32(data))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					got[m.Name] += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(2), got["zarr_chunks_read_total"])
	assert.Equal(t, int64(16), got["zarr_chunk_bytes_read_total"])
	assert.Equal(t, int64(1), got["zarr_chunks_missing_total"])
}
