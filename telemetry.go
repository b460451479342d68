package zarr

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/TuSKan/zarr-roi/region"
)

var (
	tracer = otel.Tracer("zarr-roi")
	meter  = otel.Meter("zarr-roi")
)

var (
	chunksRead    metric.Int64Counter
	chunkBytes    metric.Int64Counter
	chunksMissing metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		chunksRead, err = meter.Int64Counter(
			"zarr_chunks_read_total",
			metric.WithDescription("Total number of chunks fetched from the store"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		chunkBytes, err = meter.Int64Counter(
			"zarr_chunk_bytes_read_total",
			metric.WithDescription("Total encoded bytes fetched from the store"),
			metric.WithUnit("By"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		chunksMissing, err = meter.Int64Counter(
			"zarr_chunks_missing_total",
			metric.WithDescription("Total number of absent chunks served from the fill value"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordChunkRead(ctx context.Context, size int) {
	if err := initMetrics(); err != nil {
		return
	}
	chunksRead.Add(ctx, 1)
	chunkBytes.Add(ctx, int64(size))
}

func recordChunkMissing(ctx context.Context) {
	if err := initMetrics(); err != nil {
		return
	}
	chunksMissing.Add(ctx, 1)
}

func startRegionSpan(ctx context.Context, name string, rs []region.Range) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(
			attribute.String("zarr.region", region.Format(rs)),
			attribute.Int("zarr.rank", len(rs)),
		),
	)
}

// endSpan records err, if any, and ends span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
