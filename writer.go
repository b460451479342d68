package zarr

import (
	"context"
	"encoding/json"
	"fmt"

	"gocloud.dev/blob"

	"github.com/TuSKan/zarr-roi/chunked"
	"github.com/TuSKan/zarr-roi/ndarray"
)

// Writer stores a Zarr v2 array into a blob bucket.
type Writer struct {
	bucket *blob.Bucket
	owned  bool
	meta   *Metadata
	elem   element
	codec  codec
	sep    string
}

// Create opens the bucket at url and writes meta as its .zarray.
func Create(ctx context.Context, url string, meta Metadata) (*Writer, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	w, err := NewWriter(ctx, bucket, meta)
	if err != nil {
		bucket.Close()
		return nil, err
	}
	w.owned = true
	return w, nil
}

// NewWriter writes meta as the .zarray of bucket. The caller keeps ownership of
// bucket.
func NewWriter(ctx context.Context, bucket *blob.Bucket, meta Metadata) (*Writer, error) {
	if meta.ZarrFormat == 0 {
		meta.ZarrFormat = 2
	}
	if meta.Order == "" {
		meta.Order = "C"
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	elem, err := lookupElement(meta.DType)
	if err != nil {
		return nil, err
	}
	c, err := newCodec(meta.Compressor)
	if err != nil {
		return nil, err
	}

	doc, err := json.MarshalIndent(&meta, "", "    ")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := bucket.WriteAll(ctx, ".zarray", doc, &blob.WriterOptions{ContentType: "application/json"}); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to write .zarray: %w", err)
	}

	sep, _ := meta.separator()
	return &Writer{bucket: bucket, meta: &meta, elem: elem, codec: c, sep: sep}, nil
}

// WriteArray stores data, the whole array in C order, chunk by chunk. Edge
// chunks are padded with the fill value to the full chunk shape.
func (w *Writer) WriteArray(ctx context.Context, data []byte) error {
	n, err := ndarray.Size(w.meta.Shape)
	if err != nil {
		return err
	}
	if len(data) != n*w.elem.size {
		return fmt.Errorf("array of shape %v needs %d bytes, got %d", w.meta.Shape, n*w.elem.size, len(data))
	}
	chunkLen, err := ndarray.Size(w.meta.Chunks)
	if err != nil {
		return err
	}

	grid := GridShape(w.meta.Shape, w.meta.Chunks)
	count := make([]int, len(grid))
	zero := make([]int, len(grid))
	return eachIndex(grid, func(coords []int) error {
		origin := chunkOrigin(coords, w.meta.Chunks)
		for i := range count {
			count[i] = min(w.meta.Chunks[i], w.meta.Shape[i]-origin[i])
		}
		buf := w.elem.filled(w.meta.FillValue, chunkLen)
		chunked.CopyBlock(buf, w.meta.Chunks, zero, data, w.meta.Shape, origin, count, w.elem.size)
		return w.writeChunk(ctx, coords, buf)
	})
}

func (w *Writer) writeChunk(ctx context.Context, coords []int, raw []byte) error {
	key := ChunkKey(coords, w.sep)
	enc, err := w.codec.Encode(raw)
	if err != nil {
		return fmt.Errorf("failed to compress chunk %s: %w", key, err)
	}
	if err := w.bucket.WriteAll(ctx, key, enc, nil); err != nil {
		return fmt.Errorf("failed to write chunk %s: %w", key, err)
	}
	logger.Debug("chunk written", "key", key, "bytes", len(enc))
	return nil
}

// Metadata returns the metadata the array was created with.
func (w *Writer) Metadata() *Metadata {
	return w.meta
}

// Close closes the writer.
func (w *Writer) Close() error {
	w.codec.Close()
	if !w.owned {
		return nil
	}
	return w.bucket.Close()
}
