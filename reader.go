package zarr

import (
	"context"
	"fmt"
	"io"
	"slices"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/TuSKan/zarr-roi/chunked"
	"github.com/TuSKan/zarr-roi/ndarray"
	"github.com/TuSKan/zarr-roi/region"
)

// Reader reads a Zarr v2 array out of a blob bucket. It implements
// chunked.Store, so any region can be read touching only the chunks it
// intersects.
type Reader struct {
	bucket *blob.Bucket
	owned  bool
	meta   *Metadata
	elem   element
	codec  codec
	sep    string
}

var _ chunked.Store = (*Reader)(nil)

// NewReader opens the bucket at url (for example "file:///data/a.zarr" or
// "mem://") and reads its .zarray. Close releases the bucket.
func NewReader(ctx context.Context, url string) (*Reader, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	r, err := OpenReader(ctx, bucket)
	if err != nil {
		bucket.Close()
		return nil, err
	}
	r.owned = true
	return r, nil
}

// OpenReader reads the array stored at the root of bucket. The caller keeps
// ownership of bucket.
func OpenReader(ctx context.Context, bucket *blob.Bucket) (*Reader, error) {
	reader, err := bucket.NewReader(ctx, ".zarray", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open .zarray: %w", err)
	}
	defer reader.Close()

	meta, err := LoadMetadata(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	elem, err := lookupElement(meta.DType)
	if err != nil {
		return nil, err
	}
	c, err := newCodec(meta.Compressor)
	if err != nil {
		return nil, err
	}
	sep, _ := meta.separator()
	return &Reader{
		bucket: bucket,
		meta:   meta,
		elem:   elem,
		codec:  c,
		sep:    sep,
	}, nil
}

// Shape returns the array shape.
func (r *Reader) Shape() []int { return slices.Clone(r.meta.Shape) }

// ChunkShape returns the chunk shape. 0-d arrays report no chunking.
func (r *Reader) ChunkShape() ([]int, bool) {
	return slices.Clone(r.meta.Chunks), len(r.meta.Chunks) > 0
}

// ItemSize returns the element size in bytes.
func (r *Reader) ItemSize() int { return r.elem.size }

// ReadChunk reads a single chunk from the Zarr array given its coordinates.
// The result always holds a full chunk; a chunk that was never written is
// returned filled with the fill value.
func (r *Reader) ReadChunk(ctx context.Context, coords []int) ([]byte, error) {
	if len(coords) != len(r.meta.Shape) {
		return nil, fmt.Errorf("chunk coordinates %v do not match array rank %d", coords, len(r.meta.Shape))
	}
	grid := GridShape(r.meta.Shape, r.meta.Chunks)
	for i, c := range coords {
		if c < 0 || c >= grid[i] {
			return nil, fmt.Errorf("chunk coordinates %v outside grid %v", coords, grid)
		}
	}

	n, err := ndarray.Size(r.meta.Chunks)
	if err != nil {
		return nil, err
	}
	expected := n * r.elem.size
	key := ChunkKey(coords, r.sep)

	reader, err := r.bucket.NewReader(ctx, key, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			recordChunkMissing(ctx)
			logger.Debug("chunk missing, using fill value", "key", key, "fill_value", r.meta.FillValue.String())
			return r.elem.filled(r.meta.FillValue, n), nil
		}
		return nil, fmt.Errorf("failed to open chunk %s: %w", key, err)
	}
	defer reader.Close()

	chunkData, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk %s: %w", key, err)
	}
	recordChunkRead(ctx, len(chunkData))
	logger.Debug("chunk read", "key", key, "bytes", len(chunkData))

	chunkData, err = r.codec.Decode(chunkData)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress chunk %s: %w", key, err)
	}
	if len(chunkData) != expected {
		return nil, fmt.Errorf("chunk %s holds %d bytes, expected %d", key, len(chunkData), expected)
	}
	return chunkData, nil
}

// ReadBlock returns the elements of block, which must have unit steps. A block
// inside a single chunk is cut out of that chunk; larger blocks go through
// chunked.Read.
func (r *Reader) ReadBlock(ctx context.Context, block []region.Range) ([]byte, error) {
	if len(block) != len(r.meta.Shape) {
		return nil, fmt.Errorf("%w: block of rank %d for an array of rank %d", region.ErrInvalidRegionSpec, len(block), len(r.meta.Shape))
	}
	coords, ok := chunkOf(block, r.meta.Chunks)
	if !ok {
		return chunked.Read(ctx, r, block)
	}
	if err := region.Check(block, r.meta.Shape); err != nil {
		return nil, err
	}
	origin := chunkOrigin(coords, r.meta.Chunks)
	srcAt := make([]int, len(block))
	for i, b := range block {
		if b.Step != 1 {
			return nil, fmt.Errorf("%w: block %s has a non-unit step", region.ErrInvalidRegionSpec, region.Format(block))
		}
		srcAt[i] = b.Start - origin[i]
	}

	chunkData, err := r.ReadChunk(ctx, coords)
	if err != nil {
		return nil, err
	}
	blockShape := region.Shape(block)
	n, err := ndarray.Size(blockShape)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n*r.elem.size)
	chunked.CopyBlock(out, blockShape, make([]int, len(block)), chunkData, r.meta.Chunks, srcAt, blockShape, r.elem.size)
	return out, nil
}

// ReadRegion reads the elements selected by rs, in C order. rs must have unit
// steps and lie inside the array.
func (r *Reader) ReadRegion(ctx context.Context, rs []region.Range) (_ []byte, err error) {
	ctx, span := startRegionSpan(ctx, "zarr.ReadRegion", rs)
	defer func() { endSpan(span, err) }()

	return chunked.Read(ctx, r, rs)
}

// ReadFull reads the entire Zarr array into a flat byte slice.
func (r *Reader) ReadFull(ctx context.Context) ([]byte, error) {
	return r.ReadRegion(ctx, region.FullRegion(r.meta.Shape))
}

// Metadata returns the array metadata.
func (r *Reader) Metadata() *Metadata {
	return r.meta
}

// Close closes the reader.
func (r *Reader) Close() error {
	r.codec.Close()
	if !r.owned {
		return nil
	}
	return r.bucket.Close()
}

// decode turns bytes read from this array into a typed array of the given shape.
func (r *Reader) decode(b []byte, shape []int) (array, error) {
	a, err := r.elem.decode(b, shape)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s data: %w", r.meta.DType, err)
	}
	return a, nil
}
