package zarr

import (
	"context"
	"fmt"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"gocloud.dev/blob"

	"github.com/TuSKan/zarr-roi/chain"
	"github.com/TuSKan/zarr-roi/rebin"
	"github.com/TuSKan/zarr-roi/region"
)

// Dataset applies crop and bin chains to a Zarr array, reading only the chunks
// the collapsed crop touches.
type Dataset struct {
	reader       *Reader
	CurrentIndex int
}

// NewDataset creates a new Dataset for the given base path.
func NewDataset(ctx context.Context, path string) (*Dataset, error) {
	r, err := NewReader(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Dataset{reader: r}, nil
}

// OpenDataset creates a Dataset over the array at the root of bucket. The
// caller keeps ownership of bucket.
func OpenDataset(ctx context.Context, bucket *blob.Bucket) (*Dataset, error) {
	r, err := OpenReader(ctx, bucket)
	if err != nil {
		return nil, err
	}
	return &Dataset{reader: r}, nil
}

// Reader returns the underlying array reader.
func (d *Dataset) Reader() *Reader {
	return d.reader
}

// Plan collapses ops against the array shape.
func (d *Dataset) Plan(ops chain.Chain) (chain.Plan, error) {
	return chain.Collapse(ops, d.reader.Shape())
}

// Read applies ops to the array and returns the result as a tensor.
func (d *Dataset) Read(ctx context.Context, ops chain.Chain, red rebin.Reduction) (*tensors.Tensor, error) {
	a, err := d.read(ctx, ops, red)
	if err != nil {
		return nil, err
	}
	return a.Tensor(), nil
}

// ReadArray is Read returning an ndarray.Array of the dtype's Go element type,
// for example ndarray.Array[float32] for "<f4".
func (d *Dataset) ReadArray(ctx context.Context, ops chain.Chain, red rebin.Reduction) (any, error) {
	a, err := d.read(ctx, ops, red)
	if err != nil {
		return nil, err
	}
	return a.Value(), nil
}

// ReadBytes is Read returning the little-endian bytes of the result and its shape.
func (d *Dataset) ReadBytes(ctx context.Context, ops chain.Chain, red rebin.Reduction) ([]byte, []int, error) {
	a, err := d.read(ctx, ops, red)
	if err != nil {
		return nil, nil, err
	}
	return a.Bytes(), a.Shape(), nil
}

func (d *Dataset) read(ctx context.Context, ops chain.Chain, red rebin.Reduction) (_ array, err error) {
	plan, err := d.Plan(ops)
	if err != nil {
		return nil, err
	}
	ctx, span := startRegionSpan(ctx, "zarr.Dataset.Read", plan.Region)
	defer func() { endSpan(span, err) }()
	logger.Debug("collapsed chain", "ops", ops.String(), "plan", plan.String(), "reduction", red.String())

	box, local := bounds(plan.Region)
	raw, err := d.reader.ReadRegion(ctx, box)
	if err != nil {
		return nil, err
	}
	a, err := d.reader.decode(raw, region.Shape(box))
	if err != nil {
		return nil, err
	}
	if local != nil {
		if a, err = a.Crop(local); err != nil {
			return nil, err
		}
	}
	return a.Rebin(plan.Bin, red)
}

// bounds returns the unit-step box enclosing rs and, if rs has steps, the
// selection of rs relative to that box.
func bounds(rs []region.Range) (box, local []region.Range) {
	box = make([]region.Range, len(rs))
	stepped := false
	for i, r := range rs {
		box[i] = r.Bounds()
		stepped = stepped || r.Step != 1
	}
	if !stepped {
		return box, nil
	}
	local = make([]region.Range, len(rs))
	for i, r := range rs {
		local[i] = region.Range{Start: 0, Stop: box[i].Len(), Step: r.Step}
	}
	return box, local
}

// NextBatch reads the next batch of size batchSize along the first axis.
// Returns io.EOF if there is no more data.
func (d *Dataset) NextBatch(ctx context.Context, batchSize int) (*tensors.Tensor, error) {
	shape := d.reader.Shape()
	if len(shape) == 0 {
		return nil, fmt.Errorf("cannot batch a 0-d array")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", batchSize)
	}
	if d.CurrentIndex >= shape[0] {
		return nil, io.EOF
	}

	start := d.CurrentIndex
	end := min(start+batchSize, shape[0])
	rows := chain.Crop(region.Spec{region.Sel(region.Slice{Start: region.At(start), Stop: region.At(end)})})

	batch, err := d.Read(ctx, chain.Chain{rows}, rebin.Sum)
	if err != nil {
		return nil, err
	}
	d.CurrentIndex = end
	return batch, nil
}

// Close closes the dataset.
func (d *Dataset) Close() error {
	return d.reader.Close()
}
