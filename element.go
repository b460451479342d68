package zarr

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/TuSKan/zarr-roi/ndarray"
	"github.com/TuSKan/zarr-roi/rebin"
	"github.com/TuSKan/zarr-roi/region"
)

// element binds a dtype name to the Go type its values decode to.
type element struct {
	name   string
	size   int
	decode func(b []byte, shape []int) (array, error)
	encode func(v float64) []byte
}

var elements = map[string]element{}

func init() {
	register("int8", 1, tensors.FromFlatDataAndDimensions[int8])
	register("int16", 2, tensors.FromFlatDataAndDimensions[int16])
	register("int32", 4, tensors.FromFlatDataAndDimensions[int32])
	register("int64", 8, tensors.FromFlatDataAndDimensions[int64])
	register("uint8", 1, tensors.FromFlatDataAndDimensions[uint8])
	register("uint16", 2, tensors.FromFlatDataAndDimensions[uint16])
	register("uint32", 4, tensors.FromFlatDataAndDimensions[uint32])
	register("uint64", 8, tensors.FromFlatDataAndDimensions[uint64])
	register("float32", 4, tensors.FromFlatDataAndDimensions[float32])
	register("float64", 8, tensors.FromFlatDataAndDimensions[float64])
}

// register adds a dtype. toTensor is passed in because tensors only accepts the
// concrete element types.
func register[T ndarray.Number](name string, size int, toTensor func([]T, ...int) *tensors.Tensor) {
	elements[name] = element{
		name: name,
		size: size,
		decode: func(b []byte, shape []int) (array, error) {
			a, err := decodeArray[T](b, shape)
			if err != nil {
				return nil, err
			}
			return typed[T]{a, toTensor}, nil
		},
		encode: func(v float64) []byte {
			buf := make([]byte, size)
			_, _ = binary.Encode(buf, binary.LittleEndian, T(v))
			return buf
		},
	}
}

// lookupElement returns the element for a numpy-style dtype.
func lookupElement(dtype string) (element, error) {
	name, _, err := ParseDType(dtype)
	if err != nil {
		return element{}, err
	}
	e, ok := elements[name]
	if !ok {
		return element{}, fmt.Errorf("unsupported dtype: %s", dtype)
	}
	return e, nil
}

// fillBytes returns one element holding the fill value.
func (e element) fillBytes(f FillValue) []byte {
	v, _ := f.Value()
	return e.encode(v)
}

// filled returns n elements holding the fill value.
func (e element) filled(f FillValue, n int) []byte {
	return bytes.Repeat(e.fillBytes(f), n)
}

func decodeArray[T ndarray.Number](b []byte, shape []int) (ndarray.Array[T], error) {
	n, err := ndarray.Size(shape)
	if err != nil {
		return ndarray.Array[T]{}, err
	}
	data := make([]T, n)
	if n > 0 {
		if _, err := binary.Decode(b, binary.LittleEndian, data); err != nil {
			return ndarray.Array[T]{}, fmt.Errorf("failed to decode %d elements: %w", n, err)
		}
	}
	return ndarray.New(shape, data)
}

// array is an ndarray.Array whose element type is only known at run time.
type array interface {
	Shape() []int
	Crop(rs []region.Range) (array, error)
	Rebin(factor int, red rebin.Reduction) (array, error)
	Bytes() []byte
	Tensor() *tensors.Tensor
	Value() any
}

type typed[T ndarray.Number] struct {
	ndarray.Array[T]
	toTensor func([]T, ...int) *tensors.Tensor
}

func (a typed[T]) Crop(rs []region.Range) (array, error) {
	out, err := a.Array.Crop(rs)
	if err != nil {
		return nil, err
	}
	return typed[T]{out, a.toTensor}, nil
}

func (a typed[T]) Rebin(factor int, red rebin.Reduction) (array, error) {
	out, err := rebin.Rebin(a.Array, factor, red)
	if err != nil {
		return nil, err
	}
	return typed[T]{out, a.toTensor}, nil
}

func (a typed[T]) Bytes() []byte {
	data := a.Data()
	if len(data) == 0 {
		return []byte{}
	}
	buf := make([]byte, binary.Size(data))
	_, _ = binary.Encode(buf, binary.LittleEndian, data)
	return buf
}

func (a typed[T]) Tensor() *tensors.Tensor {
	return a.toTensor(a.Data(), a.Shape()...)
}

func (a typed[T]) Value() any { return a.Array }
