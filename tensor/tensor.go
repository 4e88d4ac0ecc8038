package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Tensor is a dense, row-major n-dimensional float64 array.
// Logits and their gradients flow through the model as Tensors.
type Tensor struct {
	data    []float64
	shape   Shape
	strides Strides
}

// ---- Constructors ----

// New wraps data without copying. len(data) must match shape.
func New(data []float64, shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	n := shape.NumElements()
	if len(data) != n {
		return nil, fmt.Errorf("%w: data length %d != shape elements %d", ErrShapeMismatch, len(data), n)
	}
	return &Tensor{
		data:    data,
		shape:   shape.Clone(),
		strides: ContiguousStrides(shape),
	}, nil
}

// FromSlice creates a tensor holding a copy of data.
func FromSlice(data []float64, shape Shape) (*Tensor, error) {
	buf := make([]float64, len(data))
	copy(buf, data)
	return New(buf, shape)
}

// Zeros creates a zero-filled tensor.
func Zeros(shape Shape) (*Tensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return New(make([]float64, shape.NumElements()), shape)
}

// ---- Accessors ----

func (t *Tensor) Shape() Shape     { return t.shape }
func (t *Tensor) NDim() int        { return len(t.shape) }
func (t *Tensor) NumElements() int { return t.shape.NumElements() }
func (t *Tensor) Data() []float64  { return t.data }

// Row returns the contiguous slice along the last axis addressed by the
// leading indices. The slice aliases the tensor's storage.
func (t *Tensor) Row(leading ...int) ([]float64, error) {
	idx := make([]int, len(leading)+1)
	copy(idx, leading)
	off, err := FlatIndex(idx, t.shape, t.strides)
	if err != nil {
		return nil, fmt.Errorf("row %v: %w", leading, err)
	}
	last := t.shape[len(t.shape)-1]
	return t.data[off : off+last : off+last], nil
}

// EqualApprox reports whether both tensors share a shape and all elements
// agree within tol.
func (t *Tensor) EqualApprox(other *Tensor, tol float64) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	return floats.EqualApprox(t.data, other.data, tol)
}

// Equal reports exact elementwise equality.
func (t *Tensor) Equal(other *Tensor) bool {
	if !t.shape.Equal(other.shape) {
		return false
	}
	return floats.Equal(t.data, other.data)
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v, dtype=float64)", t.shape)
}
