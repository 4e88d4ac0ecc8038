package core

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// Strides represents element offsets between consecutive entries along each dimension.
type Strides []int

// NumElements returns the total number of elements in the shape.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // scalar
	}
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// NDim returns the number of dimensions.
func (s Shape) NDim() int {
	return len(s)
}

// Equal checks if two shapes are identical.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	c := make(Shape, len(s))
	copy(c, s)
	return c
}

// Validate rejects negative dimensions.
func (s Shape) Validate() error {
	for i, d := range s {
		if d < 0 {
			return fmt.Errorf("%w: dimension %d of %v is negative", ErrShapeMismatch, i, s)
		}
	}
	return nil
}

func (s Shape) String() string {
	return fmt.Sprintf("%v", []int(s))
}

// ContiguousStrides computes row-major (C-order) strides for a given shape.
func ContiguousStrides(shape Shape) Strides {
	ndim := len(shape)
	if ndim == 0 {
		return Strides{}
	}
	strides := make(Strides, ndim)
	strides[ndim-1] = 1
	for i := ndim - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * shape[i+1]
	}
	return strides
}

// FlatIndex converts a multi-dimensional index to a flat element offset.
// It returns an error if the index does not address an element of shape.
func FlatIndex(indices []int, shape Shape, strides Strides) (int, error) {
	if len(indices) != len(shape) {
		return 0, fmt.Errorf("%w: index %v has %d dims, shape %v has %d",
			ErrShapeMismatch, indices, len(indices), shape, len(shape))
	}
	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= shape[i] {
			return 0, fmt.Errorf("%w: index %v out of range for shape %v", ErrShapeMismatch, indices, shape)
		}
		offset += idx * strides[i]
	}
	return offset, nil
}
