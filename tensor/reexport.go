package tensor

import "github.com/djeday123/bigram/core"

// Re-export core types so tensor.Shape and tensor.Strides still work.
type Shape = core.Shape
type Strides = core.Strides

var (
	ContiguousStrides = core.ContiguousStrides
	FlatIndex         = core.FlatIndex
	ErrShapeMismatch  = core.ErrShapeMismatch
)
