package checkpoint

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/nn"
	"github.com/djeday123/bigram/tensor"
)

// Array is a serialized matrix. Exactly one of F32 and F64 is populated,
// according to DType.
type Array struct {
	DType core.DType
	Shape []int
	F32   []float32
	F64   []float64
}

func newArray(d *mat.Dense, dtype core.DType) (Array, error) {
	r, c := d.Dims()
	data := mat.DenseCopyOf(d).RawMatrix().Data
	a := Array{DType: dtype, Shape: []int{r, c}}
	switch dtype {
	case core.Float64:
		a.F64 = data
	case core.Float32:
		a.F32 = tensor.ToFloat32Slice(data)
	default:
		return Array{}, fmt.Errorf("checkpoint: unsupported dtype %s", dtype)
	}
	return a, nil
}

// Dense rebuilds the matrix, widening float32 storage to float64.
func (a Array) Dense() (*mat.Dense, error) {
	if len(a.Shape) != 2 || a.Shape[0] < 1 || a.Shape[1] < 1 {
		return nil, fmt.Errorf("%w: array shape %v is not a matrix", core.ErrShapeMismatch, a.Shape)
	}
	var data []float64
	switch a.DType {
	case core.Float64:
		data = append([]float64(nil), a.F64...)
	case core.Float32:
		data = tensor.FromFloat32Slice(a.F32)
	default:
		return nil, fmt.Errorf("%w: unknown dtype %d", ErrFormat, a.DType)
	}
	if n := core.Shape(a.Shape).NumElements(); len(data) != n {
		return nil, fmt.Errorf("%w: array %v holds %d values, want %d", ErrFormat, a.Shape, len(data), n)
	}
	return mat.NewDense(a.Shape[0], a.Shape[1], data), nil
}

// ByteSize is the payload size of the stored values.
func (a Array) ByteSize() int {
	return core.Shape(a.Shape).NumElements() * int(a.DType.Size())
}

func encodeTensors(sd nn.StateDict, dtype core.DType) (map[string]Array, error) {
	out := make(map[string]Array, len(sd))
	for _, name := range sd.Names() {
		a, err := newArray(sd[name], dtype)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = a
	}
	return out, nil
}

func decodeTensors(arrays map[string]Array) (nn.StateDict, error) {
	sd := make(nn.StateDict, len(arrays))
	for name, a := range arrays {
		d, err := a.Dense()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sd[name] = d
	}
	return sd, nil
}
