package nn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Parameter is a named trainable matrix together with its gradient.
type Parameter struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

// NumElements returns rows*cols of the parameter.
func (p *Parameter) NumElements() int {
	r, c := p.Value.Dims()
	return r * c
}

// ZeroGrad clears the accumulated gradient.
func (p *Parameter) ZeroGrad() {
	p.Grad.Zero()
}

// Embedding is a lookup table for token embeddings.
type Embedding struct {
	Weight    *Parameter // [vocabSize, embedDim]
	VocabSize int
	EmbedDim  int
}

// NewEmbedding creates an embedding layer with normal initialization.
func NewEmbedding(name string, vocabSize, embedDim int, std float64, rng *rand.Rand) (*Embedding, error) {
	if vocabSize < 1 || embedDim < 1 {
		return nil, fmt.Errorf("embedding %s: invalid dims %dx%d", name, vocabSize, embedDim)
	}
	data := make([]float64, vocabSize*embedDim)
	for i := range data {
		data[i] = rng.NormFloat64() * std
	}
	return &Embedding{
		Weight: &Parameter{
			Name:  name,
			Value: mat.NewDense(vocabSize, embedDim, data),
			Grad:  mat.NewDense(vocabSize, embedDim, nil),
		},
		VocabSize: vocabSize,
		EmbedDim:  embedDim,
	}, nil
}

// Lookup copies the row for id into dst.
func (e *Embedding) Lookup(dst []float64, id int) {
	copy(dst, e.Weight.Value.RawRowView(id))
}

// Row returns the live row for id. Callers must not modify it.
func (e *Embedding) Row(id int) []float64 {
	return e.Weight.Value.RawRowView(id)
}

// AccumulateGrad adds grad into the gradient row of id.
func (e *Embedding) AccumulateGrad(id int, grad []float64) {
	floats.Add(e.Weight.Grad.RawRowView(id), grad)
}

// Parameters returns trainable parameters.
func (e *Embedding) Parameters() []*Parameter {
	return []*Parameter{e.Weight}
}
