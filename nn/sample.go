package nn

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/ops"
)

// Sampler picks the next token id from a row of logits.
// Implementations must not modify logits.
type Sampler interface {
	Sample(logits []float64) (int, error)
}

// CategoricalSampler draws from softmax(logits / Temperature), optionally
// restricted to the TopK most likely tokens.
type CategoricalSampler struct {
	Temperature float64 // <= 0 or 1 means plain softmax
	TopK        int     // 0 disables truncation

	src rand.Source
	buf []float64
}

// NewCategoricalSampler returns a sampler drawing from src. A nil src is
// replaced by a randomly seeded PCG.
func NewCategoricalSampler(src rand.Source) *CategoricalSampler {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &CategoricalSampler{Temperature: 1, src: src}
}

// Sample implements Sampler.
func (s *CategoricalSampler) Sample(logits []float64) (int, error) {
	if len(logits) == 0 {
		return 0, fmt.Errorf("%w: empty logits", core.ErrShapeMismatch)
	}
	if cap(s.buf) < len(logits) {
		s.buf = make([]float64, len(logits))
	}
	probs := s.buf[:len(logits)]
	copy(probs, logits)
	ops.ScaleLogits(probs, s.Temperature)
	ops.TopKMask(probs, s.TopK)
	ops.Softmax(probs, probs)

	id := int(distuv.NewCategorical(probs, s.src).Rand())
	return id, nil
}

// GreedySampler always picks the most likely token.
type GreedySampler struct{}

// Sample implements Sampler.
func (GreedySampler) Sample(logits []float64) (int, error) {
	if len(logits) == 0 {
		return 0, fmt.Errorf("%w: empty logits", core.ErrShapeMismatch)
	}
	return ops.ArgMax(logits), nil
}

// Generate extends seed by steps tokens. Each step looks only at the last
// token, samples its successor from that token's row and appends it.
// The result has len(seed)+steps ids and starts with seed.
func (m *Bigram) Generate(seed []int, steps int, sampler Sampler) ([]int, error) {
	return m.GenerateFunc(seed, steps, sampler, nil)
}

// GenerateFunc is Generate with a per-step callback receiving each new id.
// A callback error stops generation and is returned.
func (m *Bigram) GenerateFunc(seed []int, steps int, sampler Sampler, fn func(id int) error) ([]int, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("%w: empty seed", core.ErrShapeMismatch)
	}
	if steps < 0 {
		return nil, fmt.Errorf("generate: negative steps %d", steps)
	}
	if sampler == nil {
		return nil, fmt.Errorf("generate: nil sampler")
	}
	if _, _, err := m.checkIDs("seed", [][]int{seed}); err != nil {
		return nil, err
	}

	out := make([]int, len(seed), len(seed)+steps)
	copy(out, seed)
	v := m.VocabSize()
	for i := 0; i < steps; i++ {
		last := out[len(out)-1]
		next, err := sampler.Sample(m.TokEmbed.Row(last))
		if err != nil {
			return nil, fmt.Errorf("generate step %d: %w", i, err)
		}
		if next < 0 || next >= v {
			return nil, fmt.Errorf("%w: sampler returned %d outside [0,%d)", core.ErrInvalidID, next, v)
		}
		out = append(out, next)
		if fn != nil {
			if err := fn(next); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
