package train

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrSplitTooShort is returned when a split cannot hold one context window
// plus its shifted target.
var ErrSplitTooShort = errors.New("split too short for context length")

// Split selects the training or validation portion of a Dataset.
type Split uint8

const (
	SplitTrain Split = iota
	SplitVal
)

func (s Split) String() string {
	if s == SplitTrain {
		return "train"
	}
	return "val"
}

// Batch is one sample of contiguous windows. Targets[b][t] is the token
// following Inputs[b][t] in the corpus.
type Batch struct {
	Inputs  [][]int
	Targets [][]int
}

// Dataset holds an encoded corpus split into training and validation parts.
type Dataset struct {
	train []int
	val   []int
}

// NewDataset puts the first trainFraction of ids in the training split and
// the rest in the validation split.
func NewDataset(ids []int, trainFraction float64) (*Dataset, error) {
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, fmt.Errorf("dataset: train fraction must be in (0,1), got %g", trainFraction)
	}
	n := int(float64(len(ids)) * trainFraction)
	if n == 0 || n == len(ids) {
		return nil, fmt.Errorf("%w: %d tokens split at %g leaves an empty split", ErrSplitTooShort, len(ids), trainFraction)
	}
	return &Dataset{train: ids[:n], val: ids[n:]}, nil
}

// Len returns the number of tokens in split.
func (d *Dataset) Len(split Split) int {
	return len(d.tokens(split))
}

func (d *Dataset) tokens(split Split) []int {
	if split == SplitTrain {
		return d.train
	}
	return d.val
}

// Check reports ErrSplitTooShort unless both splits are longer than contextLength.
func (d *Dataset) Check(contextLength int) error {
	for _, s := range []Split{SplitTrain, SplitVal} {
		if n := d.Len(s); n <= contextLength {
			return fmt.Errorf("%w: %s split has %d tokens, context length %d", ErrSplitTooShort, s, n, contextLength)
		}
	}
	return nil
}

// Batch samples batchSize windows of contextLength tokens uniformly from split.
func (d *Dataset) Batch(split Split, batchSize, contextLength int, rng *rand.Rand) (Batch, error) {
	if batchSize < 1 || contextLength < 1 {
		return Batch{}, fmt.Errorf("dataset: batch size and context length must be positive, got %d and %d", batchSize, contextLength)
	}
	tokens := d.tokens(split)
	if len(tokens) <= contextLength {
		return Batch{}, fmt.Errorf("%w: %s split has %d tokens, context length %d", ErrSplitTooShort, split, len(tokens), contextLength)
	}
	maxStart := len(tokens) - contextLength

	b := Batch{
		Inputs:  make([][]int, batchSize),
		Targets: make([][]int, batchSize),
	}
	for i := 0; i < batchSize; i++ {
		start := rng.IntN(maxStart)
		b.Inputs[i] = append([]int(nil), tokens[start:start+contextLength]...)
		b.Targets[i] = append([]int(nil), tokens[start+1:start+contextLength+1]...)
	}
	return b, nil
}
