package ops

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/djeday123/bigram/backend"
	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/tensor"
)

// checkTargets verifies targets is [batch][seqLen] over ids in [0, vocabSize).
func checkTargets(logits *tensor.Tensor, targets [][]int) (batch, seqLen, vocabSize int, err error) {
	shape := logits.Shape()
	if shape.NDim() != 3 {
		return 0, 0, 0, fmt.Errorf("%w: logits must be [batch, seq, vocab], got %v", core.ErrShapeMismatch, shape)
	}
	batch, seqLen, vocabSize = shape[0], shape[1], shape[2]
	if len(targets) != batch {
		return 0, 0, 0, fmt.Errorf("%w: %d target rows for batch %d", core.ErrShapeMismatch, len(targets), batch)
	}
	for b, row := range targets {
		if len(row) != seqLen {
			return 0, 0, 0, fmt.Errorf("%w: target row %d has length %d, want %d", core.ErrShapeMismatch, b, len(row), seqLen)
		}
		for s, id := range row {
			if id < 0 || id >= vocabSize {
				return 0, 0, 0, fmt.Errorf("%w: target %d at [%d,%d] outside [0,%d)", core.ErrInvalidID, id, b, s, vocabSize)
			}
		}
	}
	return batch, seqLen, vocabSize, nil
}

// CrossEntropyLoss computes the mean cross-entropy between logits and targets.
// logits: [batch, seqLen, vocabSize]
// targets: [batch][seqLen]
// Rows are reduced in batch order whatever the backend, so the result does
// not depend on scheduling.
func CrossEntropyLoss(bk backend.Backend, logits *tensor.Tensor, targets [][]int) (float64, error) {
	batch, seqLen, vocabSize, err := checkTargets(logits, targets)
	if err != nil {
		return 0, err
	}
	if batch*seqLen == 0 {
		return 0, fmt.Errorf("%w: empty batch", core.ErrShapeMismatch)
	}

	data := logits.Data()
	rowLoss := make([]float64, batch)
	err = bk.ParallelFor(batch, func(b int) error {
		logp := make([]float64, vocabSize)
		sum := 0.0
		for s := 0; s < seqLen; s++ {
			offset := (b*seqLen + s) * vocabSize
			LogSoftmax(logp, data[offset:offset+vocabSize])
			sum -= logp[targets[b][s]]
		}
		rowLoss[b] = sum
		return nil
	})
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, l := range rowLoss {
		total += l
	}
	return total / float64(batch*seqLen), nil
}

// CrossEntropyBackward computes gradients of the mean cross-entropy w.r.t. logits.
// Returns gradient tensor with same shape as logits: [batch, seqLen, vocabSize]
// Gradient = softmax(logits) - one_hot(targets), divided by batch*seqLen.
func CrossEntropyBackward(bk backend.Backend, logits *tensor.Tensor, targets [][]int) (*tensor.Tensor, error) {
	batch, seqLen, vocabSize, err := checkTargets(logits, targets)
	if err != nil {
		return nil, err
	}
	count := batch * seqLen
	if count == 0 {
		return nil, fmt.Errorf("%w: empty batch", core.ErrShapeMismatch)
	}

	grad, err := tensor.Zeros(logits.Shape())
	if err != nil {
		return nil, err
	}
	src := logits.Data()
	dst := grad.Data()
	scale := 1.0 / float64(count)

	err = bk.ParallelFor(batch, func(b int) error {
		for s := 0; s < seqLen; s++ {
			offset := (b*seqLen + s) * vocabSize
			g := Softmax(dst[offset:offset+vocabSize], src[offset:offset+vocabSize])
			g[targets[b][s]] -= 1.0
			floats.Scale(scale, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grad, nil
}
