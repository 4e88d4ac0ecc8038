package nn

import (
	"github.com/djeday123/bigram/ops"
	"github.com/djeday123/bigram/tensor"
)

// backward propagates the cross-entropy gradient into the table.
//
// logits[b,t] = W[inputs[b][t]], so dL/dW[i] is the sum of dL/dlogits over
// every position whose input is i:
//
//	dL/dW[i] += (softmax(W[i]) - onehot(target)) / N
//
// The scatter-add runs on the calling goroutine in batch order.
func (m *Bigram) backward(inputs [][]int, logits *tensor.Tensor, targets [][]int) error {
	gradLogits, err := ops.CrossEntropyBackward(m.bk, logits, targets)
	if err != nil {
		return err
	}
	for b, row := range inputs {
		for t, id := range row {
			g, err := gradLogits.Row(b, t)
			if err != nil {
				return err
			}
			m.TokEmbed.AccumulateGrad(id, g)
		}
	}
	return nil
}
