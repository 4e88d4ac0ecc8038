package ops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/djeday123/bigram/backend/cpu"
	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/tensor"
)

func TestSoftmaxStable(t *testing.T) {
	p := Softmax(nil, []float64{1000, 1000, 1000, 1000})
	for _, v := range p {
		assert.InDelta(t, 0.25, v, 1e-12)
	}
	p = Softmax(nil, []float64{-1e4, 0})
	assert.InDelta(t, 1.0, floats.Sum(p), 1e-12)
	assert.InDelta(t, 1.0, p[1], 1e-12)
}

func TestLogSoftmaxMatchesSoftmax(t *testing.T) {
	x := []float64{0.3, -1.2, 2.5}
	p := Softmax(nil, x)
	lp := LogSoftmax(nil, x)
	for i := range x {
		assert.InDelta(t, math.Log(p[i]), lp[i], 1e-12)
	}
}

func TestArgMaxTopK(t *testing.T) {
	assert.Equal(t, 2, ArgMax([]float64{1, 3, 5, 2}))
	assert.Equal(t, -1, ArgMax(nil))

	logits := []float64{1, 4, 2, 3}
	TopKMask(logits, 2)
	assert.True(t, math.IsInf(logits[0], -1))
	assert.True(t, math.IsInf(logits[2], -1))
	assert.Equal(t, 4.0, logits[1])
	assert.Equal(t, 3.0, logits[3])

	logits = []float64{2, 4}
	ScaleLogits(logits, 2)
	assert.Equal(t, []float64{1, 2}, logits)
}

func TestCrossEntropyUniform(t *testing.T) {
	logits, err := tensor.Zeros(tensor.Shape{2, 3, 4})
	require.NoError(t, err)
	targets := [][]int{{0, 1, 2}, {3, 0, 1}}

	loss, err := CrossEntropyLoss(&cpu.Backend{}, logits, targets)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(4), loss, 1e-12)
}

func TestCrossEntropyBackwardRowsSumToZero(t *testing.T) {
	logits, err := tensor.FromSlice([]float64{0.1, 0.5, -0.3, 2, 1, 0}, tensor.Shape{1, 2, 3})
	require.NoError(t, err)
	grad, err := CrossEntropyBackward(&cpu.Backend{}, logits, [][]int{{2, 0}})
	require.NoError(t, err)
	require.True(t, grad.Shape().Equal(logits.Shape()))

	for s := 0; s < 2; s++ {
		row, _ := grad.Row(0, s)
		assert.InDelta(t, 0, floats.Sum(row), 1e-12)
	}
	row, _ := grad.Row(0, 0)
	assert.Less(t, row[2], 0.0)
}

func TestParallelMatchesSerial(t *testing.T) {
	data := make([]float64, 8*5*6)
	for i := range data {
		data[i] = math.Sin(float64(i) * 0.37)
	}
	logits, err := tensor.New(data, tensor.Shape{8, 5, 6})
	require.NoError(t, err)
	targets := make([][]int, 8)
	for b := range targets {
		targets[b] = make([]int, 5)
		for s := range targets[b] {
			targets[b][s] = (b + s) % 6
		}
	}

	serial, err := CrossEntropyLoss(&cpu.Backend{}, logits, targets)
	require.NoError(t, err)
	par, err := CrossEntropyLoss(cpu.NewParallel(4), logits, targets)
	require.NoError(t, err)
	assert.Equal(t, serial, par)

	gs, err := CrossEntropyBackward(&cpu.Backend{}, logits, targets)
	require.NoError(t, err)
	gp, err := CrossEntropyBackward(cpu.NewParallel(4), logits, targets)
	require.NoError(t, err)
	assert.True(t, gs.Equal(gp))
}

func TestCrossEntropyRejectsBadTargets(t *testing.T) {
	logits, _ := tensor.Zeros(tensor.Shape{1, 2, 3})
	_, err := CrossEntropyLoss(&cpu.Backend{}, logits, [][]int{{0, 3}})
	assert.ErrorIs(t, err, core.ErrInvalidID)
	_, err = CrossEntropyLoss(&cpu.Backend{}, logits, [][]int{{0}})
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
	_, err = CrossEntropyBackward(&cpu.Backend{}, logits, [][]int{{0, 1}, {1, 1}})
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}
