package nn

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	_ "github.com/djeday123/bigram/backend/cpu"

	"github.com/djeday123/bigram/backend"
	"github.com/djeday123/bigram/core"
)

func newTestBigram(t *testing.T, vocab int, seed uint64) *Bigram {
	t.Helper()
	m, err := NewBigram(vocab, WithSource(rand.NewPCG(seed, 0)))
	require.NoError(t, err)
	return m
}

func TestNewBigram(t *testing.T) {
	m := newTestBigram(t, 5, 1)
	assert.Equal(t, 5, m.VocabSize())
	assert.Equal(t, 25, m.CountParameters())
	require.Len(t, m.Parameters(), 1)
	assert.Equal(t, TableName, m.Parameters()[0].Name)

	r, c := m.Parameters()[0].Value.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 5, c)

	_, err := NewBigram(0)
	assert.Error(t, err)
}

func TestInitIsSmallAndSeeded(t *testing.T) {
	a := newTestBigram(t, 10, 42)
	b := newTestBigram(t, 10, 42)
	assert.True(t, mat.Equal(a.TokEmbed.Weight.Value, b.TokEmbed.Weight.Value))

	for _, v := range a.TokEmbed.Weight.Value.RawMatrix().Data {
		assert.Less(t, math.Abs(v), 0.2)
	}
}

func TestScoreShapeAndRows(t *testing.T) {
	m := newTestBigram(t, 4, 7)
	inputs := [][]int{{0, 1, 2}, {3, 3, 0}}
	logits, err := m.Score(inputs)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, []int(logits.Shape()))

	for b, row := range inputs {
		for tt, id := range row {
			got, err := logits.Row(b, tt)
			require.NoError(t, err)
			assert.Equal(t, m.TokEmbed.Weight.Value.RawRowView(id), got)
		}
	}
}

func TestScoreErrors(t *testing.T) {
	m := newTestBigram(t, 3, 1)
	_, err := m.Score([][]int{{0, 3}})
	assert.ErrorIs(t, err, core.ErrInvalidID)
	_, err = m.Score([][]int{{0, -1}})
	assert.ErrorIs(t, err, core.ErrInvalidID)
	_, err = m.Score([][]int{{0, 1}, {2}})
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
	_, err = m.Score(nil)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}

func TestForwardLoss(t *testing.T) {
	m := newTestBigram(t, 6, 3)
	inputs := [][]int{{0, 1, 2, 3}, {4, 5, 0, 1}}
	targets := [][]int{{1, 2, 3, 4}, {5, 0, 1, 2}}

	_, loss, err := m.Forward(inputs, targets, ModeNoGrad)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss) || math.IsInf(loss, 0))
	assert.GreaterOrEqual(t, loss, 0.0)
	// near-uniform table: loss close to ln(V)
	assert.InDelta(t, math.Log(6), loss, 0.1)

	_, _, err = m.Forward(inputs, [][]int{{1, 2, 3}, {5, 0, 1}}, ModeNoGrad)
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
	_, _, err = m.Forward(inputs, [][]int{{1, 2, 3, 6}, {5, 0, 1, 2}}, ModeNoGrad)
	assert.ErrorIs(t, err, core.ErrInvalidID)
}

func TestNoGradLeavesGradients(t *testing.T) {
	m := newTestBigram(t, 4, 3)
	inputs := [][]int{{0, 1, 2}}
	targets := [][]int{{1, 2, 3}}

	_, _, err := m.Forward(inputs, targets, ModeNoGrad)
	require.NoError(t, err)
	assert.Equal(t, 0.0, mat.Norm(m.TokEmbed.Weight.Grad, 2))

	_, _, err = m.Forward(inputs, targets, ModeTrain)
	require.NoError(t, err)
	assert.Greater(t, mat.Norm(m.TokEmbed.Weight.Grad, 2), 0.0)

	// row 3 never appears as an input
	assert.Equal(t, []float64{0, 0, 0, 0}, m.TokEmbed.Weight.Grad.RawRowView(3))

	m.ZeroGrad()
	assert.Equal(t, 0.0, mat.Norm(m.TokEmbed.Weight.Grad, 2))
}

func TestGradCheck(t *testing.T) {
	m := newTestBigram(t, 5, 11)
	inputs := [][]int{{0, 1, 2, 1}, {3, 4, 0, 0}}
	targets := [][]int{{1, 2, 1, 3}, {4, 0, 0, 2}}

	res, err := GradCheck(m, inputs, targets, 1e-5, 20)
	require.NoError(t, err)
	assert.Len(t, res.Entries, 20)
	assert.Less(t, res.MaxRelErr, 1e-4)
}

func TestParallelBackendBitIdentical(t *testing.T) {
	par, err := backend.Get("parallel")
	require.NoError(t, err)

	a := newTestBigram(t, 7, 5)
	b := newTestBigram(t, 7, 5)
	b.SetBackend(par)

	inputs := make([][]int, 16)
	targets := make([][]int, 16)
	for i := range inputs {
		inputs[i] = []int{i % 7, (i + 1) % 7, (i * 3) % 7}
		targets[i] = []int{(i + 1) % 7, (i * 3) % 7, (i + 5) % 7}
	}

	la, lossA, err := a.Forward(inputs, targets, ModeTrain)
	require.NoError(t, err)
	lb, lossB, err := b.Forward(inputs, targets, ModeTrain)
	require.NoError(t, err)
	assert.Equal(t, lossA, lossB)
	assert.True(t, la.Equal(lb))
	assert.True(t, mat.Equal(a.TokEmbed.Weight.Grad, b.TokEmbed.Weight.Grad))
}
