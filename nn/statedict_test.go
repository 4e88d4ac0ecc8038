package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/djeday123/bigram/core"
)

func TestStateDictRoundTrip(t *testing.T) {
	src := newTestBigram(t, 6, 1)
	dst := newTestBigram(t, 6, 2)

	inputs := [][]int{{0, 1, 2, 3, 4, 5}}
	before, err := src.Score(inputs)
	require.NoError(t, err)

	sd := src.StateDict()
	assert.Equal(t, []string{TableName}, sd.Names())
	require.NoError(t, dst.LoadStateDict(sd))

	after, err := dst.Score(inputs)
	require.NoError(t, err)
	assert.True(t, before.Equal(after))
}

func TestStateDictIsACopy(t *testing.T) {
	m := newTestBigram(t, 3, 1)
	sd := m.StateDict()
	sd[TableName].Set(0, 0, 99)
	assert.NotEqual(t, 99.0, m.TokEmbed.Weight.Value.At(0, 0))
}

func TestLoadStateDictShapeMismatch(t *testing.T) {
	m := newTestBigram(t, 3, 1)
	orig := mat.DenseCopyOf(m.TokEmbed.Weight.Value)

	err := m.LoadStateDict(StateDict{TableName: mat.NewDense(4, 4, nil)})
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
	assert.True(t, mat.Equal(orig, m.TokEmbed.Weight.Value))

	err = m.LoadStateDict(StateDict{"other.weight": mat.NewDense(3, 3, nil)})
	assert.Error(t, err)

	err = m.LoadStateDict(StateDict{
		TableName:      mat.NewDense(3, 3, nil),
		"extra.weight": mat.NewDense(1, 1, nil),
	})
	assert.Error(t, err)
	assert.True(t, mat.Equal(orig, m.TokEmbed.Weight.Value))
}
