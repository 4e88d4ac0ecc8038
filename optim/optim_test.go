package optim

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	_ "github.com/djeday123/bigram/backend/cpu"

	"github.com/djeday123/bigram/nn"
)

func newParam(vals ...float64) *nn.Parameter {
	return &nn.Parameter{
		Name:  "w",
		Value: mat.NewDense(1, len(vals), vals),
		Grad:  mat.NewDense(1, len(vals), nil),
	}
}

func TestSGDStep(t *testing.T) {
	p := newParam(1, 2)
	p.Grad.Set(0, 0, 0.5)
	p.Grad.Set(0, 1, -1)

	opt := NewSGD([]*nn.Parameter{p}, 0.1)
	opt.Step()
	assert.InDelta(t, 0.95, p.Value.At(0, 0), 1e-12)
	assert.InDelta(t, 2.1, p.Value.At(0, 1), 1e-12)

	opt.ZeroGrad()
	assert.Equal(t, 0.0, p.Grad.At(0, 1))
}

func TestAdamWFirstStep(t *testing.T) {
	p := newParam(1)
	p.Grad.Set(0, 0, 3)

	opt := NewAdamW([]*nn.Parameter{p}, 0.1)
	opt.WeightDecay = 0
	opt.Step()
	// first bias-corrected step moves by lr * sign(g)
	assert.InDelta(t, 0.9, p.Value.At(0, 0), 1e-6)
	assert.Equal(t, 1, opt.Steps())
}

func TestAdamWWeightDecay(t *testing.T) {
	p := newParam(2)
	opt := NewAdamW([]*nn.Parameter{p}, 0.1)
	opt.WeightDecay = 0.5
	opt.Step()
	assert.InDelta(t, 2-0.1*0.5*2, p.Value.At(0, 0), 1e-12)
}

func TestClipGradNorm(t *testing.T) {
	p := newParam(0, 0)
	p.Grad.Set(0, 0, 3)
	p.Grad.Set(0, 1, 4)
	params := []*nn.Parameter{p}
	assert.InDelta(t, 5, GradNorm(params), 1e-12)

	clipGradNorm(params, 1)
	assert.InDelta(t, 1, GradNorm(params), 1e-12)
	assert.InDelta(t, 0.6, p.Grad.At(0, 0), 1e-12)

	clipGradNorm(params, 0)
	assert.InDelta(t, 1, GradNorm(params), 1e-12)
}

func TestNew(t *testing.T) {
	p := []*nn.Parameter{newParam(1)}
	opt, err := New("adamw", p, 1e-2, Options{WeightDecay: 0.01})
	require.NoError(t, err)
	assert.IsType(t, &AdamW{}, opt)
	assert.Equal(t, 1e-2, opt.LR())
	opt.SetLR(5e-3)
	assert.Equal(t, 5e-3, opt.LR())

	opt, err = New("sgd", p, 1e-2, Options{})
	require.NoError(t, err)
	assert.IsType(t, &SGD{}, opt)

	_, err = New("lion", p, 1e-2, Options{})
	assert.Error(t, err)
	_, err = New("sgd", p, 0, Options{})
	assert.Error(t, err)
}

func TestCosineSchedule(t *testing.T) {
	assert.InDelta(t, 0.1, CosineSchedule(0, 10, 100, 1, 0), 1e-12)
	assert.InDelta(t, 1, CosineSchedule(10, 10, 100, 1, 0), 1e-12)
	assert.InDelta(t, 0.5, CosineSchedule(55, 10, 100, 1, 0), 1e-12)
	assert.InDelta(t, 0.1, CosineSchedule(100, 10, 100, 1, 0.1), 1e-12)
	assert.InDelta(t, 0.1, CosineSchedule(500, 10, 100, 1, 0.1), 1e-12)

	f, err := NewSchedule(ScheduleConstant, 0, 100, 0.3, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.3, f(99))
	_, err = NewSchedule("step", 0, 100, 0.3, 0)
	assert.Error(t, err)
}

func TestOptimizersReduceLoss(t *testing.T) {
	inputs := [][]int{{0, 1, 0, 1, 0, 1, 0, 1}}
	targets := [][]int{{1, 0, 1, 0, 1, 0, 1, 0}}
	for _, name := range []string{NameAdamW, NameSGD} {
		m, err := nn.NewBigram(2, nn.WithSource(rand.NewPCG(1, 1)))
		require.NoError(t, err)
		opt, err := New(name, m.Parameters(), 0.5, Options{})
		require.NoError(t, err)

		_, first, err := m.Forward(inputs, targets, nn.ModeNoGrad)
		require.NoError(t, err)
		for i := 0; i < 50; i++ {
			opt.ZeroGrad()
			_, _, err := m.Forward(inputs, targets, nn.ModeTrain)
			require.NoError(t, err)
			opt.Step()
		}
		_, last, err := m.Forward(inputs, targets, nn.ModeNoGrad)
		require.NoError(t, err)
		assert.Less(t, last, first, name)
		assert.False(t, math.IsNaN(last))
	}
}
