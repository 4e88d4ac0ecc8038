package optim

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/djeday123/bigram/nn"
)

// AdamW implements the AdamW optimizer (decoupled weight decay).
// θ -= lr * (m̂ / (sqrt(v̂) + eps) + wd * θ)
type AdamW struct {
	Params      []*nn.Parameter
	Beta1       float64 // first moment decay (default 0.9)
	Beta2       float64 // second moment decay (default 0.999)
	Eps         float64 // default 1e-8
	WeightDecay float64 // default 0.01
	MaxGradNorm float64 // gradient clipping (0 = disabled)

	lr   float64
	m    []*mat.Dense // first moment
	v    []*mat.Dense // second moment
	step int
}

// NewAdamW creates an AdamW optimizer with standard defaults.
func NewAdamW(params []*nn.Parameter, lr float64) *AdamW {
	m := make([]*mat.Dense, len(params))
	v := make([]*mat.Dense, len(params))
	for i, p := range params {
		m[i] = zerosLike(p.Value)
		v[i] = zerosLike(p.Value)
	}
	return &AdamW{
		Params:      params,
		Beta1:       0.9,
		Beta2:       0.999,
		Eps:         1e-8,
		WeightDecay: 0.01,
		lr:          lr,
		m:           m,
		v:           v,
	}
}

func zerosLike(a *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	return mat.NewDense(r, c, nil)
}

// Step performs one optimization step.
func (opt *AdamW) Step() {
	opt.step++
	clipGradNorm(opt.Params, opt.MaxGradNorm)

	bc1 := 1.0 - math.Pow(opt.Beta1, float64(opt.step))
	bc2 := 1.0 - math.Pow(opt.Beta2, float64(opt.step))

	for i, p := range opt.Params {
		pData := p.Value.RawMatrix().Data
		gData := p.Grad.RawMatrix().Data
		m := opt.m[i].RawMatrix().Data
		v := opt.v[i].RawMatrix().Data

		for j, g := range gData {
			m[j] = opt.Beta1*m[j] + (1-opt.Beta1)*g
			v[j] = opt.Beta2*v[j] + (1-opt.Beta2)*g*g

			mHat := m[j] / bc1
			vHat := v[j] / bc2
			update := mHat / (math.Sqrt(vHat) + opt.Eps)

			pData[j] -= opt.lr * (update + opt.WeightDecay*pData[j])
		}
	}
}

// Steps returns how many updates have been applied.
func (opt *AdamW) Steps() int { return opt.step }

// ZeroGrad clears all gradients.
func (opt *AdamW) ZeroGrad() { zeroGrads(opt.Params) }

// LR returns current learning rate.
func (opt *AdamW) LR() float64 { return opt.lr }

// SetLR updates the learning rate (for scheduling).
func (opt *AdamW) SetLR(lr float64) { opt.lr = lr }
