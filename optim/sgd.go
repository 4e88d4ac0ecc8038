package optim

import (
	"gonum.org/v1/gonum/floats"

	"github.com/djeday123/bigram/nn"
)

// SGD is plain mini-batch gradient descent: θ -= lr * g.
type SGD struct {
	Params      []*nn.Parameter
	MaxGradNorm float64

	lr float64
}

func NewSGD(params []*nn.Parameter, lr float64) *SGD {
	return &SGD{Params: params, lr: lr}
}

func (opt *SGD) Step() {
	clipGradNorm(opt.Params, opt.MaxGradNorm)
	for _, p := range opt.Params {
		floats.AddScaled(p.Value.RawMatrix().Data, -opt.lr, p.Grad.RawMatrix().Data)
	}
}

func (opt *SGD) ZeroGrad()        { zeroGrads(opt.Params) }
func (opt *SGD) LR() float64      { return opt.lr }
func (opt *SGD) SetLR(lr float64) { opt.lr = lr }
