package optim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/djeday123/bigram/nn"
)

// Optimizer updates parameters from their accumulated gradients.
type Optimizer interface {
	// Step applies one update. Gradients must be populated beforehand.
	Step()
	ZeroGrad()
	SetLR(lr float64)
	LR() float64
}

// Names of the optimizers New understands.
const (
	NameAdamW = "adamw"
	NameSGD   = "sgd"
)

// Options tune the optimizer built by New. Zero values keep defaults.
type Options struct {
	WeightDecay float64
	MaxGradNorm float64
}

// New builds the optimizer registered under name.
func New(name string, params []*nn.Parameter, lr float64, opts Options) (Optimizer, error) {
	if lr <= 0 {
		return nil, fmt.Errorf("optim: learning rate must be positive, got %g", lr)
	}
	switch name {
	case NameAdamW, "":
		opt := NewAdamW(params, lr)
		opt.WeightDecay = opts.WeightDecay
		opt.MaxGradNorm = opts.MaxGradNorm
		return opt, nil
	case NameSGD:
		opt := NewSGD(params, lr)
		opt.MaxGradNorm = opts.MaxGradNorm
		return opt, nil
	default:
		return nil, fmt.Errorf("optim: unknown optimizer %q", name)
	}
}

func zeroGrads(params []*nn.Parameter) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// GradNorm returns the global L2 norm over all gradients.
func GradNorm(params []*nn.Parameter) float64 {
	total := 0.0
	for _, p := range params {
		n := mat.Norm(p.Grad, 2)
		total += n * n
	}
	return math.Sqrt(total)
}

// clipGradNorm scales gradients so their global L2 norm is at most maxNorm.
func clipGradNorm(params []*nn.Parameter, maxNorm float64) {
	if maxNorm <= 0 {
		return
	}
	totalNorm := GradNorm(params)
	if totalNorm <= maxNorm {
		return
	}
	scale := maxNorm / totalNorm
	for _, p := range params {
		p.Grad.Scale(scale, p.Grad)
	}
}
