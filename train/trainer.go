package train

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/djeday123/bigram/nn"
	"github.com/djeday123/bigram/optim"
)

// Config holds training hyperparameters.
type Config struct {
	BatchSize      int
	ContextLength  int
	MaxIterations  int
	EvalInterval   int
	LearningRate   float64
	EvalIterations int
	MinLR          float64
	WarmupSteps    int
	Schedule       string // constant | cosine
	Optimizer      string // adamw | sgd
	WeightDecay    float64
	MaxGradNorm    float64 // 0 disables clipping
	Seed           uint64  // 0 seeds from the clock
}

func DefaultConfig() Config {
	return Config{
		BatchSize:      32,
		ContextLength:  8,
		MaxIterations:  3000,
		EvalInterval:   300,
		LearningRate:   1e-2,
		EvalIterations: 200,
		Schedule:       optim.ScheduleConstant,
		Optimizer:      optim.NameAdamW,
		WeightDecay:    0.01,
		Seed:           1337,
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	switch {
	case c.BatchSize < 1:
		return fmt.Errorf("train: batch size must be positive, got %d", c.BatchSize)
	case c.ContextLength < 1:
		return fmt.Errorf("train: context length must be positive, got %d", c.ContextLength)
	case c.MaxIterations < 0:
		return fmt.Errorf("train: max iterations must be non-negative, got %d", c.MaxIterations)
	case c.EvalInterval < 1:
		return fmt.Errorf("train: eval interval must be positive, got %d", c.EvalInterval)
	case c.EvalIterations < 1:
		return fmt.Errorf("train: eval iterations must be positive, got %d", c.EvalIterations)
	case c.LearningRate <= 0:
		return fmt.Errorf("train: learning rate must be positive, got %g", c.LearningRate)
	case c.MinLR < 0 || c.WarmupSteps < 0 || c.MaxGradNorm < 0 || c.WeightDecay < 0:
		return fmt.Errorf("train: min lr, warmup, max grad norm and weight decay must be non-negative")
	}
	return nil
}

// Losses is the mean loss on each split.
type Losses struct {
	Train float64
	Val   float64
}

// EvalPoint is one periodic evaluation.
type EvalPoint struct {
	Iter int
	LR   float64
	Losses
}

// History records a training run.
type History struct {
	Points   []EvalPoint
	Steps    int
	Duration time.Duration
}

// Final returns the last evaluation, if any.
func (h *History) Final() (EvalPoint, bool) {
	if len(h.Points) == 0 {
		return EvalPoint{}, false
	}
	return h.Points[len(h.Points)-1], true
}

// Trainer handles the training loop. It is the only mutator of the model.
type Trainer struct {
	Model     *nn.Bigram
	Optimizer optim.Optimizer
	Data      *Dataset
	Config    Config

	lr     optim.LRFunc
	rng    *rand.Rand
	logger zerolog.Logger
}

// Option configures NewTrainer.
type Option func(*Trainer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Trainer) { t.logger = l }
}

// WithOptimizer replaces the optimizer built from Config.
func WithOptimizer(opt optim.Optimizer) Option {
	return func(t *Trainer) { t.Optimizer = opt }
}

// NewTrainer validates cfg against data and builds the optimizer and schedule.
func NewTrainer(model *nn.Bigram, data *Dataset, cfg Config, opts ...Option) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := data.Check(cfg.ContextLength); err != nil {
		return nil, err
	}
	lr, err := optim.NewSchedule(cfg.Schedule, cfg.WarmupSteps, cfg.MaxIterations, cfg.LearningRate, cfg.MinLR)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	t := &Trainer{
		Model:  model,
		Data:   data,
		Config: cfg,
		lr:     lr,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.Optimizer == nil {
		t.Optimizer, err = optim.New(cfg.Optimizer, model.Parameters(), cfg.LearningRate, optim.Options{
			WeightDecay: cfg.WeightDecay,
			MaxGradNorm: cfg.MaxGradNorm,
		})
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Rand exposes the trainer's random stream.
func (t *Trainer) Rand() *rand.Rand { return t.rng }

// Step performs one training step on batch and returns its loss.
func (t *Trainer) Step(batch Batch) (float64, error) {
	t.Optimizer.ZeroGrad()
	_, loss, err := t.Model.Forward(batch.Inputs, batch.Targets, nn.ModeTrain)
	if err != nil {
		return 0, err
	}
	t.Optimizer.Step()
	return loss, nil
}

// EstimateLoss averages the loss over EvalIterations fresh batches of each
// split without recording gradients.
func (t *Trainer) EstimateLoss() (Losses, error) {
	var out Losses
	for _, split := range []Split{SplitTrain, SplitVal} {
		total := 0.0
		for i := 0; i < t.Config.EvalIterations; i++ {
			b, err := t.Data.Batch(split, t.Config.BatchSize, t.Config.ContextLength, t.rng)
			if err != nil {
				return Losses{}, err
			}
			_, loss, err := t.Model.Forward(b.Inputs, b.Targets, nn.ModeNoGrad)
			if err != nil {
				return Losses{}, err
			}
			total += loss
		}
		mean := total / float64(t.Config.EvalIterations)
		if split == SplitTrain {
			out.Train = mean
		} else {
			out.Val = mean
		}
	}
	return out, nil
}

// Train runs MaxIterations steps, evaluating at iteration 0, every
// EvalInterval iterations and at the last iteration. Cancellation is honoured
// between steps and returns the history so far with ctx.Err().
func (t *Trainer) Train(ctx context.Context) (*History, error) {
	cfg := t.Config
	hist := &History{}
	start := time.Now()
	defer func() { hist.Duration = time.Since(start) }()

	t.logger.Info().
		Int("train_tokens", t.Data.Len(SplitTrain)).
		Int("val_tokens", t.Data.Len(SplitVal)).
		Int("params", t.Model.CountParameters()).
		Int("batch_size", cfg.BatchSize).
		Int("context_length", cfg.ContextLength).
		Int("max_iterations", cfg.MaxIterations).
		Str("optimizer", cfg.Optimizer).
		Str("backend", t.Model.Backend().Name()).
		Msg("training started")

	smoothLoss := 0.0
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			hist.Steps = iter
			return hist, err
		}

		lr := t.lr(iter)
		t.Optimizer.SetLR(lr)

		if iter%cfg.EvalInterval == 0 || iter == cfg.MaxIterations-1 {
			losses, err := t.EstimateLoss()
			if err != nil {
				return hist, fmt.Errorf("evaluate at step %d: %w", iter, err)
			}
			hist.Points = append(hist.Points, EvalPoint{Iter: iter, LR: lr, Losses: losses})
			t.logger.Info().
				Int("step", iter).
				Float64("train_loss", losses.Train).
				Float64("val_loss", losses.Val).
				Float64("smooth_loss", smoothLoss).
				Float64("lr", lr).
				Msg("eval")
		}

		batch, err := t.Data.Batch(SplitTrain, cfg.BatchSize, cfg.ContextLength, t.rng)
		if err != nil {
			return hist, err
		}
		loss, err := t.Step(batch)
		if err != nil {
			return hist, fmt.Errorf("step %d: %w", iter, err)
		}
		if iter == 0 {
			smoothLoss = loss
		} else {
			smoothLoss = 0.95*smoothLoss + 0.05*loss
		}
		t.logger.Debug().Int("step", iter).Float64("loss", loss).Msg("step")
		hist.Steps = iter + 1
	}

	if final, ok := hist.Final(); ok {
		t.logger.Info().
			Int("steps", hist.Steps).
			Float64("train_loss", final.Train).
			Float64("val_loss", final.Val).
			Dur("elapsed", time.Since(start)).
			Msg("training complete")
	}
	return hist, nil
}
