package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/djeday123/bigram/backend"
	_ "github.com/djeday123/bigram/backend/cpu"
	"github.com/djeday123/bigram/checkpoint"
	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/nn"
	"github.com/djeday123/bigram/pkg/config"
	"github.com/djeday123/bigram/pkg/generator"
	"github.com/djeday123/bigram/tokenizer"
	"github.com/djeday123/bigram/train"
)

// ErrRoundTrip is returned when a reloaded model does not reproduce the
// scores of the model that was saved.
var ErrRoundTrip = errors.New("checkpoint round trip mismatch")

// Pipeline runs the train, save, reload and sample workflow.
type Pipeline struct {
	cfg     *config.Config
	backend backend.Backend
	logger  zerolog.Logger
}

// Option configures New.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a new Pipeline instance
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	bk, err := backend.Get(cfg.Model.Backend)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	p := &Pipeline{cfg: cfg, backend: bk, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Result summarises a Run.
type Result struct {
	Vocab      *tokenizer.Vocabulary
	Model      *nn.Bigram
	History    *train.History
	RunID      string
	FullPath   string
	StatePath  string
	FullBytes  int64
	StateBytes int64
	Sample     string
}

// FullPath is where form A is written.
func (p *Pipeline) FullPath() string {
	return filepath.Join(p.cfg.Checkpoint.Dir, p.cfg.Checkpoint.Full)
}

// StatePath is where form B is written.
func (p *Pipeline) StatePath() string {
	return filepath.Join(p.cfg.Checkpoint.Dir, p.cfg.Checkpoint.StateDict)
}

// ReadCorpus loads the configured corpus file.
func (p *Pipeline) ReadCorpus() (string, error) {
	data, err := os.ReadFile(p.cfg.Data.Path)
	if err != nil {
		return "", fmt.Errorf("read corpus: %w", err)
	}
	return string(data), nil
}

func (p *Pipeline) buildVocab(corpus string) (*tokenizer.Vocabulary, error) {
	mode, err := tokenizer.ParseMode(p.cfg.Data.Tokenizer)
	if err != nil {
		return nil, err
	}
	return tokenizer.Build(corpus, mode)
}

func (p *Pipeline) modelOptions() []nn.Option {
	opts := []nn.Option{nn.WithBackend(p.backend), nn.WithInitStd(p.cfg.Model.InitStd)}
	if s := p.cfg.Model.Seed; s != 0 {
		opts = append(opts, nn.WithSource(rand.NewPCG(s, s)))
	}
	return opts
}

// Train builds the vocabulary and trains a fresh predictor on corpus.
func (p *Pipeline) Train(ctx context.Context, corpus string) (*nn.Bigram, *tokenizer.Vocabulary, *train.History, error) {
	vocab, err := p.buildVocab(corpus)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build vocabulary: %w", err)
	}
	ids, err := vocab.Encode(corpus)
	if err != nil {
		return nil, nil, nil, err
	}
	p.logger.Info().Int("vocab_size", vocab.Size()).Int("tokens", len(ids)).Msg("vocabulary built")

	data, err := train.NewDataset(ids, p.cfg.Data.TrainFraction)
	if err != nil {
		return nil, nil, nil, err
	}
	model, err := nn.NewBigram(vocab.Size(), p.modelOptions()...)
	if err != nil {
		return nil, nil, nil, err
	}
	tr, err := train.NewTrainer(model, data, p.cfg.Train.ToTrain(), train.WithLogger(p.logger))
	if err != nil {
		return nil, nil, nil, err
	}
	hist, err := tr.Train(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	return model, vocab, hist, nil
}

// Save writes form A and form B for model.
func (p *Pipeline) Save(model *nn.Bigram, vocab *tokenizer.Vocabulary, hist *train.History) (checkpoint.Meta, error) {
	var meta checkpoint.Meta
	if final, ok := hist.Final(); ok {
		meta = checkpoint.NewMeta(hist.Steps, final.Train, final.Val)
	} else {
		meta = checkpoint.NewMeta(hist.Steps, 0, 0)
	}
	if err := checkpoint.SaveModelFile(p.FullPath(), model, vocab, meta); err != nil {
		return meta, err
	}
	dtype, err := core.ParseDType(p.cfg.Checkpoint.DType)
	if err != nil {
		return meta, err
	}
	if err := checkpoint.SaveStateDictFile(p.StatePath(), model.StateDict(), checkpoint.SaveOptions{DType: dtype}); err != nil {
		return meta, err
	}
	p.logger.Info().
		Str("run_id", meta.RunID).
		Str("full", p.FullPath()).
		Str("state_dict", p.StatePath()).
		Msg("checkpoints saved")
	return meta, nil
}

// LoadFull reloads form A: the predictor and its vocabulary come from the
// artifact alone.
func (p *Pipeline) LoadFull(path string) (*checkpoint.Model, error) {
	return checkpoint.LoadModelFile(path, nn.WithBackend(p.backend))
}

// LoadStateDict rebuilds the vocabulary from corpus, constructs a predictor
// of that size and injects the weights stored at path.
func (p *Pipeline) LoadStateDict(path, corpus string) (*nn.Bigram, *tokenizer.Vocabulary, error) {
	vocab, err := p.buildVocab(corpus)
	if err != nil {
		return nil, nil, fmt.Errorf("build vocabulary: %w", err)
	}
	sd, err := checkpoint.LoadStateDictFile(path)
	if err != nil {
		return nil, nil, err
	}
	model, err := nn.NewBigram(vocab.Size(), nn.WithBackend(p.backend), nn.WithInitStd(0))
	if err != nil {
		return nil, nil, err
	}
	if err := model.LoadStateDict(sd); err != nil {
		return nil, nil, err
	}
	return model, vocab, nil
}

// Sample generates text from model with the configured sampler.
func (p *Pipeline) Sample(ctx context.Context, model *nn.Bigram, vocab *tokenizer.Vocabulary, prompt string) (string, error) {
	gen, err := generator.New(model, vocab, p.cfg.Generate)
	if err != nil {
		return "", err
	}
	return gen.Generate(ctx, prompt)
}

// verify checks that got scores every token exactly like want.
func (p *Pipeline) verify(what string, want, got *nn.Bigram, tol float64) error {
	probe := make([]int, want.VocabSize())
	for i := range probe {
		probe[i] = i
	}
	a, err := want.Score([][]int{probe})
	if err != nil {
		return err
	}
	b, err := got.Score([][]int{probe})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrRoundTrip, what, err)
	}
	ok := a.Equal(b)
	if tol > 0 {
		ok = a.EqualApprox(b, tol)
	}
	if !ok {
		return fmt.Errorf("%w: %s scores differ", ErrRoundTrip, what)
	}
	return nil
}

// Run executes the whole workflow on the configured corpus.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	corpus, err := p.ReadCorpus()
	if err != nil {
		return nil, err
	}
	model, vocab, hist, err := p.Train(ctx, corpus)
	if err != nil {
		return nil, err
	}
	meta, err := p.Save(model, vocab, hist)
	if err != nil {
		return nil, err
	}

	full, err := p.LoadFull(p.FullPath())
	if err != nil {
		return nil, fmt.Errorf("reload full model: %w", err)
	}
	if err := p.verify("full model", model, full.Bigram, 0); err != nil {
		return nil, err
	}
	fromState, _, err := p.LoadStateDict(p.StatePath(), corpus)
	if err != nil {
		return nil, fmt.Errorf("reload state dict: %w", err)
	}
	tol := 0.0
	if p.cfg.Checkpoint.DType == core.Float32.String() {
		tol = 1e-5
	}
	if err := p.verify("state dict", model, fromState, tol); err != nil {
		return nil, err
	}
	p.logger.Info().Msg("both checkpoints reproduce the trained model")

	sample, err := p.Sample(ctx, full.Bigram, full.Vocab, p.cfg.Generate.Prompt)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}

	res := &Result{
		Vocab:     vocab,
		Model:     model,
		History:   hist,
		RunID:     meta.RunID,
		FullPath:  p.FullPath(),
		StatePath: p.StatePath(),
		Sample:    sample,
	}
	if st, err := os.Stat(res.FullPath); err == nil {
		res.FullBytes = st.Size()
	}
	if st, err := os.Stat(res.StatePath); err == nil {
		res.StateBytes = st.Size()
	}
	return res, nil
}
