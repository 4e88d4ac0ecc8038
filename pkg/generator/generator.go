package generator

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/djeday123/bigram/nn"
	"github.com/djeday123/bigram/pkg/config"
	"github.com/djeday123/bigram/tokenizer"
)

// Generator turns a prompt into text sampled from a trained bigram model.
type Generator interface {
	// Generate returns the prompt followed by the generated continuation.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream calls callback with each generated symbol as it is sampled.
	GenerateStream(ctx context.Context, prompt string, callback func(string) error) error
}

// generator implements the Generator interface
type generator struct {
	model  *nn.Bigram
	tok    tokenizer.Tokenizer
	config config.GenerateConfig

	mu      sync.Mutex
	sampler nn.Sampler
}

// New creates a new Generator instance. Calls share one sampler, so a fixed
// cfg.Seed makes a sequence of calls reproducible.
func New(model *nn.Bigram, tok tokenizer.Tokenizer, cfg config.GenerateConfig) (Generator, error) {
	if tok.VocabSize() != model.VocabSize() {
		return nil, fmt.Errorf("generator: vocabulary has %d symbols, model %d", tok.VocabSize(), model.VocabSize())
	}
	return &generator{
		model:   model,
		tok:     tok,
		config:  cfg,
		sampler: NewSampler(cfg),
	}, nil
}

// NewSampler builds the sampler described by cfg.
func NewSampler(cfg config.GenerateConfig) nn.Sampler {
	if cfg.Greedy {
		return nn.GreedySampler{}
	}
	var src rand.Source
	if cfg.Seed != 0 {
		src = rand.NewPCG(cfg.Seed, cfg.Seed)
	}
	s := nn.NewCategoricalSampler(src)
	if cfg.Temperature > 0 {
		s.Temperature = cfg.Temperature
	}
	s.TopK = cfg.TopK
	return s
}

// seed encodes prompt. An empty prompt starts from id 0, which is not part
// of the output.
func (g *generator) seed(prompt string) ([]int, error) {
	if prompt == "" {
		return []int{0}, nil
	}
	ids, err := g.tok.Encode(prompt)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}
	return ids, nil
}

func (g *generator) run(ctx context.Context, prompt string, fn func(id int) error) ([]int, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	seed, err := g.seed(prompt)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.model.GenerateFunc(seed, g.config.Steps, g.sampler, func(id int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if fn != nil {
			return fn(id)
		}
		return nil
	})
}

// Generate produces text output from the given prompt
func (g *generator) Generate(ctx context.Context, prompt string) (string, error) {
	ids, err := g.run(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	if prompt == "" {
		ids = ids[1:]
	}
	return g.tok.Decode(ids)
}

// GenerateStream produces text output as a stream
func (g *generator) GenerateStream(ctx context.Context, prompt string, callback func(string) error) error {
	_, err := g.run(ctx, prompt, func(id int) error {
		s, err := g.tok.DecodeToken(id)
		if err != nil {
			return err
		}
		return callback(s)
	})
	return err
}
