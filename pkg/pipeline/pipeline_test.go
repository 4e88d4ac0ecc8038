package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/pkg/config"
)

func testConfig(t *testing.T, corpus string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "input.txt")
	require.NoError(t, os.WriteFile(path, []byte(corpus), 0o644))

	cfg := config.DefaultConfig()
	cfg.Data.Path = path
	cfg.Checkpoint.Dir = filepath.Join(dir, "ckpt")
	cfg.Train.BatchSize = 4
	cfg.Train.MaxIterations = 60
	cfg.Train.EvalInterval = 20
	cfg.Train.EvalIterations = 4
	cfg.Train.LearningRate = 0.1
	cfg.Generate.Steps = 20
	return cfg
}

func TestNew(t *testing.T) {
	p, err := New(config.DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, p)

	cfg := config.DefaultConfig()
	cfg.Model.Backend = "tpu"
	_, err = New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestRun(t *testing.T) {
	cfg := testConfig(t, strings.Repeat("abab", 100))
	p, err := New(cfg)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Vocab.Size())
	assert.Equal(t, 60, res.History.Steps)
	assert.NotEmpty(t, res.RunID)
	assert.Less(t, res.StateBytes, res.FullBytes)

	first := res.History.Points[0]
	last, _ := res.History.Final()
	assert.Less(t, last.Train, first.Train)

	// empty prompt: only the 20 sampled symbols
	assert.Len(t, []rune(res.Sample), 20)
	for _, r := range res.Sample {
		assert.Contains(t, "ab", string(r))
	}
}

func TestRunParallelFloat32(t *testing.T) {
	cfg := testConfig(t, strings.Repeat("To be, or not to be, that is the question.\n", 20))
	cfg.Model.Backend = "parallel"
	cfg.Checkpoint.DType = "float32"
	cfg.Generate.Prompt = "To "
	p, err := New(cfg)
	require.NoError(t, err)

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Sample, "To "))
}

func TestLoadEntryPoints(t *testing.T) {
	corpus := strings.Repeat("hello world ", 30)
	cfg := testConfig(t, corpus)
	p, err := New(cfg)
	require.NoError(t, err)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	full, err := p.LoadFull(res.FullPath)
	require.NoError(t, err)
	assert.Equal(t, res.Vocab.Symbols(), full.Vocab.Symbols())
	assert.Equal(t, res.RunID, full.Meta.RunID)

	model, vocab, err := p.LoadStateDict(res.StatePath, corpus)
	require.NoError(t, err)
	assert.Equal(t, res.Vocab.Size(), vocab.Size())
	require.NoError(t, p.verify("state dict", res.Model, model, 0))

	// a corpus with a different symbol set gives a predictor of the wrong size
	_, _, err = p.LoadStateDict(res.StatePath, corpus+"!")
	assert.ErrorIs(t, err, core.ErrShapeMismatch)
}

func TestRunEmptyCorpus(t *testing.T) {
	cfg := testConfig(t, "")
	p, err := New(cfg)
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrEmptyCorpus)
}

func TestRunMissingCorpus(t *testing.T) {
	cfg := testConfig(t, "abab")
	cfg.Data.Path = filepath.Join(t.TempDir(), "missing.txt")
	p, err := New(cfg)
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t, strings.Repeat("abab", 100))
	p, err := New(cfg)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
