package generator

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/djeday123/bigram/backend/cpu"

	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/nn"
	"github.com/djeday123/bigram/pkg/config"
	"github.com/djeday123/bigram/tokenizer"
)

// ababModel returns a model that always alternates between 'a' and 'b'.
func ababModel(t *testing.T) (*nn.Bigram, *tokenizer.Vocabulary) {
	t.Helper()
	vocab, err := tokenizer.Build("abab", tokenizer.ModeRune)
	require.NoError(t, err)
	m, err := nn.NewBigram(2, nn.WithSource(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	w := m.Parameters()[0].Value
	w.Set(0, 0, -50)
	w.Set(0, 1, 50)
	w.Set(1, 0, 50)
	w.Set(1, 1, -50)
	return m, vocab
}

func TestNew(t *testing.T) {
	m, vocab := ababModel(t)
	gen, err := New(m, vocab, config.GenerateConfig{Steps: 5})
	require.NoError(t, err)
	require.NotNil(t, gen)

	other, err := nn.NewBigram(3)
	require.NoError(t, err)
	_, err = New(other, vocab, config.GenerateConfig{})
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	m, vocab := ababModel(t)
	gen, err := New(m, vocab, config.GenerateConfig{Steps: 5, Seed: 7})
	require.NoError(t, err)

	out, err := gen.Generate(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "ababab", out)

	out, err = gen.Generate(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "babab", out)
}

func TestGenerateMatchesPromptPlusStream(t *testing.T) {
	m, vocab := ababModel(t)
	cfg := config.GenerateConfig{Steps: 5, Greedy: true}
	for _, prompt := range []string{"", "a", "ba"} {
		gen, err := New(m, vocab, cfg)
		require.NoError(t, err)
		whole, err := gen.Generate(context.Background(), prompt)
		require.NoError(t, err)

		var streamed strings.Builder
		streamed.WriteString(prompt)
		err = gen.GenerateStream(context.Background(), prompt, func(s string) error {
			streamed.WriteString(s)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, streamed.String(), whole, "prompt %q", prompt)
		assert.Len(t, whole, len(prompt)+cfg.Steps)
	}
}

func TestGenerateGreedy(t *testing.T) {
	m, vocab := ababModel(t)
	gen, err := New(m, vocab, config.GenerateConfig{Steps: 3, Greedy: true})
	require.NoError(t, err)
	out, err := gen.Generate(context.Background(), "ab")
	require.NoError(t, err)
	assert.Equal(t, "ababa", out)
}

func TestGenerateUnknownPrompt(t *testing.T) {
	m, vocab := ababModel(t)
	gen, err := New(m, vocab, config.GenerateConfig{Steps: 3})
	require.NoError(t, err)
	_, err = gen.Generate(context.Background(), "abc")
	assert.ErrorIs(t, err, core.ErrUnknownSymbol)
}

func TestGenerateWithCancelledContext(t *testing.T) {
	m, vocab := ababModel(t)
	gen, err := New(m, vocab, config.GenerateConfig{Steps: 3})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gen.Generate(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateStream(t *testing.T) {
	m, vocab := ababModel(t)
	gen, err := New(m, vocab, config.GenerateConfig{Steps: 4, Seed: 3})
	require.NoError(t, err)

	var chunks []string
	err = gen.GenerateStream(context.Background(), "a", func(s string) error {
		chunks = append(chunks, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "b", "a"}, chunks)
}

func TestGenerateStreamStopsOnCallbackError(t *testing.T) {
	m, vocab := ababModel(t)
	gen, err := New(m, vocab, config.GenerateConfig{Steps: 10})
	require.NoError(t, err)

	stop := errors.New("stop")
	var got strings.Builder
	err = gen.GenerateStream(context.Background(), "a", func(s string) error {
		got.WriteString(s)
		if got.Len() == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, "ba", got.String())
}

func TestGenerateStreamCancelMidway(t *testing.T) {
	m, vocab := ababModel(t)
	gen, err := New(m, vocab, config.GenerateConfig{Steps: 100})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	n := 0
	err = gen.GenerateStream(ctx, "a", func(string) error {
		n++
		if n == 3 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, n)
}

// countingTokenizer records how many ids were rendered one at a time.
type countingTokenizer struct {
	*tokenizer.Vocabulary
	tokens int
}

func (c *countingTokenizer) DecodeToken(id int) (string, error) {
	c.tokens++
	return c.Vocabulary.DecodeToken(id)
}

func TestGenerateStreamUsesTokenizer(t *testing.T) {
	m, vocab := ababModel(t)
	tok := &countingTokenizer{Vocabulary: vocab}
	gen, err := New(m, tok, config.GenerateConfig{Steps: 4, Greedy: true})
	require.NoError(t, err)

	err = gen.GenerateStream(context.Background(), "b", func(string) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 4, tok.tokens)
}
