package nn

import (
	"fmt"
	"math/rand/v2"

	"github.com/djeday123/bigram/backend"
	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/ops"
	"github.com/djeday123/bigram/tensor"
)

// TableName is the state-dict key of the bigram table.
const TableName = "token_embedding_table.weight"

// DefaultInitStd is the standard deviation of the initial table entries.
const DefaultInitStd = 0.02

// Mode selects whether a forward pass records gradients.
type Mode uint8

const (
	// ModeTrain accumulates dLoss/dTable into the parameter gradient.
	ModeTrain Mode = iota
	// ModeNoGrad leaves every gradient untouched.
	ModeNoGrad
)

func (m Mode) String() string {
	if m == ModeTrain {
		return "train"
	}
	return "no_grad"
}

// Bigram predicts the next token from the current one with a single
// vocabSize x vocabSize table: row i holds the logits of every successor of i.
type Bigram struct {
	TokEmbed *Embedding
	bk       backend.Backend
}

type options struct {
	src     rand.Source
	initStd float64
	bk      backend.Backend
}

// Option configures NewBigram.
type Option func(*options)

// WithSource sets the random source used to initialise the table.
func WithSource(src rand.Source) Option {
	return func(o *options) { o.src = src }
}

// WithInitStd sets the standard deviation of the initial table entries.
func WithInitStd(std float64) Option {
	return func(o *options) { o.initStd = std }
}

// WithBackend sets the backend that schedules per-row work.
func WithBackend(bk backend.Backend) Option {
	return func(o *options) { o.bk = bk }
}

// NewBigram creates a bigram model over vocabSize tokens.
func NewBigram(vocabSize int, opts ...Option) (*Bigram, error) {
	o := options{initStd: DefaultInitStd}
	for _, opt := range opts {
		opt(&o)
	}
	if vocabSize < 1 {
		return nil, fmt.Errorf("bigram: vocab size must be positive, got %d", vocabSize)
	}
	if o.initStd < 0 {
		return nil, fmt.Errorf("bigram: negative init std %g", o.initStd)
	}
	if o.src == nil {
		o.src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	if o.bk == nil {
		bk, err := backend.Get(backend.Default)
		if err != nil {
			return nil, fmt.Errorf("bigram: %w", err)
		}
		o.bk = bk
	}

	emb, err := NewEmbedding(TableName, vocabSize, vocabSize, o.initStd, rand.New(o.src))
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	return &Bigram{TokEmbed: emb, bk: o.bk}, nil
}

// VocabSize returns the number of tokens the table covers.
func (m *Bigram) VocabSize() int { return m.TokEmbed.VocabSize }

// Backend returns the backend scheduling per-row work.
func (m *Bigram) Backend() backend.Backend { return m.bk }

// SetBackend swaps the backend. Results do not depend on the choice.
func (m *Bigram) SetBackend(bk backend.Backend) { m.bk = bk }

// Parameters returns all trainable parameters.
func (m *Bigram) Parameters() []*Parameter {
	return m.TokEmbed.Parameters()
}

// CountParameters returns the total number of parameters.
func (m *Bigram) CountParameters() int {
	total := 0
	for _, p := range m.Parameters() {
		total += p.NumElements()
	}
	return total
}

// ZeroGrad clears all parameter gradients.
func (m *Bigram) ZeroGrad() {
	for _, p := range m.Parameters() {
		p.ZeroGrad()
	}
}

// checkIDs validates a rectangular [B][T] id grid against the vocabulary.
func (m *Bigram) checkIDs(what string, ids [][]int) (batch, seqLen int, err error) {
	if len(ids) == 0 || len(ids[0]) == 0 {
		return 0, 0, fmt.Errorf("%w: empty %s", core.ErrShapeMismatch, what)
	}
	batch, seqLen = len(ids), len(ids[0])
	v := m.VocabSize()
	for b, row := range ids {
		if len(row) != seqLen {
			return 0, 0, fmt.Errorf("%w: %s row %d has length %d, want %d", core.ErrShapeMismatch, what, b, len(row), seqLen)
		}
		for t, id := range row {
			if id < 0 || id >= v {
				return 0, 0, fmt.Errorf("%w: %s id %d at [%d,%d] outside [0,%d)", core.ErrInvalidID, what, id, b, t, v)
			}
		}
	}
	return batch, seqLen, nil
}

// Score returns the logits [batch, seqLen, vocab] for inputs [batch][seqLen].
// Position (b, t) holds the table row of inputs[b][t]. No gradients are recorded.
func (m *Bigram) Score(inputs [][]int) (*tensor.Tensor, error) {
	batch, seqLen, err := m.checkIDs("inputs", inputs)
	if err != nil {
		return nil, err
	}
	v := m.VocabSize()
	logits, err := tensor.Zeros(tensor.Shape{batch, seqLen, v})
	if err != nil {
		return nil, err
	}
	data := logits.Data()
	err = m.bk.ParallelFor(batch, func(b int) error {
		for t, id := range inputs[b] {
			off := (b*seqLen + t) * v
			m.TokEmbed.Lookup(data[off:off+v], id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return logits, nil
}

// Forward scores inputs and computes the mean cross-entropy against targets.
// In ModeTrain the gradient of that loss is added to the table gradient.
func (m *Bigram) Forward(inputs, targets [][]int, mode Mode) (*tensor.Tensor, float64, error) {
	logits, err := m.Score(inputs)
	if err != nil {
		return nil, 0, err
	}
	if _, _, err := m.checkIDs("targets", targets); err != nil {
		return nil, 0, err
	}
	loss, err := m.Loss(logits, targets)
	if err != nil {
		return nil, 0, err
	}
	if mode == ModeTrain {
		if err := m.backward(inputs, logits, targets); err != nil {
			return nil, 0, err
		}
	}
	return logits, loss, nil
}

// Loss is the mean categorical cross-entropy of logits against targets.
func (m *Bigram) Loss(logits *tensor.Tensor, targets [][]int) (float64, error) {
	return ops.CrossEntropyLoss(m.bk, logits, targets)
}

func (m *Bigram) String() string {
	return fmt.Sprintf("Bigram(vocab=%d, params=%d, backend=%s)", m.VocabSize(), m.CountParameters(), m.bk.Name())
}
