package checkpoint

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/djeday123/bigram/core"
	"github.com/djeday123/bigram/nn"
	"github.com/djeday123/bigram/tokenizer"
)

// ErrFormat is returned for artifacts that are not bigram checkpoints or
// carry an unsupported version.
var ErrFormat = errors.New("invalid checkpoint format")

// Version of the envelope written by this package.
const Version = 1

// Artifact kinds.
const (
	KindModel     = "bigram"     // form A: architecture, vocabulary and weights
	KindStateDict = "state_dict" // form B: named weights only
)

// Meta describes the run that produced a full-model artifact.
type Meta struct {
	RunID      string
	Iterations int
	TrainLoss  float64
	ValLoss    float64
	CreatedAt  time.Time
}

// NewMeta stamps a fresh run id and creation time.
func NewMeta(iterations int, trainLoss, valLoss float64) Meta {
	return Meta{
		RunID:      uuid.NewString(),
		Iterations: iterations,
		TrainLoss:  trainLoss,
		ValLoss:    valLoss,
		CreatedAt:  time.Now().UTC(),
	}
}

type vocabRecord struct {
	Mode    string
	Symbols []int32
}

// envelope is the on-disk record for both forms. Form B leaves Vocab and
// Meta nil, which gob omits.
type envelope struct {
	Version   int
	Kind      string
	VocabSize int
	Vocab     *vocabRecord
	Meta      *Meta
	Tensors   map[string]Array
}

// Model is a decoded full-model artifact.
type Model struct {
	Bigram *nn.Bigram
	Vocab  *tokenizer.Vocabulary
	Meta   Meta
}

// SaveModel writes form A: everything needed to rebuild the predictor and
// its vocabulary without constructing either first.
func SaveModel(w io.Writer, model *nn.Bigram, vocab *tokenizer.Vocabulary, meta Meta) error {
	if vocab.Size() != model.VocabSize() {
		return fmt.Errorf("%w: vocabulary has %d symbols, model %d", core.ErrShapeMismatch, vocab.Size(), model.VocabSize())
	}
	tensors, err := encodeTensors(model.StateDict(), core.Float64)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	symbols := vocab.Symbols()
	rec := &vocabRecord{Mode: vocab.Mode().String(), Symbols: make([]int32, len(symbols))}
	for i, s := range symbols {
		rec.Symbols[i] = int32(s)
	}
	if meta.RunID == "" {
		meta.RunID = uuid.NewString()
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}
	env := envelope{
		Version:   Version,
		Kind:      KindModel,
		VocabSize: model.VocabSize(),
		Vocab:     rec,
		Meta:      &meta,
		Tensors:   tensors,
	}
	if err := encodeEnvelope(w, &env); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// LoadModel reads form A and rebuilds the predictor and vocabulary.
// opts are passed to nn.NewBigram (for instance to choose a backend).
func LoadModel(r io.Reader, opts ...nn.Option) (*Model, error) {
	env, err := decode(r, KindModel)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if env.Vocab == nil {
		return nil, fmt.Errorf("load model: %w: missing vocabulary", ErrFormat)
	}
	mode, err := tokenizer.ParseMode(env.Vocab.Mode)
	if err != nil {
		return nil, fmt.Errorf("load model: %w: %v", ErrFormat, err)
	}
	symbols := make([]rune, len(env.Vocab.Symbols))
	for i, s := range env.Vocab.Symbols {
		symbols[i] = rune(s)
	}
	vocab, err := tokenizer.FromSymbols(mode, symbols)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if vocab.Size() != env.VocabSize {
		return nil, fmt.Errorf("load model: %w: vocabulary has %d symbols, header says %d",
			core.ErrShapeMismatch, vocab.Size(), env.VocabSize)
	}

	sd, err := decodeTensors(env.Tensors)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	opts = append([]nn.Option{nn.WithInitStd(0)}, opts...)
	model, err := nn.NewBigram(env.VocabSize, opts...)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if err := model.LoadStateDict(sd); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	out := &Model{Bigram: model, Vocab: vocab}
	if env.Meta != nil {
		out.Meta = *env.Meta
	}
	return out, nil
}

// SaveOptions tune form B.
type SaveOptions struct {
	// DType of the stored values. core.Float32 halves the payload.
	DType core.DType
}

// DefaultSaveOptions stores full float64 precision.
func DefaultSaveOptions() SaveOptions {
	return SaveOptions{DType: core.Float64}
}

// SaveStateDict writes form B: only the named parameter arrays.
func SaveStateDict(w io.Writer, sd nn.StateDict, opts SaveOptions) error {
	tensors, err := encodeTensors(sd, opts.DType)
	if err != nil {
		return fmt.Errorf("save state dict: %w", err)
	}
	env := envelope{Version: Version, Kind: KindStateDict, Tensors: tensors}
	if err := encodeEnvelope(w, &env); err != nil {
		return fmt.Errorf("save state dict: %w", err)
	}
	return nil
}

// LoadStateDict reads form B. Injecting the result into a predictor of the
// wrong size fails there with core.ErrShapeMismatch.
func LoadStateDict(r io.Reader) (nn.StateDict, error) {
	env, err := decode(r, KindStateDict)
	if err != nil {
		return nil, fmt.Errorf("load state dict: %w", err)
	}
	sd, err := decodeTensors(env.Tensors)
	if err != nil {
		return nil, fmt.Errorf("load state dict: %w", err)
	}
	return sd, nil
}

func encodeEnvelope(w io.Writer, env *envelope) error {
	return gob.NewEncoder(w).Encode(env)
}

func decode(r io.Reader, kind string) (*envelope, error) {
	var env envelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("%w: version %d (have %d)", ErrFormat, env.Version, Version)
	}
	if kind != "" && env.Kind != kind {
		return nil, fmt.Errorf("%w: kind %q, want %q", ErrFormat, env.Kind, kind)
	}
	if len(env.Tensors) == 0 {
		return nil, fmt.Errorf("%w: no tensors", ErrFormat)
	}
	return &env, nil
}
