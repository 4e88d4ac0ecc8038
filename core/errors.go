package core

import "errors"

// Error taxonomy shared by the codec, the predictor and persistence.
// Callers match with errors.Is; producers wrap with context.
var (
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrInvalidID     = errors.New("invalid id")
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrEmptyCorpus   = errors.New("empty corpus")
)
