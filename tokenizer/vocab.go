package tokenizer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/djeday123/bigram/core"
)

// Vocabulary is the ordered set of distinct symbols of a corpus.
// Ids are assigned in ascending code-point (or byte) order, so building
// from the same corpus always yields the same mapping. A Vocabulary is
// immutable and safe for concurrent use.
type Vocabulary struct {
	mode    Mode
	set     *roaring.Bitmap
	symbols []rune
}

// Build scans corpus once and assigns ids 0..Size-1 in ascending symbol order.
func Build(corpus string, mode Mode) (*Vocabulary, error) {
	if len(corpus) == 0 {
		return nil, core.ErrEmptyCorpus
	}
	if mode != ModeRune && mode != ModeByte {
		return nil, fmt.Errorf("build vocabulary: unknown mode %v", mode)
	}
	set := roaring.New()
	err := eachSymbol(corpus, mode, func(sym rune, _ int) error {
		set.Add(uint32(sym))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("build vocabulary: %w", err)
	}
	return newVocabulary(mode, set), nil
}

// FromSymbols rebuilds a vocabulary from its symbol listing. Symbols must be
// strictly ascending and valid for mode.
func FromSymbols(mode Mode, symbols []rune) (*Vocabulary, error) {
	if len(symbols) == 0 {
		return nil, core.ErrEmptyCorpus
	}
	if mode != ModeRune && mode != ModeByte {
		return nil, fmt.Errorf("vocabulary: unknown mode %v", mode)
	}
	set := roaring.New()
	for i, sym := range symbols {
		if !validSymbol(sym, mode) {
			return nil, fmt.Errorf("vocabulary: symbol %d (%U) invalid for %s mode", i, sym, mode)
		}
		if i > 0 && sym <= symbols[i-1] {
			return nil, fmt.Errorf("vocabulary: symbols not strictly ascending at %d", i)
		}
		set.Add(uint32(sym))
	}
	return newVocabulary(mode, set), nil
}

func newVocabulary(mode Mode, set *roaring.Bitmap) *Vocabulary {
	set.RunOptimize()
	codes := set.ToArray()
	symbols := make([]rune, len(codes))
	for i, c := range codes {
		symbols[i] = rune(c)
	}
	return &Vocabulary{mode: mode, set: set, symbols: symbols}
}

// Size returns the number of distinct symbols.
func (v *Vocabulary) Size() int { return len(v.symbols) }

// VocabSize implements Tokenizer.
func (v *Vocabulary) VocabSize() int { return v.Size() }

// Mode returns the symbol mode the vocabulary was built with.
func (v *Vocabulary) Mode() Mode { return v.mode }

// Symbols returns a copy of the symbols in id order.
func (v *Vocabulary) Symbols() []rune {
	out := make([]rune, len(v.symbols))
	copy(out, v.symbols)
	return out
}

// ID returns the id of sym.
func (v *Vocabulary) ID(sym rune) (int, bool) {
	if sym < 0 || !v.set.Contains(uint32(sym)) {
		return 0, false
	}
	// Rank counts members <= sym, so the id is one less.
	return int(v.set.Rank(uint32(sym))) - 1, true
}

// Symbol returns the symbol for id.
func (v *Vocabulary) Symbol(id int) (rune, error) {
	if id < 0 || id >= len(v.symbols) {
		return 0, fmt.Errorf("%w: %d outside [0,%d)", core.ErrInvalidID, id, len(v.symbols))
	}
	return v.symbols[id], nil
}

// Encode maps every symbol of text to its id. The first symbol missing from
// the vocabulary fails the whole call; nothing is substituted.
func (v *Vocabulary) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	err := eachSymbol(text, v.mode, func(sym rune, off int) error {
		id, ok := v.ID(sym)
		if !ok {
			return fmt.Errorf("%w: %q at offset %d", core.ErrUnknownSymbol, symbolString(sym, v.mode), off)
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Decode maps ids back to text.
func (v *Vocabulary) Decode(ids []int) (string, error) {
	var sb strings.Builder
	sb.Grow(len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(v.symbols) {
			return "", fmt.Errorf("%w: %d at position %d outside [0,%d)", core.ErrInvalidID, id, i, len(v.symbols))
		}
		appendSymbol(&sb, v.symbols[id], v.mode)
	}
	return sb.String(), nil
}

// DecodeToken converts a single id to its text.
func (v *Vocabulary) DecodeToken(id int) (string, error) {
	sym, err := v.Symbol(id)
	if err != nil {
		return "", err
	}
	return symbolString(sym, v.mode), nil
}

type vocabJSON struct {
	Mode    string  `json:"mode"`
	Symbols []int32 `json:"symbols"`
}

// MarshalJSON encodes the vocabulary as {"mode": ..., "symbols": [code points]}.
func (v *Vocabulary) MarshalJSON() ([]byte, error) {
	out := vocabJSON{Mode: v.mode.String(), Symbols: make([]int32, len(v.symbols))}
	for i, s := range v.symbols {
		out.Symbols[i] = int32(s)
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a vocabulary, re-validating ordering and uniqueness.
func (v *Vocabulary) UnmarshalJSON(data []byte) error {
	var in vocabJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("vocabulary: %w", err)
	}
	mode, err := ParseMode(in.Mode)
	if err != nil {
		return fmt.Errorf("vocabulary: %w", err)
	}
	symbols := make([]rune, len(in.Symbols))
	for i, s := range in.Symbols {
		symbols[i] = rune(s)
	}
	restored, err := FromSymbols(mode, symbols)
	if err != nil {
		return err
	}
	*v = *restored
	return nil
}

func (v *Vocabulary) String() string {
	return fmt.Sprintf("Vocabulary(mode=%s, size=%d)", v.mode, len(v.symbols))
}
