package tokenizer

import "fmt"

// Tokenizer is the common interface for symbol-level codecs.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	// DecodeToken renders a single id, for streaming output.
	DecodeToken(id int) (string, error)
	VocabSize() int
}

var _ Tokenizer = (*Vocabulary)(nil)

// Mode selects what counts as one symbol of the corpus.
type Mode uint8

const (
	// ModeRune treats each Unicode code point of UTF-8 text as a symbol.
	ModeRune Mode = iota
	// ModeByte treats each byte as a symbol.
	ModeByte
)

func (m Mode) String() string {
	switch m {
	case ModeRune:
		return "rune"
	case ModeByte:
		return "byte"
	default:
		return fmt.Sprintf("mode(%d)", m)
	}
}

// ParseMode maps "rune" (or "") and "byte" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "rune", "char":
		return ModeRune, nil
	case "byte":
		return ModeByte, nil
	default:
		return 0, fmt.Errorf("unknown tokenizer mode %q", s)
	}
}
