package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// MaxByteSymbol is the largest symbol in ModeByte.
const MaxByteSymbol = 255

// eachSymbol calls fn with every symbol of text and its byte offset.
// In ModeRune invalid UTF-8 yields utf8.RuneError, one byte at a time.
// Iteration stops at the first error fn returns.
func eachSymbol(text string, mode Mode, fn func(sym rune, offset int) error) error {
	if mode == ModeByte {
		for i := 0; i < len(text); i++ {
			if err := fn(rune(text[i]), i); err != nil {
				return err
			}
		}
		return nil
	}
	for off, r := range text {
		if err := fn(r, off); err != nil {
			return err
		}
	}
	return nil
}

// appendSymbol writes sym to sb the way mode stores it.
func appendSymbol(sb *strings.Builder, sym rune, mode Mode) {
	if mode == ModeByte {
		sb.WriteByte(byte(sym))
		return
	}
	sb.WriteRune(sym)
}

// validSymbol reports whether sym can occur in a vocabulary of the given mode.
func validSymbol(sym rune, mode Mode) bool {
	if mode == ModeByte {
		return sym >= 0 && sym <= MaxByteSymbol
	}
	return utf8.ValidRune(sym)
}

// symbolString renders a symbol for error messages and listings.
func symbolString(sym rune, mode Mode) string {
	if mode == ModeByte {
		return string([]byte{byte(sym)})
	}
	return string(sym)
}
