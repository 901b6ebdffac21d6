package wordfit

import (
	"strings"
	"unicode"
)

type Class int

const (
	Other Class = iota
	Word
	Punct
)

func (c Class) String() string {
	switch c {
	case Word:
		return "word"
	case Punct:
		return "punct"
	default:
		return "other"
	}
}

const (
	// DefaultPunct are separators kept between digits, as in 12,345 or 3.5 or 10:30.
	DefaultPunct = ",.:"
	// DefaultWordExtra are non-alphanumeric runes that still belong to a word.
	DefaultWordExtra = "'’‘-‐‑_"
)

// Classes configures the character grammar. Letters, digits and combining
// marks are always word characters.
type Classes struct {
	Punct     string
	WordExtra string
}

func DefaultClasses() Classes {
	return Classes{Punct: DefaultPunct, WordExtra: DefaultWordExtra}
}

func (c Classes) Classify(r rune) Class {
	switch {
	case strings.ContainsRune(c.Punct, r):
		return Punct
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
		return Word
	case strings.ContainsRune(c.WordExtra, r):
		return Word
	default:
		return Other
	}
}
