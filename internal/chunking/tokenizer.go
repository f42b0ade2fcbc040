// Package chunking splits document text into token-bounded, overlapping
// windows and extracts candidate terms from stored content.
package chunking

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer splits text into pieces whose concatenation is the original text.
type Tokenizer interface {
	Name() string
	Tokenize(text string) []string
}

const (
	TokenizerTiktoken   = "tiktoken"
	TokenizerWhitespace = "whitespace"

	DefaultEncoding = "o200k_base"
)

// NewTokenizer builds a tokenizer by name. The tiktoken encoding tables are
// fetched on first use, so callers load it in the background.
func NewTokenizer(name, encoding string) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TokenizerTiktoken:
		if encoding == "" {
			encoding = DefaultEncoding
		}
		return NewTiktoken(encoding)
	case TokenizerWhitespace:
		return Whitespace{}, nil
	default:
		return nil, fmt.Errorf("unsupported tokenizer %q", name)
	}
}

type tiktokenTokenizer struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

// NewTiktoken loads a BPE encoding such as o200k_base or cl100k_base.
func NewTiktoken(encoding string) (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %s: %w", encoding, err)
	}
	return &tiktokenTokenizer{enc: enc, encoding: encoding}, nil
}

func (t *tiktokenTokenizer) Name() string { return TokenizerTiktoken + ":" + t.encoding }

// Tokenize decodes every token id on its own. A piece may hold a partial
// UTF-8 sequence; the bytes still join back to the input.
func (t *tiktokenTokenizer) Tokenize(text string) []string {
	ids := t.enc.Encode(text, nil, nil)
	pieces := make([]string, len(ids))
	for i, id := range ids {
		pieces[i] = t.enc.Decode([]int{id})
	}
	return pieces
}

var wordRe = regexp.MustCompile(`\s*\S+`)

// Whitespace treats each run of non-space characters, with the whitespace
// preceding it, as one token. It needs no model data.
type Whitespace struct{}

func (Whitespace) Name() string { return TokenizerWhitespace }

func (Whitespace) Tokenize(text string) []string {
	pieces := wordRe.FindAllString(text, -1)
	if len(pieces) == 0 {
		return nil
	}
	consumed := 0
	for _, p := range pieces {
		consumed += len(p)
	}
	if consumed < len(text) {
		pieces[len(pieces)-1] += text[consumed:]
	}
	return pieces
}

// CountTokens returns the number of tokens tok produces for text.
func CountTokens(tok Tokenizer, text string) int {
	return len(tok.Tokenize(text))
}
