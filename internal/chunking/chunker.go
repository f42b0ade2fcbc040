package chunking

import (
	"strings"
	"unicode/utf8"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

// Options bound the sliding window.
type Options struct {
	MaxTokens int
	Overlap   int
}

// Validate rejects windows that cannot make progress.
func (o Options) Validate() error {
	const op = "chunking"
	switch {
	case o.MaxTokens <= 0:
		return errs.Validation(op, "maxTokens must be positive, got %d", o.MaxTokens)
	case o.Overlap < 0:
		return errs.Validation(op, "overlap must not be negative, got %d", o.Overlap)
	case o.Overlap >= o.MaxTokens:
		return errs.Validation(op, "overlap (%d) must be smaller than maxTokens (%d)", o.Overlap, o.MaxTokens)
	}
	return nil
}

// Piece is one window of a document before it is persisted.
type Piece struct {
	Position   int
	Text       string
	TokenCount int
}

// Split cuts text into windows of at most MaxTokens tokens where each window
// starts MaxTokens-Overlap tokens after the previous one. Text of T tokens
// yields ceil((T-O)/(M-O)) windows, or a single window when T <= M.
func Split(tok Tokenizer, text string, opts Options) ([]Piece, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	tokens := tok.Tokenize(text)
	total := len(tokens)
	if total == 0 {
		return nil, errs.Validation("chunking", "content has no tokens")
	}
	if total <= opts.MaxTokens {
		return []Piece{{Position: 0, Text: text, TokenCount: total}}, nil
	}

	// offsets[i] is the byte offset of token i in joined.
	joined := strings.Join(tokens, "")
	offsets := make([]int, total+1)
	for i, t := range tokens {
		offsets[i+1] = offsets[i] + len(t)
	}

	step := opts.MaxTokens - opts.Overlap
	pieces := make([]Piece, 0, (total-opts.Overlap+step-1)/step)
	for start := 0; ; start += step {
		end := min(start+opts.MaxTokens, total)
		pieces = append(pieces, Piece{
			Position:   len(pieces),
			Text:       runeAligned(joined, offsets[start], offsets[end]),
			TokenCount: end - start,
		})
		if end == total {
			break
		}
	}
	return pieces, nil
}

// runeAligned returns s[lo:hi] widened so that a multi-byte character split
// by a token boundary is kept whole.
func runeAligned(s string, lo, hi int) string {
	for lo > 0 && !utf8.RuneStart(s[lo]) {
		lo--
	}
	for hi < len(s) && !utf8.RuneStart(s[hi]) {
		hi++
	}
	return s[lo:hi]
}

// ExpectedChunks returns the window count Split produces for total tokens.
func ExpectedChunks(total int, opts Options) int {
	if total <= 0 {
		return 0
	}
	if total <= opts.MaxTokens {
		return 1
	}
	step := opts.MaxTokens - opts.Overlap
	return (total - opts.Overlap + step - 1) / step
}
