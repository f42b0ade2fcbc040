package chunking

import (
	"regexp"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/mcp-memory-graph-go/internal/errs"
)

// capitalizedRunRe matches two or more consecutive capitalized words on one line.
var capitalizedRunRe = regexp.MustCompile(`\b\p{Lu}[\p{L}\p{N}'-]*(?:[ \t]+\p{Lu}[\p{L}\p{N}'-]*)+`)

// TermOptions tune ExtractTerms.
type TermOptions struct {
	// Pattern is an extra regular expression. When it has a capture group the
	// first group is the term, otherwise the whole match.
	Pattern   string
	MinLength int
	Limit     int
}

const DefaultTermMinLength = 3

// Term is one candidate with the number of times it occurs.
type Term struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
	Source    string `json:"source"`
}

// ExtractTerms collects capitalized multi-word runs and pattern matches from
// text. Candidates are deduplicated by exact text and sorted by frequency
// descending, then term ascending.
func ExtractTerms(text string, opts TermOptions) ([]Term, error) {
	minLen := opts.MinLength
	if minLen <= 0 {
		minLen = DefaultTermMinLength
	}

	var custom *regexp.Regexp
	if opts.Pattern != "" {
		re, err := regexp.Compile(opts.Pattern)
		if err != nil {
			return nil, errs.Validation("extract_terms", "invalid pattern: %v", err)
		}
		custom = re
	}

	counts := map[string]*Term{}
	add := func(term, source string) {
		term = strings.TrimSpace(term)
		if len([]rune(term)) < minLen {
			return
		}
		if t, ok := counts[term]; ok {
			t.Frequency++
			return
		}
		counts[term] = &Term{Term: term, Frequency: 1, Source: source}
	}

	for _, m := range capitalizedRunRe.FindAllString(text, -1) {
		add(m, "capitalized")
	}
	if custom != nil {
		for _, m := range custom.FindAllStringSubmatch(text, -1) {
			if len(m) > 1 {
				add(m[1], "pattern")
			} else {
				add(m[0], "pattern")
			}
		}
	}

	out := make([]Term, 0, len(counts))
	for _, t := range counts {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Term < out[j].Term
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}
