// Package analyzer provides the tokenization collaborator the core
// engine consults at write and query-expansion time. spec.md §1 treats
// tokenization as an external collaborator; this package is that
// collaborator, built on bleve's analysis primitives the way the
// teacher's BM25 index builds its code-aware tokenizer.
package analyzer

import (
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
)

const (
	TokenizerName  = "ftengine_tokenizer"
	StopFilterName = "ftengine_stopfilter"
)

// DefaultStopWords mirrors the small, code-biased stop list the teacher
// ships (articles and the most common English function words), trimmed
// since source identifiers rarely collide with them.
var DefaultStopWords = []string{"a", "an", "the", "is", "are", "was", "were", "of", "to", "in"}

// Token is one analyzed term, carrying the byte offset and ordinal
// position the inverted index's offsets-vector codec needs.
type Token struct {
	Term       string
	Position   int
	ByteOffset int
}

// Analyzer tokenizes field text into Terms with stable offsets.
type Analyzer struct {
	mu        sync.RWMutex
	tokenizer analysis.Tokenizer
	filters   []analysis.TokenFilter

	// Expand optionally maps a surface term to its expansion set
	// (stemming/synonyms/phonetics); each expansion becomes a union
	// child per spec.md §4.6. Defaults to identity.
	Expand func(term string) []string
}

// New creates an analyzer with the given stop words (lower-cased on
// input). A nil or empty list disables stop-word filtering.
func New(stopWords []string) *Analyzer {
	a := &Analyzer{
		tokenizer: &codeTokenizer{},
		filters: []analysis.TokenFilter{
			lowercase.NewLowerCaseFilter(),
		},
	}
	if len(stopWords) > 0 {
		a.filters = append(a.filters, &stopFilter{stopWords: buildStopWordSet(stopWords)})
	}
	return a
}

// Analyze tokenizes text, returning terms in position order.
func (a *Analyzer) Analyze(text string) []Token {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stream := a.tokenizer.Tokenize([]byte(text))
	for _, f := range a.filters {
		stream = f.Filter(stream)
	}

	out := make([]Token, 0, len(stream))
	for _, tok := range stream {
		out = append(out, Token{
			Term:       string(tok.Term),
			Position:   tok.Position,
			ByteOffset: tok.Start,
		})
	}
	return out
}

// ExpandTerm returns term's expansion set (including term itself unless
// Expand says otherwise). Used by the planner to build a union of
// stemmed/synonym variants around one query term.
func (a *Analyzer) ExpandTerm(term string) []string {
	if a.Expand == nil {
		return []string{term}
	}
	return a.Expand(term)
}

// codeTokenizer splits on alphanumeric runs, then sub-splits camelCase
// and snake_case identifiers, per the teacher's TokenizeCode/
// SplitCodeToken/SplitCamelCase trio (internal/store/tokenizer.go).
type codeTokenizer struct{}

func (codeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	words := splitAlnum(text)

	var out analysis.TokenStream
	pos := 1
	offset := 0
	for _, word := range words {
		for _, sub := range splitCodeToken(word) {
			if len(sub) < 1 {
				continue
			}
			start := strings.Index(text[offset:], sub)
			if start == -1 {
				start = offset
			} else {
				start += offset
			}
			end := start + len(sub)
			out = append(out, &analysis.Token{
				Term:     []byte(sub),
				Start:    start,
				End:      end,
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
			if end <= len(text) {
				offset = end
			}
		}
	}
	return out
}

func splitAlnum(s string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func splitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var out []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				out = append(out, splitCamelCase(part)...)
			}
		}
		return out
	}
	return splitCamelCase(token)
}

func splitCamelCase(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	var cur strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || nextLower {
				if cur.Len() > 0 {
					out = append(out, cur.String())
					cur.Reset()
				}
			}
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

type stopFilter struct {
	stopWords map[string]struct{}
}

func (f *stopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := make(analysis.TokenStream, 0, len(input))
	for _, tok := range input {
		if _, stop := f.stopWords[strings.ToLower(string(tok.Term))]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func buildStopWordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}
