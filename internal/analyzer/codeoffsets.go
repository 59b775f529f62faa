package analyzer

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// SourceLanguages maps a field's declared source language to its
// tree-sitter grammar, grounded on the teacher's LanguageRegistry
// (internal/chunk/languages.go) but scoped down to what the offsets
// helper below needs.
var SourceLanguages = map[string]*sitter.Language{
	"go":         golang.GetLanguage(),
	"javascript": javascript.GetLanguage(),
	"python":     python.GetLanguage(),
}

// CodeOffsetReader extracts identifier byte ranges from source text via
// tree-sitter, supplementing the plain tokenizer's offsets for fields
// the schema marks as source code (SPEC_FULL.md §3 domain-stack wiring:
// tree-sitter gives exact identifier boundaries the plain tokenizer
// only approximates).
type CodeOffsetReader struct {
	parser *sitter.Parser
}

// NewCodeOffsetReader creates a reusable tree-sitter parser.
func NewCodeOffsetReader() *CodeOffsetReader {
	return &CodeOffsetReader{parser: sitter.NewParser()}
}

// Close releases the underlying parser.
func (r *CodeOffsetReader) Close() {
	if r.parser != nil {
		r.parser.Close()
	}
}

// IdentifierOffsets parses source under language and returns every
// identifier-leaf node's (term, byteOffset), in document order. Returns
// an error only on a parse failure; an unsupported language yields an
// empty result so callers can fall back to the plain tokenizer.
func (r *CodeOffsetReader) IdentifierOffsets(ctx context.Context, source []byte, language string) ([]Token, error) {
	lang, ok := SourceLanguages[language]
	if !ok {
		return nil, nil
	}
	r.parser.SetLanguage(lang)
	tree, err := r.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, nil
	}
	defer tree.Close()

	var out []Token
	pos := 1
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if n.Type() == "identifier" {
			out = append(out, Token{
				Term:       string(source[n.StartByte():n.EndByte()]),
				Position:   pos,
				ByteOffset: int(n.StartByte()),
			})
			pos++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return out, nil
}
