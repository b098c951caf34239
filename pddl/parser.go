// Package pddl reads and writes a classical PDDL subset: typed STRIPS
// with negative and disjunctive conditions, equality, quantifiers,
// conditional effects and numeric fluents.
package pddl

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	pddlLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `;[^\n]*`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Number", Pattern: `[-+]?\d+(\.\d+)?`},
		{Name: "Keyword", Pattern: `:[a-zA-Z][\w-]*`},
		{Name: "Var", Pattern: `\?[a-zA-Z][\w-]*`},
		{Name: "Symbol", Pattern: `[a-zA-Z][\w-]*`},
		{Name: "LParen", Pattern: `\(`},
		{Name: "RParen", Pattern: `\)`},
		{Name: "Operator", Pattern: `<=|>=|=|<|>|\+|\*|/|-`},
	})

	sexprParser = participle.MustBuild[document](
		participle.Lexer(pddlLexer),
		participle.Elide("Comment", "Whitespace"),
	)
)

type document struct {
	Nodes []*sexpr `parser:"@@*"`
}

// sexpr is one node of the s-expression tree: exactly one field is set.
type sexpr struct {
	Number  *string  `parser:"  @Number"`
	Keyword *string  `parser:"| @Keyword"`
	Var     *string  `parser:"| @Var"`
	Op      *string  `parser:"| @Operator"`
	Symbol  *string  `parser:"| @Symbol"`
	List    *sublist `parser:"| @@"`
}

type sublist struct {
	Items []*sexpr `parser:"\"(\" @@* \")\""`
}

func (s *sexpr) isList() bool { return s.List != nil }

func (s *sexpr) items() []*sexpr {
	if s.List == nil {
		return nil
	}
	return s.List.Items
}

// atom returns the textual payload of a leaf node.
func (s *sexpr) atom() string {
	switch {
	case s.Number != nil:
		return *s.Number
	case s.Keyword != nil:
		return *s.Keyword
	case s.Var != nil:
		return *s.Var
	case s.Op != nil:
		return *s.Op
	case s.Symbol != nil:
		return *s.Symbol
	}
	return ""
}

// head returns the lowercased leading atom of a list, empty otherwise.
func (s *sexpr) head() string {
	items := s.items()
	if len(items) == 0 || items[0].isList() {
		return ""
	}
	return strings.ToLower(items[0].atom())
}

func (s *sexpr) String() string {
	if !s.isList() {
		return s.atom()
	}
	parts := make([]string, len(s.items()))
	for i, it := range s.items() {
		parts[i] = it.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// parse turns PDDL source into its s-expression forest.
func parse(name, src string) ([]*sexpr, error) {
	doc, err := sexprParser.ParseString(name, src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return doc.Nodes, nil
}

// parseOne expects exactly one top level form, the (define ...) of a
// domain or problem file.
func parseOne(name, src string) (*sexpr, error) {
	nodes, err := parse(name, src)
	if err != nil {
		return nil, err
	}
	if len(nodes) != 1 {
		return nil, fmt.Errorf("%s: expected one top level form, got %d", name, len(nodes))
	}
	if !nodes[0].isList() {
		return nil, fmt.Errorf("%s: top level form must be a list", name)
	}
	return nodes[0], nil
}
