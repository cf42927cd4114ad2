// Package formula parses and evaluates the arithmetic expressions stored in
// formula cells.
//
// An expression is the cell text after the leading '='. It supports numbers,
// cell references, + - * / ^, unary +/-, postfix %, parentheses and a small
// set of numeric functions, some of which accept ranges such as A1:B3.
//
// Evaluation never fails outright: problems such as dividing by zero or
// reading a cell that holds non-numeric text come back as an *Error value
// carrying an ErrorCode.
package formula

import (
	"errors"
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/position"
)

// Formula is a parsed expression. It is immutable and safe to share.
type Formula struct {
	root       ASTNode
	references []position.Position
}

// Parse parses expression, the formula text without its leading marker.
// Failures are *ParseError values matching ErrParse.
func Parse(expression string) (*Formula, error) {
	tokens, perr := NewLexer(expression).Tokenize()
	if perr != nil {
		return nil, perr
	}

	root, perr := NewParser(tokens).Parse()
	if perr != nil {
		return nil, perr
	}

	return &Formula{root: root, references: collectReferences(root)}, nil
}

// Evaluate computes the formula against r. A non-nil error is always an
// *Error describing an evaluation failure.
func (f *Formula) Evaluate(r Resolver) (float64, error) {
	v, err := f.root.Eval(r)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// ReferencedPositions lists every cell the formula reads, sorted row-major
// and without duplicates. References outside the grid are left out. The
// caller must not modify the returned slice.
func (f *Formula) ReferencedPositions() []position.Position {
	return f.references
}

// Render returns the canonical expression text, without the leading marker
// and without redundant parentheses.
func (f *Formula) Render() string {
	return f.root.ToString()
}

// AsError returns err as an evaluation error, wrapping anything unexpected
// as #ERROR!.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var evalErr *Error
	if errors.As(err, &evalErr) {
		return evalErr
	}
	return NewError(ErrorCodeOther, err.Error())
}

func collectReferences(root ASTNode) []position.Position {
	seen := make(map[position.Position]struct{})
	add := func(pos position.Position) {
		if pos.IsValid() {
			seen[pos] = struct{}{}
		}
	}

	walk(root, func(n ASTNode) {
		switch node := n.(type) {
		case *CellRefNode:
			add(node.Pos)
		case *RangeNode:
			for pos := range node.Iterate {
				add(pos)
			}
		}
	})

	refs := make([]position.Position, 0, len(seen))
	for pos := range seen {
		refs = append(refs, pos)
	}
	slices.SortFunc(refs, position.Compare)
	return refs
}
