package spreadsheet

import (
	"maps"
	"slices"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/position"
)

const (
	// FormulaMarker starts a formula when followed by at least one character.
	FormulaMarker = '='
	// EscapeMarker starts text that is shown without the marker, e.g. '=1 or '5.
	EscapeMarker = '\''
)

// ContentKind represents what a cell holds.
type ContentKind uint8

const (
	ContentEmpty ContentKind = iota
	ContentText
	ContentFormula
)

// Content is exactly one of Empty, Text or Formula. Text keeps the raw input
// verbatim, including any escape marker.
type Content struct {
	Kind    ContentKind
	Text    string
	Formula *formula.Formula
}

// parseContent classifies raw cell input. Only formula input can fail.
func parseContent(raw string) (Content, error) {
	switch {
	case raw == "":
		return Content{Kind: ContentEmpty}, nil
	case raw[0] == FormulaMarker && len(raw) > 1:
		f, err := formula.Parse(raw[1:])
		if err != nil {
			return Content{}, err
		}
		return Content{Kind: ContentFormula, Formula: f}, nil
	default:
		return Content{Kind: ContentText, Text: raw}, nil
	}
}

// RawText is the content as it reads back through GetText.
func (c Content) RawText() string {
	switch c.Kind {
	case ContentText:
		return c.Text
	case ContentFormula:
		return string(FormulaMarker) + c.Formula.Render()
	default:
		return ""
	}
}

// references lists the positions the content reads.
func (c Content) references() []position.Position {
	if c.Kind != ContentFormula {
		return nil
	}
	return c.Formula.ReferencedPositions()
}

// Cell is one materialized position of a Sheet. The Sheet owns every cell;
// edges between cells are stored as position keys and resolved through the
// sheet.
type Cell struct {
	sheet   *Sheet
	pos     position.Position
	content Content

	// nil means the value must be recomputed
	cache *Value

	precedents map[position.Position]struct{} // cells this cell reads
	dependents map[position.Position]struct{} // cells that read this cell

	// placeholder cells were created because a formula referenced them and
	// have never been written
	placeholder bool
}

func newCell(s *Sheet, pos position.Position) *Cell {
	return &Cell{
		sheet:      s,
		pos:        pos,
		precedents: make(map[position.Position]struct{}),
		dependents: make(map[position.Position]struct{}),
	}
}

// Value returns the cached value, evaluating the content first if the
// cache is empty. Evaluation problems are returned as error values.
func (c *Cell) Value() Value {
	if c.cache != nil {
		return *c.cache
	}

	v := c.evaluate()
	c.cache = &v
	return v
}

func (c *Cell) evaluate() Value {
	switch c.content.Kind {
	case ContentText:
		return TextValue(strings.TrimPrefix(c.content.Text, string(EscapeMarker)))
	case ContentFormula:
		result, err := c.content.Formula.Evaluate(formula.ResolverFunc(c.sheet.operandAt))
		if err != nil {
			return ErrorValue(formula.AsError(err).Code)
		}
		return NumberValue(result)
	default:
		return TextValue("")
	}
}

// Text returns the raw text of the cell. Formulas come back in canonical form.
func (c *Cell) Text() string {
	return c.content.RawText()
}

func (c *Cell) Content() Content { return c.content }

func (c *Cell) Position() position.Position { return c.pos }

// ReferencedCells lists the positions a formula cell reads, nil otherwise.
func (c *Cell) ReferencedCells() []position.Position {
	return c.content.references()
}

func (c *Cell) IsEmpty() bool { return c.content.Kind == ContentEmpty }

// IsPlaceholder reports whether the cell exists only because a formula
// references it.
func (c *Cell) IsPlaceholder() bool { return c.placeholder }

// IsCached reports whether a computed value is currently held.
func (c *Cell) IsCached() bool { return c.cache != nil }

// Precedents returns the positions this cell depends on, row-major.
func (c *Cell) Precedents() []position.Position {
	return sortedKeys(c.precedents)
}

// Dependents returns the positions that depend on this cell, row-major.
func (c *Cell) Dependents() []position.Position {
	return sortedKeys(c.dependents)
}

func sortedKeys(set map[position.Position]struct{}) []position.Position {
	return slices.SortedFunc(maps.Keys(set), position.Compare)
}
