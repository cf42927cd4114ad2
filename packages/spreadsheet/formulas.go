package spreadsheet

import (
	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/position"
)

// FormulaKey is the canonical text of a formula. Two formulas that differ
// only in whitespace, letter case or redundant parentheses share a key.
type FormulaKey string

// FormulaTable stores parsed formulas centrally so that cells holding the
// same expression share one immutable *formula.Formula.
type FormulaTable struct {
	formulas  map[FormulaKey]*formula.Formula
	refCounts map[FormulaKey]int

	// cell tracking

	cellsUsingFormula map[FormulaKey]map[position.Position]struct{}
	formulaAtCell     map[position.Position]FormulaKey
}

// NewFormulaTable creates a new formula table
func NewFormulaTable() *FormulaTable {
	return &FormulaTable{
		formulas:          make(map[FormulaKey]*formula.Formula),
		refCounts:         make(map[FormulaKey]int),
		cellsUsingFormula: make(map[FormulaKey]map[position.Position]struct{}),
		formulaAtCell:     make(map[position.Position]FormulaKey),
	}
}

func keyOf(f *formula.Formula) FormulaKey {
	return FormulaKey(f.Render())
}

// Intern records that the cell at pos holds f and returns the shared
// instance for f's key. Any formula previously held at pos is released.
func (ft *FormulaTable) Intern(f *formula.Formula, pos position.Position) *formula.Formula {
	key := keyOf(f)
	if old, exists := ft.formulaAtCell[pos]; exists {
		if old == key {
			return ft.formulas[key]
		}
		ft.Release(pos)
	}

	shared, exists := ft.formulas[key]
	if !exists {
		shared = f
		ft.formulas[key] = f
		ft.cellsUsingFormula[key] = make(map[position.Position]struct{})
	}
	ft.refCounts[key]++
	ft.cellsUsingFormula[key][pos] = struct{}{}
	ft.formulaAtCell[pos] = key
	return shared
}

// Release drops the formula held at pos, if any. It returns true if that was
// the last cell using the formula and the formula was removed.
func (ft *FormulaTable) Release(pos position.Position) bool {
	key, exists := ft.formulaAtCell[pos]
	if !exists {
		return false
	}
	delete(ft.formulaAtCell, pos)
	delete(ft.cellsUsingFormula[key], pos)

	ft.refCounts[key]--
	if ft.refCounts[key] > 0 {
		return false
	}
	delete(ft.formulas, key)
	delete(ft.refCounts, key)
	delete(ft.cellsUsingFormula, key)
	return true
}

// CellsUsing returns the positions holding the formula with key, row-major.
func (ft *FormulaTable) CellsUsing(key FormulaKey) []position.Position {
	return sortedKeys(ft.cellsUsingFormula[key])
}

// GetReferenceCount returns how many cells hold the formula with key.
func (ft *FormulaTable) GetReferenceCount(key FormulaKey) int {
	return ft.refCounts[key]
}

// Count returns the number of distinct formulas.
func (ft *FormulaTable) Count() int {
	return len(ft.formulas)
}
