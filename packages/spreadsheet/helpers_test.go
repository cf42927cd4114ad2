package spreadsheet

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/position"
)

// SheetTestCase chains writes and assertions against one sheet.
type SheetTestCase struct {
	t     *testing.T
	name  string
	sheet *Sheet
}

func NewSheetTestCase(t *testing.T, name string) *SheetTestCase {
	t.Helper()
	return &SheetTestCase{t: t, name: name, sheet: New()}
}

func (tc *SheetTestCase) Set(address, text string) *SheetTestCase {
	tc.t.Helper()
	err := tc.sheet.SetCell(position.MustParse(address), text)
	require.NoError(tc.t, err, "%s: SetCell(%s, %q)", tc.name, address, text)
	return tc
}

// SetFails expects the write to be rejected with kind and to leave the sheet
// exactly as it was.
func (tc *SheetTestCase) SetFails(address, text string, kind error) *SheetTestCase {
	tc.t.Helper()
	before := snapshotOf(tc.sheet)
	err := tc.sheet.SetCell(position.MustParse(address), text)
	require.ErrorIs(tc.t, err, kind, "%s: SetCell(%s, %q)", tc.name, address, text)
	if diff := cmp.Diff(before, snapshotOf(tc.sheet)); diff != "" {
		tc.t.Errorf("%s: rejected write changed the sheet (-before +after):\n%s", tc.name, diff)
	}
	return tc
}

func (tc *SheetTestCase) Clear(address string) *SheetTestCase {
	tc.t.Helper()
	require.NoError(tc.t, tc.sheet.ClearCell(position.MustParse(address)), "%s: ClearCell(%s)", tc.name, address)
	return tc
}

func (tc *SheetTestCase) value(address string) Value {
	tc.t.Helper()
	v, err := tc.sheet.GetValue(position.MustParse(address))
	require.NoError(tc.t, err, "%s: GetValue(%s)", tc.name, address)
	return v
}

func (tc *SheetTestCase) AssertNumber(address string, expected float64) *SheetTestCase {
	tc.t.Helper()
	v := tc.value(address)
	if assert.Equal(tc.t, ValueNumber, v.Kind, "%s: cell %s = %v, want number", tc.name, address, v) {
		assert.InDelta(tc.t, expected, v.Number, 1e-10, "%s: cell %s", tc.name, address)
	}
	return tc
}

func (tc *SheetTestCase) AssertValueText(address, expected string) *SheetTestCase {
	tc.t.Helper()
	assert.Equal(tc.t, TextValue(expected), tc.value(address), "%s: cell %s", tc.name, address)
	return tc
}

func (tc *SheetTestCase) AssertErr(address string, code formula.ErrorCode) *SheetTestCase {
	tc.t.Helper()
	assert.Equal(tc.t, ErrorValue(code), tc.value(address), "%s: cell %s", tc.name, address)
	return tc
}

func (tc *SheetTestCase) AssertText(address, expected string) *SheetTestCase {
	tc.t.Helper()
	text, err := tc.sheet.GetText(position.MustParse(address))
	require.NoError(tc.t, err)
	assert.Equal(tc.t, expected, text, "%s: text of %s", tc.name, address)
	return tc
}

func (tc *SheetTestCase) AssertSize(rows, cols int) *SheetTestCase {
	tc.t.Helper()
	assert.Equal(tc.t, position.Size{Rows: rows, Cols: cols}, tc.sheet.GetPrintableSize(), "%s: printable size", tc.name)
	return tc
}

// AssertAbsent expects no cell at all, not even a placeholder.
func (tc *SheetTestCase) AssertAbsent(address string) *SheetTestCase {
	tc.t.Helper()
	cell, err := tc.sheet.GetCell(position.MustParse(address))
	require.NoError(tc.t, err)
	assert.Nil(tc.t, cell, "%s: cell %s should not exist", tc.name, address)
	return tc
}

func (tc *SheetTestCase) AssertPlaceholder(address string) *SheetTestCase {
	tc.t.Helper()
	cell, err := tc.sheet.GetCell(position.MustParse(address))
	require.NoError(tc.t, err)
	if assert.NotNil(tc.t, cell, "%s: cell %s should exist", tc.name, address) {
		assert.True(tc.t, cell.IsPlaceholder(), "%s: cell %s should be a placeholder", tc.name, address)
		assert.True(tc.t, cell.IsEmpty())
	}
	return tc
}

func (tc *SheetTestCase) AssertCached(address string, cached bool) *SheetTestCase {
	tc.t.Helper()
	cell, err := tc.sheet.GetCell(position.MustParse(address))
	require.NoError(tc.t, err)
	require.NotNil(tc.t, cell, "%s: cell %s should exist", tc.name, address)
	assert.Equal(tc.t, cached, cell.IsCached(), "%s: cache state of %s", tc.name, address)
	return tc
}

// AssertConsistent checks the graph invariants and that cached values match
// a full recalculation.
func (tc *SheetTestCase) AssertConsistent() *SheetTestCase {
	tc.t.Helper()
	assertConsistent(tc.t, tc.sheet)
	return tc
}

func (tc *SheetTestCase) End() {}

func assertConsistent(t *testing.T, s *Sheet) {
	t.Helper()
	assert.True(t, s.edgesSymmetric(), "precedent and dependent edges disagree")
	assert.False(t, s.HasCycle(), "dependency graph has a cycle")

	cached := s.ValueGrid()
	s.Recalculate()
	if diff := cmp.Diff(s.ValueGrid(), cached); diff != "" {
		t.Errorf("cached values diverge from full recalculation (-recalculated +cached):\n%s", diff)
	}
}

// snapshot is everything observable about a sheet.
type snapshot struct {
	Values [][]string
	Texts  [][]string
	Size   position.Size
	Cells  map[string]string
}

func snapshotOf(s *Sheet) snapshot {
	snap := snapshot{
		Values: s.ValueGrid(),
		Texts:  s.TextGrid(),
		Size:   s.GetPrintableSize(),
		Cells:  make(map[string]string),
	}
	for pos, cell := range s.Cells() {
		snap.Cells[pos.String()] = cell.Text()
	}
	return snap
}

// edgesSymmetric reports whether every edge is recorded on both ends.
func (s *Sheet) edgesSymmetric() bool {
	for pos, cell := range s.cells {
		for p := range cell.precedents {
			precedent, ok := s.cells[p]
			if !ok {
				return false
			}
			if _, ok := precedent.dependents[pos]; !ok {
				return false
			}
		}
		for d := range cell.dependents {
			dependent, ok := s.cells[d]
			if !ok {
				return false
			}
			if _, ok := dependent.precedents[pos]; !ok {
				return false
			}
		}
	}
	return true
}
