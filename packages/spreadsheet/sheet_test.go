package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/position"
)

func TestScenarios(t *testing.T) {
	t.Run("UpdatePropagates", func(t *testing.T) {
		NewSheetTestCase(t, "Scenario A").
			Set("A1", "5").
			Set("B1", "=A1+1").
			AssertNumber("B1", 6).
			Set("A1", "10").
			AssertNumber("B1", 11).
			AssertConsistent().
			End()
	})

	t.Run("SelfReference", func(t *testing.T) {
		NewSheetTestCase(t, "Scenario B").
			SetFails("A1", "=A1", ErrCircularDependency).
			AssertAbsent("A1").
			AssertSize(0, 0).
			End()
	})

	t.Run("MutualReference", func(t *testing.T) {
		NewSheetTestCase(t, "Scenario C").
			Set("A1", "=B1").
			AssertPlaceholder("B1").
			SetFails("B1", "=A1", ErrCircularDependency).
			AssertText("A1", "=B1").
			AssertPlaceholder("B1").
			AssertNumber("A1", 0).
			AssertConsistent().
			End()
	})

	t.Run("EscapedText", func(t *testing.T) {
		NewSheetTestCase(t, "Scenario D").
			Set("A1", "'5").
			AssertText("A1", "'5").
			AssertValueText("A1", "5").
			End()
	})

	t.Run("ChainInvalidation", func(t *testing.T) {
		tc := NewSheetTestCase(t, "Scenario E").
			Set("A1", "1").
			Set("B1", "=A1").
			Set("C1", "=B1").
			AssertNumber("C1", 1).
			AssertCached("B1", true).
			AssertCached("C1", true)

		tc.Set("A1", "2").
			AssertCached("B1", false).
			AssertCached("C1", false).
			AssertNumber("C1", 2).
			AssertCached("B1", true).
			End()
	})
}

func TestCellContent(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		NewSheetTestCase(t, "Plain text").
			Set("A1", "hello").
			AssertValueText("A1", "hello").
			AssertText("A1", "hello").
			End()

		NewSheetTestCase(t, "Numeric text stays text").
			Set("A1", "42").
			AssertValueText("A1", "42").
			End()

		NewSheetTestCase(t, "Lone formula marker is text").
			Set("A1", "=").
			AssertValueText("A1", "=").
			AssertText("A1", "=").
			End()

		NewSheetTestCase(t, "Escaped formula").
			Set("A1", "'=1+2").
			AssertValueText("A1", "=1+2").
			AssertText("A1", "'=1+2").
			End()
	})

	t.Run("Formula", func(t *testing.T) {
		NewSheetTestCase(t, "Canonical text").
			Set("A1", "= ( 1 + 2 ) * a2").
			AssertText("A1", "=(1+2)*A2").
			AssertNumber("A1", 0).
			End()

		NewSheetTestCase(t, "Redundant parentheses are dropped").
			Set("A1", "=((1))+(2*3)").
			AssertText("A1", "=1+2*3").
			AssertNumber("A1", 7).
			End()
	})

	t.Run("EmptyText", func(t *testing.T) {
		NewSheetTestCase(t, "Empty write occupies the cell").
			Set("C2", "").
			AssertValueText("C2", "").
			AssertSize(2, 3).
			End()
	})
}

func TestReferencedText(t *testing.T) {
	NewSheetTestCase(t, "Numeric text is read as a number").
		Set("A1", "5").
		Set("A2", " 2.5 ").
		Set("B1", "=A1*A2").
		AssertNumber("B1", 12.5).
		End()

	NewSheetTestCase(t, "Other text is a value error").
		Set("A1", "five").
		Set("B1", "=A1+1").
		AssertErr("B1", formula.ErrorCodeValue).
		End()

	NewSheetTestCase(t, "Escaped number reads as a number").
		Set("A1", "'5").
		Set("B1", "=A1+1").
		AssertNumber("B1", 6).
		End()

	NewSheetTestCase(t, "Text in ranges is skipped").
		Set("A1", "1").
		Set("A2", "two").
		Set("A3", "3").
		Set("B1", "=SUM(A1:A3)").
		Set("B2", "=COUNT(A1:A3)").
		AssertNumber("B1", 4).
		AssertNumber("B2", 2).
		End()
}

func TestEvaluationErrors(t *testing.T) {
	NewSheetTestCase(t, "Division by zero").
		Set("A1", "0").
		Set("B1", "=1/A1").
		AssertErr("B1", formula.ErrorCodeDiv0).
		End()

	NewSheetTestCase(t, "Errors propagate through references").
		Set("A1", "=1/0").
		Set("B1", "=A1+1").
		Set("C1", "=SUM(B1, 1)").
		AssertErr("B1", formula.ErrorCodeDiv0).
		AssertErr("C1", formula.ErrorCodeDiv0).
		End()

	NewSheetTestCase(t, "Reference outside the grid").
		Set("A1", "=ZZZZ1+1").
		AssertErr("A1", formula.ErrorCodeRef).
		AssertText("A1", "=ZZZZ1+1").
		End()

	NewSheetTestCase(t, "Unknown function").
		Set("A1", "=FOO(1)").
		AssertErr("A1", formula.ErrorCodeName).
		End()

	NewSheetTestCase(t, "Error clears once the input is fixed").
		Set("A1", "0").
		Set("B1", "=10/A1").
		AssertErr("B1", formula.ErrorCodeDiv0).
		Set("A1", "4").
		AssertNumber("B1", 2.5).
		End()
}

func TestStructuralErrors(t *testing.T) {
	t.Run("InvalidPosition", func(t *testing.T) {
		s := New()
		bad := position.Position{Row: position.MaxRows, Col: 0}

		err := s.SetCell(bad, "1")
		require.ErrorIs(t, err, ErrInvalidPosition)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = s.GetCell(position.Position{Row: -1, Col: 3})
		assert.ErrorIs(t, err, ErrInvalidPosition)
		_, err = s.GetValue(bad)
		assert.ErrorIs(t, err, ErrInvalidPosition)
		_, err = s.GetText(bad)
		assert.ErrorIs(t, err, ErrInvalidPosition)
		assert.ErrorIs(t, s.ClearCell(bad), ErrInvalidPosition)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("ParseError", func(t *testing.T) {
		tc := NewSheetTestCase(t, "Rejected formula").
			Set("A1", "7").
			Set("B1", "=A1")
		tc.SetFails("B1", "=1+", ErrFormulaParse).
			SetFails("B1", "=(1", ErrFormulaParse).
			SetFails("C1", "=A1:A2", ErrFormulaParse).
			AssertText("B1", "=A1").
			AssertNumber("B1", 7).
			AssertAbsent("C1").
			End()

		err := tc.sheet.SetCell(position.MustParse("B1"), "=1+")
		var appErr *AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, codes.InvalidArgument, appErr.Code)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		var parseErr *formula.ParseError
		assert.True(t, errors.As(err, &parseErr))
	})

	t.Run("CircularDependency", func(t *testing.T) {
		tc := NewSheetTestCase(t, "Rejected cycle").
			Set("A1", "1").
			Set("A2", "=A1+1").
			Set("A3", "=A2+1").
			Set("A4", "=SUM(A1:A3)")

		tc.SetFails("A1", "=A4", ErrCircularDependency).
			SetFails("A1", "=SUM(A2:B9)", ErrCircularDependency).
			SetFails("A2", "=A2*2", ErrCircularDependency).
			AssertText("A1", "1").
			AssertNumber("A4", 6).
			AssertAbsent("B9").
			AssertConsistent().
			End()

		err := tc.sheet.SetCell(position.MustParse("A1"), "=A3")
		assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	})

	t.Run("CycleThroughPlaceholder", func(t *testing.T) {
		NewSheetTestCase(t, "Placeholder written later").
			Set("A1", "=B1+1").
			Set("B1", "=C1*2").
			SetFails("C1", "=A1", ErrCircularDependency).
			AssertPlaceholder("C1").
			Set("C1", "3").
			AssertNumber("A1", 7).
			AssertConsistent().
			End()
	})
}

func TestUpdateAndRecalculation(t *testing.T) {
	t.Run("FormulaChanges", func(t *testing.T) {
		tc := NewSheetTestCase(t, "Change formula").
			Set("A1", "10").
			Set("A2", "3").
			Set("B1", "=A1*2").
			AssertNumber("B1", 20).
			Set("B1", "=A2+5").
			AssertNumber("B1", 8)

		// the old edge to A1 must be gone
		tc.Set("A1", "100").
			AssertCached("B1", true).
			AssertNumber("B1", 8).
			AssertConsistent().
			End()

		a1, err := tc.sheet.GetCell(position.MustParse("A1"))
		require.NoError(t, err)
		assert.Empty(t, a1.Dependents())
	})

	t.Run("DiamondDependency", func(t *testing.T) {
		NewSheetTestCase(t, "Diamond").
			Set("A1", "2").
			Set("B1", "=A1*10").
			Set("B2", "=A1+1").
			Set("C1", "=B1+B2").
			AssertNumber("C1", 23).
			Set("A1", "3").
			AssertNumber("C1", 34).
			AssertConsistent().
			End()
	})

	t.Run("RangeDependency", func(t *testing.T) {
		NewSheetTestCase(t, "Writes inside a range").
			Set("B1", "=SUM(A1:A3)").
			AssertNumber("B1", 0).
			Set("A2", "5").
			AssertNumber("B1", 5).
			Set("A3", "=A2*2").
			AssertNumber("B1", 15).
			AssertConsistent().
			End()
	})
}

func TestNoOpWrite(t *testing.T) {
	s := New()
	a1, b1 := position.MustParse("A1"), position.MustParse("B1")
	require.NoError(t, s.SetCell(a1, "4"))
	require.NoError(t, s.SetCell(b1, "=A1 * 2"))

	v, err := s.GetValue(b1)
	require.NoError(t, err)
	require.Equal(t, NumberValue(8), v)

	// A1 and B1 both hold their canonical text already
	require.NoError(t, s.SetCell(a1, "4"))
	require.NoError(t, s.SetCell(b1, "=A1*2"))

	cell, _ := s.GetCell(b1)
	assert.True(t, cell.IsCached())
	assert.Equal(t, position.Size{Rows: 1, Cols: 2}, s.GetPrintableSize())
}

func TestClearCell(t *testing.T) {
	t.Run("AbsentCell", func(t *testing.T) {
		NewSheetTestCase(t, "Clear nothing").
			Clear("D4").
			AssertAbsent("D4").
			AssertSize(0, 0).
			End()
	})

	t.Run("Unreferenced", func(t *testing.T) {
		NewSheetTestCase(t, "Clear removes the cell").
			Set("A1", "1").
			Set("B2", "=A1").
			Clear("B2").
			AssertAbsent("B2").
			AssertSize(1, 1).
			End()
	})

	t.Run("WithDependents", func(t *testing.T) {
		tc := NewSheetTestCase(t, "Clear referenced cell").
			Set("A1", "10").
			Set("B1", "=A1*2").
			AssertNumber("B1", 20).
			Clear("A1").
			AssertPlaceholder("A1").
			AssertCached("B1", false).
			AssertNumber("B1", 0).
			AssertSize(1, 2).
			AssertConsistent()

		tc.Set("A1", "7").
			AssertNumber("B1", 14).
			End()
	})

	t.Run("DropsOutgoingEdges", func(t *testing.T) {
		tc := NewSheetTestCase(t, "Clear formula").
			Set("A1", "1").
			Set("B1", "=A1").
			Clear("B1")

		// A1 no longer feeds anything, so B1 may now be referenced by A1
		tc.Set("A1", "=B1").
			AssertNumber("A1", 0).
			AssertConsistent().
			End()
	})

	t.Run("Placeholder", func(t *testing.T) {
		NewSheetTestCase(t, "Clear placeholder").
			Set("A1", "=C3").
			Clear("C3").
			AssertPlaceholder("C3").
			AssertSize(1, 1).
			AssertConsistent().
			End()
	})
}

func TestPrintableSize(t *testing.T) {
	t.Run("GrowsOnWrite", func(t *testing.T) {
		NewSheetTestCase(t, "Grow").
			AssertSize(0, 0).
			Set("B3", "x").
			AssertSize(3, 2).
			Set("A1", "y").
			AssertSize(3, 2).
			Set("E1", "z").
			AssertSize(3, 5).
			End()
	})

	t.Run("PlaceholdersDoNotCount", func(t *testing.T) {
		NewSheetTestCase(t, "Reference far away").
			Set("A1", "=Z100").
			AssertPlaceholder("Z100").
			AssertSize(1, 1).
			End()
	})

	t.Run("ShrinksOnClear", func(t *testing.T) {
		NewSheetTestCase(t, "Shrink").
			Set("A1", "1").
			Set("C2", "2").
			Set("B5", "3").
			AssertSize(5, 3).
			Clear("B5").
			AssertSize(2, 3).
			Clear("C2").
			AssertSize(1, 1).
			Clear("A1").
			AssertSize(0, 0).
			End()
	})

	t.Run("InteriorClearKeepsSize", func(t *testing.T) {
		NewSheetTestCase(t, "Interior").
			Set("A1", "1").
			Set("C3", "2").
			Clear("A1").
			AssertSize(3, 3).
			End()
	})

	t.Run("ClearedButReferenced", func(t *testing.T) {
		NewSheetTestCase(t, "Boundary placeholder").
			Set("A1", "=B4").
			Set("B4", "9").
			AssertSize(4, 2).
			Clear("B4").
			AssertPlaceholder("B4").
			AssertSize(1, 1).
			End()
	})
}

func TestCellsIteration(t *testing.T) {
	s := New()
	for _, addr := range []string{"C1", "A2", "B1", "A1"} {
		require.NoError(t, s.SetCell(position.MustParse(addr), "1"))
	}
	require.NoError(t, s.SetCell(position.MustParse("A3"), "=D9"))

	var got []string
	for pos, cell := range s.Cells() {
		label := pos.String()
		if cell.IsPlaceholder() {
			label += "?"
		}
		got = append(got, label)
	}
	assert.Equal(t, []string{"A1", "B1", "C1", "A2", "A3", "D9?"}, got)
	assert.Equal(t, 6, s.Len())
}

func TestGetAllDependents(t *testing.T) {
	tc := NewSheetTestCase(t, "Transitive dependents").
		Set("A1", "1").
		Set("B1", "=A1").
		Set("B2", "=A1*2").
		Set("C1", "=B1+B2").
		Set("D1", "=C1")

	var got []string
	for _, pos := range tc.sheet.GetAllDependents(position.MustParse("A1")) {
		got = append(got, pos.String())
	}
	assert.Equal(t, []string{"B1", "C1", "D1", "B2"}, got)
	assert.Empty(t, tc.sheet.GetAllDependents(position.MustParse("D1")))
}

func TestInvalidateVisitsEachCellOnce(t *testing.T) {
	s := New()
	require.NoError(t, s.SetCell(position.MustParse("A1"), "1"))
	require.NoError(t, s.SetCell(position.MustParse("B1"), "=A1+A1"))
	require.NoError(t, s.SetCell(position.MustParse("B2"), "=A1"))
	require.NoError(t, s.SetCell(position.MustParse("C1"), "=B1+B2"))

	assert.Equal(t, 4, s.invalidate(position.MustParse("A1")))
	assert.Equal(t, 2, s.invalidate(position.MustParse("B2")))
	assert.Equal(t, 1, s.invalidate(position.MustParse("C1")))
}

func TestPrint(t *testing.T) {
	tc := NewSheetTestCase(t, "Print").
		Set("A1", "'=x").
		Set("B1", "=A2*2").
		Set("A2", "1.5").
		Set("C2", "=1/0")

	var values, texts bytes.Buffer
	require.NoError(t, tc.sheet.PrintValues(&values))
	require.NoError(t, tc.sheet.PrintTexts(&texts))

	assert.Equal(t, "=x\t3\t\n1.5\t\t#DIV/0!\n", values.String())
	assert.Equal(t, "'=x\t=A2*2\t\n1.5\t\t=1/0\n", texts.String())

	var empty bytes.Buffer
	require.NoError(t, New().PrintValues(&empty))
	assert.Empty(t, empty.String())
}

func TestDependencyDOT(t *testing.T) {
	tc := NewSheetTestCase(t, "DOT").
		Set("A1", "1").
		Set("B1", "=A1+C1")

	dot := tc.sheet.DependencyDOT()
	assert.Contains(t, dot, "digraph G {")
	assert.Contains(t, dot, `"A1" -> "B1";`)
	assert.Contains(t, dot, `"C1" -> "B1";`)
	assert.Contains(t, dot, `"B1" [label="B1\n=A1+C1"];`)
	assert.Contains(t, dot, `"C1" [label="C1", style="rounded,filled,dashed", fillcolor=lightgrey];`)
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	s := New(WithLogger(logger))

	require.NoError(t, s.SetCell(position.MustParse("A1"), "1"))
	require.Error(t, s.SetCell(position.MustParse("A1"), "=A1"))

	assert.Contains(t, buf.String(), "set cell")
	assert.Contains(t, buf.String(), "rejected circular reference")
}

// TestRandomEdits applies random writes and clears over a small grid and
// checks the graph invariants after every step.
func TestRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := New()

	addr := func() string {
		return fmt.Sprintf("%c%d", 'A'+rng.IntN(4), 1+rng.IntN(4))
	}
	texts := []func() string{
		func() string { return fmt.Sprint(rng.IntN(10)) },
		func() string { return "=" + addr() + "+1" },
		func() string { return "=" + addr() + "*" + addr() },
		func() string { return "=SUM(" + addr() + ":" + addr() + ")" },
		func() string { return "text" },
		func() string { return "" },
	}

	for step := range 500 {
		pos := position.MustParse(addr())
		if rng.IntN(5) == 0 {
			require.NoError(t, s.ClearCell(pos))
		} else {
			text := texts[rng.IntN(len(texts))]()
			before := snapshotOf(s)
			if err := s.SetCell(pos, text); err != nil {
				require.ErrorIs(t, err, ErrCircularDependency, "step %d: %s=%q", step, pos, text)
				if diff := cmp.Diff(before, snapshotOf(s)); diff != "" {
					t.Fatalf("step %d: rejected write changed the sheet:\n%s", step, diff)
				}
			}
		}

		require.True(t, s.edgesSymmetric(), "step %d", step)
		require.False(t, s.HasCycle(), "step %d", step)
		if step%25 == 0 {
			assertConsistent(t, s)
		}
	}
	assertConsistent(t, s)
}

func TestFormulaSharing(t *testing.T) {
	s := New()
	key := FormulaKey("A1*2")

	for _, addr := range []string{"B1", "B2", "B3"} {
		require.NoError(t, s.SetCell(position.MustParse(addr), "=a1 * (2)"))
	}
	assert.Equal(t, 1, s.Formulas().Count())
	assert.Equal(t, 3, s.Formulas().GetReferenceCount(key))

	b1, _ := s.GetCell(position.MustParse("B1"))
	b3, _ := s.GetCell(position.MustParse("B3"))
	assert.Same(t, b1.Content().Formula, b3.Content().Formula)

	require.NoError(t, s.SetCell(position.MustParse("B2"), "=A1+1"))
	require.NoError(t, s.ClearCell(position.MustParse("B3")))
	assert.Equal(t, 1, s.Formulas().GetReferenceCount(key))
	assert.Equal(t, 2, s.Formulas().Count())

	var using []string
	for _, pos := range s.Formulas().CellsUsing(key) {
		using = append(using, pos.String())
	}
	assert.Equal(t, []string{"B1"}, using)

	// rejected writes never reach the table
	require.ErrorIs(t, s.SetCell(position.MustParse("A1"), "=B1"), ErrCircularDependency)
	assert.Equal(t, 2, s.Formulas().Count())

	require.NoError(t, s.SetCell(position.MustParse("B1"), "text"))
	assert.Equal(t, 0, s.Formulas().GetReferenceCount(key))
	assert.Equal(t, 1, s.Formulas().Count())
}
